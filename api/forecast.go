package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"finance-ai-backend/cache"
	"finance-ai-backend/forecast"

	"github.com/rs/zerolog/log"
)

const forecastCacheType = "cash_flow_forecast"

// historyWindowDays delimita quanto extrato alimenta a projeção.
const historyWindowDays = 90

// Forecast projeta o fluxo de caixa para ?days dias (1..90, default 30).
// A chave de cache inclui o horizonte: pedidos de 30 e 60 dias são entradas
// distintas.
func (h *Handlers) Forecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	userID, ok := callerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid days parameter")
			return
		}
		days = parsed
	}
	days = forecast.ClampDays(days)

	key := cache.Key("cash-flow-forecast", userID, strconv.Itoa(days))
	if !wantsRefresh(r) {
		if res := h.Cache.Lookup(r.Context(), key, forecastMaxAge); res != nil {
			setCacheHit(w, res)
			writeRaw(w, http.StatusOK, res.Data)
			return
		}
	}
	setCacheMiss(w, h.Cache.HotTTLSeconds())

	now := h.now()
	var txs []forecast.Transaction
	if uid := userUUID(userID); uid != nil && h.Transactions != nil {
		var err error
		txs, err = h.Transactions.RecentTransactions(r.Context(), *uid, now.AddDate(0, 0, -historyWindowDays))
		if err != nil {
			// extrato indisponível degrada para "sem histórico", não para 500
			log.Warn().Err(err).Str("user", userID).Msg("api: transaction load failed")
			txs = nil
		}
	}

	result := forecast.Project(txs, days, now)
	body, err := json.Marshal(result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	// só respostas com série gerada valem a pena cachear
	if len(result.Forecast) > 0 {
		h.Cache.Store(r.Context(), key, forecastCacheType, userUUID(userID), body)
	}
	writeRaw(w, http.StatusOK, body)
}

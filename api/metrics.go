package api

import (
	"net/http"

	"finance-ai-backend/cache"
	"finance-ai-backend/middleware/ratelimit/domain"

	"github.com/rs/zerolog/log"
)

type metricsResponse struct {
	Cache          cache.Stats                `json:"cache"`
	DurableEntries map[string]int64           `json:"durable_entries"`
	RateLimit      map[string]domain.Counters `json:"rate_limit"`
}

// CacheMetrics expõe os contadores do cache (por nível), a contagem de
// linhas duráveis por tipo e os contadores allowed/denied do limiter.
func (h *Handlers) CacheMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if _, ok := callerID(r); !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resp := metricsResponse{
		Cache:          h.Cache.Snapshot(),
		DurableEntries: h.Cache.DurableCounts(r.Context()),
		RateLimit:      map[string]domain.Counters{},
	}
	if h.LimiterStats != nil {
		counters, err := h.LimiterStats.Snapshot(r.Context())
		if err != nil {
			log.Warn().Err(err).Msg("api: limiter stats unavailable")
		} else {
			resp.RateLimit = counters
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

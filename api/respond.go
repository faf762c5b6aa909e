package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"finance-ai-backend/cache"

	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("api: write response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeRaw emite um documento JSON já serializado sem re-encodar.
func writeRaw(w http.ResponseWriter, status int, doc json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(doc); err != nil {
		log.Warn().Err(err).Msg("api: write response failed")
	}
}

func setCacheHit(w http.ResponseWriter, res *cache.Result) {
	w.Header().Set("X-Cache", "HIT")
	w.Header().Set("X-Cache-Source", res.Source)
	w.Header().Set("X-Cache-TTL", strconv.Itoa(res.TTLSeconds))
}

func setCacheMiss(w http.ResponseWriter, ttlSeconds int) {
	w.Header().Set("X-Cache", "MISS")
	w.Header().Set("X-Cache-TTL", strconv.Itoa(ttlSeconds))
}

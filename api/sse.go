package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"finance-ai-backend/llm"

	"github.com/rs/zerolog/log"
)

// sseWriter serializa eventos no formato data: <json>\n\n com flush a cada
// evento, fechando com o sentinela data: [DONE]\n\n.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseWriter{w: w, flusher: flusher}, true
}

func (s *sseWriter) Event(ev llm.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("api: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) Done() {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		log.Debug().Err(err).Msg("api: client disconnected before [DONE]")
		return
	}
	s.flusher.Flush()
}

// wantsStream decide entre SSE e resposta bufferizada.
func wantsStream(r *http.Request) bool {
	if r.URL.Query().Get("stream") == "1" {
		return true
	}
	return r.Header.Get("Accept") == "text/event-stream"
}

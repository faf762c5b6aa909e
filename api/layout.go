package api

import (
	"encoding/json"
	"net/http"

	"finance-ai-backend/cache"
	"finance-ai-backend/llm"

	"github.com/rs/zerolog/log"
)

const layoutCacheType = "dashboard_layout"

const layoutSystemPrompt = `You are a personal finance assistant. Design a dashboard layout ` +
	`for the user as a JSON object with a "widgets" array. Briefly explain your choices ` +
	`in plain text before the JSON.`

// Layout gera o layout do dashboard via LLM. Com ?stream=1 (ou Accept:
// text/event-stream) responde SSE com a prosa em tempo real e o documento
// no evento final; sem streaming, responde o documento direto.
func (h *Handlers) Layout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	userID, ok := callerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	key := cache.Key("dashboard-layout", userID)
	streaming := wantsStream(r)

	if !wantsRefresh(r) {
		if res := h.Cache.Lookup(r.Context(), key, layoutMaxAge); res != nil {
			setCacheHit(w, res)
			if streaming {
				h.streamCached(w, res.Data)
				return
			}
			writeRaw(w, http.StatusOK, res.Data)
			return
		}
	}
	setCacheMiss(w, h.Cache.HotTTLSeconds())

	if !h.LLM.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "AI service not configured")
		return
	}

	messages := []llm.Message{
		{Role: "system", Content: layoutSystemPrompt},
		{Role: "user", Content: "Generate my dashboard layout."},
	}

	if streaming {
		h.streamLayout(w, r, key, userID, messages)
		return
	}

	doc, err := h.LLM.Generate(r.Context(), messages, nil)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("api: layout generation failed")
		writeError(w, http.StatusBadGateway, "AI service error")
		return
	}
	h.Cache.Store(r.Context(), key, layoutCacheType, userUUID(userID), doc)
	writeRaw(w, http.StatusOK, doc)
}

// streamCached reproduz um hit de cache no mesmo vocabulário de eventos do
// caminho streaming: um único evento complete e o sentinela.
func (h *Handlers) streamCached(w http.ResponseWriter, doc json.RawMessage) {
	sse, ok := newSSEWriter(w)
	if !ok {
		writeRaw(w, http.StatusOK, doc)
		return
	}
	if err := sse.Event(llm.Event{Type: llm.EventComplete, Data: doc}); err != nil {
		return
	}
	sse.Done()
}

func (h *Handlers) streamLayout(w http.ResponseWriter, r *http.Request, key, userID string, messages []llm.Message) {
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	doc, err := h.LLM.Generate(r.Context(), messages, func(text string) error {
		return sse.Event(llm.Event{Type: llm.EventStreamingText, Content: text})
	})
	if err != nil {
		// headers já foram; o erro vai como evento, não como status
		log.Warn().Err(err).Str("user", userID).Msg("api: layout stream failed")
		_ = sse.Event(llm.Event{Type: llm.EventError, Error: "AI service error"})
		sse.Done()
		return
	}

	h.Cache.Store(r.Context(), key, layoutCacheType, userUUID(userID), doc)
	if err := sse.Event(llm.Event{Type: llm.EventComplete, Data: doc}); err != nil {
		return
	}
	sse.Done()
}

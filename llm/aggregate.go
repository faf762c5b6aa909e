package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Tipos de evento repassados ao cliente durante o streaming.
const (
	EventStreamingText = "streaming_text"
	EventComplete      = "complete"
	EventError         = "error"
)

// ErrNoDocument indica que o stream terminou sem nenhum documento JSON.
var ErrNoDocument = errors.New("llm: no JSON document in response")

// Event é o que o servidor repassa ao front via SSE.
type Event struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Aggregator consome deltas do modelo em duas fases: antes do primeiro "{"
// tudo é prosa e vira streaming_text; a partir dele tudo é acumulado e o
// documento é extraído uma única vez no final, do primeiro "{" ao último
// "}".
//
// A extração é gulosa e não entende strings JSON: um "}" solto em prosa
// depois do documento entra no recorte e derruba o parse. Na prática os
// modelos encerram com o documento; quando não encerram, o erro aparece no
// Finish e vira um evento de erro, nunca um documento truncado.
type Aggregator struct {
	buf       strings.Builder
	buffering bool
}

// Feed recebe um delta e retorna o trecho que ainda deve ser repassado como
// streaming_text ("" quando o agregador já entrou na fase de captura).
func (a *Aggregator) Feed(delta string) string {
	if a.buffering {
		a.buf.WriteString(delta)
		return ""
	}
	idx := strings.IndexByte(delta, '{')
	if idx < 0 {
		return delta
	}
	a.buffering = true
	a.buf.WriteString(delta[idx:])
	return delta[:idx]
}

// Finish extrai e valida o documento acumulado.
func (a *Aggregator) Finish() (json.RawMessage, error) {
	raw := a.buf.String()
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, ErrNoDocument
	}

	doc := raw[start : end+1]
	if !json.Valid([]byte(doc)) {
		return nil, errors.New("llm: extracted document is not valid JSON")
	}
	return json.RawMessage(doc), nil
}

// Generate roda a chamada completa: repassa a prosa via onText (pode ser
// nil para chamadas não-streaming) e retorna o documento final extraído.
func (c *Client) Generate(ctx context.Context, messages []Message, onText func(string) error) (json.RawMessage, error) {
	var agg Aggregator
	err := c.StreamChat(ctx, messages, func(delta string) error {
		text := agg.Feed(delta)
		if text != "" && onText != nil {
			return onText(text)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg.Finish()
}

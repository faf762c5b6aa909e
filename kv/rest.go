package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RestClient fala o protocolo REST do store: cada comando é um array JSON
// de tokens postado na URL base; pipelines vão em <base>/pipeline como um
// array de arrays, executado atomicamente pelo store.
type RestClient struct {
	baseURL string
	token   string
	httpc   *http.Client
}

type RestOption func(*RestClient)

func WithHTTPClient(httpc *http.Client) RestOption {
	return func(c *RestClient) { c.httpc = httpc }
}

// NewRestClient aceita url/token vazios: o cliente fica desabilitado e todo
// comando vira no-op (resultado nulo, sem erro). Isso mantém os endpoints
// funcionando sem cache/rate-limit quando as credenciais não existem.
func NewRestClient(baseURL, token string, opts ...RestOption) *RestClient {
	c := &RestClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RestClient) Enabled() bool {
	return c != nil && c.baseURL != "" && c.token != ""
}

type restResult struct {
	Result any    `json:"result"`
	Error  string `json:"error"`
}

func (c *RestClient) Do(ctx context.Context, cmd Command) (any, error) {
	if !c.Enabled() {
		return nil, nil
	}
	var out restResult
	if err := c.post(ctx, c.baseURL, cmd, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("kv: %s", out.Error)
	}
	return out.Result, nil
}

func (c *RestClient) Pipeline(ctx context.Context, cmds []Command) ([]any, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if len(cmds) == 0 {
		return nil, nil
	}
	var out []restResult
	if err := c.post(ctx, c.baseURL+"/pipeline", cmds, &out); err != nil {
		return nil, err
	}
	results := make([]any, len(out))
	for i, r := range out {
		if r.Error != "" {
			return nil, fmt.Errorf("kv: pipeline[%d]: %s", i, r.Error)
		}
		results[i] = r.Result
	}
	return results, nil
}

func (c *RestClient) post(ctx context.Context, url string, body any, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("kv: marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("kv: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("kv: store unreachable")
		return fmt.Errorf("kv: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// corpo curto só para diagnóstico no log
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		log.Warn().Int("status", resp.StatusCode).Str("body", string(snippet)).Msg("kv: store returned error")
		return fmt.Errorf("kv: store status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("kv: decode response: %w", err)
	}
	return nil
}

package domain

// Camada de domínio do rate limit por janela deslizante.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http
// nem do store concreto.

import (
	"context"
	"errors"
	"time"
)

// Config define o orçamento de um endpoint: no máximo MaxRequests
// dentro dos últimos WindowSeconds.
type Config struct {
	MaxRequests   int
	WindowSeconds int
}

func (c Config) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// DefaultEndpoint é a entrada usada quando o endpoint não tem config própria.
const DefaultEndpoint = "default"

// DefaultConfigs é a tabela estática por endpoint. Endpoints que pagam
// chamada de LLM têm orçamento menor que os de leitura barata.
var DefaultConfigs = map[string]Config{
	"ai-layout":     {MaxRequests: 10, WindowSeconds: 60},
	"ai-forecast":   {MaxRequests: 20, WindowSeconds: 60},
	"cache-metrics": {MaxRequests: 60, WindowSeconds: 60},
	DefaultEndpoint: {MaxRequests: 30, WindowSeconds: 60},
}

// ConfigFor resolve a config do endpoint na tabela, caindo no default.
func ConfigFor(configs map[string]Config, endpoint string) Config {
	if configs == nil {
		configs = DefaultConfigs
	}
	if cfg, ok := configs[endpoint]; ok {
		return cfg
	}
	if cfg, ok := configs[DefaultEndpoint]; ok {
		return cfg
	}
	return Config{MaxRequests: 30, WindowSeconds: 60}
}

// Decision é derivada, nunca armazenada.
type Decision struct {
	Allowed bool
	Limit   int
	// Remaining nunca é negativo.
	Remaining int
	// ResetInSeconds é a recomendação de espera (Retry-After) quando bloquear.
	ResetInSeconds int
	// Total inclui a requisição atual.
	Total int
}

// ErrUnavailable sinaliza que o store de janelas está inacessível ou não
// configurado. O chamador decide a política: aqui, sempre fail-open.
var ErrUnavailable = errors.New("rate limit store unavailable")

// WindowStore registra a requisição atual na janela de (identifier, endpoint)
// e devolve a contagem resultante, incluindo a própria requisição.
//
// A implementação deve podar entradas mais velhas que a janela antes de
// contar, e fazer isso como uma unidade atômica no store.
type WindowStore interface {
	Count(ctx context.Context, key string, window time.Duration) (int, error)
}

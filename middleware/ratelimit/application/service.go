package application

import (
	"context"

	"finance-ai-backend/middleware/ratelimit/domain"

	"github.com/rs/zerolog/log"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store domain.WindowStore
	// Configs sobrescreve a tabela default (testes, tuning por ambiente).
	Configs map[string]domain.Config
}

// Check decide a admissão de (identifier, endpoint).
//
// Se o store estiver ausente, mal configurado ou a chamada falhar, a decisão
// é fail-open: admite com a cota cheia. Disponibilidade do produto nunca
// depende do canal de rate limiting.
func (s Service) Check(ctx context.Context, identifier, endpoint string) domain.Decision {
	cfg := domain.ConfigFor(s.Configs, endpoint)

	if s.Store == nil {
		return failOpen(cfg)
	}

	key := "ratelimit:" + identifier + ":" + endpoint
	count, err := s.Store.Count(ctx, key, cfg.Window())
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("ratelimit: store failed, failing open")
		return failOpen(cfg)
	}

	remaining := cfg.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return domain.Decision{
		Allowed:        count <= cfg.MaxRequests,
		Limit:          cfg.MaxRequests,
		Remaining:      remaining,
		ResetInSeconds: cfg.WindowSeconds,
		Total:          count,
	}
}

func failOpen(cfg domain.Config) domain.Decision {
	return domain.Decision{
		Allowed:        true,
		Limit:          cfg.MaxRequests,
		Remaining:      cfg.MaxRequests,
		ResetInSeconds: cfg.WindowSeconds,
	}
}

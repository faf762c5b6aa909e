package api

import (
	"context"
	"net/http"
	"time"

	"finance-ai-backend/cache"
	"finance-ai-backend/forecast"
	"finance-ai-backend/llm"
	"finance-ai-backend/middleware/auth"
	"finance-ai-backend/middleware/ratelimit/domain"

	"github.com/google/uuid"
)

// Idade máxima de uma linha durável por endpoint. O nível quente expira
// sozinho via TTL; o durável não, então a frescura é decidida aqui.
const (
	layoutMaxAge   = 6 * time.Hour
	forecastMaxAge = time.Hour
)

// TransactionSource fornece o extrato usado pelo forecast (store.Postgres).
type TransactionSource interface {
	RecentTransactions(ctx context.Context, userID uuid.UUID, since time.Time) ([]forecast.Transaction, error)
}

type Handlers struct {
	Cache        *cache.ResponseCache
	Transactions TransactionSource
	LLM          *llm.Client
	// LimiterStats alimenta o endpoint de métricas; pode ser nil.
	LimiterStats domain.StatsSource

	// NowFn é injetável nos testes; default time.Now.
	NowFn func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.NowFn != nil {
		return h.NowFn()
	}
	return time.Now()
}

// callerID extrai o usuário autenticado do contexto. Os handlers rodam
// atrás do middleware de auth, mas checam de novo para não depender da
// ordem de montagem das rotas.
func callerID(r *http.Request) (string, bool) {
	id := auth.UserID(r.Context())
	return id, id != ""
}

func wantsRefresh(r *http.Request) bool {
	v := r.URL.Query().Get("refresh")
	return v == "1" || v == "true"
}

// userUUID converte o subject do token para uuid quando possível; subjects
// não-uuid ainda funcionam, só deixam a coluna user_id nula.
func userUUID(id string) *uuid.UUID {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	return &parsed
}

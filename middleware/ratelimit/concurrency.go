package ratelimit

import (
	"encoding/json"
	"net/http"
	"time"

	"finance-ai-backend/middleware/ratelimit/application"
	"finance-ai-backend/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	// Max limita as chamadas de IA simultâneas em voo; 0 desliga o limite.
	Max            int
	AcquireTimeout time.Duration
}

// ConcurrencyMiddleware segura requisições quando todas as vagas estão
// ocupadas; estourado o timeout de aquisição, responde 503 com corpo JSON.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": "Too many concurrent AI requests, try again shortly",
				})
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}

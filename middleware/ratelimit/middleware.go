package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"finance-ai-backend/middleware/auth"
	"finance-ai-backend/middleware/ratelimit/application"
	"finance-ai-backend/middleware/ratelimit/domain"
)

// KeyFunc extrai o identificador a ser limitado (usuário, API key, IP).
type KeyFunc func(r *http.Request) string

// UserKeyFunc resolve o identificador pelo usuário autenticado no contexto.
// A janela é por usuário: dois usuários atrás do mesmo NAT não dividem a
// cota, e o mesmo usuário em dois IPs não dobra a dele. Requisições sem
// usuário caem no fallback.
func UserKeyFunc(fallback KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		if id := auth.UserID(r.Context()); id != "" {
			return id
		}
		return fallback(r)
	}
}

type Options struct {
	Service application.Service
	// Endpoint nomeia a entrada na tabela de configs (ex: "ai-forecast").
	Endpoint           string
	Stats              domain.StatsStore
	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					ip := strings.TrimSpace(parts[0])
					if ip != "" {
						return ip
					}
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// Middleware aplica o rate limit de janela deslizante.
//
// Os headers X-RateLimit-* vão em TODA resposta (inclusive as admitidas),
// para o cliente poder se auto-regular. Rejeição vira 429 com Retry-After
// e corpo JSON.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = UserKeyFunc(DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor))
	}
	if opts.Endpoint == "" {
		opts.Endpoint = domain.DefaultEndpoint
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := opts.KeyFn(r)

			dec := opts.Service.Check(r.Context(), identifier, opts.Endpoint)

			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Endpoint:   opts.Endpoint,
					Identifier: identifier,
					Allowed:    dec.Allowed,
					At:         time.Now(),
				})
			}

			w.Header().Set("X-RateLimit-Limit", formatInt(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
			w.Header().Set("X-RateLimit-Reset", formatInt(dec.ResetInSeconds))

			if !dec.Allowed {
				w.Header().Set("Retry-After", formatInt(dec.ResetInSeconds))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":      "Rate limit exceeded",
					"retryAfter": dec.ResetInSeconds,
					"remaining":  dec.Remaining,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

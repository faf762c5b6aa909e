// Package auth fornece o middleware de autenticação por bearer token (JWT).
//
// A verificação acontece antes de qualquer trabalho de rate limit ou cache:
// token ausente ou inválido responde 401 na hora. O id do usuário (claim
// "sub") fica disponível no contexto via UserID.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type ctxKey struct{}

// UserID retorna o id do usuário autenticado, ou "" se não houver.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithUserID injeta o id no contexto (testes e wiring interno).
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

type Options struct {
	// Secret é a chave HMAC usada para validar a assinatura.
	Secret []byte
}

var errUnexpectedMethod = errors.New("auth: unexpected signing method")

// Middleware valida o header Authorization e propaga o usuário no contexto.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, err := subjectFromRequest(r, opts.Secret)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sub)))
		})
	}
}

func subjectFromRequest(r *http.Request, secret []byte) (string, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errors.New("auth: missing bearer token")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedMethod
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("auth: token without subject")
	}
	return claims.Subject, nil
}

package infra

import (
	"context"
	"fmt"
	"time"

	"finance-ai-backend/kv"
	"finance-ai-backend/middleware/ratelimit/domain"

	"github.com/google/uuid"
)

// SlidingWindowStore mantém a janela (identifier, endpoint) como um sorted
// set no KV store, com score = timestamp em milissegundos.
//
// Cada Count emite um único pipeline atômico de quatro comandos:
//
//  1. ZREMRANGEBYSCORE poda tudo com score <= now-window
//  2. ZADD registra a requisição atual (membro com sufixo aleatório para não
//     colidir com requisições concorrentes no mesmo milissegundo)
//  3. ZCARD conta o que sobrou (inclui a entrada recém-adicionada)
//  4. EXPIRE renova o TTL para window+1s, então janelas abandonadas se limpam
type SlidingWindowStore struct {
	KV kv.Doer
	// NowFn injeta o relógio nos testes; nil usa time.Now.
	NowFn func() time.Time
}

func (s *SlidingWindowStore) Count(ctx context.Context, key string, window time.Duration) (int, error) {
	if s == nil || s.KV == nil || !s.KV.Enabled() {
		return 0, domain.ErrUnavailable
	}

	now := time.Now
	if s.NowFn != nil {
		now = s.NowFn
	}
	nowMs := now().UnixMilli()
	windowStartMs := nowMs - window.Milliseconds()
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	results, err := s.KV.Pipeline(ctx, []kv.Command{
		{"ZREMRANGEBYSCORE", key, 0, windowStartMs},
		{"ZADD", key, nowMs, member},
		{"ZCARD", key},
		{"EXPIRE", key, int64(window.Seconds()) + 1},
	})
	if err != nil {
		return 0, err
	}
	if len(results) < 4 {
		return 0, domain.ErrUnavailable
	}

	count, ok := kv.AsInt64(results[2])
	if !ok {
		return 0, domain.ErrUnavailable
	}
	return int(count), nil
}

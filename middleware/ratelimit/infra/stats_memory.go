package infra

import (
	"context"
	"sync"

	"finance-ai-backend/middleware/ratelimit/domain"
)

// MemoryStats é uma implementação simples em memória, por endpoint.
// Útil para testes e para deployments sem KV store.
//
// Não persiste entre restarts e não agrega entre réplicas.
type MemoryStats struct {
	mu         sync.Mutex
	byEndpoint map[string]domain.Counters
}

func NewMemoryStats() *MemoryStats {
	return &MemoryStats{byEndpoint: make(map[string]domain.Counters)}
}

func (s *MemoryStats) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.byEndpoint[ev.Endpoint]
	if ev.Allowed {
		c.Allowed++
	} else {
		c.Denied++
	}
	s.byEndpoint[ev.Endpoint] = c
	return nil
}

func (s *MemoryStats) Snapshot(_ context.Context) (map[string]domain.Counters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.Counters, len(s.byEndpoint))
	for k, v := range s.byEndpoint {
		out[k] = v
	}
	return out, nil
}

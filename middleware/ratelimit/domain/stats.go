package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão do rate limit, para observabilidade.
//
// Cuidado com cardinalidade: Identifier pode ser id de usuário ou IP;
// implementações que persistem por identifier devem aplicar TTL.
type StatsEvent struct {
	Endpoint   string
	Identifier string
	Allowed    bool

	At time.Time
}

// StatsStore é a estratégia de persistência das estatísticas de decisão.
//
// O middleware trata erro como best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// Counters agrega decisões de um endpoint.
type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// StatsSource expõe o snapshot por endpoint para o endpoint de métricas.
type StatsSource interface {
	Snapshot(ctx context.Context) (map[string]Counters, error)
}

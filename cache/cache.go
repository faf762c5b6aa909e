// Package cache implementa o cache de respostas em dois níveis: um nível
// quente (KV store, TTL curto) e um nível durável (Postgres, retenção mais
// longa), usado como fallback e para reaquecer o nível quente.
//
// O padrão é cache-aside: o handler consulta, computa no miss e grava de
// volta. A frescura de uma linha durável é sempre calculada pelo leitor a
// partir de created_at: a presença da linha nunca basta, porque linhas
// duráveis não se auto-apagam.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"finance-ai-backend/kv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Entry é a representação durável de uma resposta cacheada.
type Entry struct {
	CacheKey     string
	CacheType    string
	UserID       *uuid.UUID
	ResponseData json.RawMessage
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Durable é o contrato do nível durável (implementado por store.Postgres).
//
// GetEntry retorna (nil, nil) quando a linha não existe.
type Durable interface {
	GetEntry(ctx context.Context, cacheKey string) (*Entry, error)
	UpsertEntry(ctx context.Context, e Entry) error
	CountByType(ctx context.Context) (map[string]int64, error)
}

// Result é um hit de cache, anotado com o nível de origem.
type Result struct {
	Data json.RawMessage
	// Source é "redis" (nível quente) ou "database" (nível durável).
	Source string
	// TTLSeconds alimenta o header X-Cache-TTL.
	TTLSeconds int
}

// Stats agrega os contadores locais do processo.
type Stats struct {
	HotHits     int64 `json:"hot_hits"`
	DurableHits int64 `json:"durable_hits"`
	Misses      int64 `json:"misses"`
	Writes      int64 `json:"writes"`
}

type ResponseCache struct {
	kv      *kv.Client
	durable Durable

	hotTTL     time.Duration
	durableTTL time.Duration
	now        func() time.Time

	hotHits     atomic.Int64
	durableHits atomic.Int64
	misses      atomic.Int64
	writes      atomic.Int64
}

type Option func(*ResponseCache)

// WithHotTTL define o TTL do nível quente (default 30min).
func WithHotTTL(d time.Duration) Option {
	return func(c *ResponseCache) { c.hotTTL = d }
}

// WithDurableTTL define o horizonte de expires_at das linhas duráveis
// (default 12h). É informativo: a frescura efetiva vem do max-age do leitor.
func WithDurableTTL(d time.Duration) Option {
	return func(c *ResponseCache) { c.durableTTL = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) { c.now = now }
}

// New aceita kv nulo/desabilitado e durable nulo: cada nível ausente apenas
// degrada para miss, nunca falha.
func New(kvc *kv.Client, durable Durable, opts ...Option) *ResponseCache {
	c := &ResponseCache{
		kv:         kvc,
		durable:    durable,
		hotTTL:     30 * time.Minute,
		durableTTL: 12 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key monta a chave determinística: endpoint, usuário e parâmetros
// discriminantes (ex: horizonte do forecast em dias).
func Key(endpoint, userID string, params ...string) string {
	parts := append([]string{endpoint, userID}, params...)
	return strings.Join(parts, ":")
}

// Lookup consulta primeiro o nível quente; no miss, o durável. Um hit
// durável ainda fresco reaquece o nível quente antes de retornar, para as
// próximas requisições pegarem o caminho rápido. Retorna nil no miss.
func (c *ResponseCache) Lookup(ctx context.Context, key string, maxAge time.Duration) *Result {
	if c == nil {
		return nil
	}

	if c.kv.Enabled() {
		if s, ok := c.kv.Get(ctx, key); ok {
			c.hotHits.Add(1)
			ttl := int(c.hotTTL.Seconds())
			if remaining, ok := c.kv.TTL(ctx, key); ok && remaining > 0 {
				ttl = int(remaining)
			}
			return &Result{Data: json.RawMessage(s), Source: "redis", TTLSeconds: ttl}
		}
	}

	if c.durable == nil {
		c.misses.Add(1)
		return nil
	}

	entry, err := c.durable.GetEntry(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: durable lookup failed")
		c.misses.Add(1)
		return nil
	}
	if entry == nil || c.now().Sub(entry.CreatedAt) > maxAge {
		// linha ausente ou vencida: linhas duráveis não se auto-apagam,
		// então idade > max-age é miss mesmo com a linha presente
		c.misses.Add(1)
		return nil
	}

	c.durableHits.Add(1)
	if c.kv.Enabled() {
		// reaquecimento síncrono; falha só custa o caminho rápido seguinte
		c.kv.Set(ctx, key, string(entry.ResponseData), c.hotTTL)
	}
	return &Result{Data: entry.ResponseData, Source: "database", TTLSeconds: int(c.hotTTL.Seconds())}
}

// Store grava a resposta fresca nos dois níveis, em paralelo. Upsert por
// chave no nível durável: writes concorrentes são last-writer-wins, nunca
// acumulam linhas duplicadas.
func (c *ResponseCache) Store(ctx context.Context, key, cacheType string, userID *uuid.UUID, data json.RawMessage) {
	if c == nil {
		return
	}
	c.writes.Add(1)
	now := c.now()

	var wg sync.WaitGroup
	if c.kv.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.kv.Set(ctx, key, string(data), c.hotTTL)
		}()
	}
	if c.durable != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.durable.UpsertEntry(ctx, Entry{
				CacheKey:     key,
				CacheType:    cacheType,
				UserID:       userID,
				ResponseData: data,
				CreatedAt:    now,
				ExpiresAt:    now.Add(c.durableTTL),
			})
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache: durable write failed")
			}
		}()
	}
	wg.Wait()
}

// HotTTLSeconds alimenta o header X-Cache-TTL nas respostas MISS.
func (c *ResponseCache) HotTTLSeconds() int {
	return int(c.hotTTL.Seconds())
}

func (c *ResponseCache) Snapshot() Stats {
	return Stats{
		HotHits:     c.hotHits.Load(),
		DurableHits: c.durableHits.Load(),
		Misses:      c.misses.Load(),
		Writes:      c.writes.Load(),
	}
}

// DurableCounts expõe a contagem de linhas duráveis por cache_type para o
// endpoint de métricas; sem nível durável, retorna mapa vazio.
func (c *ResponseCache) DurableCounts(ctx context.Context) map[string]int64 {
	if c == nil || c.durable == nil {
		return map[string]int64{}
	}
	counts, err := c.durable.CountByType(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("cache: durable counts failed")
		return map[string]int64{}
	}
	return counts
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"finance-ai-backend/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDurable guarda as entradas em memória, sem noção de frescura:
// quem decide é o leitor.
type fakeDurable struct {
	entries map[string]Entry
	getErr  error
	upserts int
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{entries: make(map[string]Entry)}
}

func (f *fakeDurable) GetEntry(_ context.Context, key string) (*Entry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	e, ok := f.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeDurable) UpsertEntry(_ context.Context, e Entry) error {
	f.upserts++
	f.entries[e.CacheKey] = e
	return nil
}

func (f *fakeDurable) CountByType(_ context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, e := range f.entries {
		out[e.CacheType]++
	}
	return out, nil
}

func TestKey_IsDeterministic(t *testing.T) {
	assert.Equal(t, "cash-flow-forecast:u1:30", Key("cash-flow-forecast", "u1", "30"))
	assert.Equal(t, "dashboard-layout:u1", Key("dashboard-layout", "u1"))
}

func TestCache_WriteThenReadRoundTrip(t *testing.T) {
	mem := kv.NewMemory()
	durable := newFakeDurable()
	c := New(kv.NewClient(mem), durable)
	ctx := context.Background()

	payload := json.RawMessage(`{"forecast":[1,2,3]}`)
	c.Store(ctx, "k", "cash_flow_forecast", nil, payload)

	res := c.Lookup(ctx, "k", time.Hour)
	require.NotNil(t, res)
	assert.JSONEq(t, string(payload), string(res.Data))
	assert.Equal(t, "redis", res.Source)
	assert.Positive(t, res.TTLSeconds)

	// os dois níveis receberam a escrita
	assert.Equal(t, 1, durable.upserts)
}

func TestCache_DurableFallbackWarmsHotTier(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	mem := kv.NewMemory(kv.WithClock(clock))
	kvc := kv.NewClient(mem)
	durable := newFakeDurable()
	c := New(kvc, durable, WithClock(clock))
	ctx := context.Background()

	payload := json.RawMessage(`{"layout":"x"}`)
	durable.entries["k"] = Entry{
		CacheKey:     "k",
		CacheType:    "dashboard_layout",
		ResponseData: payload,
		CreatedAt:    now.Add(-10 * time.Minute),
		ExpiresAt:    now.Add(12 * time.Hour),
	}

	res := c.Lookup(ctx, "k", time.Hour)
	require.NotNil(t, res)
	assert.Equal(t, "database", res.Source)
	assert.JSONEq(t, string(payload), string(res.Data))

	// propriedade de aquecimento: logo depois o nível quente tem o payload
	hot, ok := kvc.Get(ctx, "k")
	require.True(t, ok)
	assert.JSONEq(t, string(payload), hot)

	// e a próxima consulta sai pelo caminho rápido
	res2 := c.Lookup(ctx, "k", time.Hour)
	require.NotNil(t, res2)
	assert.Equal(t, "redis", res2.Source)
}

func TestCache_StaleDurableRowIsNeverAHit(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	durable := newFakeDurable()
	c := New(kv.NewClient(kv.NewMemory()), durable, WithClock(func() time.Time { return now }))

	// linha fisicamente presente, mas mais velha que o max-age
	durable.entries["k"] = Entry{
		CacheKey:     "k",
		ResponseData: json.RawMessage(`{"old":true}`),
		CreatedAt:    now.Add(-2 * time.Hour),
	}

	assert.Nil(t, c.Lookup(context.Background(), "k", time.Hour))
}

func TestCache_DurableErrorDegradesToMiss(t *testing.T) {
	durable := newFakeDurable()
	durable.getErr = errors.New("connection refused")
	c := New(kv.NewClient(kv.NewMemory()), durable)

	assert.Nil(t, c.Lookup(context.Background(), "k", time.Hour))
	assert.Equal(t, int64(1), c.Snapshot().Misses)
}

func TestCache_WorksWithoutAnyTier(t *testing.T) {
	// sem credenciais de KV e sem banco: tudo é miss, nada explode
	c := New(kv.NewClient(kv.NewRestClient("", "")), nil)
	ctx := context.Background()

	assert.Nil(t, c.Lookup(ctx, "k", time.Hour))
	c.Store(ctx, "k", "t", nil, json.RawMessage(`{}`))
	assert.Nil(t, c.Lookup(ctx, "k", time.Hour))
}

func TestCache_UpsertDoesNotDuplicateRows(t *testing.T) {
	durable := newFakeDurable()
	c := New(kv.NewClient(kv.NewMemory()), durable)
	ctx := context.Background()

	c.Store(ctx, "k", "t", nil, json.RawMessage(`{"v":1}`))
	c.Store(ctx, "k", "t", nil, json.RawMessage(`{"v":2}`))

	require.Len(t, durable.entries, 1)
	assert.JSONEq(t, `{"v":2}`, string(durable.entries["k"].ResponseData))
}

func TestCache_HotTierExpiryFallsThrough(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	mem := kv.NewMemory(kv.WithClock(clock))
	c := New(kv.NewClient(mem), nil, WithClock(clock), WithHotTTL(time.Minute))
	ctx := context.Background()

	c.Store(ctx, "k", "t", nil, json.RawMessage(`{}`))
	require.NotNil(t, c.Lookup(ctx, "k", time.Hour))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, c.Lookup(ctx, "k", time.Hour))
}

func TestCache_SnapshotCounts(t *testing.T) {
	mem := kv.NewMemory()
	c := New(kv.NewClient(mem), newFakeDurable())
	ctx := context.Background()

	c.Lookup(ctx, "k", time.Hour) // miss
	c.Store(ctx, "k", "t", nil, json.RawMessage(`{}`))
	c.Lookup(ctx, "k", time.Hour) // hot hit

	s := c.Snapshot()
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.HotHits)
	assert.Equal(t, int64(1), s.Writes)
}

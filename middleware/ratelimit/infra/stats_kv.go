package infra

import (
	"context"
	"strconv"
	"strings"
	"time"

	"finance-ai-backend/kv"
	"finance-ai-backend/middleware/ratelimit/domain"
)

// KVStats grava as decisões como um hash no KV store, um campo por
// endpoint+resultado. Agrega entre réplicas do backend.
type KVStats struct {
	kv     kv.Doer
	prefix string
	// ttl renovado a cada gravação; 0 desliga a expiração.
	ttl time.Duration
}

type KVStatsOption func(*KVStats)

func WithStatsPrefix(prefix string) KVStatsOption {
	return func(s *KVStats) { s.prefix = strings.Trim(prefix, ":") }
}

func WithStatsTTL(d time.Duration) KVStatsOption {
	return func(s *KVStats) { s.ttl = d }
}

func NewKVStats(doer kv.Doer, opts ...KVStatsOption) *KVStats {
	s := &KVStats{
		kv:     doer,
		prefix: "ratelimit:stats",
		ttl:    7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KVStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.kv == nil || !s.kv.Enabled() {
		return nil
	}

	field := ev.Endpoint + ":denied"
	if ev.Allowed {
		field = ev.Endpoint + ":allowed"
	}

	cmds := []kv.Command{{"HINCRBY", s.prefix, field, 1}}
	if s.ttl > 0 {
		cmds = append(cmds, kv.Command{"EXPIRE", s.prefix, int64(s.ttl.Seconds())})
	}
	_, err := s.kv.Pipeline(ctx, cmds)
	return err
}

// Snapshot lê o hash inteiro e remonta os contadores por endpoint.
func (s *KVStats) Snapshot(ctx context.Context) (map[string]domain.Counters, error) {
	out := make(map[string]domain.Counters)
	if s == nil || s.kv == nil || !s.kv.Enabled() {
		return out, nil
	}

	res, err := s.kv.Do(ctx, kv.Command{"HGETALL", s.prefix})
	if err != nil {
		return nil, err
	}

	for field, value := range flattenHash(res) {
		endpoint, result, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		n, _ := strconv.ParseInt(value, 10, 64)
		c := out[endpoint]
		switch result {
		case "allowed":
			c.Allowed += n
		case "denied":
			c.Denied += n
		}
		out[endpoint] = c
	}
	return out, nil
}

// flattenHash aceita os dois formatos de HGETALL: lista achatada
// (campo, valor, campo, valor...) do protocolo wire/REST e map nativo
// do go-redis.
func flattenHash(res any) map[string]string {
	out := make(map[string]string)
	switch t := res.(type) {
	case []any:
		for i := 0; i+1 < len(t); i += 2 {
			f, _ := kv.AsString(t[i])
			v, _ := kv.AsString(t[i+1])
			out[f] = v
		}
	case map[string]string:
		return t
	case map[any]any:
		for k, v := range t {
			f, _ := kv.AsString(k)
			s, _ := kv.AsString(v)
			out[f] = s
		}
	}
	return out
}

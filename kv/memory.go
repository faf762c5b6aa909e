package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Memory implementa Doer em memória, com o subconjunto de comandos que o
// backend realmente usa. Útil para testes e desenvolvimento local; o
// pipeline roda sob um único lock, preservando a atomicidade que o store
// real garante.
type Memory struct {
	mu     sync.Mutex
	now    func() time.Time
	vals   map[string]string
	zsets  map[string]map[string]float64
	hashes map[string]map[string]int64
	exp    map[string]time.Time

	// failing simula store inacessível: todo comando retorna erro.
	failing bool
}

type MemoryOption func(*Memory)

// WithClock injeta o relógio (testes de expiração/janela).
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:    time.Now,
		vals:   make(map[string]string),
		zsets:  make(map[string]map[string]float64),
		hashes: make(map[string]map[string]int64),
		exp:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Enabled() bool { return m != nil }

// SetFailing liga/desliga a simulação de indisponibilidade.
func (m *Memory) SetFailing(fail bool) {
	m.mu.Lock()
	m.failing = fail
	m.mu.Unlock()
}

var errMemoryDown = errors.New("kv: memory store failing (simulated)")

func (m *Memory) Do(ctx context.Context, cmd Command) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errMemoryDown
	}
	return m.exec(cmd)
}

func (m *Memory) Pipeline(ctx context.Context, cmds []Command) ([]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errMemoryDown
	}
	results := make([]any, len(cmds))
	for i, cmd := range cmds {
		res, err := m.exec(cmd)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func (m *Memory) exec(cmd Command) (any, error) {
	if len(cmd) == 0 {
		return nil, errors.New("kv: empty command")
	}
	name, _ := AsString(cmd[0])
	args := cmd[1:]

	switch strings.ToUpper(name) {
	case "GET":
		key := mustString(args, 0)
		if m.expired(key) {
			return nil, nil
		}
		if v, ok := m.vals[key]; ok {
			return v, nil
		}
		return nil, nil

	case "SET":
		key := mustString(args, 0)
		m.purge(key)
		m.vals[key] = mustString(args, 1)
		// SET key value [EX seconds]
		if len(args) >= 4 && strings.EqualFold(mustString(args, 2), "EX") {
			secs, _ := AsInt64(args[3])
			m.exp[key] = m.now().Add(time.Duration(secs) * time.Second)
		}
		return "OK", nil

	case "DEL":
		n := int64(0)
		for _, a := range args {
			key, _ := AsString(a)
			if m.exists(key) {
				n++
			}
			m.purge(key)
		}
		return n, nil

	case "EXISTS":
		key := mustString(args, 0)
		if m.exists(key) {
			return int64(1), nil
		}
		return int64(0), nil

	case "TTL":
		key := mustString(args, 0)
		if !m.exists(key) {
			return int64(-2), nil
		}
		at, ok := m.exp[key]
		if !ok {
			return int64(-1), nil
		}
		return int64(at.Sub(m.now()).Seconds()), nil

	case "INCR":
		key := mustString(args, 0)
		m.expired(key)
		cur, _ := strconv.ParseInt(m.vals[key], 10, 64)
		cur++
		m.vals[key] = strconv.FormatInt(cur, 10)
		return cur, nil

	case "EXPIRE":
		key := mustString(args, 0)
		if !m.exists(key) {
			return int64(0), nil
		}
		secs, _ := AsInt64(args[1])
		m.exp[key] = m.now().Add(time.Duration(secs) * time.Second)
		return int64(1), nil

	case "ZADD":
		key := mustString(args, 0)
		m.expired(key)
		score, _ := asFloat64(args[1])
		member := mustString(args, 2)
		set := m.zsets[key]
		if set == nil {
			set = make(map[string]float64)
			m.zsets[key] = set
		}
		added := int64(0)
		if _, ok := set[member]; !ok {
			added = 1
		}
		set[member] = score
		return added, nil

	case "ZCARD":
		key := mustString(args, 0)
		if m.expired(key) {
			return int64(0), nil
		}
		return int64(len(m.zsets[key])), nil

	case "ZREMRANGEBYSCORE":
		key := mustString(args, 0)
		if m.expired(key) {
			return int64(0), nil
		}
		min, _ := asFloat64(args[1])
		max, _ := asFloat64(args[2])
		removed := int64(0)
		for member, score := range m.zsets[key] {
			if score >= min && score <= max {
				delete(m.zsets[key], member)
				removed++
			}
		}
		return removed, nil

	case "HINCRBY":
		key := mustString(args, 0)
		m.expired(key)
		field := mustString(args, 1)
		by, _ := AsInt64(args[2])
		h := m.hashes[key]
		if h == nil {
			h = make(map[string]int64)
			m.hashes[key] = h
		}
		h[field] += by
		return h[field], nil

	case "HGETALL":
		key := mustString(args, 0)
		if m.expired(key) {
			return []any{}, nil
		}
		// estilo wire do redis: lista achatada campo, valor, campo, valor...
		out := make([]any, 0, len(m.hashes[key])*2)
		for field, val := range m.hashes[key] {
			out = append(out, field, strconv.FormatInt(val, 10))
		}
		return out, nil

	default:
		return nil, fmt.Errorf("kv: memory store does not implement %q", name)
	}
}

func (m *Memory) exists(key string) bool {
	if m.expired(key) {
		return false
	}
	if _, ok := m.vals[key]; ok {
		return true
	}
	if set, ok := m.zsets[key]; ok && len(set) > 0 {
		return true
	}
	if h, ok := m.hashes[key]; ok && len(h) > 0 {
		return true
	}
	return false
}

// expired remove a chave se o TTL venceu; retorna true se ela não existe mais.
func (m *Memory) expired(key string) bool {
	at, ok := m.exp[key]
	if !ok {
		return false
	}
	if m.now().Before(at) {
		return false
	}
	m.purge(key)
	return true
}

func (m *Memory) purge(key string) {
	delete(m.vals, key)
	delete(m.zsets, key)
	delete(m.hashes, key)
	delete(m.exp, key)
}

func mustString(args []any, i int) string {
	if i >= len(args) {
		return ""
	}
	switch t := args[i].(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func asFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

package kv

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Command é um vetor de tokens de comando, ex: {"ZADD", key, score, member}.
type Command []any

// Doer executa comandos contra o store.
//
// Pipeline submete os comandos como uma unidade atômica: requisições
// concorrentes para a mesma chave são serializadas pelo store, não pelo
// chamador.
type Doer interface {
	Do(ctx context.Context, cmd Command) (any, error)
	Pipeline(ctx context.Context, cmds []Command) ([]any, error)
	// Enabled indica se o backend está configurado. Quando false, todos os
	// comandos retornam resultado nulo sem erro.
	Enabled() bool
}

// Client adiciona wrappers tipados sobre um Doer.
//
// Os wrappers absorvem erros (logados em warn) e devolvem zero values:
// o chamador trata "store indisponível" como miss, nunca como falha.
type Client struct {
	d Doer
}

func NewClient(d Doer) *Client {
	return &Client{d: d}
}

func (c *Client) Enabled() bool {
	return c != nil && c.d != nil && c.d.Enabled()
}

// Doer expõe o transporte para quem precisa de pipeline bruto (ex: rate limiter).
func (c *Client) Doer() Doer {
	if c == nil {
		return nil
	}
	return c.d
}

// Get retorna (valor, true) quando a chave existe. String vazia armazenada
// é um valor legítimo, não um miss; chave ausente chega aqui como resultado
// nulo dos backends e vira false.
func (c *Client) Get(ctx context.Context, key string) (string, bool) {
	res := c.do(ctx, Command{"GET", key})
	return AsString(res)
}

// Set grava o valor; ttl <= 0 grava sem expiração.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	cmd := Command{"SET", key, value}
	if ttl > 0 {
		cmd = append(cmd, "EX", int64(ttl.Seconds()))
	}
	res := c.do(ctx, cmd)
	_, ok := AsString(res)
	return ok
}

func (c *Client) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("kv: setjson marshal failed")
		return false
	}
	return c.Set(ctx, key, string(data), ttl)
}

// GetJSON desserializa o valor em dst. Falha de parse vira miss, não erro.
func (c *Client) GetJSON(ctx context.Context, key string, dst any) bool {
	s, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("kv: getjson parse failed")
		return false
	}
	return true
}

func (c *Client) Incr(ctx context.Context, key string) (int64, bool) {
	return AsInt64(c.do(ctx, Command{"INCR", key}))
}

func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	n, ok := AsInt64(c.do(ctx, Command{"EXPIRE", key, int64(ttl.Seconds())}))
	return ok && n == 1
}

func (c *Client) Del(ctx context.Context, key string) bool {
	_, ok := AsInt64(c.do(ctx, Command{"DEL", key}))
	return ok
}

func (c *Client) Exists(ctx context.Context, key string) bool {
	n, ok := AsInt64(c.do(ctx, Command{"EXISTS", key}))
	return ok && n > 0
}

// TTL retorna os segundos restantes da chave (-1 sem expiração, -2 inexistente).
func (c *Client) TTL(ctx context.Context, key string) (int64, bool) {
	return AsInt64(c.do(ctx, Command{"TTL", key}))
}

func (c *Client) do(ctx context.Context, cmd Command) any {
	if !c.Enabled() {
		return nil
	}
	res, err := c.d.Do(ctx, cmd)
	if err != nil {
		log.Warn().Err(err).Str("cmd", commandName(cmd)).Msg("kv: command failed")
		return nil
	}
	return res
}

func commandName(cmd Command) string {
	if len(cmd) == 0 {
		return ""
	}
	s, _ := AsString(cmd[0])
	return s
}

// AsString e AsInt64 normalizam o resultado entre backends: o REST devolve
// valores decodificados de JSON (string/float64), o go-redis devolve
// int64/string nativos.
func AsString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return "", false
	}
}

func AsInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

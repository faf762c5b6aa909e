package kv

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisStore implementa Doer sobre uma conexão Redis direta, para
// deployments que não passam pelo endpoint REST.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Enabled() bool {
	return s != nil && s.rdb != nil
}

func (s *RedisStore) Do(ctx context.Context, cmd Command) (any, error) {
	if !s.Enabled() {
		return nil, nil
	}
	res, err := s.rdb.Do(ctx, []any(cmd)...).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return res, err
}

func (s *RedisStore) Pipeline(ctx context.Context, cmds []Command) ([]any, error) {
	if !s.Enabled() || len(cmds) == 0 {
		return nil, nil
	}
	pipe := s.rdb.Pipeline()
	queued := make([]*redis.Cmd, len(cmds))
	for i, cmd := range cmds {
		queued[i] = pipe.Do(ctx, []any(cmd)...)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	results := make([]any, len(queued))
	for i, q := range queued {
		v, err := q.Result()
		if err != nil && err != redis.Nil {
			return nil, err
		}
		results[i] = v
	}
	return results, nil
}

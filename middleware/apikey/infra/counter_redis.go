package infra

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore implementa domain.CounterStore com EXISTS / SET NX EX / INCR.
// Compartilhado entre instâncias do gateway.
type RedisCounterStore struct {
	rdb    redis.UniversalClient
	prefix string
	// window é aplicado com EXPIRE NX junto do INCR: se o contador expirou
	// entre Exists e Incr, o INCR recria a chave sem TTL.
	window time.Duration
}

type RedisCounterOption func(*RedisCounterStore)

// WithCounterPrefix namespaceia os contadores ("<prefix>:<chave>").
func WithCounterPrefix(prefix string) RedisCounterOption {
	return func(s *RedisCounterStore) { s.prefix = strings.Trim(prefix, ":") }
}

// WithCounterWindow define a janela usada quando Incr recria o contador.
func WithCounterWindow(d time.Duration) RedisCounterOption {
	return func(s *RedisCounterStore) {
		if d > 0 {
			s.window = d
		}
	}
}

func NewRedisCounterStore(rdb redis.UniversalClient, opts ...RedisCounterOption) *RedisCounterStore {
	s := &RedisCounterStore{rdb: rdb, window: DefaultWindow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisCounterStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisCounterStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisCounterStore) Init(ctx context.Context, key string, ttl time.Duration) error {
	// SetNX: se outra request já criou o contador, não mexe nele.
	return s.rdb.SetNX(ctx, s.key(key), 0, ttl).Err()
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string) (int64, error) {
	k := s.key(key)
	var incr *redis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		// NX: não estende uma janela que já tem TTL.
		p.ExpireNX(ctx, k, s.window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Value lê o contador atual (0 quando não existe).
func (s *RedisCounterStore) Value(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.Get(ctx, s.key(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

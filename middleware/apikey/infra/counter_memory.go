package infra

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryCounterStore implementa domain.CounterStore em processo usando
// go-cache (itens com expiração + janitor).
//
// Não é compartilhado entre instâncias: com mais de uma réplica cada uma
// aplica a quota de forma independente.
type MemoryCounterStore struct {
	c *cache.Cache
	// window é usado só quando o contador expira entre Init e Incr.
	window time.Duration
}

func NewMemoryCounterStore(window, cleanupEvery time.Duration) *MemoryCounterStore {
	if window <= 0 {
		window = DefaultWindow
	}
	if cleanupEvery <= 0 {
		cleanupEvery = time.Minute
	}
	return &MemoryCounterStore{c: cache.New(cache.NoExpiration, cleanupEvery), window: window}
}

func (s *MemoryCounterStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.c.Get(key)
	return ok, nil
}

func (s *MemoryCounterStore) Init(_ context.Context, key string, ttl time.Duration) error {
	// Add falha se o item já existe (e não expirou); para o limiter isso é ok.
	_ = s.c.Add(key, int64(0), ttl)
	return nil
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string) (int64, error) {
	n, err := s.c.IncrementInt64(key, 1)
	if err == nil {
		return n, nil
	}
	// expirou entre Exists e Incr: abre uma janela nova já com 1.
	if s.c.Add(key, int64(1), s.window) == nil {
		return 1, nil
	}
	return s.c.IncrementInt64(key, 1)
}

func (s *MemoryCounterStore) Value(_ context.Context, key string) (int64, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return 0, nil
	}
	n, _ := v.(int64)
	return n, nil
}

func (s *MemoryCounterStore) Flush() { s.c.Flush() }

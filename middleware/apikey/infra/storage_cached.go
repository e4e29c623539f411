package infra

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"apikey-gateway/middleware/apikey/domain"
)

// CachedStorage é um decorator read-through sobre outro Storage.
//
// Só registros encontrados entram no cache (miss não é cacheado, senão uma
// chave recém-criada ficaria invisível até expirar). Store e Delete invalidam.
// Alterações feitas direto no backend só aparecem depois do ttl.
type CachedStorage struct {
	next  domain.Storage
	cache *lru.LRU[string, *domain.APIKey]
}

func NewCachedStorage(next domain.Storage, size int, ttl time.Duration) *CachedStorage {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedStorage{
		next:  next,
		cache: lru.NewLRU[string, *domain.APIKey](size, nil, ttl),
	}
}

func (s *CachedStorage) Store(ctx context.Context, key string, record *domain.APIKey) (string, error) {
	s.cache.Remove(key)
	return s.next.Store(ctx, key, record)
}

func (s *CachedStorage) Retrieve(ctx context.Context, key string) (*domain.APIKey, error) {
	if rec, ok := s.cache.Get(key); ok {
		return rec.Clone(), nil
	}
	rec, err := s.next.Retrieve(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, rec.Clone())
	return rec, nil
}

func (s *CachedStorage) Delete(ctx context.Context, key string) (bool, error) {
	s.cache.Remove(key)
	return s.next.Delete(ctx, key)
}

func (s *CachedStorage) Len() int { return s.cache.Len() }

package infra

import (
	"context"
	"sync"
	"time"

	"apikey-gateway/middleware/apikey/domain"
)

// MemoryStorage é um Storage em memória, útil para testes, desenvolvimento e
// para conjuntos pequenos de chaves carregados via seed.
//
// Devolve cópias, então quem chama não consegue alterar o registro guardado.
type MemoryStorage struct {
	mu   sync.RWMutex
	keys map[string]*domain.APIKey
	now  func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		keys: make(map[string]*domain.APIKey),
		now:  time.Now,
	}
}

func (s *MemoryStorage) Store(_ context.Context, key string, record *domain.APIKey) (string, error) {
	if record == nil {
		return "", domain.NewSerializationError(errNilRecord)
	}
	rec := record.Clone()
	rec.Key = key
	now := s.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; ok {
		return "", domain.ErrKeyAlreadyExists
	}
	s.keys[key] = rec
	return key, nil
}

func (s *MemoryStorage) Retrieve(_ context.Context, key string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.keys[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; !ok {
		return false, nil
	}
	delete(s.keys, key)
	return true, nil
}

func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Package apikeytest fornece registros prontos para testes dos backends e do
// middleware.
package apikeytest

import (
	"time"

	"apikey-gateway/middleware/apikey/domain"
)

const DefaultKey = "test_key"

// NewKey devolve um registro ativo com 100 leituras/100 escritas por minuto
// e example.com como único domínio permitido. key vazio usa DefaultKey.
func NewKey(key string) *domain.APIKey {
	if key == "" {
		key = DefaultKey
	}
	now := time.Now().UTC()
	return &domain.APIKey{
		Key: key,
		Limits: domain.Limits{
			MaxReadsPerMinute:  domain.Limited(100),
			MaxWritesPerMinute: domain.Limited(100),
		},
		Restrictions: domain.Restrictions{AllowedDomains: []string{"example.com"}},
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// WithReads troca a quota de leitura.
func WithReads(k *domain.APIKey, l domain.Limit) *domain.APIKey {
	k.Limits.MaxReadsPerMinute = l
	return k
}

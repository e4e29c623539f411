package application

import (
	"context"

	"apikey-gateway/middleware/apikey/domain"
)

// KeyManager compõe Storage + Limiter numa única operação de autorização.
//
// Ele não sabe nada sobre HTTP, apenas devolve erro com o discriminante da
// camada de origem (domain.ManagerError).
type KeyManager struct {
	Storage domain.Storage
	Limiter domain.Limiter
}

var _ domain.Manager = KeyManager{}

func NewKeyManager(storage domain.Storage, limiter domain.Limiter) KeyManager {
	return KeyManager{Storage: storage, Limiter: limiter}
}

// Get delega ao Storage e traduz a falha para a camada do manager.
func (m KeyManager) Get(ctx context.Context, key string) (*domain.APIKey, error) {
	if m.Storage == nil {
		return nil, domain.NewManagerFailure(errNoStorage)
	}
	rec, err := m.Storage.Retrieve(ctx, key)
	if err != nil {
		return nil, domain.FromStorage(err)
	}
	return rec, nil
}

// Authorize resolve a chave e consome uma unidade da quota da classe pedida.
//
// Ordem: storage -> status -> domínio -> limiter. Qualquer falha antes do
// limiter não consome quota.
func (m KeyManager) Authorize(ctx context.Context, key string, opts ...domain.AuthorizeOption) error {
	p := domain.NewAuthorizeParams(opts...)

	rec, err := m.Get(ctx, key)
	if err != nil {
		return err
	}

	// registro não ativo se comporta como inexistente
	if !rec.Status.IsActive() {
		return domain.FromStorage(domain.ErrKeyNotFound)
	}

	if p.Domain != "" && !rec.Restrictions.AllowsDomain(p.Domain) {
		return &domain.ManagerError{Kind: domain.ManagerDomainNotAllowed}
	}

	if m.Limiter == nil {
		return nil
	}
	if err := m.Limiter.Admit(ctx, rec, p.Operation); err != nil {
		return domain.FromLimiter(err)
	}
	return nil
}

package domain

// Contratos (ports) do pipeline de autorização.
//
// Todas as implementações devem ser seguras para uso concorrente sem
// sincronização externa. Cada chamada pode bloquear (round trip de rede).

import (
	"context"
	"time"
)

// Storage busca/insere/remove registros pelo identificador.
type Storage interface {
	// Store falha com ErrKeyAlreadyExists se o identificador já existir.
	Store(ctx context.Context, key string, record *APIKey) (string, error)
	// Retrieve falha com ErrKeyNotFound se não existir.
	Retrieve(ctx context.Context, key string) (*APIKey, error)
	// Delete devolve false (sem erro) quando não havia registro.
	Delete(ctx context.Context, key string) (bool, error)
}

// Limiter admite ou rejeita um "uso" da chave contra a quota da classe op.
type Limiter interface {
	Admit(ctx context.Context, record *APIKey, op Operation) error
}

// CounterStore é o backend de contadores do limiter de janela fixa.
//
// Incr precisa ser atômico. Init deve criar o contador com valor 0 e expiração
// ttl somente se ele ainda não existir.
type CounterStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Init(ctx context.Context, key string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// Manager compõe Storage + Limiter numa única operação "autorizar uso".
type Manager interface {
	Get(ctx context.Context, key string) (*APIKey, error)
	Authorize(ctx context.Context, key string, opts ...AuthorizeOption) error
}

// AuthorizeParams são os parâmetros opcionais de Authorize.
type AuthorizeParams struct {
	Operation Operation
	// Domain vazio desliga a checagem de domínio.
	Domain string
}

type AuthorizeOption func(*AuthorizeParams)

func WithOperation(op Operation) AuthorizeOption {
	return func(p *AuthorizeParams) { p.Operation = op }
}

func WithDomain(host string) AuthorizeOption {
	return func(p *AuthorizeParams) { p.Domain = host }
}

func NewAuthorizeParams(opts ...AuthorizeOption) AuthorizeParams {
	p := AuthorizeParams{Operation: Read}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

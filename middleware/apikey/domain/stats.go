package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão do gate de API key.
//
// KeyID é o Fingerprint da chave (nunca a chave em si). Outcome é o "type"
// da rejeição, ou "Allowed".
//
// Observação: cuidado com cardinalidade (KeyID/Path sem controle podem
// explodir o número de séries/chaves em Redis/Prometheus).
type StatsEvent struct {
	KeyID   string
	Allowed bool
	Outcome string

	Method string
	Path   string

	At time.Time
}

const OutcomeAllowed = "Allowed"

// StatsStore é a estratégia de persistência para estatísticas do gate.
//
// O middleware trata erro como best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

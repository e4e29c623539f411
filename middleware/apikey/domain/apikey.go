package domain

// Modelo do registro de chave (identidade + política).
//
// O pipeline de autorização só lê estes registros; criação, alteração e remoção
// são ações administrativas externas.

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Limit é o teto de operações de uma classe por janela (60s por padrão),
// ou ilimitado.
//
// O valor zero é Limited(0), ou seja, nenhuma operação permitida.
type Limit struct {
	max       uint32
	unlimited bool
}

func Limited(max uint32) Limit { return Limit{max: max} }

func Unlimited() Limit { return Limit{unlimited: true} }

func (l Limit) IsUnlimited() bool { return l.unlimited }

// Max retorna o teto configurado. Não tem significado quando IsUnlimited.
func (l Limit) Max() uint32 { return l.max }

func (l Limit) String() string {
	if l.unlimited {
		return "unlimited"
	}
	return strconv.FormatUint(uint64(l.max), 10)
}

// Operation é a classe de operação usada para escolher a quota.
type Operation int

const (
	Read Operation = iota
	Write
)

func (o Operation) String() string {
	if o == Write {
		return "write"
	}
	return "read"
}

type Limits struct {
	MaxReadsPerMinute  Limit `json:"max_reads_per_minute" bson:"max_reads_per_minute" yaml:"max_reads_per_minute"`
	MaxWritesPerMinute Limit `json:"max_writes_per_minute" bson:"max_writes_per_minute" yaml:"max_writes_per_minute"`
}

// For retorna a quota da classe de operação.
func (l Limits) For(op Operation) Limit {
	if op == Write {
		return l.MaxWritesPerMinute
	}
	return l.MaxReadsPerMinute
}

type Restrictions struct {
	AllowedDomains []string `json:"allowed_domains" bson:"allowed_domains" yaml:"allowed_domains"`
}

// AllowsDomain diz se o host pode usar a chave.
// Lista vazia libera qualquer domínio. A comparação ignora caixa e porta.
func (r Restrictions) AllowsDomain(host string) bool {
	if len(r.AllowedDomains) == 0 {
		return true
	}
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	for _, d := range r.AllowedDomains {
		if normalizeHost(d) == host {
			return true
		}
	}
	return false
}

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if hh, _, err := net.SplitHostPort(h); err == nil {
		h = hh
	}
	return strings.TrimSuffix(h, ".")
}

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
	StatusDeleted  Status = "Deleted"
)

func (s Status) IsActive() bool { return s == StatusActive }

// APIKey é o registro persistido de uma chave.
//
// Key é imutável depois de criado e deve ser tratado como segredo
// (nunca logar o valor, use Fingerprint).
type APIKey struct {
	Key          string       `json:"key" bson:"key" yaml:"key"`
	Limits       Limits       `json:"limits" bson:"limits" yaml:"limits"`
	Restrictions Restrictions `json:"restrictions" bson:"restrictions" yaml:"restrictions"`
	Status       Status       `json:"status" bson:"status" yaml:"status"`
	CreatedAt    time.Time    `json:"created_at" bson:"created_at" yaml:"-"`
	UpdatedAt    time.Time    `json:"updated_at" bson:"updated_at" yaml:"-"`
}

// Clone retorna uma cópia que não compartilha a slice de domínios.
func (k *APIKey) Clone() *APIKey {
	if k == nil {
		return nil
	}
	c := *k
	if k.Restrictions.AllowedDomains != nil {
		c.Restrictions.AllowedDomains = append([]string(nil), k.Restrictions.AllowedDomains...)
	}
	return &c
}

package domain

import "errors"

// Kind é o discriminante estável de um erro. É o mesmo texto usado em log e
// no campo "type" do payload de rejeição.
type Kind string

// Camada de storage.
const (
	KindKeyNotFound        Kind = "KeyNotFound"
	KindKeyAlreadyExists   Kind = "KeyAlreadyExists"
	KindSerializationError Kind = "SerializationError"
	KindStorageError       Kind = "StorageError"
)

// Camada do limiter.
const (
	KindRateLimitExceeded Kind = "RateLimitExceeded"
	KindLimiterOther      Kind = "ApiLimiter::Other"
)

// StorageError é o erro devolvido pelas implementações de Storage.
type StorageError struct {
	Kind   Kind
	Detail string
	Err    error
}

var (
	ErrKeyNotFound      = &StorageError{Kind: KindKeyNotFound}
	ErrKeyAlreadyExists = &StorageError{Kind: KindKeyAlreadyExists}
)

func NewSerializationError(err error) *StorageError {
	return &StorageError{Kind: KindSerializationError, Detail: errDetail(err), Err: err}
}

// NewStorageFailure embrulha uma falha do backend (rede, driver, etc).
func NewStorageFailure(err error) *StorageError {
	return &StorageError{Kind: KindStorageError, Detail: errDetail(err), Err: err}
}

func (e *StorageError) Error() string {
	switch e.Kind {
	case KindKeyNotFound:
		return "Key not found"
	case KindKeyAlreadyExists:
		return "Key already exists"
	case KindSerializationError:
		return "Serialization error: " + e.Detail
	default:
		return "Storage error: " + e.Detail
	}
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is compara apenas o Kind, então errors.Is(err, ErrKeyNotFound) funciona
// com qualquer instância.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	return ok && t.Kind == e.Kind
}

func (e *StorageError) MessageType() string { return string(e.Kind) }

// LimiterError é o erro devolvido pelas implementações de Limiter.
type LimiterError struct {
	Kind   Kind
	Detail string
	Err    error
}

var ErrRateLimitExceeded = &LimiterError{Kind: KindRateLimitExceeded}

// NewLimiterFailure embrulha uma falha do backend de contadores.
func NewLimiterFailure(err error) *LimiterError {
	return &LimiterError{Kind: KindLimiterOther, Detail: errDetail(err), Err: err}
}

func (e *LimiterError) Error() string {
	if e.Kind == KindRateLimitExceeded {
		return "Rate limit exceeded"
	}
	return "Other error: " + e.Detail
}

func (e *LimiterError) Unwrap() error { return e.Err }

func (e *LimiterError) Is(target error) bool {
	t, ok := target.(*LimiterError)
	return ok && t.Kind == e.Kind
}

func (e *LimiterError) MessageType() string { return string(e.Kind) }

// ManagerKind identifica de qual camada veio a falha do manager.
type ManagerKind int

const (
	ManagerOther ManagerKind = iota
	ManagerStorage
	ManagerLimiter
	ManagerDomainNotAllowed
)

func (k ManagerKind) String() string {
	switch k {
	case ManagerStorage:
		return "StorageError"
	case ManagerLimiter:
		return "LimiterError"
	case ManagerDomainNotAllowed:
		return "DomainNotAllowed"
	default:
		return "Other"
	}
}

// ManagerError carrega o erro da camada de baixo sem perder o discriminante.
// Exatamente um entre Storage e Limiter é preenchido para os kinds
// ManagerStorage e ManagerLimiter.
type ManagerError struct {
	Kind    ManagerKind
	Storage *StorageError
	Limiter *LimiterError
	Err     error
}

var ErrDomainNotAllowed = &ManagerError{Kind: ManagerDomainNotAllowed}

// FromStorage converte qualquer erro vindo do Storage. Erros sem tipo viram
// StorageError(detalhe).
func FromStorage(err error) *ManagerError {
	if err == nil {
		return nil
	}
	var se *StorageError
	if !errors.As(err, &se) {
		se = NewStorageFailure(err)
	}
	return &ManagerError{Kind: ManagerStorage, Storage: se, Err: err}
}

// FromLimiter converte qualquer erro vindo do Limiter. Erros sem tipo viram
// ApiLimiter::Other(detalhe).
func FromLimiter(err error) *ManagerError {
	if err == nil {
		return nil
	}
	var le *LimiterError
	if !errors.As(err, &le) {
		le = NewLimiterFailure(err)
	}
	return &ManagerError{Kind: ManagerLimiter, Limiter: le, Err: err}
}

func NewManagerFailure(err error) *ManagerError {
	return &ManagerError{Kind: ManagerOther, Err: err}
}

func (e *ManagerError) Error() string {
	switch e.Kind {
	case ManagerStorage:
		return "storage: " + e.Storage.Error()
	case ManagerLimiter:
		return "limiter: " + e.Limiter.Error()
	case ManagerDomainNotAllowed:
		return "domain not allowed"
	default:
		return "manager: " + errDetail(e.Err)
	}
}

func (e *ManagerError) Unwrap() error {
	switch {
	case e.Storage != nil:
		return e.Storage
	case e.Limiter != nil:
		return e.Limiter
	default:
		return e.Err
	}
}

func (e *ManagerError) Is(target error) bool {
	t, ok := target.(*ManagerError)
	return ok && t.Kind == e.Kind && t.Storage == nil && t.Limiter == nil
}

// MessageType devolve o kind da camada de origem.
func (e *ManagerError) MessageType() string {
	switch {
	case e.Storage != nil:
		return e.Storage.MessageType()
	case e.Limiter != nil:
		return e.Limiter.MessageType()
	default:
		return e.Kind.String()
	}
}

func errDetail(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

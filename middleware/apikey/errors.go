package apikey

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"apikey-gateway/middleware/apikey/domain"
)

// ErrorKind é o discriminante da camada HTTP. O texto é o "type" do payload.
type ErrorKind string

const (
	KindMissingAPIKey    ErrorKind = "MissingApiKey"
	KindInvalidAPIKey    ErrorKind = "InvalidApiKey"
	KindAPIKeyNotFound   ErrorKind = "ApiKeyNotFound"
	KindDomainNotAllowed ErrorKind = "DomainNotAllowed"
	KindLimiterError     ErrorKind = "LimiterError"
	KindStorageError     ErrorKind = "StorageError"
	KindUnexpectedError  ErrorKind = "UnexpectedError"
)

// Error é a rejeição devolvida ao cliente. Para KindLimiterError e
// KindStorageError a mensagem e o type vêm do erro interno.
type Error struct {
	Kind    ErrorKind
	Limiter *domain.LimiterError
	Storage *domain.StorageError
	// Err guarda a causa original para log; nunca vai para o cliente.
	Err error
}

// ErrorResponse é o corpo JSON de toda rejeição.
type ErrorResponse struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingAPIKey:
		return "x-api-key header is not set"
	case KindInvalidAPIKey:
		return "The provided API key is not valid"
	case KindAPIKeyNotFound:
		return "The provided API key was not found"
	case KindDomainNotAllowed:
		return "The provided API key is not allowed for this domain"
	case KindLimiterError:
		if e.Limiter != nil {
			return e.Limiter.Error()
		}
	case KindStorageError:
		if e.Storage != nil {
			return e.Storage.Error()
		}
	}
	return "Unexpected error"
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) MessageType() string {
	switch {
	case e.Kind == KindLimiterError && e.Limiter != nil:
		return e.Limiter.MessageType()
	case e.Kind == KindStorageError && e.Storage != nil:
		return e.Storage.MessageType()
	case e.Kind == KindLimiterError, e.Kind == KindStorageError:
		return string(KindUnexpectedError)
	default:
		return string(e.Kind)
	}
}

// StatusCode: falhas de autenticação/quota são 401; erro inesperado e
// storage exposto são 500.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindMissingAPIKey, KindInvalidAPIKey, KindAPIKeyNotFound, KindDomainNotAllowed, KindLimiterError:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) Response() ErrorResponse {
	return ErrorResponse{Message: e.Error(), Type: e.MessageType()}
}

func (e *Error) rateLimited() bool {
	return e.Kind == KindLimiterError && e.Limiter != nil && e.Limiter.Kind == domain.KindRateLimitExceeded
}

// toBoundary traduz o erro do manager. Sem expose, qualquer falha de storage
// vira InvalidApiKey para não revelar se a chave existe.
func toBoundary(err error, expose bool) *Error {
	var me *domain.ManagerError
	if !errors.As(err, &me) {
		return &Error{Kind: KindUnexpectedError, Err: err}
	}

	switch me.Kind {
	case domain.ManagerLimiter:
		return &Error{Kind: KindLimiterError, Limiter: me.Limiter, Err: err}
	case domain.ManagerStorage:
		if !expose {
			return &Error{Kind: KindInvalidAPIKey, Err: err}
		}
		if me.Storage != nil && me.Storage.Kind == domain.KindKeyNotFound {
			return &Error{Kind: KindAPIKeyNotFound, Err: err}
		}
		return &Error{Kind: KindStorageError, Storage: me.Storage, Err: err}
	case domain.ManagerDomainNotAllowed:
		return &Error{Kind: KindDomainNotAllowed, Err: err}
	default:
		return &Error{Kind: KindUnexpectedError, Err: err}
	}
}

func writeError(w http.ResponseWriter, e *Error, retryAfter time.Duration) {
	if e.rateLimited() && retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	_ = json.NewEncoder(w).Encode(e.Response())
}

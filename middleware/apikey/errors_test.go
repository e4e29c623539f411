package apikey

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"apikey-gateway/middleware/apikey/domain"
)

func TestError_StatusAndType(t *testing.T) {
	cases := []struct {
		err     *Error
		status  int
		typ     string
		message string
	}{
		{&Error{Kind: KindMissingAPIKey}, 401, "MissingApiKey", "x-api-key header is not set"},
		{&Error{Kind: KindInvalidAPIKey}, 401, "InvalidApiKey", "The provided API key is not valid"},
		{&Error{Kind: KindAPIKeyNotFound}, 401, "ApiKeyNotFound", "The provided API key was not found"},
		{&Error{Kind: KindDomainNotAllowed}, 401, "DomainNotAllowed", "The provided API key is not allowed for this domain"},
		{&Error{Kind: KindLimiterError, Limiter: domain.ErrRateLimitExceeded}, 401, "RateLimitExceeded", "Rate limit exceeded"},
		{&Error{Kind: KindLimiterError, Limiter: domain.NewLimiterFailure(errors.New("x"))}, 401, "ApiLimiter::Other", "Other error: x"},
		{&Error{Kind: KindStorageError, Storage: domain.NewSerializationError(errors.New("bad"))}, 500, "SerializationError", "Serialization error: bad"},
		{&Error{Kind: KindStorageError, Storage: domain.ErrKeyAlreadyExists}, 500, "KeyAlreadyExists", "Key already exists"},
		{&Error{Kind: KindUnexpectedError}, 500, "UnexpectedError", "Unexpected error"},
		{&Error{Kind: KindStorageError}, 500, "UnexpectedError", "Unexpected error"},
	}

	for _, tc := range cases {
		t.Run(tc.typ, func(t *testing.T) {
			assert.Equal(t, tc.status, tc.err.StatusCode())
			assert.Equal(t, tc.typ, tc.err.MessageType())
			assert.Equal(t, ErrorResponse{Message: tc.message, Type: tc.typ}, tc.err.Response())
		})
	}
}

func TestToBoundary(t *testing.T) {
	wrapped := func(err error) error { return fmt.Errorf("authorize: %w", err) }

	cases := []struct {
		name   string
		err    error
		expose bool
		kind   ErrorKind
		typ    string
	}{
		{"miss hidden", domain.FromStorage(domain.ErrKeyNotFound), false, KindInvalidAPIKey, "InvalidApiKey"},
		{"backend hidden", domain.FromStorage(errors.New("down")), false, KindInvalidAPIKey, "InvalidApiKey"},
		{"miss exposed", domain.FromStorage(domain.ErrKeyNotFound), true, KindAPIKeyNotFound, "ApiKeyNotFound"},
		{"backend exposed", domain.FromStorage(errors.New("down")), true, KindStorageError, "StorageError"},
		{"rate limit", domain.FromLimiter(domain.ErrRateLimitExceeded), false, KindLimiterError, "RateLimitExceeded"},
		{"wrapped rate limit", wrapped(domain.FromLimiter(domain.ErrRateLimitExceeded)), false, KindLimiterError, "RateLimitExceeded"},
		{"limiter other", domain.FromLimiter(errors.New("timeout")), false, KindLimiterError, "ApiLimiter::Other"},
		{"domain", domain.ErrDomainNotAllowed, false, KindDomainNotAllowed, "DomainNotAllowed"},
		{"manager other", domain.NewManagerFailure(errors.New("?")), false, KindUnexpectedError, "UnexpectedError"},
		{"untyped", errors.New("boom"), false, KindUnexpectedError, "UnexpectedError"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := toBoundary(tc.err, tc.expose)
			assert.Equal(t, tc.kind, got.Kind)
			assert.Equal(t, tc.typ, got.MessageType())
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestWriteError_RetryAfterOnlyForRateLimit(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, &Error{Kind: KindLimiterError, Limiter: domain.ErrRateLimitExceeded}, 30*time.Second)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Rate limit exceeded","type":"RateLimitExceeded"}`, w.Body.String())

	w = httptest.NewRecorder()
	writeError(w, &Error{Kind: KindInvalidAPIKey}, 30*time.Second)
	assert.Empty(t, w.Header().Get("Retry-After"))
}

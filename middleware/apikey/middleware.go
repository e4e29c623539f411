package apikey

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"apikey-gateway/middleware/apikey/domain"
)

const (
	DefaultHeader     = "x-api-key"
	defaultRetryAfter = 60 * time.Second
)

var errNoManager = errors.New("apikey: no manager configured")

// KeyFunc extrai a credencial da request. String vazia significa ausente.
type KeyFunc func(r *http.Request) string

// DomainFunc devolve o host de origem da request. Vazio desliga a checagem
// de domínio para aquela request.
type DomainFunc func(r *http.Request) string

type Options struct {
	Manager domain.Manager
	Stats   domain.StatsStore
	Logger  *slog.Logger

	// Header é ignorado quando KeyFn é informado.
	Header string
	KeyFn  KeyFunc

	DomainFn DomainFunc

	// ClassifyByMethod consome a quota de escrita para métodos que não são
	// GET/HEAD/OPTIONS. Desligado, tudo conta como leitura.
	ClassifyByMethod bool

	// ExposeStorageErrors devolve ApiKeyNotFound / StorageError em vez de
	// colapsar tudo em InvalidApiKey.
	ExposeStorageErrors bool

	// RetryAfter vai no header Retry-After quando a quota estoura.
	RetryAfter time.Duration
}

// HeaderKeyFunc lê a chave do header. Valor vazio ou que não é UTF-8 válido
// conta como ausente.
func HeaderKeyFunc(header string) KeyFunc {
	if header == "" {
		header = DefaultHeader
	}
	return func(r *http.Request) string {
		v := strings.TrimSpace(r.Header.Get(header))
		if !utf8.ValidString(v) {
			return ""
		}
		return v
	}
}

// OriginDomain usa o host do Origin e, sem ele, o do Referer.
func OriginDomain(r *http.Request) string {
	for _, h := range []string{"Origin", "Referer"} {
		v := strings.TrimSpace(r.Header.Get(h))
		if v == "" || v == "null" {
			continue
		}
		u, err := url.Parse(v)
		if err != nil || u.Hostname() == "" {
			continue
		}
		return u.Hostname()
	}
	return ""
}

// OperationForMethod: GET, HEAD e OPTIONS são leitura; o resto é escrita.
func OperationForMethod(method string) domain.Operation {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return domain.Read
	default:
		return domain.Write
	}
}

// Middleware autentica cada request pela API key e aplica a quota antes de
// chamar next. Rejeições nunca chegam ao next.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = HeaderKeyFunc(opts.Header)
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = defaultRetryAfter
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	g := gate{opts: opts}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			if key == "" {
				g.reject(w, r, "", &Error{Kind: KindMissingAPIKey})
				return
			}

			if err := g.authorize(r, key); err != nil {
				g.reject(w, r, domain.Fingerprint(key), toBoundary(err, opts.ExposeStorageErrors))
				return
			}

			g.record(r, domain.Fingerprint(key), true, domain.OutcomeAllowed)
			next.ServeHTTP(w, r)
		})
	}
}

// gate só lê opts; não guarda estado por request.
type gate struct {
	opts Options
}

func (g gate) authorize(r *http.Request, key string) error {
	if g.opts.Manager == nil {
		return domain.NewManagerFailure(errNoManager)
	}

	op := domain.Read
	if g.opts.ClassifyByMethod {
		op = OperationForMethod(r.Method)
	}
	authOpts := []domain.AuthorizeOption{domain.WithOperation(op)}
	if g.opts.DomainFn != nil {
		if host := g.opts.DomainFn(r); host != "" {
			authOpts = append(authOpts, domain.WithDomain(host))
		}
	}
	return g.opts.Manager.Authorize(r.Context(), key, authOpts...)
}

func (g gate) reject(w http.ResponseWriter, r *http.Request, keyID string, e *Error) {
	g.log(r, keyID, e)
	g.record(r, keyID, false, e.MessageType())
	writeError(w, e, g.opts.RetryAfter)
}

func (g gate) log(r *http.Request, keyID string, e *Error) {
	attrs := []any{
		"type", e.MessageType(),
		"method", r.Method,
		"path", r.URL.Path,
	}
	if keyID != "" {
		attrs = append(attrs, "key", keyID)
	}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err.Error())
	}

	level := slog.LevelDebug
	var me *domain.ManagerError
	if errors.As(e.Err, &me) {
		switch {
		case me.Kind == domain.ManagerStorage && me.Storage != nil && me.Storage.Kind != domain.KindKeyNotFound:
			level = slog.LevelError
		case me.Kind == domain.ManagerStorage:
			level = slog.LevelWarn
		case me.Kind == domain.ManagerLimiter && !e.rateLimited():
			level = slog.LevelError
		case me.Kind == domain.ManagerLimiter:
			level = slog.LevelInfo
		}
	}
	if e.Kind == KindUnexpectedError {
		level = slog.LevelError
	}

	g.opts.Logger.Log(r.Context(), level, "api key rejected", attrs...)
}

func (g gate) record(r *http.Request, keyID string, allowed bool, outcome string) {
	if g.opts.Stats == nil {
		return
	}
	err := g.opts.Stats.Record(r.Context(), domain.StatsEvent{
		KeyID:   keyID,
		Allowed: allowed,
		Outcome: outcome,
		Method:  r.Method,
		Path:    r.URL.Path,
		At:      time.Now(),
	})
	if err != nil {
		g.opts.Logger.Debug("stats record failed", "error", err.Error())
	}
}

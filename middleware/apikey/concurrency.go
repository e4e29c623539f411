package apikey

import (
	"log/slog"
	"net/http"
	"time"

	"apikey-gateway/middleware/apikey/application"
	"apikey-gateway/middleware/apikey/domain"
	"apikey-gateway/middleware/apikey/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// Pool substitui o semáforo criado a partir de Max (ex.: para expor a
	// ocupação em métricas).
	Pool   domain.SlotPool
	Logger *slog.Logger
}

// ConcurrencyMiddleware limita quantas requests estão dentro do gate ao mesmo
// tempo. Sem Pool e com Max <= 0 é um no-op.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil && opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Pool == nil {
		opts.Pool = infra.NewChanPool(opts.Max)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				opts.Logger.Debug("no concurrency slot", "method", r.Method, "path", r.URL.Path)
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}

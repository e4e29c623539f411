package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"apikey-gateway/middleware/apikey"
	"apikey-gateway/middleware/apikey/application"
)

func main() {
	// .env é opcional; variáveis já exportadas têm precedência
	_ = godotenv.Load()

	cfg, err := readConfig()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := apikey.NewLogger(os.Stdout, cfg.debug)
	slog.SetDefault(logger)

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		fatal(logger, "invalid UPSTREAM_URL", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy error", "error", err, "path", r.URL.Path)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	b, err := buildBackends(ctx, cfg, logger)
	if err != nil {
		fatal(logger, "backend setup error", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.Close(closeCtx)
	}()

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           newHandler(cfg, b, logger, proxy),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.metricsAddr != "" {
		metricsSrv = &http.Server{
			Addr:              cfg.metricsAddr,
			Handler:           b.metricsHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
	}()

	logger.Info("gateway listening", "addr", cfg.listenAddr, "upstream", target.String())
	logger.Info("auth", "header", cfg.apiKeyHeader, "classifyByMethod", cfg.classifyByMethod,
		"enforceDomains", cfg.enforceDomains, "exposeStorageErrors", cfg.exposeStorageErrors)
	logger.Info("storage", "backend", cfg.storageBackend, "cacheSize", cfg.storageCacheSize, "cacheTTL", cfg.storageCacheTTL.String())
	logger.Info("limiter", "backend", cfg.limiterBackend, "window", cfg.rateWindow.String(), "prefix", cfg.limiterPrefix)
	logger.Info("stats", "backend", cfg.statsBackend, "metricsAddr", cfg.metricsAddr)
	logger.Info("concurrency", "max", cfg.concurrencyMax, "acquireTimeout", cfg.concurrencyTimeout.String())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal(logger, "server error", err)
	}
}

// newHandler monta a cadeia: concorrência -> gate de API key -> upstream.
func newHandler(cfg config, b *backends, logger *slog.Logger, upstream http.Handler) http.Handler {
	manager := application.NewKeyManager(b.storage, b.limiter)

	opts := apikey.Options{
		Manager:             manager,
		Stats:               b.stats,
		Logger:              logger,
		Header:              cfg.apiKeyHeader,
		ClassifyByMethod:    cfg.classifyByMethod,
		ExposeStorageErrors: cfg.exposeStorageErrors,
		RetryAfter:          cfg.retryAfter,
	}
	if cfg.enforceDomains {
		opts.DomainFn = apikey.OriginDomain
	}

	h := apikey.Middleware(opts)(upstream)
	if b.pool != nil {
		h = apikey.ConcurrencyMiddleware(apikey.ConcurrencyOptions{
			Pool:           b.pool,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.concurrencyTimeout,
			Logger:         logger,
		})(h)
	}
	return h
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apikey-gateway/middleware/apikey"
	"apikey-gateway/middleware/apikey/apikeytest"
	"apikey-gateway/middleware/apikey/application"
	"apikey-gateway/middleware/apikey/domain"
	"apikey-gateway/middleware/apikey/infra"
)

func main() {
	// Exemplo: o gate de API key injetado direto no seu webserver (sem proxy)
	logger := apikey.NewLogger(os.Stdout, true)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	storage := infra.NewMemoryStorage()
	// chave de demonstração: test_key, 100 leituras/escritas por minuto
	if _, err := storage.Store(ctx, apikeytest.DefaultKey, apikeytest.NewKey("")); err != nil {
		logger.Error("seed error", "error", err)
		os.Exit(1)
	}
	limiter := infra.NewFixedWindowLimiter(infra.NewMemoryCounterStore(infra.DefaultWindow, time.Minute))

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	h := http.Handler(mux)
	h = apikey.Middleware(apikey.Options{
		Manager:          application.NewKeyManager(storage, limiter),
		Stats:            infra.NewMemoryStatsStore(),
		Logger:           logger,
		ClassifyByMethod: true,
	})(h)
	h = apikey.ConcurrencyMiddleware(apikey.ConcurrencyOptions{Max: 50, Logger: logger})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening", "addr", addr, "key", domain.Fingerprint(apikeytest.DefaultKey))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"apikey-gateway/middleware/apikey/domain"
	"apikey-gateway/middleware/apikey/infra"
)

// backends junta tudo que o gate precisa e o que deve ser fechado no shutdown.
type backends struct {
	storage  domain.Storage
	limiter  domain.Limiter
	stats    domain.StatsStore
	pool     *infra.ChanPool
	registry *prometheus.Registry

	memStats *infra.MemoryStatsStore
	rdb      redis.UniversalClient
	closers  []func(context.Context) error
}

func (b *backends) Close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i](ctx)
	}
}

// buildBackends conecta e prepara os backends. ctx deve durar o processo
// inteiro: o janitor do token bucket para quando ele encerra.
func buildBackends(ctx context.Context, cfg config, logger *slog.Logger) (*backends, error) {
	b := &backends{registry: prometheus.NewRegistry()}
	b.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	setupCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var err error
	if b.storage, err = b.buildStorage(setupCtx, cfg, logger); err != nil {
		b.Close(ctx)
		return nil, err
	}
	if b.limiter, err = b.buildLimiter(ctx, cfg); err != nil {
		b.Close(ctx)
		return nil, err
	}
	if b.stats, err = b.buildStats(setupCtx, cfg); err != nil {
		b.Close(ctx)
		return nil, err
	}

	if cfg.concurrencyMax > 0 {
		b.pool = infra.NewChanPool(cfg.concurrencyMax)
		b.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "apikey_gateway",
				Name:      "inflight_requests",
				Help:      "Requests currently holding a concurrency slot",
			},
			func() float64 { return float64(b.pool.InUse()) },
		))
	}
	return b, nil
}

func (b *backends) buildStorage(ctx context.Context, cfg config, logger *slog.Logger) (domain.Storage, error) {
	var st domain.Storage

	switch cfg.storageBackend {
	case "mongo":
		client, err := infra.ConnectMongo(ctx, cfg.mongoURI)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Disconnect)

		ms := infra.NewMongoStorage(client.Database(cfg.mongoDB), infra.WithMongoCollection(cfg.mongoCollection))
		if err := ms.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		st = ms
	case "postgres":
		db, err := infra.OpenPostgres(ctx, cfg.postgresDSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return db.Close() })

		ps, err := infra.NewPostgresStorage(db, cfg.postgresTable)
		if err != nil {
			return nil, err
		}
		if err := ps.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		st = ps
	default:
		st = infra.NewMemoryStorage()
	}

	if cfg.keysFile != "" {
		recs, err := infra.LoadSeedFile(cfg.keysFile)
		if err != nil {
			return nil, err
		}
		res, err := infra.SeedStorage(ctx, st, recs)
		if err != nil {
			return nil, err
		}
		logger.Info("keys seeded", "file", cfg.keysFile, "stored", res.Stored, "skipped", res.Skipped)
	} else if cfg.storageBackend == "memory" {
		logger.Warn("memory storage without KEYS_FILE: every key will be rejected")
	}

	if cfg.storageCacheSize > 0 {
		st = infra.NewCachedStorage(st, cfg.storageCacheSize, cfg.storageCacheTTL)
	}
	return st, nil
}

func (b *backends) buildLimiter(ctx context.Context, cfg config) (domain.Limiter, error) {
	switch cfg.limiterBackend {
	case "redis":
		rdb, err := b.redis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		counters := infra.NewRedisCounterStore(rdb,
			infra.WithCounterPrefix(cfg.limiterPrefix),
			infra.WithCounterWindow(cfg.rateWindow),
		)
		return infra.NewFixedWindowLimiter(counters, infra.WithWindow(cfg.rateWindow)), nil
	case "token-bucket":
		tb := infra.NewTokenBucketLimiter(infra.WithBucketWindow(cfg.rateWindow))
		tb.StartJanitor(ctx)
		return tb, nil
	default:
		counters := infra.NewMemoryCounterStore(cfg.rateWindow, time.Minute)
		return infra.NewFixedWindowLimiter(counters, infra.WithWindow(cfg.rateWindow)), nil
	}
}

func (b *backends) buildStats(ctx context.Context, cfg config) (domain.StatsStore, error) {
	switch cfg.statsBackend {
	case "memory":
		b.memStats = infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.statsTrackKeys))
		return b.memStats, nil
	case "redis":
		rdb, err := b.redis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackKeys(cfg.statsTrackKeys),
		), nil
	case "prometheus":
		return infra.NewPrometheusStatsStore(b.registry, "apikey_gateway")
	default:
		return nil, nil
	}
}

// redis devolve o client compartilhado entre limiter e stats.
func (b *backends) redis(ctx context.Context, cfg config) (redis.UniversalClient, error) {
	if b.rdb != nil {
		return b.rdb, nil
	}

	var rdb *redis.Client
	if cfg.redisURL != "" {
		opt, err := redis.ParseURL(cfg.redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opt)
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
	}
	b.closers = append(b.closers, func(context.Context) error { return rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	b.rdb = rdb
	return rdb, nil
}

// metricsHandler serve /metrics e, com stats em memória, /stats em JSON.
func (b *backends) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{}))
	if b.memStats != nil {
		mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"total":      b.memStats.Total(),
				"by_route":   b.memStats.ByRoute(),
				"by_key":     b.memStats.ByKey(),
				"by_outcome": b.memStats.ByOutcome(),
			})
		})
	}
	return mux
}

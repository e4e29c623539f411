package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type config struct {
	listenAddr  string
	upstreamURL string
	debug       bool

	apiKeyHeader        string
	classifyByMethod    bool
	exposeStorageErrors bool
	enforceDomains      bool
	retryAfter          time.Duration

	storageBackend   string
	mongoURI         string
	mongoDB          string
	mongoCollection  string
	postgresDSN      string
	postgresTable    string
	storageCacheSize int
	storageCacheTTL  time.Duration
	keysFile         string

	limiterBackend string
	limiterPrefix  string
	rateWindow     time.Duration

	redisAddr     string
	redisURL      string
	redisPassword string
	redisDB       int

	concurrencyMax     int
	concurrencyTimeout time.Duration

	statsBackend   string
	statsPrefix    string
	statsTTL       time.Duration
	statsBucket    string
	statsTrackKeys bool
	metricsAddr    string
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.debug = getenvBoolDefault("DEBUG", false)

	cfg.apiKeyHeader = getenvDefault("API_KEY_HEADER", "x-api-key")
	cfg.classifyByMethod = getenvBoolDefault("CLASSIFY_BY_METHOD", false)
	cfg.exposeStorageErrors = getenvBoolDefault("EXPOSE_STORAGE_ERRORS", false)
	cfg.enforceDomains = getenvBoolDefault("ENFORCE_DOMAINS", false)

	cfg.storageBackend = strings.ToLower(getenvDefault("STORAGE_BACKEND", "memory"))
	cfg.mongoURI = os.Getenv("MONGODB_URI")
	cfg.mongoDB = os.Getenv("MONGODB_DB_NAME")
	cfg.mongoCollection = getenvDefault("MONGODB_COLLECTION", "api_keys")
	cfg.postgresDSN = os.Getenv("POSTGRES_DSN")
	cfg.postgresTable = getenvDefault("POSTGRES_TABLE", "api_keys")
	cfg.storageCacheSize = getenvIntDefault("STORAGE_CACHE_SIZE", 0)
	cfg.storageCacheTTL = getenvDurationDefault("STORAGE_CACHE_TTL", 30*time.Second)
	cfg.keysFile = os.Getenv("KEYS_FILE")

	cfg.limiterBackend = strings.ToLower(getenvDefault("LIMITER_BACKEND", "memory"))
	cfg.limiterPrefix = os.Getenv("LIMITER_PREFIX")
	cfg.rateWindow = getenvDurationDefault("RATE_WINDOW", 60*time.Second)
	// sem RETRY_AFTER o cliente espera uma janela.
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", cfg.rateWindow)

	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisURL = os.Getenv("REDIS_URL")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.statsBackend = strings.ToLower(getenvDefault("STATS_BACKEND", "none"))
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "apikey:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("STATS_BUCKET", "minute")
	cfg.statsTrackKeys = getenvBoolDefault("STATS_TRACK_KEYS", false)
	cfg.metricsAddr = os.Getenv("METRICS_ADDR")

	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	if c.upstreamURL == "" {
		return errors.New("UPSTREAM_URL is required")
	}

	switch c.storageBackend {
	case "memory":
	case "mongo":
		if c.mongoURI == "" || c.mongoDB == "" {
			return errors.New("MONGODB_URI and MONGODB_DB_NAME are required when STORAGE_BACKEND=mongo")
		}
	case "postgres":
		if c.postgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be memory, mongo or postgres, got %q", c.storageBackend)
	}

	switch c.limiterBackend {
	case "memory", "token-bucket":
	case "redis":
		if !c.hasRedis() {
			return errors.New("REDIS_ADDR or REDIS_URL is required when LIMITER_BACKEND=redis")
		}
	default:
		return fmt.Errorf("LIMITER_BACKEND must be redis, memory or token-bucket, got %q", c.limiterBackend)
	}

	switch c.statsBackend {
	case "none", "memory":
	case "redis":
		if !c.hasRedis() {
			return errors.New("REDIS_ADDR or REDIS_URL is required when STATS_BACKEND=redis")
		}
	case "prometheus":
		if c.metricsAddr == "" {
			return errors.New("METRICS_ADDR is required when STATS_BACKEND=prometheus")
		}
	default:
		return fmt.Errorf("STATS_BACKEND must be none, memory, redis or prometheus, got %q", c.statsBackend)
	}

	if c.rateWindow <= 0 {
		return errors.New("RATE_WINDOW must be > 0")
	}
	if c.storageCacheSize < 0 {
		return errors.New("STORAGE_CACHE_SIZE must be >= 0")
	}
	if c.concurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return nil
}

func (c config) hasRedis() bool {
	return strings.TrimSpace(c.redisAddr) != "" || strings.TrimSpace(c.redisURL) != ""
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

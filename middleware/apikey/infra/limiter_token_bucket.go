package infra

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"apikey-gateway/middleware/apikey/domain"
)

// TokenBucketLimiter é uma variante do Limiter baseada em token-bucket
// (x/time/rate), em processo, com um bucket por chave/classe/teto.
//
// Diferente da janela fixa, a quota é reposta de forma contínua: n tokens por
// janela, com rajada máxima de n.
type TokenBucketLimiter struct {
	mu           sync.Mutex
	entries      map[string]*bucketEntry
	window       time.Duration
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type TokenBucketOption func(*TokenBucketLimiter)

func WithBucketWindow(d time.Duration) TokenBucketOption {
	return func(l *TokenBucketLimiter) {
		if d > 0 {
			l.window = d
		}
	}
}

func WithIdleTTL(d time.Duration) TokenBucketOption {
	return func(l *TokenBucketLimiter) { l.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) TokenBucketOption {
	return func(l *TokenBucketLimiter) { l.cleanupEvery = d }
}

func NewTokenBucketLimiter(opts ...TokenBucketOption) *TokenBucketLimiter {
	l := &TokenBucketLimiter{
		entries:      make(map[string]*bucketEntry),
		window:       DefaultWindow,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *TokenBucketLimiter) Admit(_ context.Context, record *domain.APIKey, op domain.Operation) error {
	limit := record.Limits.For(op)
	if limit.IsUnlimited() {
		return nil
	}
	if !l.bucket(record.Key, op, limit.Max()).Allow() {
		return domain.ErrRateLimitExceeded
	}
	return nil
}

func (l *TokenBucketLimiter) bucket(identifier string, op domain.Operation, max uint32) *rate.Limiter {
	// o teto faz parte da chave: mudar a quota do registro cria um bucket novo
	key := CounterKey(identifier, op) + ":" + strconv.FormatUint(uint64(max), 10)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	every := rate.Limit(float64(max) / l.window.Seconds())
	lim := rate.NewLimiter(every, int(max))
	l.entries[key] = &bucketEntry{lim: lim, lastSeen: now}
	return lim
}

func (l *TokenBucketLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Cleanup remove buckets sem uso há mais de idleTTL.
func (l *TokenBucketLimiter) Cleanup() {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// StartJanitor roda Cleanup periodicamente até o ctx ser cancelado.
func (l *TokenBucketLimiter) StartJanitor(ctx context.Context) {
	if l.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(l.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Cleanup()
			}
		}
	}()
}

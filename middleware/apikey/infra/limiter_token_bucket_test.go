package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"apikey-gateway/middleware/apikey/apikeytest"
	"apikey-gateway/middleware/apikey/domain"
)

func TestTokenBucket_SameKeyReusesBucket(t *testing.T) {
	l := NewTokenBucketLimiter(WithCleanupEvery(0))
	rec := keyWithReads("k", 10)

	_ = l.Admit(context.Background(), rec, domain.Read)
	_ = l.Admit(context.Background(), rec, domain.Read)
	if got := l.Len(); got != 1 {
		t.Fatalf("expected 1 bucket, got %d", got)
	}

	_ = l.Admit(context.Background(), rec, domain.Write)
	if got := l.Len(); got != 2 {
		t.Fatalf("expected write class in its own bucket, got %d", got)
	}
}

func TestTokenBucket_BurstEqualsCeiling(t *testing.T) {
	l := NewTokenBucketLimiter(WithBucketWindow(time.Hour))
	rec := keyWithReads("k", 2)

	for i := 0; i < 2; i++ {
		if err := l.Admit(context.Background(), rec, domain.Read); err != nil {
			t.Fatalf("use %d: expected admit, got %v", i+1, err)
		}
	}
	err := l.Admit(context.Background(), rec, domain.Read)
	if !errors.Is(err, domain.ErrRateLimitExceeded) {
		t.Fatalf("expected RateLimitExceeded, got %v", err)
	}
}

func TestTokenBucket_UnlimitedHasNoBucket(t *testing.T) {
	l := NewTokenBucketLimiter()
	rec := apikeytest.WithReads(apikeytest.NewKey("free"), domain.Unlimited())

	for i := 0; i < 100; i++ {
		if err := l.Admit(context.Background(), rec, domain.Read); err != nil {
			t.Fatalf("expected unlimited admit, got %v", err)
		}
	}
	if l.Len() != 0 {
		t.Fatalf("expected no buckets for unlimited key")
	}
}

func TestTokenBucket_CeilingChangeCreatesNewBucket(t *testing.T) {
	l := NewTokenBucketLimiter(WithBucketWindow(time.Hour))

	_ = l.Admit(context.Background(), keyWithReads("k", 1), domain.Read)
	if err := l.Admit(context.Background(), keyWithReads("k", 5), domain.Read); err != nil {
		t.Fatalf("expected raised ceiling to admit, got %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", l.Len())
	}
}

func TestTokenBucket_CleanupRemovesIdleEntries(t *testing.T) {
	l := NewTokenBucketLimiter(WithIdleTTL(2*time.Millisecond), WithCleanupEvery(0))

	_ = l.Admit(context.Background(), keyWithReads("k", 10), domain.Read)
	time.Sleep(4 * time.Millisecond)

	l.Cleanup()

	if l.Len() != 0 {
		t.Fatalf("expected idle bucket to be removed, got %d", l.Len())
	}
}

func TestTokenBucket_JanitorStopsWithContext(t *testing.T) {
	l := NewTokenBucketLimiter(WithIdleTTL(time.Millisecond), WithCleanupEvery(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = l.Admit(ctx, keyWithReads("k", 10), domain.Read)
	l.StartJanitor(ctx)

	deadline := time.Now().Add(time.Second)
	for l.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("janitor did not clean idle bucket")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

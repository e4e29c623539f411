package infra

import (
	"context"
	"time"

	"apikey-gateway/middleware/apikey/domain"
)

const DefaultWindow = 60 * time.Second

// FixedWindowLimiter conta usos por chave numa janela fixa aberta pelo primeiro
// uso depois da expiração.
//
// Exists, Init e Incr são chamadas separadas e não existe lock em volta da
// sequência: duas primeiras requests concorrentes podem ambas chamar Init.
// Isso é aceito porque Init só cria o contador se ele não existir e Incr é
// atômico no backend, então nenhum incremento se perde.
type FixedWindowLimiter struct {
	counters domain.CounterStore
	window   time.Duration
}

type FixedWindowOption func(*FixedWindowLimiter)

func WithWindow(d time.Duration) FixedWindowOption {
	return func(l *FixedWindowLimiter) {
		if d > 0 {
			l.window = d
		}
	}
}

func NewFixedWindowLimiter(counters domain.CounterStore, opts ...FixedWindowOption) *FixedWindowLimiter {
	l := &FixedWindowLimiter{counters: counters, window: DefaultWindow}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *FixedWindowLimiter) Window() time.Duration { return l.window }

func (l *FixedWindowLimiter) Admit(ctx context.Context, record *domain.APIKey, op domain.Operation) error {
	limit := record.Limits.For(op)
	if limit.IsUnlimited() {
		return nil
	}

	key := CounterKey(record.Key, op)

	exists, err := l.counters.Exists(ctx, key)
	if err != nil {
		return domain.NewLimiterFailure(err)
	}
	if !exists {
		if err := l.counters.Init(ctx, key, l.window); err != nil {
			return domain.NewLimiterFailure(err)
		}
	}

	n, err := l.counters.Incr(ctx, key)
	if err != nil {
		return domain.NewLimiterFailure(err)
	}
	if n > int64(limit.Max()) {
		return domain.ErrRateLimitExceeded
	}
	return nil
}

// CounterKey deriva a chave do contador: "<identificador>_read_count" ou
// "<identificador>_write_count".
func CounterKey(identifier string, op domain.Operation) string {
	return identifier + "_" + op.String() + "_count"
}

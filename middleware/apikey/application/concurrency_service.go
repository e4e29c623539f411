package application

import (
	"context"
	"time"

	"apikey-gateway/middleware/apikey/domain"
)

// ConcurrencyService decide se uma request pode entrar no gate quando existe
// um teto de requests simultâneas. Não conhece HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire devolve (release, ok). Sem pool, tudo passa.
// AcquireTimeout <= 0 espera até o ctx da request encerrar.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}
	return s.Pool.Acquire(ctx)
}

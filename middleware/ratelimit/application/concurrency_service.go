package application

import (
	"context"
	"time"

	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/ratelimit/domain"
)

// ConcurrencyService bounds how many gated actions run at once.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tries to take a slot.
// AcquireTimeout <= 0 waits until ctx ends; otherwise it waits at most
// AcquireTimeout. On ok=false no slot was taken.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout <= 0 {
		return s.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, s.AcquireTimeout)
	defer cancel()
	return s.Pool.Acquire(acqCtx)
}

package report

import (
	"context"

	"github.com/Aurel1407/Shu-no-sub002/asyncop"
	"github.com/Aurel1407/Shu-no-sub002/logger"
	"github.com/alitto/pond/v2"
)

const defaultWorkers = 4

// NewPool creates a worker pool for Async. workers <= 0 uses a small default.
func NewPool(workers int) pond.Pool { //nolint:ireturn
	if workers <= 0 {
		workers = defaultWorkers
	}

	return pond.NewPool(workers)
}

type async struct {
	inner asyncop.Reporter
	pool  pond.Pool
}

// Async hands each failure to r on the pool and returns immediately, so a
// slow reporter never delays the controller. The reporter runs with a
// context that keeps the caller's values but not its cancellation. Panics
// are recovered. When the pool is stopped, failures are logged and dropped.
func Async(r asyncop.Reporter, pool pond.Pool) asyncop.Reporter {
	return &async{inner: Safe(r), pool: pool}
}

func (a *async) HandleError(ctx context.Context, err *asyncop.Error, label string) {
	detached := context.WithoutCancel(ctx)

	if submitErr := a.pool.Go(func() {
		a.inner.HandleError(detached, err, label)
	}); submitErr != nil {
		logger.Get(ctx).Warn("dropping error report",
			"label", label, "error", err.Message, "reason", submitErr)
	}
}

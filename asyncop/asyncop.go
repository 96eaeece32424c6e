// Package asyncop tracks a retryable operation the way a UI needs it: whether
// it is loading, the last failure message, and how many retries were used.
//
// A Controller wraps an action. Execute runs it, retrying transient failures
// (network errors, 5xx, anything unclassified) with a growing delay and
// stopping immediately on permanent ones (4xx, Abort, known keywords).
// Failures never come back as errors or panics: they land in the controller
// state, the OnError callback and the Reporter.
//
//	ctl := asyncop.New(func(ctx context.Context, b Booking) error {
//	    return api.CreateBooking(ctx, b)
//	},
//	    asyncop.WithLabel("CreateBooking"),
//	    asyncop.WithMaxRetries(2),
//	    asyncop.WithRetryDelayBase(500*time.Millisecond),
//	)
//
//	state := ctl.Execute(ctx, booking)
//	if msg, failed := state.ErrorMessage(); failed {
//	    render(msg)
//	}
//
// Concurrent calls on one controller race on its state, last write wins,
// unless WithSingleFlight is used. The context passed to Execute cancels
// pending retries.
package asyncop

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Aurel1407/Shu-no-sub002/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

const tracerName = "github.com/Aurel1407/Shu-no-sub002/asyncop"

// Action is the guarded operation. args carries whatever the caller passes
// to Execute; use struct{} when there is nothing to pass.
type Action[A any] func(ctx context.Context, args A) error

// Controller runs an Action and keeps its State. The zero value is not
// usable; create one with New.
type Controller[A any] struct {
	action Action[A]
	opts   *options

	mu    sync.Mutex
	state State

	running *atomic.Bool
}

// New creates a Controller for action. It panics if action is nil.
func New[A any](action Action[A], opts ...Option) *Controller[A] {
	if action == nil {
		panic("asyncop: nil action")
	}

	intOpts := defaultOptions()

	for _, opt := range opts {
		opt(intOpts)
	}

	if intOpts.reporter == nil {
		intOpts.reporter = logReporter{}
	}

	if intOpts.tracer == nil {
		intOpts.tracer = otel.Tracer(tracerName)
	}

	return &Controller[A]{
		action:  action,
		opts:    intOpts,
		state:   State{MaxRetries: intOpts.maxRetries},
		running: atomic.NewBool(false),
	}
}

// Label returns the controller's label.
func (c *Controller[A]) Label() string {
	return c.opts.label
}

// State returns a snapshot of the current state.
func (c *Controller[A]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Loading reports whether an execution is running.
func (c *Controller[A]) Loading() bool {
	return c.State().Loading
}

// Err returns the last terminal failure, or nil.
func (c *Controller[A]) Err() *Error {
	return c.State().Err
}

// RetryCount returns the retries used by the latest execution.
func (c *Controller[A]) RetryCount() int {
	return c.State().RetryCount
}

// MaxRetries returns the configured retry budget.
func (c *Controller[A]) MaxRetries() int {
	return c.opts.maxRetries
}

// CanRetry reports whether retry budget remains.
func (c *Controller[A]) CanRetry() bool {
	return c.State().CanRetry()
}

// Execute runs the action, retrying retryable failures up to the configured
// maximum. It returns the state at the moment the execution settled.
func (c *Controller[A]) Execute(ctx context.Context, args A) State {
	return c.run(ctx, args, c.opts.maxRetries)
}

// ExecuteOnce runs the action a single time, whatever the configured maximum.
func (c *Controller[A]) ExecuteOnce(ctx context.Context, args A) State {
	return c.run(ctx, args, 0)
}

// Go runs Execute on a new goroutine. The channel receives the settled state
// and is then closed.
func (c *Controller[A]) Go(ctx context.Context, args A) <-chan State {
	out := make(chan State, 1)

	go func() {
		defer close(out)

		out <- c.Execute(ctx, args)
	}()

	return out
}

// ResetError clears the failure and the retry count. Loading is untouched.
func (c *Controller[A]) ResetError() {
	c.update(func(s *State) {
		s.Err = nil
		s.RetryCount = 0
	})
}

// update mutates the state under the lock, then hands a snapshot to the observer.
func (c *Controller[A]) update(f func(s *State)) State {
	c.mu.Lock()
	f(&c.state)
	snapshot := c.state
	c.mu.Unlock()

	if c.opts.observer != nil {
		c.opts.observer(snapshot)
	}

	return snapshot
}

func (c *Controller[A]) run(ctx context.Context, args A, maxRetries int) State {
	if ctx == nil {
		ctx = context.Background()
	}

	label := c.opts.label

	if c.opts.singleFlight {
		if !c.running.CompareAndSwap(false, true) {
			singleFlightRejected.WithLabelValues(label).Inc()

			return c.State()
		}

		defer c.running.Store(false)
	}

	ctx, span := c.opts.tracer.Start(ctx, "asyncop.execute", trace.WithAttributes(
		attribute.String("asyncop.label", label),
		attribute.Int("asyncop.max_retries", maxRetries),
	))
	defer span.End()

	ctx = logger.With(ctx, "label", label, "execution_id", uuid.NewString())

	inFlight.WithLabelValues(label).Inc()
	defer inFlight.WithLabelValues(label).Dec()

	c.update(func(s *State) {
		s.RetryCount = 0
		s.Err = nil
	})

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return c.cancel(ctx, span, err)
		}

		c.update(func(s *State) { s.Loading = true })

		attemptsTotal.WithLabelValues(label).Inc()

		failure := c.invoke(ctx, args, uint(attempt)) //nolint:gosec
		if failure == nil {
			return c.succeed(span, attempt)
		}

		if err := ctx.Err(); err != nil {
			return c.cancel(ctx, span, err)
		}

		retryable := c.opts.policy.Retryable(failure)
		if !retryable || attempt == maxRetries {
			return c.fail(ctx, span, failure, retryable, attempt)
		}

		c.update(func(s *State) { s.RetryCount = attempt + 1 })

		retriesTotal.WithLabelValues(label).Inc()

		delay := c.opts.jitter.apply(c.opts.backoff.Delay(uint(attempt))) //nolint:gosec

		logger.Get(ctx).Debug("retrying operation",
			"attempt", attempt+1, "delay", delay, "error", failure.Message)

		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("asyncop.attempt", attempt+1),
			attribute.String("asyncop.error", failure.Message),
		))

		if err := sleep(ctx, delay); err != nil {
			return c.cancel(ctx, span, err)
		}
	}

	// unreachable: the last iteration always returns
	return c.State()
}

// invoke calls the action once. A panic is recovered and normalized like any
// other failure.
func (c *Controller[A]) invoke(ctx context.Context, args A, attempt uint) (failure *Error) {
	ctx = withAttempt(ctx, attempt)

	if c.opts.attemptTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.opts.attemptTimeout)
		defer cancel()
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			panicsTotal.WithLabelValues(c.opts.label).Inc()

			failure = normalizePanic(recovered, debug.Stack())
		}
	}()

	if err := c.action(ctx, args); err != nil {
		return Normalize(err)
	}

	return nil
}

func (c *Controller[A]) succeed(span trace.Span, attempt int) State {
	state := c.update(func(s *State) { s.Loading = false })

	successTotal.WithLabelValues(c.opts.label).Inc()

	span.SetAttributes(attribute.Int("asyncop.attempts", attempt+1))
	span.SetStatus(codes.Ok, "ok")

	if c.opts.onSuccess != nil {
		c.opts.onSuccess()
	}

	return state
}

func (c *Controller[A]) fail(ctx context.Context, span trace.Span, failure *Error, retryable bool, attempt int) State {
	state := c.update(func(s *State) {
		s.Loading = false
		s.Err = failure
	})

	class := failureExhausted
	if !retryable {
		class = failureClient
	}

	failuresTotal.WithLabelValues(c.opts.label, class).Inc()

	span.SetAttributes(
		attribute.Int("asyncop.attempts", attempt+1),
		attribute.String("asyncop.failure_class", class),
	)

	if failure.HasStatus() {
		span.SetAttributes(attribute.Int("asyncop.status_code", failure.StatusCode))
	}

	span.RecordError(failure)
	span.SetStatus(codes.Error, failure.Message)

	if c.opts.reportErrors {
		c.report(ctx, failure)
	}

	if c.opts.onError != nil {
		c.opts.onError(failure)
	}

	return state
}

// cancel ends an execution abandoned through its context. The failure is
// recorded in the state but neither reported nor passed to OnError.
func (c *Controller[A]) cancel(ctx context.Context, span trace.Span, cause error) State {
	failure := Normalize(cause)

	state := c.update(func(s *State) {
		s.Loading = false
		s.Err = failure
	})

	failuresTotal.WithLabelValues(c.opts.label, failureCanceled).Inc()

	span.SetStatus(codes.Error, failure.Message)

	logger.Get(ctx).Debug("operation canceled", "error", cause)

	return state
}

func (c *Controller[A]) report(ctx context.Context, failure *Error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			panicsTotal.WithLabelValues(c.opts.label).Inc()

			logger.Get(ctx).Warn("error reporter panicked", "panic", recovered)
		}
	}()

	c.opts.reporter.HandleError(ctx, failure, c.opts.label)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

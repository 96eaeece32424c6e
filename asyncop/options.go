package asyncop

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultLabel identifies controllers in logs, metrics and reports when
	// WithLabel is not used.
	DefaultLabel = "AsyncOperation"

	defaultRetryDelayBase = time.Second
)

// Option configures a Controller.
type Option func(*options)

type options struct {
	maxRetries     int
	backoff        Backoff
	jitter         Jitter
	onSuccess      func()
	onError        func(*Error)
	label          string
	reportErrors   bool
	reporter       Reporter
	policy         Policy
	attemptTimeout time.Duration
	singleFlight   bool
	observer       func(State)
	tracer         trace.Tracer
}

func defaultOptions() *options {
	return &options{
		backoff:      LinearBackoff{Base: defaultRetryDelayBase},
		jitter:       WithoutJitter,
		label:        DefaultLabel,
		reportErrors: true,
		policy:       DefaultPolicy(),
	}
}

// WithMaxRetries sets how many retries follow the first attempt. 0 (the
// default) disables retrying; negative values are treated as 0.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		o.maxRetries = max(n, 0)
	}
}

// WithRetryDelayBase uses a LinearBackoff with the given base: the wait
// before retry k is base*k. The default base is one second.
func WithRetryDelayBase(base time.Duration) Option {
	return func(o *options) {
		o.backoff = LinearBackoff{Base: max(base, 0)}
	}
}

// WithBackoff replaces the delay strategy entirely.
func WithBackoff(b Backoff) Option {
	return func(o *options) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithJitter randomizes the delays computed by the backoff.
func WithJitter(j Jitter) Option {
	return func(o *options) {
		o.jitter = j
	}
}

// WithOnSuccess registers a callback run once when an execution succeeds.
func WithOnSuccess(f func()) Option {
	return func(o *options) {
		o.onSuccess = f
	}
}

// WithOnError registers a callback run once per terminal failure.
func WithOnError(f func(*Error)) Option {
	return func(o *options) {
		o.onError = f
	}
}

// WithLabel names the operation in logs, metrics, spans and reports.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}

// WithReportErrors toggles forwarding of terminal failures to the Reporter.
func WithReportErrors(report bool) Option {
	return func(o *options) {
		o.reportErrors = report
	}
}

// WithReporter sets the collaborator receiving terminal failures. Without it
// failures are logged.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithPolicy replaces the retryability policy.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithAttemptTimeout gives every attempt a context deadline. The action has
// to honor its context for the deadline to have any effect.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) {
		o.attemptTimeout = max(d, 0)
	}
}

// WithSingleFlight makes calls that arrive while another execution is in
// flight return the current state without running the action.
func WithSingleFlight() Option {
	return func(o *options) {
		o.singleFlight = true
	}
}

// WithObserver registers a function receiving a snapshot after every state
// change. It runs synchronously on the executing goroutine.
func WithObserver(f func(State)) Option {
	return func(o *options) {
		o.observer = f
	}
}

// WithTracer sets the tracer used for execution spans. The global tracer
// provider is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// Package report provides the collaborators an asyncop.Controller forwards
// terminal failures to: logging, user notifications, fan-out and
// asynchronous dispatch.
package report

import (
	"context"
	"log/slog"

	"github.com/Aurel1407/Shu-no-sub002/asyncop"
	"github.com/Aurel1407/Shu-no-sub002/logger"
	"github.com/Aurel1407/Shu-no-sub002/notify"
)

// LogOption configures the reporter returned by Log.
type LogOption func(*logReporter)

// WithLogger logs through l instead of logger.Get(ctx).
func WithLogger(l *slog.Logger) LogOption {
	return func(r *logReporter) {
		r.logger = l
	}
}

// WithLevel sets the level used for failures (default error).
func WithLevel(level slog.Level) LogOption {
	return func(r *logReporter) {
		r.level = level
	}
}

type logReporter struct {
	logger *slog.Logger
	level  slog.Level
}

// Log returns a reporter writing every failure to the log.
func Log(opts ...LogOption) asyncop.Reporter {
	r := &logReporter{level: slog.LevelError}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *logReporter) HandleError(ctx context.Context, err *asyncop.Error, label string) {
	lg := r.logger
	if lg == nil {
		lg = logger.Get(ctx)
	}

	args := []any{"label", label, "error", err.Message}
	if err.HasStatus() {
		args = append(args, "status_code", err.StatusCode)
	}

	lg.Log(ctx, r.level, "operation failed", args...)
}

// NotifyOption configures the reporter returned by Notify.
type NotifyOption func(*notifyReporter)

// WithTitles maps controller labels to the titles shown to users. Labels
// without an entry are shown as is.
func WithTitles(titles map[string]string) NotifyOption {
	return func(r *notifyReporter) {
		r.titles = titles
	}
}

type notifyReporter struct {
	queue  *notify.Queue
	titles map[string]string
}

// Notify returns a reporter turning every failure into an error notification.
func Notify(queue *notify.Queue, opts ...NotifyOption) asyncop.Reporter {
	r := &notifyReporter{queue: queue}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *notifyReporter) HandleError(_ context.Context, err *asyncop.Error, label string) {
	title := label
	if t, ok := r.titles[label]; ok {
		title = t
	}

	r.queue.Error(title, err.Message)
}

type multi []asyncop.Reporter

// Multi forwards each failure to every reporter, in order. Nil entries are skipped.
func Multi(reporters ...asyncop.Reporter) asyncop.Reporter {
	out := make(multi, 0, len(reporters))

	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}

	return out
}

func (m multi) HandleError(ctx context.Context, err *asyncop.Error, label string) {
	for _, r := range m {
		r.HandleError(ctx, err, label)
	}
}

type safe struct {
	inner asyncop.Reporter
}

// Safe recovers panics raised by r and logs them.
func Safe(r asyncop.Reporter) asyncop.Reporter {
	return &safe{inner: r}
}

func (s *safe) HandleError(ctx context.Context, err *asyncop.Error, label string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Get(ctx).Warn("error reporter panicked", "label", label, "panic", recovered)
		}
	}()

	s.inner.HandleError(ctx, err, label)
}

package asyncop

import (
	"context"

	"github.com/Aurel1407/Shu-no-sub002/logger"
)

// Reporter receives terminal failures, typically to show a notification or
// record telemetry. Implementations must not block for long and should not
// panic; a panicking reporter is recovered and logged.
type Reporter interface {
	HandleError(ctx context.Context, err *Error, label string)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, err *Error, label string)

func (f ReporterFunc) HandleError(ctx context.Context, err *Error, label string) {
	f(ctx, err, label)
}

// logReporter is the fallback used when no Reporter is configured.
type logReporter struct{}

func (logReporter) HandleError(ctx context.Context, err *Error, label string) {
	args := []any{"label", label, "error", err}
	if err.HasStatus() {
		args = append(args, "status_code", err.StatusCode)
	}

	logger.Get(ctx).Error("operation failed", args...)
}

package logger

import (
	"context"
	"errors"
	"log/slog"
)

// ErrInvalidLogOutput is returned when an invalid log output destination is specified.
var ErrInvalidLogOutput = errors.New("invalid log output")

// nullHandler discards all output. It backs muted loggers.
type nullHandler struct{}

func (n *nullHandler) Enabled(_ context.Context, _ slog.Level) bool { return false }

func (n *nullHandler) Handle(_ context.Context, _ slog.Record) error { return nil }

func (n *nullHandler) WithAttrs(_ []slog.Attr) slog.Handler { return n }

func (n *nullHandler) WithGroup(_ string) slog.Handler { return n }

var nullLogger = slog.New(&nullHandler{}) //nolint:gochecknoglobals

// fanoutHandler hands every record to each of its handlers.
type fanoutHandler struct {
	handlers []slog.Handler
}

var _ slog.Handler = (*fanoutHandler)(nil)

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error

	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}

		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithAttrs(attrs)
	}

	return &fanoutHandler{handlers: out}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithGroup(name)
	}

	return &fanoutHandler{handlers: out}
}

package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AnnotateError attaches slog key/value pairs to an error. When the error is
// later logged through a logger configured by this package, the attributes
// are lifted into the log record next to the error.
//
//	return logger.AnnotateError(err, "label", label, "attempt", attempt)
//
// Returns nil if err is nil.
func AnnotateError(err error, args ...any) error {
	if err == nil {
		return nil
	}

	r := slog.NewRecord(time.Now(), slog.LevelDebug, "", 0)
	r.Add(args...)

	var errAttrs []slog.Attr

	r.Attrs(func(attr slog.Attr) bool {
		errAttrs = append(errAttrs, attr)

		return true
	})

	return &slogError{
		err:   err,
		attrs: errAttrs,
	}
}

type slogError struct {
	err   error
	attrs []slog.Attr
}

func (s *slogError) Error() string {
	return s.err.Error()
}

func (s *slogError) Unwrap() error {
	return s.err
}

var _ error = (*slogError)(nil)

// slogErrorLogger is a slog.Handler decorator that expands annotated errors
// into their attributes before delegating to the inner handler.
type slogErrorLogger struct {
	inner slog.Handler
}

var _ slog.Handler = (*slogErrorLogger)(nil)

func (s *slogErrorLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return s.inner.Enabled(ctx, level)
}

func (s *slogErrorLogger) Handle(ctx context.Context, record slog.Record) error {
	var (
		baseAttrs []slog.Attr
		errAttrs  []slog.Attr
	)

	record.Attrs(func(attr slog.Attr) bool {
		var se *slogError

		if v, ok := attr.Value.Any().(error); ok && errors.As(v, &se) {
			baseAttrs = append(baseAttrs, slog.Any(attr.Key, se.err))
			errAttrs = append(errAttrs, se.attrs...)
		} else {
			baseAttrs = append(baseAttrs, attr)
		}

		return true
	})

	if len(errAttrs) == 0 {
		return s.inner.Handle(ctx, record)
	}

	r := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	r.AddAttrs(baseAttrs...)
	r.AddAttrs(errAttrs...)

	return s.inner.Handle(ctx, r)
}

func (s *slogErrorLogger) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &slogErrorLogger{inner: s.inner.WithAttrs(attrs)}
}

func (s *slogErrorLogger) WithGroup(name string) slog.Handler {
	return &slogErrorLogger{inner: s.inner.WithGroup(name)}
}

package envutil

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrBadEnvVar     = errors.New("error parsing environment variable")
	ErrEnvVarMissing = errors.New("missing environment variable")
)

// Reader is a value read from an environment variable. It carries whether the
// variable was present and any parse error, so callers can decide between
// failing, falling back, or ignoring the variable.
type Reader[A any] struct {
	key     string
	present bool
	err     error

	value A
}

// Key returns the key of the environment variable.
func (e Reader[A]) Key() string {
	return e.key
}

// Value returns the value of the environment variable, or an error if the value
// is missing or if there was an error parsing it.
func (e Reader[A]) Value() (A, error) { //nolint:ireturn
	if e.err != nil {
		return e.value, fmt.Errorf("%w %s: %w", ErrBadEnvVar, e.key, e.err)
	}

	if !e.present {
		return e.value, fmt.Errorf("%w %s", ErrEnvVarMissing, e.key)
	}

	return e.value, nil
}

// ValueOrElse returns the value of the environment variable, or v if the value
// is missing or could not be parsed. Parse errors are logged.
func (e Reader[A]) ValueOrElse(v A) A { //nolint:ireturn
	if e.present && e.err == nil {
		return e.value
	}

	if e.err != nil {
		slog.Warn("error reading environment variable, using fallback value",
			"key", e.key, "error", e.err, "fallback", v)
	}

	return v
}

// DoWithValue calls f with the value if it is present and parsed cleanly.
func (e Reader[A]) DoWithValue(f func(A)) {
	if e.present && e.err == nil {
		f(e.value)
	}
}

// HasValue returns true if the variable was set and parsed without error.
func (e Reader[A]) HasValue() bool {
	return e.present && e.err == nil
}

// Error returns the parse error, if any, wrapped in ErrBadEnvVar.
func (e Reader[A]) Error() error {
	if e.err == nil {
		return nil
	}

	return fmt.Errorf("%w %s: %w", ErrBadEnvVar, e.key, e.err)
}

// WithDefault returns a Reader holding v when the variable is not set.
func (e Reader[A]) WithDefault(v A) Reader[A] { //nolint:ireturn
	if e.present {
		return e
	}

	return Reader[A]{
		key:     e.key,
		present: true,
		err:     e.err,
		value:   v,
	}
}

// Map returns a new Reader with the value transformed by f. Missing values and
// earlier errors pass through untouched.
func Map[A any, B any](env Reader[A], f func(A) (B, error)) Reader[B] {
	if !env.present || env.err != nil {
		return Reader[B]{
			key:     env.key,
			present: env.present,
			err:     env.err,
		}
	}

	val, err := f(env.value)

	return Reader[B]{
		key:     env.key,
		present: true,
		err:     err,
		value:   val,
	}
}

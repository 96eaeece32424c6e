// Package errors holds the sentinel errors shared across the module and a
// small accumulator for validation-style error reporting.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a configuration value cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPanicRecovery wraps values recovered from a panic.
	ErrPanicRecovery = errors.New("recovered from panic")
)

// Collection is a thread-unsafe utility for accumulating multiple errors.
// Use this when you need to collect errors from multiple checks and return them together.
type Collection struct {
	errors []error
}

// Add appends an error to the collection. Nil errors are ignored.
func (c *Collection) Add(err error) {
	if err != nil {
		c.errors = append(c.errors, err)
	}
}

// Addf appends a formatted error wrapping base.
func (c *Collection) Addf(base error, format string, args ...any) {
	c.Add(fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...)))
}

// Clear removes all errors from the collection.
func (c *Collection) Clear() {
	c.errors = nil
}

// HasError returns true if the collection contains at least one error.
func (c *Collection) HasError() bool {
	return len(c.errors) > 0
}

// Len returns the number of collected errors.
func (c *Collection) Len() int {
	return len(c.errors)
}

// GetError returns the collected errors as a single error.
// Returns nil if the collection is empty, the single error if there's only one,
// or a joined error (using errors.Join) if there are multiple errors.
func (c *Collection) GetError() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	default:
		return errors.Join(c.errors...)
	}
}

// PanicError converts a recovered panic value and optional stack trace into
// an error wrapping ErrPanicRecovery. Returns nil if the panic value is nil.
func PanicError(recovered any, stack []byte) error {
	if recovered == nil {
		return nil
	}

	var err error

	if asErr, ok := recovered.(error); ok {
		err = fmt.Errorf("%w: %w", ErrPanicRecovery, asErr)
	} else {
		err = fmt.Errorf("%w: %v", ErrPanicRecovery, recovered)
	}

	if stack != nil {
		return fmt.Errorf("%w\nstack trace:\n%s", err, string(stack))
	}

	return err
}

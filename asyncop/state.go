package asyncop

// State is a snapshot of a controller's bookkeeping.
type State struct {
	// Loading is true while an execution is running, retry delays included.
	Loading bool
	// Err is the last terminal failure, nil after success or ResetError.
	Err *Error
	// RetryCount is the number of retries used by the latest execution.
	RetryCount int
	// MaxRetries is the configured retry budget.
	MaxRetries int
}

// CanRetry reports whether retry budget remains.
func (s State) CanRetry() bool {
	return s.RetryCount < s.MaxRetries
}

// ErrorMessage returns the failure message and whether there is one.
func (s State) ErrorMessage() (string, bool) {
	if s.Err == nil {
		return "", false
	}

	return s.Err.Message, true
}

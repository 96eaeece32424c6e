package asyncop

import "context"

type ctxKey string

const attemptKey ctxKey = "attempt"

func withAttempt(ctx context.Context, attempt uint) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// Attempt returns the zero-indexed attempt number of the running action, or 0
// outside of a controller.
//
//	ctl := asyncop.New(func(ctx context.Context, _ struct{}) error {
//	    slog.Info("saving booking", "attempt", asyncop.Attempt(ctx))
//	    return api.SaveBooking(ctx, booking)
//	})
func Attempt(ctx context.Context) uint {
	attemptNum, _ := ctx.Value(attemptKey).(uint)

	return attemptNum
}

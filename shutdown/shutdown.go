// Package shutdown turns SIGINT/SIGTERM into context cancellation and runs
// registered hooks first, while the context is still alive.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Aurel1407/Shu-no-sub002/logger"
)

// Handler owns the signal subscription of one process.
type Handler struct {
	mu    sync.Mutex
	hooks []func()

	signals chan os.Signal
	done    chan struct{}
	once    sync.Once
}

// SetupHandler listens for SIGINT and SIGTERM and returns a context derived
// from parent that is canceled once the hooks have run.
func SetupHandler(parent context.Context) (context.Context, *Handler) {
	ctx, cancel := context.WithCancel(parent)

	h := &Handler{
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}

	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer cancel()

		select {
		case sig := <-h.signals:
			logger.Get(ctx).Warn("Received " + sig.String() + ", shutting down...")
			h.runHooks()
		case <-h.done:
		case <-parent.Done():
		}

		signal.Stop(h.signals)
	}()

	return ctx, h
}

// BeforeShutdown registers a hook. Hooks run in registration order.
func (h *Handler) BeforeShutdown(f func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hooks = append(h.hooks, f)
}

// Shutdown triggers the same sequence as a signal.
func (h *Handler) Shutdown() {
	select {
	case h.signals <- os.Interrupt:
	default:
	}
}

// Stop releases the signal subscription and cancels the context without
// running hooks.
func (h *Handler) Stop() {
	h.once.Do(func() { close(h.done) })
}

func (h *Handler) runHooks() {
	h.mu.Lock()
	hooks := h.hooks
	h.hooks = nil
	h.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// Package shutdown cancels a command's context on SIGINT or SIGTERM so that
// a running machine stops between dispatches instead of mid-handler.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler owns the signal subscription and the hooks that run before the
// context it hands out is canceled.
type Handler struct {
	mut     sync.Mutex
	hooks   []func()
	signals chan os.Signal
	once    sync.Once
}

// NewHandler returns a handler that is not yet listening for signals.
func NewHandler() *Handler {
	return &Handler{
		signals: make(chan os.Signal, 1),
	}
}

// BeforeShutdown registers a function to run before the context is
// canceled. Hooks run in registration order and at most once.
func (h *Handler) BeforeShutdown(fn func()) {
	h.mut.Lock()
	defer h.mut.Unlock()

	h.hooks = append(h.hooks, fn)
}

// Context starts listening for SIGINT and SIGTERM and returns a child of
// parent that is canceled once a signal arrives or Trigger is called. The
// returned stop function releases the subscription without running hooks.
func (h *Handler) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-h.signals:
			slog.Warn("Received " + sig.String() + ", stopping machine...")

			h.runHooks()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(h.signals)
		cancel()
	}
}

// Trigger starts the shutdown without a signal.
func (h *Handler) Trigger() {
	select {
	case h.signals <- os.Interrupt:
	default:
	}
}

func (h *Handler) runHooks() {
	h.once.Do(func() {
		h.mut.Lock()
		defer h.mut.Unlock()

		for _, fn := range h.hooks {
			fn()
		}

		h.hooks = nil
	})
}

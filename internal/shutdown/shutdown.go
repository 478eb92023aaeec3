// Package shutdown provides graceful shutdown handling for the auditor.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Callback is a cleanup function called during shutdown.
type Callback func(ctx context.Context) error

// Handler manages graceful shutdown. Callbacks run in reverse registration
// order so resources close in LIFO order.
type Handler struct {
	mu            sync.Mutex
	callbacks     []Callback
	callbackNames []string

	isShuttingDown atomic.Bool
	done           chan struct{}
	timeout        time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	sigChan chan os.Signal
}

// New creates a shutdown handler listening for SIGINT and SIGTERM.
func New(timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	h := &Handler{
		done:    make(chan struct{}),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		sigChan: make(chan os.Signal, 1),
	}

	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM)

	return h
}

// Register registers a named shutdown callback.
func (h *Handler) Register(name string, callback Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, callback)
	h.callbackNames = append(h.callbackNames, name)
}

// RegisterFunc registers a simple cleanup function.
func (h *Handler) RegisterFunc(name string, fn func()) {
	h.Register(name, func(ctx context.Context) error {
		fn()
		return nil
	})
}

// Context returns a context cancelled when shutdown begins.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// IsShuttingDown reports whether shutdown has started.
func (h *Handler) IsShuttingDown() bool {
	return h.isShuttingDown.Load()
}

// Done returns a channel closed when shutdown completes.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Listen starts watching for signals in the background.
func (h *Handler) Listen() {
	go func() {
		select {
		case <-h.sigChan:
			h.Shutdown()
		case <-h.ctx.Done():
		}
	}()
}

// Shutdown runs all callbacks, newest first, under the configured timeout.
// Safe to call more than once; only the first call does the work.
func (h *Handler) Shutdown() []error {
	if !h.isShuttingDown.CompareAndSwap(false, true) {
		<-h.done
		return nil
	}

	h.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), h.timeout)
	defer shutdownCancel()

	h.mu.Lock()
	callbacks := make([]Callback, len(h.callbacks))
	names := make([]string, len(h.callbackNames))
	copy(callbacks, h.callbacks)
	copy(names, h.callbackNames)
	h.mu.Unlock()

	var errs []error
	for i := len(callbacks) - 1; i >= 0; i-- {
		if err := h.runCallback(shutdownCtx, names[i], callbacks[i]); err != nil {
			errs = append(errs, err)
		}
	}

	close(h.done)
	return errs
}

func (h *Handler) runCallback(ctx context.Context, name string, callback Callback) error {
	done := make(chan error, 1)

	go func() {
		done <- callback(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("shutdown callback %q: %w", name, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown callback %q timed out", name)
	}
}

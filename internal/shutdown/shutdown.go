// Package shutdown stops a harvest cleanly on SIGINT/SIGTERM.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Callback releases one resource during shutdown.
type Callback func(ctx context.Context) error

// Config holds shutdown configuration.
type Config struct {
	// Timeout bounds each callback.
	Timeout time.Duration
	Signals []os.Signal
	// OnSignal is called with the first signal received.
	OnSignal func(sig os.Signal)
	// OnDone is called once every callback has returned or timed out.
	OnDone func(result *Result)
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 15 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

type entry struct {
	name string
	fn   Callback
}

// Handler cancels the run context on a signal and releases registered
// resources in reverse registration order.
type Handler struct {
	mu      sync.Mutex
	entries []entry

	shuttingDown atomic.Bool
	signal       atomic.Value // os.Signal
	done         chan struct{}
	result       *Result

	ctx    context.Context
	cancel context.CancelFunc

	cfg     Config
	sigChan chan os.Signal
	stop    chan struct{}
}

// New creates a handler and starts listening for cfg.Signals.
func New(cfg Config) *Handler {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if len(cfg.Signals) == 0 {
		cfg.Signals = def.Signals
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		cfg:     cfg,
		sigChan: make(chan os.Signal, 1),
		stop:    make(chan struct{}),
	}

	signal.Notify(h.sigChan, cfg.Signals...)
	go h.listen()

	return h
}

func (h *Handler) listen() {
	select {
	case sig := <-h.sigChan:
		h.signal.Store(sig)
		if h.cfg.OnSignal != nil {
			h.cfg.OnSignal(sig)
		}
		h.cancel()
	case <-h.stop:
	}
}

// Register adds a callback. Callbacks run last-registered first.
func (h *Handler) Register(name string, fn Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry{name: name, fn: fn})
}

// RegisterFunc adds a callback that cannot fail.
func (h *Handler) RegisterFunc(name string, fn func()) {
	h.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// Context is cancelled when a signal arrives or Shutdown is called.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Signal returns the signal that interrupted the run, or nil.
func (h *Handler) Signal() os.Signal {
	sig, _ := h.signal.Load().(os.Signal)
	return sig
}

// Interrupted reports whether a signal was received.
func (h *Handler) Interrupted() bool {
	return h.Signal() != nil
}

// Shutdown cancels the context, runs every callback and stops listening
// for signals. Only the first call does work; later calls return the
// same result.
func (h *Handler) Shutdown() *Result {
	if !h.shuttingDown.CompareAndSwap(false, true) {
		<-h.done
		return h.result
	}

	start := time.Now()
	h.cancel()
	signal.Stop(h.sigChan)
	close(h.stop)

	h.mu.Lock()
	entries := make([]entry, len(h.entries))
	copy(entries, h.entries)
	h.mu.Unlock()

	res := &Result{}
	for i := len(entries) - 1; i >= 0; i-- {
		if err := h.run(entries[i]); err != nil {
			res.Errors = append(res.Errors, err)
		}
	}
	res.Elapsed = time.Since(start)
	h.result = res

	if h.cfg.OnDone != nil {
		h.cfg.OnDone(res)
	}
	close(h.done)
	return res
}

func (h *Handler) run(e entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.Timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- e.fn(ctx) }()

	select {
	case err := <-errc:
		if err != nil {
			return &CallbackError{Name: e.name, Err: err}
		}
		return nil
	case <-ctx.Done():
		return &TimeoutError{CallbackName: e.name}
	}
}

// Result summarizes a shutdown.
type Result struct {
	Elapsed time.Duration
	Errors  []error
}

// HasErrors reports whether any callback failed.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// TimeoutError is returned when a callback exceeds the timeout.
type TimeoutError struct {
	CallbackName string
}

func (e *TimeoutError) Error() string {
	return "shutdown callback timed out: " + e.CallbackName
}

// CallbackError wraps a callback failure with its name.
type CallbackError struct {
	Name string
	Err  error
}

func (e *CallbackError) Error() string {
	return "shutdown callback " + e.Name + ": " + e.Err.Error()
}

func (e *CallbackError) Unwrap() error { return e.Err }

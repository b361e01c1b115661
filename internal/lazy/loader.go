package lazy

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNotLoaded is returned by Loader.Wait when the load failed.
var ErrNotLoaded = errors.New("resource not loaded")

// State is the lifecycle of a Loader.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// LoadFunc produces the resource behind a Loader.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Loader performs a single asynchronous load of a shared resource. The first
// call to Ensure starts the load; later calls are no-ops. The value is written
// once and never invalidated. A failed load is logged and the loader stays
// failed for the life of the process.
//
// A Loader is process-scoped state: build one per resource kind at startup and
// pass it to every renderer that needs it.
type Loader[T any] struct {
	name string
	load LoadFunc[T]
	log  *slog.Logger

	mu    sync.Mutex
	state State
	value T
	err   error
	loads int
	done  chan struct{}

	onSettle func(name string, err error)
}

// NewLoader creates an idle loader.
func NewLoader[T any](name string, load LoadFunc[T], log *slog.Logger) *Loader[T] {
	return &Loader[T]{
		name: name,
		load: load,
		log:  log.With("resource", name),
		done: make(chan struct{}),
	}
}

// OnSettle registers fn to be called once after the load finishes.
func (l *Loader[T]) OnSettle(fn func(name string, err error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSettle = fn
}

// Ensure starts the load if nobody has yet. It never blocks.
func (l *Loader[T]) Ensure() {
	l.mu.Lock()
	if l.state != StateIdle {
		l.mu.Unlock()
		return
	}
	l.state = StateLoading
	l.loads++
	l.mu.Unlock()

	l.log.Debug("loading resource")
	go l.run()
}

func (l *Loader[T]) run() {
	// Loads are not cancellable: nothing owns them once started.
	v, err := l.load(context.Background())

	l.mu.Lock()
	if err != nil {
		l.state = StateFailed
		l.err = err
	} else {
		l.state = StateReady
		l.value = v
	}
	hook := l.onSettle
	close(l.done)
	l.mu.Unlock()

	if err != nil {
		l.log.Error("resource load failed", "error", err)
	} else {
		l.log.Info("resource loaded")
	}
	if hook != nil {
		hook(l.name, err)
	}
}

// Value returns the loaded resource and whether it is ready.
func (l *Loader[T]) Value() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.state == StateReady
}

// State returns the current lifecycle state.
func (l *Loader[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the load error, if the load failed.
func (l *Loader[T]) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Loads returns how many times the underlying load function was started.
func (l *Loader[T]) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

// Done is closed once the load has finished, successfully or not.
func (l *Loader[T]) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the load settles or ctx ends. It does not start a load.
func (l *Loader[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-l.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateReady {
		return l.value, errors.Join(ErrNotLoaded, l.err)
	}
	return l.value, nil
}

// Package runtime is the effectful shell around a comp tree.
//
// All mutation funnels through one goroutine that reduces actions in arrival
// order. Watchers observe each transition and may start asynchronous work,
// whose results come back only as new actions via Submit.
package runtime

import (
	"context"
	"errors"
	"sync"

	"github.com/agentic-research/blocks/internal/comp"
	"github.com/agentic-research/blocks/internal/history"
	"github.com/agentic-research/blocks/internal/logging"
	"go.uber.org/zap"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("runtime closed")

// Effects is what a watcher may do in response to a transition.
type Effects interface {
	// Go runs fn on a tracked goroutine. ctx is cancelled by Close.
	Go(fn func(ctx context.Context))
	// Submit enqueues an action without waiting for it.
	Submit(a comp.Action)
}

// Watcher observes root transitions. Observe runs on the dispatch goroutine
// and must not block; slow work belongs in fx.Go.
type Watcher interface {
	Observe(fx Effects, prev, next comp.Comp)
}

// WatcherFunc adapts a function to Watcher.
type WatcherFunc func(fx Effects, prev, next comp.Comp)

func (f WatcherFunc) Observe(fx Effects, prev, next comp.Comp) { f(fx, prev, next) }

// Config tunes a Runtime.
type Config struct {
	Logger       *zap.Logger
	HistoryLimit int
	Watchers     []Watcher
}

type request struct {
	// step maps the current root to the next one. record marks it as undoable.
	step   func(cur comp.Comp) (next comp.Comp, record bool, err error)
	label  string
	result chan result
}

type result struct {
	root comp.Comp
	err  error
}

// Runtime owns the current root and the single dispatch funnel.
type Runtime struct {
	log     *zap.Logger
	root    *HotSwapRoot
	history *history.History

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pending  []request
	watchers []Watcher
	closed   bool
	active   int           // queued requests plus running workers
	idle     chan struct{} // closed and replaced whenever active drops to zero
	wake     chan struct{}
	done     chan struct{}
	workers  sync.WaitGroup
}

// New starts a runtime over root.
func New(root comp.Comp, cfg Config) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runtime{
		log:      logging.OrNop(cfg.Logger),
		root:     NewHotSwapRoot(root),
		history:  history.New(cfg.HistoryLimit),
		ctx:      ctx,
		cancel:   cancel,
		watchers: append([]Watcher(nil), cfg.Watchers...),
		idle:     make(chan struct{}),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go r.loop()
	return r
}

// Root returns the current root generation.
func (r *Runtime) Root() comp.Comp { return r.root.Load() }

// Generation counts applied transitions, undo and redo included.
func (r *Runtime) Generation() uint64 { return r.root.Generation() }

// Watch registers w for subsequent transitions.
func (r *Runtime) Watch(w Watcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers = append(r.watchers, w)
}

// Dispatch applies a and waits for the resulting root. Routing errors are
// returned to the caller and leave the root unchanged.
func (r *Runtime) Dispatch(ctx context.Context, a comp.Action) (comp.Comp, error) {
	return r.await(ctx, r.reduce(a))
}

// Submit enqueues a without waiting. Failures are logged.
func (r *Runtime) Submit(a comp.Action) {
	if !r.enqueue(r.reduce(a)) {
		r.log.Debug("submit after close dropped", zap.Stringer("action", a))
	}
}

// Undo restores the previous generation. It reports false when there is
// nothing to undo.
func (r *Runtime) Undo(ctx context.Context) (bool, error) {
	return r.travel(ctx, "undo", r.history.Undo)
}

// Redo re-applies the last undone generation.
func (r *Runtime) Redo(ctx context.Context) (bool, error) {
	return r.travel(ctx, "redo", r.history.Redo)
}

func (r *Runtime) travel(ctx context.Context, label string, move func(comp.Comp) (comp.Comp, bool)) (bool, error) {
	moved := false
	req := request{
		label: label,
		step: func(cur comp.Comp) (comp.Comp, bool, error) {
			next, ok := move(cur)
			moved = ok
			return next, false, nil
		},
		result: make(chan result, 1),
	}
	if _, err := r.await(ctx, req); err != nil {
		return false, err
	}
	return moved, nil
}

// Go runs fn on a goroutine that Close waits for.
func (r *Runtime) Go(fn func(ctx context.Context)) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.workers.Add(1)
	r.active++
	r.mu.Unlock()

	go func() {
		defer r.workers.Done()
		defer r.settle()
		fn(r.ctx)
	}()
}

// Wait blocks until no action is queued and no watcher work is running, so
// every fetch started so far has re-entered the funnel.
func (r *Runtime) Wait(ctx context.Context) error {
	r.mu.Lock()
	if r.active == 0 {
		r.mu.Unlock()
		return nil
	}
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runtime) settle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
	if r.active == 0 {
		close(r.idle)
		r.idle = make(chan struct{})
	}
}

// Close stops the funnel, cancels watcher work and waits for every
// goroutine the runtime started. Pending dispatches fail with ErrClosed.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	<-r.done
	r.workers.Wait()
	return nil
}

func (r *Runtime) reduce(a comp.Action) request {
	return request{
		label: a.String(),
		step: func(cur comp.Comp) (comp.Comp, bool, error) {
			next, err := comp.Dispatch(cur, a)
			return next, true, err
		},
		result: make(chan result, 1),
	}
}

func (r *Runtime) await(ctx context.Context, req request) (comp.Comp, error) {
	if !r.enqueue(req) {
		return nil, ErrClosed
	}
	select {
	case res := <-req.result:
		return res.root, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Runtime) enqueue(req request) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.pending = append(r.pending, req)
	r.active++
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

func (r *Runtime) take() ([]request, []Watcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reqs := r.pending
	r.pending = nil
	return reqs, r.watchers
}

func (r *Runtime) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			reqs, _ := r.take()
			for _, req := range reqs {
				req.result <- result{err: ErrClosed}
				r.settle()
			}
			return
		case <-r.wake:
			reqs, watchers := r.take()
			for _, req := range reqs {
				r.apply(req, watchers)
				r.settle()
			}
		}
	}
}

func (r *Runtime) apply(req request, watchers []Watcher) {
	cur := r.root.Load()
	next, record, err := req.step(cur)
	if err != nil {
		r.log.Warn("action rejected", zap.String("action", req.label), zap.Error(err))
		req.result <- result{root: cur, err: err}
		return
	}
	if next == cur {
		req.result <- result{root: cur}
		return
	}
	if record {
		r.history.Record(cur)
	}
	gen := r.root.Swap(next)
	r.log.Debug("applied", zap.String("action", req.label), zap.Uint64("generation", gen))
	req.result <- result{root: next}

	for _, w := range watchers {
		w.Observe(r, cur, next)
	}
}

package actor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/aretw0/actorflow/pkg/ports"
)

// Handle is the untyped view of an actor used by the registry, the path resolver,
// the scheduler and the interpreter. It never exposes the wrapped state.
type Handle interface {
	Name() string
	IsAlive() bool
	Close()
	ClearPendingMessages() int
	Pending() int

	ParentName() string
	SetParentName(name string)
	ChildNames() []string
	HasChildName(name string) bool
	AddChildName(name string)
	RemoveChildName(name string)

	Attributes() *Attributes

	// Enqueue is the untyped form of Tell, used by the scheduler.
	Enqueue(op func(state any)) *Future[struct{}]

	// Dispatch delivers a workflow action to the wrapped state when it implements
	// ports.ActionDispatcher. Otherwise the result is a failure.
	Dispatch(ctx context.Context, method string, args domain.Arguments, mode domain.ExecutionMode) *Future[domain.ActionResult]
}

// cell holds everything about an actor that does not depend on the state type.
type cell struct {
	name    string
	sys     *System
	logger  *slog.Logger
	alive   atomic.Bool
	mailbox *mailbox
	done    chan struct{}
	attrs   *Attributes

	mu       sync.RWMutex
	parent   string
	children []string
	childSet map[string]struct{}
}

// Ref is the handle of an actor wrapping a state of type T.
// T is usually a pointer so that queued operations can mutate it.
type Ref[T any] struct {
	*cell
	state T
}

// RefOption configures an actor at creation.
type RefOption func(*refConfig)

type refConfig struct {
	mailboxSize int
	parent      string
}

// WithMailboxSize bounds the actor's queue. Zero (the default) means unbounded.
func WithMailboxSize(n int) RefOption {
	return func(c *refConfig) {
		c.mailboxSize = n
	}
}

// WithParent attaches the new actor as a child of parent at creation.
func WithParent(parent string) RefOption {
	return func(c *refConfig) {
		c.parent = parent
	}
}

func newRef[T any](sys *System, name string, state T, cfg refConfig) *Ref[T] {
	c := &cell{
		name:     name,
		sys:      sys,
		logger:   sys.logger.With("actor", name),
		mailbox:  newMailbox(cfg.mailboxSize),
		done:     make(chan struct{}),
		attrs:    newAttributes(),
		childSet: make(map[string]struct{}),
	}
	c.alive.Store(true)
	r := &Ref[T]{cell: c, state: state}
	go c.work()
	return r
}

// work is the single worker draining the mailbox.
func (c *cell) work() {
	defer close(c.done)
	for {
		j, ok := c.mailbox.next()
		if !ok {
			return
		}
		j.run()
		c.sys.stats.processed.Add(1)
	}
}

func (c *cell) base() *cell {
	return c
}

func (c *cell) Name() string {
	return c.name
}

func (c *cell) IsAlive() bool {
	return c.alive.Load()
}

// Close marks the actor dead, discards queued operations (their futures fail with
// ErrActorClosed) and removes it from its system. An operation already running is
// not interrupted. Close is idempotent.
func (c *cell) Close() {
	if !c.alive.CompareAndSwap(true, false) {
		return
	}
	dropped := c.mailbox.close()
	for _, j := range dropped {
		j.discard(ErrActorClosed)
	}
	c.sys.stats.discarded.Add(uint64(len(dropped)))
	c.sys.deregister(c)
	c.logger.Debug("actor closed", "discarded", len(dropped))
}

// ClearPendingMessages discards queued operations that have not started and returns how many.
func (c *cell) ClearPendingMessages() int {
	dropped := c.mailbox.drain()
	for _, j := range dropped {
		j.discard(ErrDiscarded)
	}
	c.sys.stats.discarded.Add(uint64(len(dropped)))
	return len(dropped)
}

// Pending is the number of queued operations not yet started.
func (c *cell) Pending() int {
	return c.mailbox.len()
}

func (c *cell) Attributes() *Attributes {
	return c.attrs
}

func (c *cell) ParentName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.parent
}

func (c *cell) SetParentName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parent = name
}

// ChildNames returns the child names in insertion order.
func (c *cell) ChildNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.children...)
}

func (c *cell) HasChildName(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.childSet[name]
	return ok
}

func (c *cell) AddChildName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.childSet[name]; ok {
		return
	}
	c.childSet[name] = struct{}{}
	c.children = append(c.children, name)
}

func (c *cell) RemoveChildName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.childSet[name]; !ok {
		return
	}
	delete(c.childSet, name)
	for i, n := range c.children {
		if n == name {
			c.children = append(c.children[:i], c.children[i+1:]...)
			break
		}
	}
}

// submit enqueues fn with its failure path, failing immediately when the mailbox refuses it.
func (c *cell) submit(run func(), discard func(error)) {
	if !c.alive.Load() {
		discard(ErrActorClosed)
		return
	}
	if err := c.mailbox.enqueue(job{run: run, discard: discard}); err != nil {
		discard(err)
	}
}

// Tell enqueues a side-effecting operation. The future resolves once it ran.
func (r *Ref[T]) Tell(op func(T)) *Future[struct{}] {
	return Ask(r, func(s T) (struct{}, error) {
		op(s)
		return struct{}{}, nil
	})
}

// TellNow runs op immediately on a new goroutine, bypassing the queue.
func (r *Ref[T]) TellNow(op func(T)) *Future[struct{}] {
	return AskNow(r, func(s T) (struct{}, error) {
		op(s)
		return struct{}{}, nil
	})
}

// TellOn runs op on pool, concurrently with the actor's queue.
func (r *Ref[T]) TellOn(pool *Pool, op func(T)) *Future[struct{}] {
	return AskOn(r, pool, func(s T) (struct{}, error) {
		op(s)
		return struct{}{}, nil
	})
}

// Enqueue implements Handle.
func (r *Ref[T]) Enqueue(op func(state any)) *Future[struct{}] {
	return r.Tell(func(s T) { op(s) })
}

// Ask enqueues a value-producing operation on r.
// A returned error or a panic becomes the future's failure.
func Ask[T, R any](r *Ref[T], op func(T) (R, error)) *Future[R] {
	f := newFuture[R]()
	r.submit(func() {
		res, err := safeCall(r.name, func() (R, error) { return op(r.state) })
		if err != nil {
			r.sys.stats.failed.Add(1)
			r.logger.Debug("queued operation failed", "err", err)
		}
		f.complete(res, err)
	}, func(err error) {
		var zero R
		f.complete(zero, err)
	})
	return f
}

// AskNow runs op immediately on a new goroutine, bypassing r's queue.
func AskNow[T, R any](r *Ref[T], op func(T) (R, error)) *Future[R] {
	if !r.IsAlive() {
		return Completed(*new(R), ErrActorClosed)
	}
	f := newFuture[R]()
	go func() {
		f.complete(safeCall(r.name, func() (R, error) { return op(r.state) }))
	}()
	return f
}

// AskOn runs op on pool. The state is shared with the actor's own worker, so op
// must not assume exclusive access to it.
func AskOn[T, R any](r *Ref[T], pool *Pool, op func(T) (R, error)) *Future[R] {
	if !r.IsAlive() {
		return Completed(*new(R), ErrActorClosed)
	}
	if pool == nil {
		return Ask(r, op)
	}
	f := newFuture[R]()
	err := pool.Go(func(ctx context.Context) {
		if ctx.Err() != nil {
			var zero R
			f.complete(zero, ErrPoolShutdown)
			return
		}
		f.complete(safeCall(r.name, func() (R, error) { return op(r.state) }))
	})
	if err != nil {
		var zero R
		f.complete(zero, err)
	}
	return f
}

// Dispatch implements Handle.
func (r *Ref[T]) Dispatch(ctx context.Context, method string, args domain.Arguments, mode domain.ExecutionMode) *Future[domain.ActionResult] {
	d, ok := any(r.state).(ports.ActionDispatcher)
	if !ok {
		return Completed(domain.Fail("actor %s does not accept actions", r.name), nil)
	}
	call := func(T) (domain.ActionResult, error) {
		return d.Dispatch(ctx, method, args), nil
	}

	switch mode {
	case domain.ExecDirect:
		if !r.IsAlive() {
			return Completed(domain.ActionResult{}, ErrActorClosed)
		}
		res, err := safeCall(r.name, func() (domain.ActionResult, error) { return call(r.state) })
		return Completed(res, err)
	case domain.ExecPool:
		return AskOn(r, r.sys.Pool(0), call)
	default:
		return Ask(r, call)
	}
}

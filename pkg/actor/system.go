package actor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/actorflow/internal/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultShutdownGrace is how long Terminate waits for pool tasks before forcing shutdown.
const DefaultShutdownGrace = 60 * time.Second

// System is the actor registry: it maps names to handles and owns the worker pools.
//
// All methods are safe for concurrent use. Compound sequences such as Has followed
// by Get are not atomic.
type System struct {
	mu     sync.RWMutex
	actors map[string]Handle
	order  []string
	pools  []*Pool

	grace      time.Duration
	logger     *slog.Logger
	terminated atomic.Bool
	stats      counters
}

type counters struct {
	processed atomic.Uint64
	failed    atomic.Uint64
	discarded atomic.Uint64
}

// Stats is a point-in-time view of system activity.
type Stats struct {
	Actors    int
	Processed uint64
	Failed    uint64
	Discarded uint64
}

// Option defines a functional option for configuring the System.
type Option func(*System)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *System) {
		s.logger = logger
	}
}

// WithShutdownGrace overrides DefaultShutdownGrace.
func WithShutdownGrace(d time.Duration) Option {
	return func(s *System) {
		s.grace = d
	}
}

// WithPoolSize sets the size of the default pool (index 0). Defaults to runtime.NumCPU().
func WithPoolSize(n int) Option {
	return func(s *System) {
		s.pools[0] = NewPool(n)
	}
}

// NewSystem creates an empty registry with one default pool.
func NewSystem(opts ...Option) *System {
	s := &System{
		actors: make(map[string]Handle),
		pools:  []*Pool{NewPool(runtime.NumCPU())},
		grace:  DefaultShutdownGrace,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new actor wrapping state under name and starts its worker.
func Create[T any](s *System, name string, state T, opts ...RefOption) (*Ref[T], error) {
	if name == "" {
		return nil, fmt.Errorf("actor name is required")
	}
	var cfg refConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	if s.terminated.Load() {
		s.mu.Unlock()
		return nil, ErrSystemTerminated
	}
	if _, exists := s.actors[name]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateActor, name)
	}
	ref := newRef(s, name, state, cfg)
	s.actors[name] = ref
	s.order = append(s.order, name)
	s.mu.Unlock()

	if cfg.parent != "" {
		if err := s.Attach(cfg.parent, name); err != nil {
			ref.Close()
			return nil, err
		}
	}
	s.logger.Debug("actor created", "actor", name, "parent", cfg.parent)
	return ref, nil
}

// Lookup returns the typed handle registered under name.
// It reports false when the name is absent or wraps a different state type.
func Lookup[T any](s *System, name string) (*Ref[T], bool) {
	h, ok := s.Get(name)
	if !ok {
		return nil, false
	}
	ref, ok := h.(*Ref[T])
	return ref, ok
}

// Get returns the handle registered under name.
func (s *System) Get(name string) (Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.actors[name]
	return h, ok
}

// Has reports whether name is registered.
func (s *System) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Remove closes and deregisters the actor. It reports whether the name was present.
func (s *System) Remove(name string) bool {
	h, ok := s.Get(name)
	if !ok {
		return false
	}
	h.Close()
	return true
}

// ListNames returns registered names in registration order.
func (s *System) ListNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len is the number of registered actors.
func (s *System) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.actors)
}

// Pool returns the pool at index, or nil when out of range.
func (s *System) Pool(index int) *Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.pools) {
		return nil
	}
	return s.pools[index]
}

// AddPool appends a pool of the given size and returns its index.
func (s *System) AddPool(size int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = append(s.pools, NewPool(size))
	return len(s.pools) - 1
}

// Logger returns the system logger.
func (s *System) Logger() *slog.Logger {
	return s.logger
}

// Stats returns activity counters.
func (s *System) Stats() Stats {
	return Stats{
		Actors:    s.Len(),
		Processed: s.stats.processed.Load(),
		Failed:    s.stats.failed.Load(),
		Discarded: s.stats.discarded.Load(),
	}
}

// Attach records child under parent: the parent's child set gains child and the
// child's parent name becomes parent. Both must be registered.
func (s *System) Attach(parent, child string) error {
	p, ok := s.Get(parent)
	if !ok {
		return fmt.Errorf("attach %s: parent %w: %s", child, ErrActorNotFound, parent)
	}
	c, ok := s.Get(child)
	if !ok {
		return fmt.Errorf("attach to %s: child %w: %s", parent, ErrActorNotFound, child)
	}
	if old := c.ParentName(); old != "" && old != parent {
		if prev, ok := s.Get(old); ok {
			prev.RemoveChildName(child)
		}
	}
	p.AddChildName(child)
	c.SetParentName(parent)
	return nil
}

// Detach undoes Attach. Missing actors are ignored.
func (s *System) Detach(parent, child string) {
	if p, ok := s.Get(parent); ok {
		p.RemoveChildName(child)
	}
	if c, ok := s.Get(child); ok && c.ParentName() == parent {
		c.SetParentName("")
	}
}

// deregister removes c if it is still the handle registered under its name,
// and unlinks it from its parent.
func (s *System) deregister(c *cell) {
	s.mu.Lock()
	h, ok := s.actors[c.name]
	if !ok || h.(interface{ base() *cell }).base() != c {
		s.mu.Unlock()
		return
	}
	delete(s.actors, c.name)
	for i, n := range s.order {
		if n == c.name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	parent := s.actors[c.ParentName()]
	s.mu.Unlock()

	if parent != nil {
		parent.RemoveChildName(c.name)
	}
}

// Terminate closes every registered actor, then shuts the pools down, waiting up to
// the grace period for running pool tasks. It is best-effort: failures of messages
// processed before the call are not reported.
func (s *System) Terminate(ctx context.Context) error {
	if !s.terminated.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.RLock()
	handles := make([]Handle, 0, len(s.actors))
	for _, name := range s.order {
		handles = append(handles, s.actors[name])
	}
	pools := append([]*Pool(nil), s.pools...)
	s.mu.RUnlock()

	s.logger.Info("terminating actor system", "actors", len(handles), "pools", len(pools))
	for _, h := range handles {
		h.Close()
	}

	grace := s.grace
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < grace {
			grace = left
		}
	}

	var eg errgroup.Group
	for i, p := range pools {
		i, p := i, p
		eg.Go(func() error {
			if err := p.Shutdown(grace); err != nil {
				return fmt.Errorf("pool %d: %w", i, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		s.logger.Warn("actor system terminated with errors", "err", err)
		return err
	}
	return nil
}

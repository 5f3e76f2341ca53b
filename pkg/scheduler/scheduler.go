// Package scheduler issues periodic and deferred operations into actor mailboxes.
//
// Every firing goes through the target actor's queued path, so scheduled work is
// ordered with the actor's other queued operations. A task whose actor has been
// closed or removed cancels itself on its next firing.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/actorflow/internal/logging"
	"github.com/aretw0/actorflow/pkg/actor"
	"github.com/google/uuid"
)

// ErrDuplicateTask is returned when scheduling under an ID already in use.
var ErrDuplicateTask = errors.New("task already scheduled")

// Kind is how a task repeats.
type Kind string

const (
	KindOnce       Kind = "once"
	KindFixedRate  Kind = "fixed_rate"
	KindFixedDelay Kind = "fixed_delay"
)

// Task describes a scheduled task.
type Task struct {
	ID      string
	Actor   string
	Kind    Kind
	Period  time.Duration
	Firings int
}

type task struct {
	Task
	op     func(state any)
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

func (t *task) snapshot() Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Task
}

// Scheduler runs tasks against actors of one system.
type Scheduler struct {
	sys    *actor.System
	logger *slog.Logger
	grace  time.Duration

	mu     sync.Mutex
	tasks  map[string]*task
	closed bool
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithLogger configures a logger for the Scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithShutdownGrace bounds how long Shutdown waits for firing tasks. Defaults to actor.DefaultShutdownGrace.
func WithShutdownGrace(d time.Duration) Option {
	return func(s *Scheduler) {
		s.grace = d
	}
}

// New creates a Scheduler bound to sys.
func New(sys *actor.System, opts ...Option) *Scheduler {
	s := &Scheduler{
		sys:    sys,
		logger: logging.NewNop(),
		grace:  actor.DefaultShutdownGrace,
		tasks:  make(map[string]*task),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleOnce enqueues op on the actor after delay. An empty id is replaced by a generated one,
// which is returned.
func (s *Scheduler) ScheduleOnce(id, actorName string, delay time.Duration, op func(state any)) (string, error) {
	return s.start(id, actorName, KindOnce, delay, 0, op)
}

// ScheduleAtFixedRate enqueues op every period after initialDelay, regardless of how long
// previous firings took to run.
func (s *Scheduler) ScheduleAtFixedRate(id, actorName string, initialDelay, period time.Duration, op func(state any)) (string, error) {
	if period <= 0 {
		return "", fmt.Errorf("period must be positive, got %s", period)
	}
	return s.start(id, actorName, KindFixedRate, initialDelay, period, op)
}

// ScheduleWithFixedDelay enqueues op, waits for it to run, then waits delay before the next firing.
func (s *Scheduler) ScheduleWithFixedDelay(id, actorName string, initialDelay, delay time.Duration, op func(state any)) (string, error) {
	if delay <= 0 {
		return "", fmt.Errorf("delay must be positive, got %s", delay)
	}
	return s.start(id, actorName, KindFixedDelay, initialDelay, delay, op)
}

func (s *Scheduler) start(id, actorName string, kind Kind, initial, period time.Duration, op func(state any)) (string, error) {
	if op == nil {
		return "", fmt.Errorf("operation is required")
	}
	if !s.sys.Has(actorName) {
		return "", fmt.Errorf("schedule %s: %w: %s", kind, actor.ErrActorNotFound, actorName)
	}
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("scheduler is shut down")
	}
	if _, exists := s.tasks[id]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateTask, id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{
		Task:   Task{ID: id, Actor: actorName, Kind: kind, Period: period},
		op:     op,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.tasks[id] = t
	go s.loop(ctx, t, initial)

	s.logger.Debug("task scheduled", "task", id, "actor", actorName, "kind", kind, "period", period)
	return id, nil
}

func (s *Scheduler) loop(ctx context.Context, t *task, initial time.Duration) {
	defer close(t.done)
	defer s.forget(t)

	if !sleep(ctx, initial) {
		return
	}

	switch t.Kind {
	case KindOnce:
		s.fire(t)
	case KindFixedRate:
		ticker := time.NewTicker(t.Period)
		defer ticker.Stop()
		for s.fire(t) != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	case KindFixedDelay:
		for {
			fut := s.fire(t)
			if fut == nil {
				return
			}
			select {
			case <-fut.Done():
			case <-ctx.Done():
				return
			}
			if !sleep(ctx, t.Period) {
				return
			}
		}
	}
}

// fire enqueues one run of the task. It returns nil when the target is gone.
func (s *Scheduler) fire(t *task) *actor.Future[struct{}] {
	h, ok := s.sys.Get(t.Actor)
	if !ok || !h.IsAlive() {
		s.logger.Info("target actor gone, canceling task", "task", t.ID, "actor", t.Actor)
		return nil
	}
	t.mu.Lock()
	t.Firings++
	t.mu.Unlock()
	return h.Enqueue(t.op)
}

func (s *Scheduler) forget(t *task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.tasks[t.ID]; ok && cur == t {
		delete(s.tasks, t.ID)
	}
}

// Cancel stops a task. Already enqueued firings still run. It reports whether the task existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	t, ok := s.tasks[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	t.cancel()
	<-t.done
	return true
}

// Tasks returns the active tasks sorted by ID.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	list := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		list = append(list, t)
	}
	s.mu.Unlock()

	out := make([]Task, 0, len(list))
	for _, t := range list {
		out = append(out, t.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown cancels every task and waits for their loops to exit, up to the grace period
// or ctx, whichever ends first.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	list := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		list = append(list, t)
	}
	s.mu.Unlock()

	for _, t := range list {
		t.cancel()
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	for _, t := range list {
		select {
		case <-t.done:
		case <-timer.C:
			return fmt.Errorf("scheduler shutdown timed out after %s", s.grace)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.logger.Debug("scheduler stopped", "tasks", len(list))
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

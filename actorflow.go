package actorflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/actorflow/internal/logging"
	"github.com/aretw0/actorflow/internal/runtime"
	"github.com/aretw0/actorflow/pkg/actor"
	"github.com/aretw0/actorflow/pkg/adapters/file"
	"github.com/aretw0/actorflow/pkg/adapters/memory"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/aretw0/actorflow/pkg/overlay"
	"github.com/aretw0/actorflow/pkg/ports"
	"github.com/aretw0/actorflow/pkg/session"
	"github.com/google/uuid"
)

// Engine is the high-level entry point: an actor system plus a workflow source.
// Each Run spawns a fresh interpreter as a root actor, so workflows address the
// actors registered on System() by plain names.
type Engine struct {
	sys           *actor.System
	ownsSystem    bool
	loader        ports.WorkflowLoader
	store         ports.StateStore
	locker        ports.DistributedLocker
	sessions      *session.Manager
	hooks         domain.LifecycleHooks
	logger        *slog.Logger
	out           io.Writer
	maxIterations int
	vars          map[string]string

	// Name labels the workflow source (the directory base name when loading from disk).
	Name string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSystem runs workflows on an existing actor system. Terminate leaves it alone.
func WithSystem(sys *actor.System) Option {
	return func(e *Engine) {
		e.sys = sys
	}
}

// WithLoader injects a WorkflowLoader, bypassing the directory loader.
func WithLoader(l ports.WorkflowLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithStateStore sets where RunSession keeps snapshots. Defaults to memory.
func WithStateStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serializes RunSession across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLifecycleHooks registers observability hooks on every interpreter.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithOutput sets the destination of print actions. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.out = w
	}
}

// WithMaxIterations bounds every run. Defaults to runtime.DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		e.maxIterations = n
	}
}

// WithVars overrides overlay variables when the source directory is an overlay.
func WithVars(vars map[string]string) Option {
	return func(e *Engine) {
		e.vars = vars
	}
}

// New creates an Engine reading workflows from dir. When dir holds an overlay
// configuration it is built first and the merged workflows are served from
// memory. With WithLoader, dir is only used as a label and may be empty.
func New(dir string, opts ...Option) (*Engine, error) {
	e := &Engine{maxIterations: runtime.DefaultMaxIterations}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.out == nil {
		e.out = os.Stdout
	}
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		e.Name = filepath.Base(abs)
		e.logger = e.logger.With("source", e.Name)
	}

	if e.loader == nil {
		if dir == "" {
			return nil, errors.New("a directory is required when no loader is provided")
		}
		if overlay.IsOverlay(dir) {
			res, err := e.Merge(context.Background(), dir)
			if err != nil {
				return nil, err
			}
			e.loader = res
		} else {
			e.loader = file.NewLoader(dir, file.WithLogger(e.logger))
		}
	}

	if e.store == nil {
		e.store = memory.NewStore()
	}
	var sessOpts []session.Option
	if e.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, append(sessOpts, session.WithLogger(e.logger))...)

	if e.sys == nil {
		e.sys = actor.NewSystem(actor.WithLogger(e.logger))
		e.ownsSystem = true
	}
	return e, nil
}

// System returns the actor system workflows run on.
func (e *Engine) System() *actor.System {
	return e.sys
}

// Loader returns the workflow source.
func (e *Engine) Loader() ports.WorkflowLoader {
	return e.loader
}

// Sessions returns the session manager used by RunSession.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Watch reports changed workflow names when the loader supports it.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, errors.New("current loader does not support watching")
}

// Merge builds the overlay in dir with the engine's logger and variables.
func (e *Engine) Merge(ctx context.Context, dir string) (*overlay.Result, error) {
	return overlay.Build(ctx, dir, overlay.WithLogger(e.logger), overlay.WithVars(e.vars))
}

func (e *Engine) spawn(workflow string, extra ...runtime.Option) (*runtime.Interpreter, error) {
	base := strings.TrimSuffix(filepath.Base(workflow), filepath.Ext(workflow))
	name := fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
	opts := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLoader(e.loader),
		runtime.WithOutput(e.out),
		runtime.WithMaxIterations(e.maxIterations),
	}
	return runtime.Spawn(e.sys, name, append(opts, extra...)...)
}

// Run loads the named workflow into a new interpreter and drives it to the end
// state. The interpreter is removed when Run returns.
func (e *Engine) Run(ctx context.Context, workflow string) (domain.InterpreterState, error) {
	it, err := e.spawn(workflow)
	if err != nil {
		return domain.InterpreterState{}, err
	}
	defer e.sys.Remove(it.Name())

	if err := it.Load(ctx, workflow); err != nil {
		return domain.InterpreterState{}, err
	}
	err = it.RunUntilEnd(ctx, 0)
	return it.State(), err
}

// RunSession is Run with a durable cursor: a snapshot is saved after every
// transition, and a later call with the same session ID resumes from it.
// Concurrent calls for one session are serialized.
func (e *Engine) RunSession(ctx context.Context, sessionID, workflow string) (domain.InterpreterState, error) {
	var state domain.InterpreterState
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		it, err := e.spawn(workflow, runtime.WithStateStore(e.sessions.Store(), sessionID))
		if err != nil {
			return err
		}
		defer e.sys.Remove(it.Name())

		if err := it.Load(ctx, workflow); err != nil {
			return err
		}
		snap, err := e.sessions.Store().Load(ctx, sessionID)
		switch {
		case err == nil:
			if err := it.Restore(snap); err != nil {
				return fmt.Errorf("resume session %s: %w", sessionID, err)
			}
			e.logger.Info("session resumed", "session_id", sessionID, "state", snap.CurrentState)
		case !errors.Is(err, domain.ErrSnapshotNotFound):
			return err
		}

		err = it.RunUntilEnd(ctx, 0)
		state = it.State()
		return err
	})
	return state, err
}

// Terminate stops the actor system when the engine created it.
func (e *Engine) Terminate(ctx context.Context) error {
	if !e.ownsSystem {
		return nil
	}
	return e.sys.Terminate(ctx)
}

package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/actorflow/internal/logging"
	"github.com/aretw0/actorflow/pkg/actor"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/aretw0/actorflow/pkg/ports"
)

// DefaultMaxIterations bounds RunUntilEnd when no explicit bound is given.
const DefaultMaxIterations = 10000

// Attribute paths published on the interpreter's actor.
const (
	AttrWorkflow = "interpreter/workflow"
	AttrState    = "interpreter/state"
)

// Interpreter is the state machine driver. It is registered as an actor so that
// workflows can address it (and its children) through actor paths.
//
// The exported methods are safe for concurrent use. They are usually called
// directly by the driver, or through the actor's queue by other interpreters.
type Interpreter struct {
	name          string
	parent        string
	sys           *actor.System
	self          actor.Handle
	logger        *slog.Logger
	hooks         domain.LifecycleHooks
	loader        ports.WorkflowLoader
	store         ports.StateStore
	sessionID     string
	out           io.Writer
	matcher       *Matcher
	maxIterations int

	mu    sync.RWMutex
	wf    *domain.Workflow
	state domain.InterpreterState
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger configures a logger for the Interpreter.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interpreter) {
		i.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(i *Interpreter) {
		i.hooks = hooks
	}
}

// WithLoader sets the source used by Load and by the call/runWorkflow actions.
func WithLoader(loader ports.WorkflowLoader) Option {
	return func(i *Interpreter) {
		i.loader = loader
	}
}

// WithStateStore persists a snapshot of the cursor under sessionID after every transition.
func WithStateStore(store ports.StateStore, sessionID string) Option {
	return func(i *Interpreter) {
		i.store = store
		i.sessionID = sessionID
	}
}

// WithOutput sets where the print action writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(i *Interpreter) {
		i.out = w
	}
}

// WithMaxIterations sets the default bound of RunUntilEnd. Defaults to DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(i *Interpreter) {
		if n > 0 {
			i.maxIterations = n
		}
	}
}

// WithMatcher shares a pattern matcher between interpreters.
func WithMatcher(m *Matcher) Option {
	return func(i *Interpreter) {
		i.matcher = m
	}
}

// WithParent registers the interpreter as a child of the named actor.
func WithParent(name string) Option {
	return func(i *Interpreter) {
		i.parent = name
	}
}

// Spawn creates an Interpreter and registers it in sys under name.
func Spawn(sys *actor.System, name string, opts ...Option) (*Interpreter, error) {
	i := &Interpreter{
		name:          name,
		sys:           sys,
		logger:        logging.NewNop(),
		out:           os.Stdout,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.matcher == nil {
		i.matcher = NewMatcher()
	}
	i.logger = i.logger.With("interpreter", name)

	var refOpts []actor.RefOption
	if i.parent != "" {
		refOpts = append(refOpts, actor.WithParent(i.parent))
	}
	ref, err := actor.Create(sys, name, i, refOpts...)
	if err != nil {
		return nil, fmt.Errorf("spawn interpreter: %w", err)
	}
	i.self = ref
	return i, nil
}

// Name returns the interpreter's actor name.
func (i *Interpreter) Name() string {
	return i.name
}

// Handle returns the interpreter's actor handle.
func (i *Interpreter) Handle() actor.Handle {
	return i.self
}

// LoadWorkflow validates wf and installs a copy of it with a fresh cursor.
func (i *Interpreter) LoadWorkflow(wf *domain.Workflow) error {
	if err := wf.Validate(); err != nil {
		return fmt.Errorf("invalid workflow %q: %w", wf.Name, err)
	}
	i.mu.Lock()
	i.wf = wf.Clone()
	i.state = domain.NewInterpreterState()
	i.mu.Unlock()

	i.publish(wf.Name, domain.StateInitial)
	i.logger.Info("workflow loaded", "workflow", wf.Name, "steps", len(wf.Steps))
	return nil
}

// Load fetches the named workflow from the configured loader and installs it.
func (i *Interpreter) Load(ctx context.Context, name string) error {
	if i.loader == nil {
		return fmt.Errorf("load %s: no workflow loader configured", name)
	}
	wf, err := i.loader.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return i.LoadWorkflow(wf)
}

// Workflow returns a copy of the loaded workflow, or nil.
func (i *Interpreter) Workflow() *domain.Workflow {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.wf.Clone()
}

// State returns the current cursor.
func (i *Interpreter) State() domain.InterpreterState {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Reset unloads the workflow and clears the cursor.
func (i *Interpreter) Reset() {
	i.mu.Lock()
	i.wf = nil
	i.state = domain.InterpreterState{StepIndex: -1}
	i.mu.Unlock()
	i.publish("", "")
	i.logger.Debug("interpreter reset")
}

// Restore moves the cursor of the loaded workflow to a saved snapshot.
func (i *Interpreter) Restore(snap *domain.Snapshot) error {
	i.mu.Lock()
	if i.wf == nil || !i.state.Loaded {
		i.mu.Unlock()
		return domain.ErrNotLoaded
	}
	if snap.Workflow != "" && snap.Workflow != i.wf.Name {
		name := i.wf.Name
		i.mu.Unlock()
		return fmt.Errorf("snapshot belongs to workflow %q, loaded %q", snap.Workflow, name)
	}
	i.state.CurrentState = snap.CurrentState
	i.state.StepIndex = snap.StepIndex
	name := i.wf.Name
	i.mu.Unlock()

	i.publish(name, snap.CurrentState)
	i.logger.Info("cursor restored", "state", snap.CurrentState)
	return nil
}

// ExecCode performs one transition attempt. It returns a *NoMatchError when no step
// both matches the current state and succeeds; the state is then unchanged.
func (i *Interpreter) ExecCode(ctx context.Context) error {
	i.mu.RLock()
	wf, st := i.wf, i.state
	i.mu.RUnlock()
	if wf == nil || !st.Loaded {
		return domain.ErrNotLoaded
	}
	cur := st.CurrentState

	for idx, step := range wf.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := i.matcher.Match(step.Source(), cur)
		if err != nil {
			i.logger.Warn("invalid state pattern", "step", idx, "pattern", step.Source(), "err", err)
			continue
		}
		if !ok {
			continue
		}
		if !i.runStep(ctx, wf, cur, step) {
			i.logger.Debug("step failed, trying next", "step", idx, "state", cur)
			continue
		}
		return i.advance(ctx, wf, idx, step, cur)
	}

	if i.hooks.OnNoMatch != nil {
		i.hooks.OnNoMatch(ctx, &domain.NoMatchEvent{
			EventBase: i.event(domain.EventNoMatch, wf.Name),
			State:     cur,
		})
	}
	i.logger.Info("no step matched", "workflow", wf.Name, "state", cur)
	return &NoMatchError{Workflow: wf.Name, State: cur}
}

// RunUntilEnd performs transition attempts until the state is "end", an attempt fails,
// or limit attempts were made. A limit of zero or less uses the configured default.
// Exhausting the bound yields an *IterationLimitError.
func (i *Interpreter) RunUntilEnd(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = i.maxIterations
	}
	for n := 0; n < limit; n++ {
		st := i.State()
		if !st.Loaded {
			return domain.ErrNotLoaded
		}
		if st.CurrentState == domain.StateEnd {
			return nil
		}
		if err := i.ExecCode(ctx); err != nil {
			return err
		}
	}

	st := i.State()
	if st.CurrentState == domain.StateEnd {
		return nil
	}
	name := ""
	if wf := i.Workflow(); wf != nil {
		name = wf.Name
	}
	i.logger.Warn("iteration limit reached", "limit", limit, "state", st.CurrentState)
	return &IterationLimitError{Workflow: name, Limit: limit, State: st.CurrentState}
}

// runStep executes the step's actions in order and reports whether all of them succeeded.
func (i *Interpreter) runStep(ctx context.Context, wf *domain.Workflow, cur string, step domain.Step) bool {
	for _, a := range step.Actions {
		res := i.executeAction(ctx, wf, cur, a)
		if !res.Success {
			return false
		}
	}
	return true
}

func (i *Interpreter) executeAction(ctx context.Context, wf *domain.Workflow, cur string, a domain.Action) domain.ActionResult {
	start := time.Now()
	handles := i.sys.Resolve(i.name, a.Actor)

	var res domain.ActionResult
	if len(handles) == 0 {
		res = domain.Fail("no actor matched %q", a.Actor)
	} else {
		res = i.dispatch(ctx, handles, a.Method, a.Arguments, a.Mode())
	}

	i.logger.Debug("action executed", "actor", a.Actor, "method", a.Method, "matched", len(handles), "success", res.Success, "result", res.Result)
	if i.hooks.OnActionResult != nil {
		i.hooks.OnActionResult(ctx, &domain.ActionEvent{
			EventBase: i.event(domain.EventActionResult, wf.Name),
			State:     cur,
			Actor:     a.Actor,
			Method:    a.Method,
			Matched:   len(handles),
			Success:   res.Success,
			Result:    res.Result,
			Duration:  time.Since(start),
		})
	}
	return res
}

// dispatch sends one call to every handle, then awaits all of them. The call succeeds
// only if every actor reports success.
//
// Calls addressed to the interpreter itself run synchronously: the interpreter may
// be executing on its own worker, where a queued call to itself would never run.
func (i *Interpreter) dispatch(ctx context.Context, handles []actor.Handle, method string, args domain.Arguments, mode domain.ExecutionMode) domain.ActionResult {
	futures := make([]*actor.Future[domain.ActionResult], len(handles))
	for n, h := range handles {
		if h.Name() == i.name {
			futures[n] = actor.Completed(i.Dispatch(ctx, method, args), nil)
			continue
		}
		futures[n] = h.Dispatch(ctx, method, args, mode)
	}

	success := true
	results := make([]string, 0, len(handles))
	for n, f := range futures {
		res, err := f.Get(ctx)
		if err != nil {
			res = domain.FromError(err)
		}
		if !res.Success {
			success = false
		}
		if len(handles) == 1 {
			results = append(results, res.Result)
		} else {
			results = append(results, fmt.Sprintf("%s: %s", handles[n].Name(), res.Result))
		}
	}
	return domain.ActionResult{Success: success, Result: strings.Join(results, "\n")}
}

func (i *Interpreter) advance(ctx context.Context, wf *domain.Workflow, idx int, step domain.Step, from string) error {
	to := step.Target()
	i.mu.Lock()
	if i.wf != wf || !i.state.Loaded {
		// A self action replaced or unloaded the workflow while the step ran.
		i.mu.Unlock()
		return nil
	}
	i.state.CurrentState = to
	i.state.StepIndex = idx
	i.mu.Unlock()

	i.publish(wf.Name, to)
	i.logger.Info("transition", "workflow", wf.Name, "from", from, "to", to, "step", idx)
	if i.hooks.OnTransition != nil {
		i.hooks.OnTransition(ctx, &domain.TransitionEvent{
			EventBase: i.event(domain.EventTransition, wf.Name),
			From:      from,
			To:        to,
			StepIndex: idx,
			Vertex:    step.VertexName,
		})
	}

	if i.store == nil || i.sessionID == "" {
		return nil
	}
	snap := &domain.Snapshot{Workflow: wf.Name, CurrentState: to, StepIndex: idx, UpdatedAt: time.Now()}
	if err := i.store.Save(ctx, i.sessionID, snap); err != nil {
		return fmt.Errorf("save snapshot of session %s: %w", i.sessionID, err)
	}
	return nil
}

func (i *Interpreter) event(t domain.EventType, workflow string) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, Interpreter: i.name, Workflow: workflow}
}

// publish mirrors the cursor into the actor's attributes for introspection.
func (i *Interpreter) publish(workflow, state string) {
	if i.self == nil {
		return
	}
	attrs := i.self.Attributes()
	if workflow == "" {
		attrs.Delete("interpreter")
		return
	}
	attrs.Set(AttrWorkflow, workflow)
	attrs.Set(AttrState, state)
}

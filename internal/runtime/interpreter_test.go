package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/aretw0/actorflow/internal/runtime"
	"github.com/aretw0/actorflow/pkg/actor"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpreter_FallbackToNextStepWithSameSource(t *testing.T) {
	sys := newSystem(t)
	w := addWorker(t, sys, "worker")
	it, err := runtime.Spawn(sys, "main")
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "fallback",
		Steps: []domain.Step{
			step("0", "1", act("worker", "ok")),
			step("1", "2", act("worker", "fail")),
			step("1", "3", act("worker", "ok", "recovered")),
		},
	}))

	ctx := context.Background()
	require.NoError(t, it.ExecCode(ctx))
	assert.Equal(t, "1", it.State().CurrentState)

	require.NoError(t, it.ExecCode(ctx))
	assert.Equal(t, "3", it.State().CurrentState)
	assert.Equal(t, 2, it.State().StepIndex)
	assert.Equal(t, []string{"ok", "fail", "ok"}, w.Calls())
}

func TestInterpreter_FailedStepStopsAtFirstFailingAction(t *testing.T) {
	sys := newSystem(t)
	w := addWorker(t, sys, "worker")
	it, err := runtime.Spawn(sys, "main")
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "partial",
		Steps: []domain.Step{
			step("0", "1", act("worker", "fail"), act("worker", "never")),
		},
	}))

	err = it.ExecCode(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoMatch)
	assert.Equal(t, []string{"fail"}, w.Calls())
}

func TestInterpreter_NoMatchKeepsState(t *testing.T) {
	sys := newSystem(t)
	addWorker(t, sys, "worker")

	var noMatch []string
	it, err := runtime.Spawn(sys, "main", runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnNoMatch: func(_ context.Context, e *domain.NoMatchEvent) { noMatch = append(noMatch, e.State) },
	}))
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "stuck",
		Steps: []domain.Step{
			step("1", "end", act("worker", "ok")),
		},
	}))

	err = it.ExecCode(context.Background())
	var nm *runtime.NoMatchError
	require.True(t, errors.As(err, &nm))
	assert.Equal(t, "0", nm.State)
	assert.False(t, errors.Is(err, domain.ErrIterationLimit))
	assert.Equal(t, "0", it.State().CurrentState)
	assert.Equal(t, []string{"0"}, noMatch)
}

func TestInterpreter_UnresolvedPathIsAFailure(t *testing.T) {
	sys := newSystem(t)
	addWorker(t, sys, "worker")
	it, err := runtime.Spawn(sys, "main")
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "ghost",
		Steps: []domain.Step{
			step("0", "1", act("ghost", "ok")),
			step("0", "2", act("worker", "ok")),
		},
	}))

	require.NoError(t, it.ExecCode(context.Background()))
	assert.Equal(t, "2", it.State().CurrentState)
}

func TestInterpreter_PanickingActorFailsTheStep(t *testing.T) {
	sys := newSystem(t)
	addWorker(t, sys, "worker")
	it, err := runtime.Spawn(sys, "main")
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "panic",
		Steps: []domain.Step{
			step("0", "1", act("worker", "panic")),
			step("0", "end", act("worker", "ok")),
		},
	}))

	require.NoError(t, it.RunUntilEnd(context.Background(), 0))
	assert.Equal(t, domain.StateEnd, it.State().CurrentState)
}

func TestInterpreter_RunUntilEnd(t *testing.T) {
	sys := newSystem(t)
	addWorker(t, sys, "worker")

	var transitions []string
	it, err := runtime.Spawn(sys, "main", runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			transitions = append(transitions, e.From+"->"+e.To)
		},
	}))
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "linear",
		Steps: []domain.Step{
			step("0", "1", act("worker", "ok")),
			step("1", "2", act("worker", "ok")),
			step("2", "end", act("worker", "ok")),
		},
	}))

	require.NoError(t, it.RunUntilEnd(context.Background(), 0))
	assert.Equal(t, []string{"0->1", "1->2", "2->end"}, transitions)

	// Already at end: nothing more to do.
	require.NoError(t, it.RunUntilEnd(context.Background(), 1))
}

func TestInterpreter_RunUntilEndHonorsIterationBound(t *testing.T) {
	sys := newSystem(t)
	w := addWorker(t, sys, "worker")
	it, err := runtime.Spawn(sys, "main")
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "loop",
		Steps: []domain.Step{
			step("0", "1", act("worker", "ok")),
			step("1", "0", act("worker", "ok")),
		},
	}))

	err = it.RunUntilEnd(context.Background(), 5)
	var limit *runtime.IterationLimitError
	require.True(t, errors.As(err, &limit))
	assert.Equal(t, 5, limit.Limit)
	assert.True(t, errors.Is(err, domain.ErrIterationLimit))
	assert.False(t, errors.Is(err, domain.ErrNoMatch))
	assert.Len(t, w.Calls(), 5)
	assert.Equal(t, "1", it.State().CurrentState)
}

func TestInterpreter_DefaultIterationBound(t *testing.T) {
	sys := newSystem(t)
	addWorker(t, sys, "worker")
	it, err := runtime.Spawn(sys, "main", runtime.WithMaxIterations(3))
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name:  "spin",
		Steps: []domain.Step{step("*", "0", act("worker", "ok"))},
	}))

	err = it.RunUntilEnd(context.Background(), 0)
	var limit *runtime.IterationLimitError
	require.True(t, errors.As(err, &limit))
	assert.Equal(t, 3, limit.Limit)
}

func TestInterpreter_NotLoaded(t *testing.T) {
	sys := newSystem(t)
	it, err := runtime.Spawn(sys, "main")
	require.NoError(t, err)

	assert.ErrorIs(t, it.ExecCode(context.Background()), domain.ErrNotLoaded)
	assert.ErrorIs(t, it.RunUntilEnd(context.Background(), 0), domain.ErrNotLoaded)
	assert.Error(t, it.LoadWorkflow(&domain.Workflow{Name: "empty"}))
}

func TestInterpreter_ExecutionModesAndFanOut(t *testing.T) {
	sys := newSystem(t)
	w1 := addWorker(t, sys, "w1")
	w2 := addWorker(t, sys, "w2")
	other := addWorker(t, sys, "other")
	it, err := runtime.Spawn(sys, "main")
	require.NoError(t, err)

	pooled := act("w*", "pooled")
	pooled.Execution = domain.ExecPool
	direct := act("/w*", "direct")
	direct.Execution = domain.ExecDirect

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "fanout",
		Steps: []domain.Step{
			step("0", "end", act("w*", "queued"), pooled, direct),
		},
	}))

	require.NoError(t, it.ExecCode(context.Background()))
	assert.Equal(t, []string{"queued", "pooled", "direct"}, w1.Calls())
	assert.Equal(t, []string{"queued", "pooled", "direct"}, w2.Calls())
	assert.Empty(t, other.Calls())
}

func TestInterpreter_ChildrenAndParentPaths(t *testing.T) {
	sys := newSystem(t)
	parent := addWorker(t, sys, "supervisor")
	it, err := runtime.Spawn(sys, "main", runtime.WithParent("supervisor"))
	require.NoError(t, err)
	child := addWorker(t, sys, "helper", actor.WithParent("main"))

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "family",
		Steps: []domain.Step{
			step("0", "1", act("..", "up")),
			step("1", "end", act("./h*", "down")),
		},
	}))

	require.NoError(t, it.RunUntilEnd(context.Background(), 0))
	assert.Equal(t, []string{"up"}, parent.Calls())
	assert.Equal(t, []string{"down"}, child.Calls())
}

func TestInterpreter_SnapshotsAndRestore(t *testing.T) {
	sys := newSystem(t)
	addWorker(t, sys, "worker")
	store := &mapStore{}
	it, err := runtime.Spawn(sys, "main", runtime.WithStateStore(store, "s1"))
	require.NoError(t, err)

	wf := &domain.Workflow{
		Name: "resumable",
		Steps: []domain.Step{
			step("0", "1", act("worker", "ok")),
			step("1", "end", act("worker", "ok")),
		},
	}
	require.NoError(t, it.LoadWorkflow(wf))
	require.NoError(t, it.ExecCode(context.Background()))

	snap, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "resumable", snap.Workflow)
	assert.Equal(t, "1", snap.CurrentState)
	assert.Equal(t, 0, snap.StepIndex)

	other, err := runtime.Spawn(sys, "resumed")
	require.NoError(t, err)
	require.NoError(t, other.LoadWorkflow(wf))
	require.NoError(t, other.Restore(snap))
	assert.Equal(t, "1", other.State().CurrentState)

	state, ok := other.Handle().Attributes().Get(runtime.AttrState)
	require.True(t, ok)
	assert.Equal(t, "1", state)

	assert.Error(t, other.Restore(&domain.Snapshot{Workflow: "different"}))
}

func TestInterpreter_LoadFromLoader(t *testing.T) {
	sys := newSystem(t)
	loader := mapLoader{"a.yaml": {Name: "a", Steps: []domain.Step{step("0", "end", act("this", "doNothing"))}}}
	it, err := runtime.Spawn(sys, "main", runtime.WithLoader(loader))
	require.NoError(t, err)

	require.NoError(t, it.Load(context.Background(), "a.yaml"))
	assert.Equal(t, "a", it.Workflow().Name)
	assert.ErrorIs(t, it.Load(context.Background(), "missing.yaml"), domain.ErrWorkflowNotFound)

	require.NoError(t, it.RunUntilEnd(context.Background(), 0))
}

func TestInterpreter_ConcurrentReadsDuringRun(t *testing.T) {
	sys := newSystem(t)
	addWorker(t, sys, "worker")
	it, err := runtime.Spawn(sys, "main", runtime.WithOutput(&bytes.Buffer{}))
	require.NoError(t, err)

	steps := make([]domain.Step, 0, 50)
	for n := 0; n < 49; n++ {
		steps = append(steps, step(strconv.Itoa(n), strconv.Itoa(n+1), act("worker", "ok")))
	}
	steps = append(steps, step("49", "end", act("worker", "ok")))
	require.NoError(t, it.LoadWorkflow(&domain.Workflow{Name: "long", Steps: steps}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 0; n < 100; n++ {
			_ = it.State()
		}
	}()
	require.NoError(t, it.RunUntilEnd(context.Background(), 0))
	wg.Wait()
	assert.Equal(t, 49, it.State().StepIndex)
}

package runtime_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/aretw0/actorflow/internal/runtime"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins_PrintSleepDoNothing(t *testing.T) {
	sys := newSystem(t)
	var out bytes.Buffer
	it, err := runtime.Spawn(sys, "main", runtime.WithOutput(&out))
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "builtins",
		Steps: []domain.Step{
			step("0", "1", act("this", "print", "hello", "world")),
			step("1", "2", act(".", "sleep", 5)),
			step("2", "end", act("this", "doNothing", "done")),
		},
	}))

	start := time.Now()
	require.NoError(t, it.RunUntilEnd(context.Background(), 0))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	assert.Equal(t, "hello world\n", out.String())
}

func TestBuiltins_DirectDispatch(t *testing.T) {
	sys := newSystem(t)
	it, err := runtime.Spawn(sys, "main", runtime.WithOutput(&bytes.Buffer{}))
	require.NoError(t, err)

	res := it.Dispatch(context.Background(), "sleep", domain.ScalarArgs("1ms"))
	assert.True(t, res.Success, res.Result)

	res = it.Dispatch(context.Background(), "sleep", domain.Arguments{})
	assert.False(t, res.Success)

	res = it.Dispatch(context.Background(), "print", domain.MapArgs(map[string]any{"message": "hi"}))
	assert.Equal(t, "hi", res.Result)

	res = it.Dispatch(context.Background(), "bogus", domain.Arguments{})
	assert.False(t, res.Success)

	res = it.Dispatch(context.Background(), "execCode", domain.Arguments{})
	assert.False(t, res.Success)
}

func TestBuiltins_CallRunsChildAndDiscardsIt(t *testing.T) {
	sys := newSystem(t)
	w := addWorker(t, sys, "worker")
	loader := mapLoader{
		"sub.yaml": {
			Name: "sub",
			Steps: []domain.Step{
				step("0", "1", act("/worker", "fromChild")),
				step("1", "end", act("..", "doNothing", "reached parent")),
			},
		},
	}
	it, err := runtime.Spawn(sys, "main", runtime.WithLoader(loader))
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "parent",
		Steps: []domain.Step{
			step("0", "end", act("this", "call", "sub.yaml")),
		},
	}))

	require.NoError(t, it.RunUntilEnd(context.Background(), 0))
	assert.Equal(t, []string{"fromChild"}, w.Calls())
	assert.Empty(t, it.Handle().ChildNames())
	assert.Equal(t, []string{"worker", "main"}, sys.ListNames())
}

func TestBuiltins_CallFailurePropagates(t *testing.T) {
	sys := newSystem(t)
	loader := mapLoader{
		"broken.yaml": {Name: "broken", Steps: []domain.Step{step("1", "end", act("this", "doNothing"))}},
	}
	it, err := runtime.Spawn(sys, "main", runtime.WithLoader(loader))
	require.NoError(t, err)

	res := it.Dispatch(context.Background(), "call", domain.ScalarArgs("broken.yaml"))
	assert.False(t, res.Success)
	assert.Contains(t, res.Result, "no step matched")

	res = it.Dispatch(context.Background(), "call", domain.ScalarArgs("missing.yaml"))
	assert.False(t, res.Success)

	assert.Equal(t, []string{"main"}, sys.ListNames())
}

func TestBuiltins_RunWorkflowKeepsChild(t *testing.T) {
	sys := newSystem(t)
	loader := mapLoader{
		"sub.yaml": {Name: "sub", Steps: []domain.Step{step("0", "end", act("this", "doNothing"))}},
	}
	it, err := runtime.Spawn(sys, "main", runtime.WithLoader(loader))
	require.NoError(t, err)

	res := it.Dispatch(context.Background(), "runWorkflow", domain.MapArgs(map[string]any{
		"workflow": "sub.yaml",
		"name":     "sub-1",
	}))
	require.True(t, res.Success, res.Result)
	assert.Equal(t, "sub-1", res.Result)
	assert.Equal(t, []string{"sub-1"}, it.Handle().ChildNames())

	child, ok := sys.Get("sub-1")
	require.True(t, ok)
	state, _ := child.Attributes().Get(runtime.AttrState)
	assert.Equal(t, domain.StateEnd, state)
}

func TestBuiltins_ApplyToExistingActors(t *testing.T) {
	sys := newSystem(t)
	w1 := addWorker(t, sys, "node-1")
	w2 := addWorker(t, sys, "node-2")
	it, err := runtime.Spawn(sys, "main")
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "apply",
		Steps: []domain.Step{
			{
				States: []string{"0", "end"},
				Actions: []domain.Action{{
					Actor:  "this",
					Method: "apply",
					Arguments: domain.MapArgs(map[string]any{
						"actor":     "node-*",
						"method":    "restart",
						"arguments": []any{"now"},
					}),
				}},
			},
		},
	}))

	require.NoError(t, it.RunUntilEnd(context.Background(), 0))
	assert.Equal(t, []string{"restart"}, w1.Calls())
	assert.Equal(t, []string{"restart"}, w2.Calls())

	res := it.Dispatch(context.Background(), "apply", domain.MapArgs(map[string]any{"actor": "nobody-*", "method": "x"}))
	assert.False(t, res.Success)
}

func TestBuiltins_ResetUnloads(t *testing.T) {
	sys := newSystem(t)
	it, err := runtime.Spawn(sys, "main")
	require.NoError(t, err)

	require.NoError(t, it.LoadWorkflow(&domain.Workflow{
		Name: "reset",
		Steps: []domain.Step{
			step("0", "1", act("this", "reset")),
		},
	}))

	require.NoError(t, it.ExecCode(context.Background()))
	st := it.State()
	assert.False(t, st.Loaded)
	assert.Empty(t, st.CurrentState)
	assert.Nil(t, it.Workflow())
	assert.ErrorIs(t, it.RunUntilEnd(context.Background(), 0), domain.ErrNotLoaded)
}

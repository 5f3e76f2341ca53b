package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/actorflow/pkg/adapters/memory"
	"github.com/aretw0/actorflow/pkg/domain"
	contract "github.com/aretw0/actorflow/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wf(name string) *domain.Workflow {
	return &domain.Workflow{
		Name:  name,
		Steps: []domain.Step{{States: []string{"0", "end"}, Actions: []domain.Action{{Actor: "this", Method: "doNothing"}}}},
	}
}

func TestMemoryLoader_Contract(t *testing.T) {
	loader, err := memory.NewFromWorkflows(wf("start"), wf("deploy"))
	require.NoError(t, err)

	contract.RunWorkflowLoaderContract(t, loader, map[string]string{
		"start.yaml":  "start",
		"deploy.yaml": "deploy",
	})
}

func TestMemoryLoader_ReturnsCopies(t *testing.T) {
	loader := memory.NewLoader(map[string]*domain.Workflow{"a.yaml": wf("a")})

	got, err := loader.Load(context.Background(), "a.yaml")
	require.NoError(t, err)
	got.Steps[0].States[1] = "mutated"

	again, err := loader.Load(context.Background(), "a.yaml")
	require.NoError(t, err)
	assert.Equal(t, "end", again.Steps[0].States[1])

	loader.Put("b.yaml", wf("b"))
	names, _ := loader.List(context.Background())
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, names)
}

func TestNewFromWorkflows_RequiresName(t *testing.T) {
	_, err := memory.NewFromWorkflows(&domain.Workflow{})
	assert.Error(t, err)
}

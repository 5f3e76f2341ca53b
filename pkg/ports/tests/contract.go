// Package tests holds reusable contract suites for ports implementations.
package tests

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/aretw0/actorflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract verifies that a StateStore implementation honors the port contract.
func RunStateStoreContract(t *testing.T, store ports.StateStore) {
	t.Helper()
	ctx := context.Background()
	sessionID := "contract-" + time.Now().Format("20060102150405.000000")

	t.Run("Save and Load", func(t *testing.T) {
		snap := &domain.Snapshot{Workflow: "main.yaml", CurrentState: "3", StepIndex: 2, UpdatedAt: time.Now().UTC()}
		require.NoError(t, store.Save(ctx, sessionID, snap))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "main.yaml", loaded.Workflow)
		assert.Equal(t, "3", loaded.CurrentState)
		assert.Equal(t, 2, loaded.StepIndex)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, &domain.Snapshot{Workflow: "main.yaml", CurrentState: "end"}))
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "end", loaded.CurrentState)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := sessionID+"-1", sessionID+"-2"
		require.NoError(t, store.Save(ctx, id1, &domain.Snapshot{CurrentState: "0"}))
		require.NoError(t, store.Save(ctx, id2, &domain.Snapshot{CurrentState: "0"}))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, sessionID))
		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})
}

// RunWorkflowLoaderContract verifies that a WorkflowLoader serves exactly the expected workflows.
// expected maps workflow names to their top-level name field.
func RunWorkflowLoaderContract(t *testing.T, loader ports.WorkflowLoader, expected map[string]string) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load", func(t *testing.T) {
		for file, name := range expected {
			wf, err := loader.Load(ctx, file)
			require.NoError(t, err, "loading %s", file)
			assert.Equal(t, name, wf.Name)
		}
	})

	t.Run("Load Unknown", func(t *testing.T) {
		_, err := loader.Load(ctx, "does-not-exist.yaml")
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	})

	t.Run("List", func(t *testing.T) {
		names, err := loader.List(ctx)
		require.NoError(t, err)
		want := make([]string, 0, len(expected))
		for file := range expected {
			want = append(want, file)
		}
		sort.Strings(want)
		assert.Equal(t, want, names)
	})
}

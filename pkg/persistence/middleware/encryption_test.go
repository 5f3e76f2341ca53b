package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
	"testing"
	"time"

	"github.com/aretw0/actorflow/pkg/adapters/memory"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/aretw0/actorflow/pkg/persistence/middleware"
	"github.com/aretw0/actorflow/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	tests.RunStateStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	under := memory.NewStore()
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(under)

	snap := &domain.Snapshot{Workflow: "payroll", CurrentState: "3", StepIndex: 2, UpdatedAt: time.Unix(1700000000, 0).UTC()}
	require.NoError(t, store.Save(ctx, "s1", snap))

	raw, err := under.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, raw.Workflow)
	assert.Empty(t, raw.CurrentState)
	assert.NotEmpty(t, raw.Sealed)
	assert.Equal(t, snap.UpdatedAt, raw.UpdatedAt)

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	under := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(under)
	require.NoError(t, oldStore.Save(ctx, "s1", &domain.Snapshot{Workflow: "wf", CurrentState: "1"}))

	newStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(under)
	snap, err := newStore.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "1", snap.CurrentState)

	snap.CurrentState = "2"
	require.NoError(t, newStore.Save(ctx, "s1", snap))

	_, err = oldStore.Load(ctx, "s1")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_RejectsPlainSnapshots(t *testing.T) {
	ctx := context.Background()
	under := memory.NewStore()
	require.NoError(t, under.Save(ctx, "plain", &domain.Snapshot{Workflow: "wf", CurrentState: "1"}))

	store := middleware.Chain(under, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
	_, err := store.Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)

	got, err := middleware.ParseKey(hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	got, err = middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = middleware.ParseKey("deadbeef")
	assert.Error(t, err)
}

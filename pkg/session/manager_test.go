package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/actorflow/pkg/adapters/memory"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/aretw0/actorflow/pkg/ports"
	"github.com/aretw0/actorflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked []string
	ttl      time.Duration
	fail     error
}

func (f *fakeLocker) Lock(_ context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.locked = append(f.locked, key)
	f.ttl = ttl
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unlocked = append(f.unlocked, key)
		return nil
	}, nil
}

func TestManager_SerializesSameSession(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	var inside, peak atomic.Int32
	var wg sync.WaitGroup
	for n := 0; n < 20; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.WithLock(ctx, "shared", func(context.Context) error {
				cur := inside.Add(1)
				if cur > peak.Load() {
					peak.Store(cur)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestManager_ResumeAndSnapshots(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	snap, found, err := mgr.Resume(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, snap)

	require.NoError(t, mgr.Save(ctx, "s1", &domain.Snapshot{Workflow: "a.yaml", CurrentState: "2"}))
	require.NoError(t, mgr.Save(ctx, "s2", &domain.Snapshot{Workflow: "b.yaml", CurrentState: "end"}))

	snap, found, err = mgr.Resume(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2", snap.CurrentState)

	all, err := mgr.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "end", all["s2"].CurrentState)

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)

	require.NoError(t, mgr.Delete(ctx, "s1"))
	_, err = mgr.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &fakeLocker{}
	mgr := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, mgr.WithLock(ctx, "s1", func(ctx context.Context) error {
		return mgr.Store().Save(ctx, "s1", &domain.Snapshot{})
	}))
	assert.Equal(t, []string{"s1"}, locker.locked)
	assert.Equal(t, []string{"s1"}, locker.unlocked)
	assert.Equal(t, time.Minute, locker.ttl)

	locker.fail = errors.New("redis down")
	called := false
	err := mgr.WithLock(ctx, "s1", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "redis down")
	assert.False(t, called)
}

package actor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/actorflow/pkg/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	value int
	seen  []int
}

func (c *counter) set(v int) { c.value = v }
func (c *counter) inc() { c.value++ }

func newSystem(t *testing.T) *actor.System {
	t.Helper()
	sys := actor.NewSystem(actor.WithPoolSize(4), actor.WithShutdownGrace(time.Second))
	t.Cleanup(func() { _ = sys.Terminate(context.Background()) })
	return sys
}

func TestRef_QueuedOperationsRunInOrder(t *testing.T) {
	sys := newSystem(t)
	ref, err := actor.Create(sys, "counter", &counter{})
	require.NoError(t, err)

	ref.Tell(func(c *counter) { c.set(10) })
	ref.Tell(func(c *counter) { c.inc() })
	got, err := actor.Ask(ref, func(c *counter) (int, error) { return c.value, nil }).Join()

	require.NoError(t, err)
	assert.Equal(t, 11, got)
}

func TestRef_FIFOUnderLoad(t *testing.T) {
	sys := newSystem(t)
	ref, err := actor.Create(sys, "log", &counter{})
	require.NoError(t, err)

	const n = 1000
	for i := 0; i < n; i++ {
		i := i
		ref.Tell(func(c *counter) { c.seen = append(c.seen, i) })
	}
	seen, err := actor.Ask(ref, func(c *counter) ([]int, error) {
		return append([]int(nil), c.seen...), nil
	}).Get(context.Background())
	require.NoError(t, err)
	require.Len(t, seen, n)
	for i, v := range seen {
		require.Equal(t, i, v)
	}
}

func TestRef_AskNowBypassesBusyQueue(t *testing.T) {
	sys := newSystem(t)
	ref, err := actor.Create(sys, "slow", &counter{value: 7})
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	queued := ref.Tell(func(c *counter) {
		close(started)
		<-release
		c.set(100)
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := actor.AskNow(ref, func(c *counter) (int, error) { return c.value, nil }).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, got, "immediate read must observe the pre-operation state")

	select {
	case <-queued.Done():
		t.Fatal("queued operation finished before it was released")
	default:
	}

	close(release)
	require.NoError(t, queued.Err())
	got, _ = actor.Ask(ref, func(c *counter) (int, error) { return c.value, nil }).Join()
	assert.Equal(t, 100, got)
}

func TestRef_TellNowRunsOffQueue(t *testing.T) {
	sys := newSystem(t)
	ref, err := actor.Create(sys, "now", &counter{})
	require.NoError(t, err)

	done := make(chan struct{})
	fut := ref.TellNow(func(*counter) { close(done) })
	require.NoError(t, fut.Err())
	<-done
}

func TestRef_FailuresAreCapturedAndWorkerSurvives(t *testing.T) {
	sys := newSystem(t)
	ref, err := actor.Create(sys, "fragile", &counter{})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = actor.Ask(ref, func(*counter) (int, error) { return 0, boom }).Join()
	assert.ErrorIs(t, err, boom)

	_, err = actor.Ask(ref, func(*counter) (int, error) { panic("kaboom") }).Join()
	var perr *actor.PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "fragile", perr.Actor)
	assert.Equal(t, "kaboom", perr.Value)

	_, err = actor.AskNow(ref, func(*counter) (int, error) { panic("now") }).Join()
	assert.ErrorAs(t, err, &perr)

	ref.Tell(func(c *counter) { c.inc() })
	got, err := actor.Ask(ref, func(c *counter) (int, error) { return c.value, nil }).Join()
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.GreaterOrEqual(t, sys.Stats().Failed, uint64(2))
}

func TestRef_ClearPendingMessages(t *testing.T) {
	sys := newSystem(t)
	ref, err := actor.Create(sys, "busy", &counter{})
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	inFlight := ref.Tell(func(*counter) {
		close(started)
		<-release
	})
	<-started

	pending := []*actor.Future[struct{}]{
		ref.Tell(func(c *counter) { c.inc() }),
		ref.Tell(func(c *counter) { c.inc() }),
		ref.Tell(func(c *counter) { c.inc() }),
	}
	assert.Equal(t, 3, ref.Pending())
	assert.Equal(t, 3, ref.ClearPendingMessages())
	for _, f := range pending {
		assert.ErrorIs(t, f.Err(), actor.ErrDiscarded)
	}

	close(release)
	require.NoError(t, inFlight.Err())
	assert.True(t, ref.IsAlive())

	got, _ := actor.Ask(ref, func(c *counter) (int, error) { return c.value, nil }).Join()
	assert.Equal(t, 0, got)
}

func TestRef_CloseDiscardsAndDeregisters(t *testing.T) {
	sys := newSystem(t)
	ref, err := actor.Create(sys, "doomed", &counter{})
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	inFlight := ref.Tell(func(*counter) {
		close(started)
		<-release
	})
	<-started
	queued := ref.Tell(func(c *counter) { c.inc() })

	ref.Close()
	ref.Close()

	assert.False(t, ref.IsAlive())
	assert.False(t, sys.Has("doomed"))
	assert.ErrorIs(t, queued.Err(), actor.ErrActorClosed)
	assert.ErrorIs(t, ref.Tell(func(*counter) {}).Err(), actor.ErrActorClosed)
	assert.ErrorIs(t, ref.TellNow(func(*counter) {}).Err(), actor.ErrActorClosed)

	close(release)
	assert.NoError(t, inFlight.Err(), "the running operation is not interrupted")
}

func TestRef_BoundedMailbox(t *testing.T) {
	sys := newSystem(t)
	ref, err := actor.Create(sys, "bounded", &counter{}, actor.WithMailboxSize(1))
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	ref.Tell(func(*counter) {
		close(started)
		<-release
	})
	<-started

	first := ref.Tell(func(c *counter) { c.inc() })
	overflow := ref.Tell(func(c *counter) { c.inc() })
	assert.ErrorIs(t, overflow.Err(), actor.ErrMailboxFull)

	close(release)
	assert.NoError(t, first.Err())
}

func TestRef_AskOnPool(t *testing.T) {
	sys := newSystem(t)
	ref, err := actor.Create(sys, "cpu", &counter{value: 3})
	require.NoError(t, err)

	got, err := actor.AskOn(ref, sys.Pool(0), func(c *counter) (int, error) {
		return c.value * c.value, nil
	}).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, got)
}

func TestFuture_GetHonorsContext(t *testing.T) {
	sys := newSystem(t)
	ref, err := actor.Create(sys, "stuck", &counter{})
	require.NoError(t, err)

	release := make(chan struct{})
	defer close(release)
	fut := ref.Tell(func(*counter) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = fut.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

package runtime_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/actorflow/pkg/actor"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/stretchr/testify/require"
)

// worker records the calls it receives. Method "fail" fails, "panic" panics,
// anything else succeeds and echoes its first argument.
type worker struct {
	mu    sync.Mutex
	calls []string
}

func (w *worker) Dispatch(_ context.Context, method string, args domain.Arguments) domain.ActionResult {
	w.mu.Lock()
	w.calls = append(w.calls, method)
	w.mu.Unlock()

	switch method {
	case "fail":
		return domain.Fail("boom")
	case "panic":
		panic("worker exploded")
	}
	return domain.Ok("%s", args.String(0))
}

func (w *worker) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func newSystem(t *testing.T) *actor.System {
	t.Helper()
	sys := actor.NewSystem(actor.WithShutdownGrace(time.Second), actor.WithPoolSize(2))
	t.Cleanup(func() { _ = sys.Terminate(context.Background()) })
	return sys
}

func addWorker(t *testing.T, sys *actor.System, name string, opts ...actor.RefOption) *worker {
	t.Helper()
	w := &worker{}
	_, err := actor.Create(sys, name, w, opts...)
	require.NoError(t, err)
	return w
}

func step(from, to string, actions ...domain.Action) domain.Step {
	return domain.Step{States: []string{from, to}, Actions: actions}
}

func act(actorPath, method string, args ...any) domain.Action {
	a := domain.Action{Actor: actorPath, Method: method}
	if len(args) > 0 {
		a.Arguments = domain.ListArgs(args...)
	}
	return a
}

// mapLoader serves workflows from a map.
type mapLoader map[string]*domain.Workflow

func (l mapLoader) Load(_ context.Context, name string) (*domain.Workflow, error) {
	wf, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, name)
	}
	return wf, nil
}

func (l mapLoader) List(context.Context) ([]string, error) {
	names := make([]string, 0, len(l))
	for n := range l {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// mapStore keeps snapshots in memory.
type mapStore struct {
	mu    sync.Mutex
	snaps map[string]domain.Snapshot
}

func (s *mapStore) Save(_ context.Context, id string, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snaps == nil {
		s.snaps = make(map[string]domain.Snapshot)
	}
	s.snaps[id] = *snap
	return nil
}

func (s *mapStore) Load(_ context.Context, id string) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[id]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return &snap, nil
}

func (s *mapStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, id)
	return nil
}

func (s *mapStore) List(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.snaps))
	for id := range s.snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/actorflow/pkg/domain"
)

// Loader implements ports.WorkflowLoader using an in-memory map.
// Safe for concurrent use.
type Loader struct {
	mu        sync.RWMutex
	workflows map[string]*domain.Workflow
}

// NewLoader creates a Loader serving the given workflows by name.
func NewLoader(workflows map[string]*domain.Workflow) *Loader {
	l := &Loader{workflows: make(map[string]*domain.Workflow, len(workflows))}
	for name, wf := range workflows {
		l.workflows[name] = wf.Clone()
	}
	return l
}

// NewFromWorkflows registers each workflow under "<name>.yaml".
// This keeps tests close to what a directory loader would serve.
func NewFromWorkflows(workflows ...*domain.Workflow) (*Loader, error) {
	l := &Loader{workflows: make(map[string]*domain.Workflow, len(workflows))}
	for _, wf := range workflows {
		if wf == nil || wf.Name == "" {
			return nil, fmt.Errorf("workflow missing name")
		}
		l.workflows[wf.Name+".yaml"] = wf.Clone()
	}
	return l, nil
}

// Put adds or replaces a workflow.
func (l *Loader) Put(name string, wf *domain.Workflow) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.workflows[name] = wf.Clone()
}

// Load returns a copy of the named workflow.
func (l *Loader) Load(_ context.Context, name string) (*domain.Workflow, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	wf, ok := l.workflows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, name)
	}
	return wf.Clone(), nil
}

// List returns all workflow names, sorted.
func (l *Loader) List(context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.workflows))
	for name := range l.workflows {
		names = append(names, name)
	}
	sort.Strings(names) // Deterministic order
	return names, nil
}

package ports

import (
	"context"

	"github.com/aretw0/actorflow/pkg/domain"
)

// WorkflowLoader defines how the interpreter retrieves workflow definitions.
// Names are usually file names relative to the loader's root (e.g. "deploy.yaml").
type WorkflowLoader interface {
	// Load returns the named workflow. It returns domain.ErrWorkflowNotFound
	// (possibly wrapped) when the name is unknown.
	Load(ctx context.Context, name string) (*domain.Workflow, error)

	// List returns the names of all available workflows in a deterministic order.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
type Watchable interface {
	// Watch returns a channel that receives the name of every workflow that changed.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}

package ports

import (
	"context"

	"github.com/aretw0/actorflow/pkg/domain"
)

// ActionDispatcher is the capability an actor's wrapped state exposes to workflows.
// Methods are selected by name from workflow data; implementations switch on the
// name and interpret whichever argument shape they support.
//
// Dispatch must report failures through the returned result rather than panicking,
// although a panic is still captured at the mailbox boundary.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, method string, args domain.Arguments) domain.ActionResult
}

// DispatcherFunc adapts a function to ActionDispatcher.
type DispatcherFunc func(ctx context.Context, method string, args domain.Arguments) domain.ActionResult

func (f DispatcherFunc) Dispatch(ctx context.Context, method string, args domain.Arguments) domain.ActionResult {
	return f(ctx, method, args)
}

package actor

import (
	"errors"
	"fmt"
)

var (
	// ErrActorClosed is returned for operations issued to, or discarded by, a closed actor.
	ErrActorClosed = errors.New("actor closed")
	// ErrDiscarded is returned for queued operations removed by ClearPendingMessages.
	ErrDiscarded = errors.New("message discarded")
	// ErrDuplicateActor is returned when registering a name that is already present.
	ErrDuplicateActor = errors.New("actor already registered")
	// ErrActorNotFound is returned when a name is not registered.
	ErrActorNotFound = errors.New("actor not found")
	// ErrMailboxFull is returned when a bounded mailbox cannot take more operations.
	ErrMailboxFull = errors.New("mailbox full")
	// ErrPoolShutdown is returned for tasks submitted to a pool that is shutting down.
	ErrPoolShutdown = errors.New("pool shut down")
	// ErrSystemTerminated is returned when creating actors on a terminated system.
	ErrSystemTerminated = errors.New("actor system terminated")
)

// PanicError wraps a value recovered from a panicking operation.
type PanicError struct {
	Actor string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("actor %s: operation panicked: %v", e.Actor, e.Value)
}

// safeCall runs fn and converts a panic into a *PanicError.
func safeCall[R any](actor string, fn func() (R, error)) (res R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			res, err = zero, &PanicError{Actor: actor, Value: r}
		}
	}()
	return fn()
}

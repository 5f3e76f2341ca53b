package actor

import (
	"context"
	"sync"
)

// Future is the pending result of an actor operation.
// It is completed exactly once, with either a value or an error.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns an already resolved future.
func Completed[T any](v T, err error) *Future[T] {
	f := newFuture[T]()
	f.complete(v, err)
	return f
}

func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get waits for the result or for ctx to be done.
// Abandoning a Get does not cancel the operation.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Join waits for the result without a deadline.
func (f *Future[T]) Join() (T, error) {
	<-f.done
	return f.val, f.err
}

// Err waits for completion and returns only the error.
func (f *Future[T]) Err() error {
	_, err := f.Join()
	return err
}

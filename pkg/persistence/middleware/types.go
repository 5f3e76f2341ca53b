package middleware

import "github.com/aretw0/actorflow/pkg/ports"

// Middleware wraps a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain applies mws to store; the first middleware is the outermost.
func Chain(store ports.StateStore, mws ...Middleware) ports.StateStore {
	for n := len(mws) - 1; n >= 0; n-- {
		store = mws[n](store)
	}
	return store
}

/*
Package session serializes interpreter runs that share a session ID and
orchestrates snapshot persistence for them.

A process-local mutex per session (reference counted, so idle sessions cost
nothing) is combined with an optional ports.DistributedLocker for runs spread
across replicas.
*/
package session

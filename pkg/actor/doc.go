/*
Package actor implements the mailbox/ownership model of actorflow.

An actor wraps one opaque value (its state) and owns one ordered queue of pending operations
drained by exactly one goroutine. All access to the state goes through four primitives:

  - Tell: enqueue a side-effecting operation.
  - Ask: enqueue a value-producing operation.
  - TellNow / AskNow: run immediately on a fresh goroutine, bypassing the queue.

Operations issued with Tell/Ask by one caller run in issuance order, each observing the effect
of the previous ones. The *Now variants have no ordering relationship with anything; the caller
is responsible for the thread-safety of the state under that mode.

Failures (returned errors and panics) are captured into the returned Future and never reach the
caller synchronously nor stop the actor's worker.

A System is the registry that names actors, owns the shared worker pools used for CPU-bound
offload, resolves hierarchical paths (self, parent, children, siblings) and orchestrates shutdown.
*/
package actor

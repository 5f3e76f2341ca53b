package domain

import "errors"

// ErrWorkflowNotFound is returned by loaders when a workflow name cannot be resolved.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ErrSnapshotNotFound is returned when a session has no saved interpreter snapshot.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrNotLoaded is returned when the interpreter is asked to run before a workflow is loaded.
var ErrNotLoaded = errors.New("no workflow loaded")

// ErrNoMatch is the sentinel behind interpreter no-match failures.
var ErrNoMatch = errors.New("no step matched and succeeded")

// ErrIterationLimit is the sentinel behind run-to-completion iteration-bound failures.
var ErrIterationLimit = errors.New("iteration limit reached")

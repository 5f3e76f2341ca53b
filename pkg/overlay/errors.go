package overlay

import (
	"errors"
	"fmt"
)

// ErrNoConfig is returned when a directory holds no overlay configuration.
var ErrNoConfig = errors.New("no overlay configuration found")

// OrphanVertexError reports a patch step inserted with no preceding anchor.
type OrphanVertexError struct {
	File   string
	Vertex string
}

func (e *OrphanVertexError) Error() string {
	return fmt.Sprintf("patch %s: vertex %q is new and has no preceding anchor vertex", e.File, e.Vertex)
}

// CycleError reports overlays that include each other as bases.
type CycleError struct {
	Dir string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("overlay cycle detected at %s", e.Dir)
}

package domain

import (
	"errors"
	"fmt"
)

// ValidationError describes a structural problem in a workflow definition.
type ValidationError struct {
	Step   int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Step < 0 {
		return e.Reason
	}
	return fmt.Sprintf("step %d: %s", e.Step, e.Reason)
}

// Validate checks the structural rules of a workflow definition.
// All problems are reported together.
func (w *Workflow) Validate() error {
	if w == nil {
		return &ValidationError{Step: -1, Reason: "workflow is nil"}
	}
	if len(w.Steps) == 0 {
		return &ValidationError{Step: -1, Reason: "workflow has no steps"}
	}

	var errs []error
	vertices := make(map[string]int)
	for i, s := range w.Steps {
		if len(s.States) > 0 && len(s.States) != 2 {
			errs = append(errs, &ValidationError{Step: i, Reason: fmt.Sprintf("states must have two elements, got %d", len(s.States))})
		}
		if s.Source() == "" || s.Target() == "" {
			errs = append(errs, &ValidationError{Step: i, Reason: "missing source or target state"})
		}
		if s.VertexName != "" {
			if prev, dup := vertices[s.VertexName]; dup {
				errs = append(errs, &ValidationError{Step: i, Reason: fmt.Sprintf("vertexName %q already used by step %d", s.VertexName, prev)})
			}
			vertices[s.VertexName] = i
		}
		for j, a := range s.Actions {
			if a.Actor == "" || a.Method == "" {
				errs = append(errs, &ValidationError{Step: i, Reason: fmt.Sprintf("action %d: actor and method are required", j)})
			}
			if _, err := ParseExecutionMode(string(a.Execution)); err != nil {
				errs = append(errs, &ValidationError{Step: i, Reason: fmt.Sprintf("action %d: %v", j, err)})
			}
		}
	}
	return errors.Join(errs...)
}

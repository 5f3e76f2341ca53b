package runtime

import (
	"fmt"

	"github.com/aretw0/actorflow/pkg/domain"
)

// NoMatchError is returned when a transition attempt finds no step that both matches
// the current state and succeeds. The state is left unchanged.
type NoMatchError struct {
	Workflow string
	State    string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("workflow %s: no step matched and succeeded in state %q", e.Workflow, e.State)
}

// Is makes errors.Is(err, domain.ErrNoMatch) hold.
func (e *NoMatchError) Is(target error) bool {
	return target == domain.ErrNoMatch
}

// IterationLimitError is returned when RunUntilEnd exhausts its iteration bound
// before reaching the end state.
type IterationLimitError struct {
	Workflow string
	Limit    int
	State    string
}

func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("workflow %s: %d iterations without reaching %q (stopped in %q)", e.Workflow, e.Limit, domain.StateEnd, e.State)
}

// Is makes errors.Is(err, domain.ErrIterationLimit) hold.
func (e *IterationLimitError) Is(target error) bool {
	return target == domain.ErrIterationLimit
}

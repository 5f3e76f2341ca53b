package domain

// Well-known interpreter states.
const (
	// StateInitial is the state every freshly loaded workflow starts in.
	StateInitial = "0"
	// StateEnd is the terminal state for RunUntilEnd.
	StateEnd = "end"
)

// Workflow is an ordered table of steps driven by the interpreter.
type Workflow struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Steps       []Step `json:"steps" yaml:"steps" mapstructure:"steps"`
}

// Step is a (source pattern, target state, actions) triple.
//
// The source and target are normally given as the two-element States array.
// From/To are accepted as an equivalent spelling.
type Step struct {
	States      []string `json:"states,omitempty" yaml:"states,omitempty" mapstructure:"states"`
	From        string   `json:"from,omitempty" yaml:"from,omitempty" mapstructure:"from"`
	To          string   `json:"to,omitempty" yaml:"to,omitempty" mapstructure:"to"`
	VertexName  string   `json:"vertexName,omitempty" yaml:"vertexName,omitempty" mapstructure:"vertexName"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Actions     []Action `json:"actions,omitempty" yaml:"actions,omitempty" mapstructure:"actions"`
}

// Source returns the pattern matched against the current state.
func (s Step) Source() string {
	if len(s.States) > 0 {
		return s.States[0]
	}
	return s.From
}

// Target returns the state entered when the step succeeds.
func (s Step) Target() string {
	if len(s.States) > 1 {
		return s.States[1]
	}
	return s.To
}

// Clone returns a deep copy of the workflow. Argument values are copied
// structurally so the clone shares no maps or slices with the original.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	out := &Workflow{
		Name:        w.Name,
		Description: w.Description,
		Steps:       make([]Step, len(w.Steps)),
	}
	for i, s := range w.Steps {
		cp := s
		cp.States = append([]string(nil), s.States...)
		cp.Actions = make([]Action, len(s.Actions))
		for j, a := range s.Actions {
			a.Arguments = a.Arguments.Clone()
			cp.Actions[j] = a
		}
		out.Steps[i] = cp
	}
	return out
}

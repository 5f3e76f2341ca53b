package domain

import "time"

// InterpreterState is the cursor of a workflow interpreter.
type InterpreterState struct {
	// CurrentState is the state the next transition attempt is matched against.
	CurrentState string `json:"current_state"`
	// StepIndex is the index of the last step that matched and succeeded, -1 before any.
	StepIndex int `json:"step_index"`
	// Loaded reports whether a workflow is loaded.
	Loaded bool `json:"loaded"`
}

// NewInterpreterState returns the cursor of a freshly loaded workflow.
func NewInterpreterState() InterpreterState {
	return InterpreterState{CurrentState: StateInitial, StepIndex: -1, Loaded: true}
}

// Snapshot is the persisted form of an interpreter cursor, keyed by session.
type Snapshot struct {
	Workflow     string    `json:"workflow"`
	CurrentState string    `json:"current_state"`
	StepIndex    int       `json:"step_index"`
	UpdatedAt    time.Time `json:"updated_at"`
	// Sealed holds an encrypted snapshot. When set, the cursor fields are empty.
	Sealed string `json:"sealed,omitempty"`
}

package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransition   EventType = "transition"
	EventActionResult EventType = "action_result"
	EventNoMatch      EventType = "no_match"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	Interpreter string    `json:"interpreter"`
	Workflow    string    `json:"workflow"`
}

// TransitionEvent is emitted when a step succeeds and the cursor moves.
type TransitionEvent struct {
	EventBase
	From      string `json:"from"`
	To        string `json:"to"`
	StepIndex int    `json:"step_index"`
	Vertex    string `json:"vertex,omitempty"`
}

// ActionEvent is emitted once per dispatched action, after all its actors answered.
type ActionEvent struct {
	EventBase
	State    string        `json:"state"`
	Actor    string        `json:"actor"`
	Method   string        `json:"method"`
	Matched  int           `json:"matched"`
	Success  bool          `json:"success"`
	Result   string        `json:"result,omitempty"`
	Duration time.Duration `json:"duration"`
}

// NoMatchEvent is emitted when a transition attempt exhausts the step table.
type NoMatchEvent struct {
	EventBase
	State string `json:"state"`
}

// LifecycleHooks defines callbacks for interpreter observability.
// Hooks observe outcomes; they cannot influence them.
type LifecycleHooks struct {
	OnTransition   func(context.Context, *TransitionEvent)
	OnActionResult func(context.Context, *ActionEvent)
	OnNoMatch      func(context.Context, *NoMatchEvent)
}

package domain

import (
	"fmt"
	"strings"
)

// ExecutionMode selects how an action reaches its actors.
type ExecutionMode string

const (
	// ExecQueued routes the call through the actor's mailbox. This is the default.
	ExecQueued ExecutionMode = "queued"
	// ExecPool offloads the call to the system's shared worker pool,
	// concurrently with the actor's own queue.
	ExecPool ExecutionMode = "pool"
	// ExecDirect invokes the actor synchronously in the caller's goroutine.
	ExecDirect ExecutionMode = "direct"
)

// ParseExecutionMode maps document spellings to an ExecutionMode.
// An empty string yields ExecQueued.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "queued", "queue", "tell", "ask":
		return ExecQueued, nil
	case "pool":
		return ExecPool, nil
	case "direct", "sync":
		return ExecDirect, nil
	}
	return "", fmt.Errorf("unknown execution mode %q", s)
}

// Action is a single method call dispatched to every actor matched by Actor.
// Actor is a path pattern, resolved at execution time.
type Action struct {
	Actor     string        `json:"actor" yaml:"actor" mapstructure:"actor"`
	Method    string        `json:"method" yaml:"method" mapstructure:"method"`
	Arguments Arguments     `json:"arguments,omitempty" yaml:"arguments,omitempty" mapstructure:"arguments"`
	Execution ExecutionMode `json:"execution,omitempty" yaml:"execution,omitempty" mapstructure:"execution"`
}

// Mode returns the effective execution mode of the action.
func (a Action) Mode() ExecutionMode {
	m, err := ParseExecutionMode(string(a.Execution))
	if err != nil {
		return ExecQueued
	}
	return m
}

// ActionResult is the outcome of a dispatched action.
// It is the only thing the interpreter inspects to decide whether a step succeeded.
type ActionResult struct {
	Success bool   `json:"success"`
	Result  string `json:"result"`
}

// Ok builds a successful result.
func Ok(format string, args ...any) ActionResult {
	return ActionResult{Success: true, Result: fmt.Sprintf(format, args...)}
}

// Fail builds a failed result.
func Fail(format string, args ...any) ActionResult {
	return ActionResult{Success: false, Result: fmt.Sprintf(format, args...)}
}

// FromError converts err to a result; a nil error is a success with an empty message.
func FromError(err error) ActionResult {
	if err != nil {
		return ActionResult{Success: false, Result: err.Error()}
	}
	return ActionResult{Success: true}
}

func (r ActionResult) String() string {
	if r.Success {
		return "ok: " + r.Result
	}
	return "failed: " + r.Result
}

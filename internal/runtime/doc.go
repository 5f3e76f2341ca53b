// Package runtime drives workflow definitions as finite state machines on top of the actor system.
//
// An Interpreter is itself an actor. Each transition attempt scans the step table in order,
// matches the step's source pattern against the current state, and dispatches the step's
// actions to the actors resolved from the interpreter's position in the hierarchy. A step
// whose actions all succeed moves the cursor to its target state; a failing step is
// abandoned and the scan continues, which is how fallbacks are expressed.
package runtime

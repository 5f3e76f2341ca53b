/*
Package domain defines the core types shared by the actor runtime and the workflow interpreter.

It is free of behavior beyond small helpers and validation: workflow definitions (Workflow, Step, Action),
the argument shapes an action can carry (Arguments), the two-field ActionResult contract every dispatched
action yields, interpreter snapshots, lifecycle hook types and sentinel errors.

# Workflow documents

A workflow is a YAML or JSON document:

	name: deploy
	steps:
	  - states: ["0", "1"]
	    vertexName: init
	    actions:
	      - actor: ./worker*
	        method: prepare
	        arguments: ["v1.2.0"]
	  - states: ["1", "end"]
	    actions:
	      - actor: this
	        method: print
	        arguments: done

The first element of states is a source pattern matched against the interpreter's current state,
the second is the state entered once every action of the step succeeds.
*/
package domain

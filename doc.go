/*
Package actorflow runs declarative workflows against a registry of actors.

An actor wraps a piece of state behind a mailbox: every operation sent to it
runs in arrival order on its own goroutine and reports back through a Future.
A workflow is a table of steps; each step names a source state, a target state
and the actions to dispatch. The interpreter picks the first step whose source
pattern matches the current state, sends its actions to the actors selected by
path patterns ("worker", "./child-*", "/node-?", ".."), and moves to the
target only when every action succeeded. Otherwise it falls back to the next
matching step.

Workflows are YAML or JSON files. Overlays (see package overlay) derive
environment-specific variants from shared bases without editing them.

# Usage

	eng, err := actorflow.New("./workflows")
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Terminate(context.Background())

	// Expose a local actor to the workflows.
	actor.Create(eng.System(), "shell", process.NewRunner(process.WithTools(tools)))

	state, err := eng.Run(context.Background(), "deploy.yaml")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("finished in", state.CurrentState)

# Packages

  - pkg/actor: mailboxes, futures, the registry and path resolution.
  - pkg/scheduler: periodic and delayed operations on actors.
  - pkg/overlay: strategic merge of workflow documents.
  - pkg/session: serialized, resumable runs.
  - pkg/adapters: workflow loaders, snapshot stores, the process actor and the HTTP introspection server.
*/
package actorflow

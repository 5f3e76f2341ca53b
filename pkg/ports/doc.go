/*
Package ports defines the driven ports (interfaces) of the actorflow runtime.

These interfaces decouple the interpreter from concrete workflow sources, snapshot stores
and actor implementations.

# Key Interfaces

  - ActionDispatcher: implemented by the wrapped state of any actor that accepts workflow actions.
  - WorkflowLoader: resolves workflow definitions by name (memory, directory, overlay output).
  - StateStore: persists interpreter snapshots so a session can be resumed.
  - DistributedLocker: serializes runs of the same session across processes.
*/
package ports

/*
Package overlay builds environment-specific workflows from base workflow files and patches.

An overlay directory holds an overlay.yaml:

	bases:
	  - ../base/deploy.yaml
	  - ../base/rollback.yaml
	patches:
	  - timeouts.yaml            # global: applies to every base containing one of its vertices
	  - target: deploy.yaml      # scoped to one base
	    patch: deploy-prod.yaml
	vars:
	  port: "8443"
	namePrefix: prod-

Patch files list steps keyed by vertexName. A step whose vertexName exists in the base
modifies it (maps are deep-merged, lists replaced, "$delete: true" removes it). A step with
a new vertexName is inserted right after the last existing vertex seen earlier in the same
patch; an insert with no such anchor is an *OrphanVertexError and aborts the build.

After merging, ${name} and ${name:-default} are substituted in every string, then
namePrefix/nameSuffix rename the workflows and the call/runWorkflow references between them.
A base may also be a directory, either holding workflow files or another overlay.
*/
package overlay

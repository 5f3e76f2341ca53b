package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/actorflow/internal/runtime"
	"github.com/aretw0/actorflow/pkg/domain"
)

// Overlay carries interpreter state to highlight on the graph.
type Overlay struct {
	Visited []string
	Current string
}

// GenerateMermaid renders the workflow's transition graph as a Mermaid flowchart.
// Shapes:
//   - initial state: ((circle))
//   - end state: (((double circle)))
//   - pattern sources (wildcards, expressions, negations): {{hexagon}}
//   - other states: [rectangle]
//
// Steps that start a sub-workflow (call, runWorkflow) are drawn dotted.
func GenerateMermaid(wf *domain.Workflow, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make(map[string]string)
	var order []string
	id := func(state string) string {
		if v, ok := ids[state]; ok {
			return v
		}
		v := fmt.Sprintf("s%d", len(ids))
		ids[state] = v
		order = append(order, state)
		return v
	}
	for _, s := range wf.Steps {
		id(s.Source())
		id(s.Target())
	}

	for _, state := range order {
		opener, closer := "[", "]"
		switch {
		case state == domain.StateInitial:
			opener, closer = "((", "))"
		case state == domain.StateEnd:
			opener, closer = "(((", ")))"
		case isPattern(state):
			opener, closer = "{{", "}}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", ids[state], opener, escape(state), closer)
	}

	for _, s := range wf.Steps {
		from, to := ids[s.Source()], ids[s.Target()]
		label := edgeLabel(s)
		switch {
		case startsWorkflow(s) && label != "":
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", from, escape(label), to)
		case startsWorkflow(s):
			fmt.Fprintf(&sb, "    %s -.-> %s\n", from, to)
		case label != "":
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, escape(label), to)
		default:
			fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, state := range overlay.Visited {
			v, ok := ids[state]
			if ok && !seen[v] {
				seen[v] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", v)
			}
		}
		if v, ok := ids[overlay.Current]; ok {
			fmt.Fprintf(&sb, "    class %s current;\n", v)
		}
	}
	return sb.String()
}

// edgeLabel prefers the step's label, then its vertex name, then its first action.
func edgeLabel(s domain.Step) string {
	switch {
	case s.Label != "":
		return s.Label
	case s.VertexName != "":
		return s.VertexName
	case len(s.Actions) > 0:
		return s.Actions[0].Actor + "." + s.Actions[0].Method
	}
	return ""
}

func startsWorkflow(s domain.Step) bool {
	for _, a := range s.Actions {
		if a.Method == runtime.MethodCall || a.Method == runtime.MethodRunWorkflow {
			return true
		}
	}
	return false
}

func isPattern(state string) bool {
	return state == "*" ||
		strings.HasPrefix(state, runtime.ExprPrefix) ||
		strings.HasPrefix(state, "!") ||
		strings.ContainsAny(state, "|<>=")
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

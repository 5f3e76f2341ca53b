package overlay

import "fmt"

const (
	keyVertex = "vertexName"
	keyDelete = "$delete"
	keySteps  = "steps"
)

// document is a workflow decoded into generic maps, so that patches can deep-merge any field.
type document map[string]any

func (d document) steps() []map[string]any {
	raw, _ := d[keySteps].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, s := range raw {
		if m, ok := s.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func (d document) setSteps(steps []map[string]any) {
	raw := make([]any, len(steps))
	for i, s := range steps {
		raw[i] = s
	}
	d[keySteps] = raw
}

// vertices returns the vertex names present in the document.
func (d document) vertices() map[string]bool {
	set := make(map[string]bool)
	for _, s := range d.steps() {
		if v := vertexOf(s); v != "" {
			set[v] = true
		}
	}
	return set
}

func (d document) clone() document {
	return cloneValue(map[string]any(d)).(map[string]any)
}

func vertexOf(step map[string]any) string {
	v, _ := step[keyVertex].(string)
	return v
}

func deleted(step map[string]any) bool {
	b, _ := step[keyDelete].(bool)
	return b
}

// mergeSteps applies patch steps to base steps by vertexName and returns a new list.
// The base is not modified.
func mergeSteps(base, patch []map[string]any, file string) ([]map[string]any, error) {
	out := make([]map[string]any, len(base))
	for i, s := range base {
		out[i] = cloneValue(s).(map[string]any)
	}

	index := func(vertex string) int {
		for i, s := range out {
			if vertexOf(s) == vertex {
				return i
			}
		}
		return -1
	}

	// pos is where the next insert goes: right after the last anchor seen.
	pos, anchored := 0, false
	for n, p := range patch {
		vertex := vertexOf(p)
		if vertex == "" {
			return nil, fmt.Errorf("patch %s: step %d has no %s", file, n, keyVertex)
		}

		idx := index(vertex)
		switch {
		case idx >= 0 && deleted(p):
			out = append(out[:idx], out[idx+1:]...)
			pos, anchored = idx, true
		case idx >= 0:
			out[idx] = mergeMaps(out[idx], p)
			pos, anchored = idx+1, true
		case deleted(p):
			// Deleting a vertex the base does not have is a no-op.
		case !anchored:
			return nil, &OrphanVertexError{File: file, Vertex: vertex}
		default:
			step := cloneValue(p).(map[string]any)
			delete(step, keyDelete)
			out = append(out, nil)
			copy(out[pos+1:], out[pos:])
			out[pos] = step
			pos++
		}
	}
	return out, nil
}

// mergeMaps deep-merges src over dst in place and returns dst. Nested maps merge,
// every other value (lists included) is replaced.
func mergeMaps(dst, src map[string]any) map[string]any {
	for k, v := range src {
		if k == keyDelete {
			continue
		}
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				dst[k] = mergeMaps(dm, sm)
				continue
			}
		}
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		l := make([]any, len(t))
		for i, val := range t {
			l[i] = cloneValue(val)
		}
		return l
	}
	return v
}

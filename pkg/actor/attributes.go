package actor

import (
	"sort"
	"strings"
	"sync"
)

// Attributes is a nested key/value tree addressed by "/"-separated paths.
// It lives next to an actor's state and is safe for concurrent use.
type Attributes struct {
	mu   sync.RWMutex
	root map[string]any
}

func newAttributes() *Attributes {
	return &Attributes{root: make(map[string]any)}
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Set stores v at path, creating intermediate nodes. A leaf on the way is replaced by a node.
func (a *Attributes) Set(path string, v any) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	node := a.root
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[p] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = v
}

// Get returns the value at path. Interior nodes are returned as copies.
func (a *Attributes) Get(path string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	v, ok := a.lookup(splitPath(path))
	if !ok {
		return nil, false
	}
	if m, isNode := v.(map[string]any); isNode {
		return copyTree(m), true
	}
	return v, true
}

// Delete removes the value or subtree at path.
func (a *Attributes) Delete(path string) bool {
	parts := splitPath(path)
	if len(parts) == 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	parent, ok := a.lookup(parts[:len(parts)-1])
	if !ok {
		return false
	}
	node, ok := parent.(map[string]any)
	if !ok {
		return false
	}
	if _, exists := node[parts[len(parts)-1]]; !exists {
		return false
	}
	delete(node, parts[len(parts)-1])
	return true
}

// Keys lists the sorted child keys under path ("" for the root).
func (a *Attributes) Keys(path string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	v, ok := a.lookup(splitPath(path))
	if !ok {
		return nil
	}
	node, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of the whole tree.
func (a *Attributes) Snapshot() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copyTree(a.root)
}

// lookup must be called with mu held.
func (a *Attributes) lookup(parts []string) (any, bool) {
	var cur any = a.root
	for _, p := range parts {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = node[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func copyTree(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = copyTree(sub)
			continue
		}
		out[k] = v
	}
	return out
}

package actor

import "strings"

// SelfToken is the path that designates the resolution origin itself, like ".".
const SelfToken = "this"

// Resolve returns the actors matched by path, seen from the actor named origin.
//
// Grammar, evaluated by prefix:
//
//	. | this       the origin
//	..             the origin's parent
//	./<pattern>    the origin's children
//	../<pattern>   the parent's children (siblings, origin included)
//	/<pattern>     every registered actor
//	<pattern>      same as ../<pattern>
//
// A pattern is an exact name, "*", "prefix*" or "*suffix". When the origin has no
// parent, its siblings are the root actors (those without a parent).
//
// Results follow the insertion order of the underlying name set and contain no
// duplicates. Resolution never creates actors; an unmatched path yields an empty result.
func (s *System) Resolve(origin, path string) []Handle {
	path = strings.TrimSpace(path)
	self, ok := s.Get(origin)
	if !ok || path == "" {
		return nil
	}

	switch {
	case path == "." || path == SelfToken:
		return []Handle{self}
	case path == "..":
		if parent, ok := s.Get(self.ParentName()); ok && self.ParentName() != "" {
			return []Handle{parent}
		}
		return nil
	case strings.HasPrefix(path, "./"):
		return s.collect(self.ChildNames(), path[2:])
	case strings.HasPrefix(path, "../"):
		return s.collect(s.siblingNames(self), path[3:])
	case strings.HasPrefix(path, "/"):
		return s.collect(s.ListNames(), path[1:])
	}
	return s.collect(s.siblingNames(self), path)
}

func (s *System) siblingNames(self Handle) []string {
	parentName := self.ParentName()
	if parentName == "" {
		return s.rootNames()
	}
	parent, ok := s.Get(parentName)
	if !ok {
		return nil
	}
	return parent.ChildNames()
}

func (s *System) rootNames() []string {
	var roots []string
	for _, name := range s.ListNames() {
		if h, ok := s.Get(name); ok && h.ParentName() == "" {
			roots = append(roots, name)
		}
	}
	return roots
}

func (s *System) collect(names []string, pattern string) []Handle {
	var out []Handle
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup || !MatchName(pattern, name) {
			continue
		}
		seen[name] = struct{}{}
		if h, ok := s.Get(name); ok {
			out = append(out, h)
		}
	}
	return out
}

// MatchName reports whether name matches pattern: exact equality, "*",
// "prefix*" or "*suffix".
func MatchName(pattern, name string) bool {
	switch {
	case pattern == "":
		return false
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, "*") && !strings.Contains(pattern[:len(pattern)-1], "*"):
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	case strings.HasPrefix(pattern, "*") && !strings.Contains(pattern[1:], "*"):
		return strings.HasSuffix(name, pattern[1:])
	}
	return pattern == name
}

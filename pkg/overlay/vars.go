package overlay

import "regexp"

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.\-]*)(?::-([^}]*))?\}`)

// Substitute replaces ${name} with vars[name] and ${name:-default} with the default
// when name is not in vars. An undefined ${name} without default is left as is.
func Substitute(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(ref string) string {
		m := varPattern.FindStringSubmatch(ref)
		if v, ok := vars[m[1]]; ok {
			return v
		}
		if len(ref) > len(m[1])+3 {
			// The ":-" form was used, possibly with an empty default.
			return m[2]
		}
		return ref
	})
}

// substituteAll applies Substitute to every string value under v.
func substituteAll(v any, vars map[string]string) any {
	switch t := v.(type) {
	case string:
		return Substitute(t, vars)
	case map[string]any:
		for k, val := range t {
			t[k] = substituteAll(val, vars)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = substituteAll(val, vars)
		}
		return t
	}
	return v
}

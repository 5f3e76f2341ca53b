package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ArgKind is the shape of an action's arguments, fixed when the workflow is defined.
type ArgKind int

const (
	ArgsNone ArgKind = iota
	ArgsList
	ArgsMap
	ArgsScalar
)

func (k ArgKind) String() string {
	switch k {
	case ArgsList:
		return "list"
	case ArgsMap:
		return "map"
	case ArgsScalar:
		return "scalar"
	}
	return "none"
}

// Arguments holds one of: an ordered list (bound positionally), a key/value map
// (bound by name) or a single scalar (bound as the sole argument).
// The zero value carries no arguments.
type Arguments struct {
	kind   ArgKind
	list   []any
	values map[string]any
	scalar any
}

// ListArgs builds positional arguments.
func ListArgs(values ...any) Arguments {
	return Arguments{kind: ArgsList, list: values}
}

// MapArgs builds named arguments.
func MapArgs(values map[string]any) Arguments {
	return Arguments{kind: ArgsMap, values: values}
}

// ScalarArgs builds a single-value argument.
func ScalarArgs(v any) Arguments {
	return Arguments{kind: ArgsScalar, scalar: v}
}

// ArgumentsOf classifies a decoded document value.
func ArgumentsOf(v any) Arguments {
	switch t := v.(type) {
	case nil:
		return Arguments{}
	case Arguments:
		return t
	case []any:
		return ListArgs(t...)
	case []string:
		list := make([]any, len(t))
		for i, s := range t {
			list[i] = s
		}
		return ListArgs(list...)
	case map[string]any:
		return MapArgs(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = val
		}
		return MapArgs(m)
	}
	return ScalarArgs(v)
}

func (a Arguments) Kind() ArgKind { return a.kind }

// Len is the number of list or map entries, 1 for a scalar and 0 for none.
func (a Arguments) Len() int {
	switch a.kind {
	case ArgsList:
		return len(a.list)
	case ArgsMap:
		return len(a.values)
	case ArgsScalar:
		return 1
	}
	return 0
}

func (a Arguments) List() []any { return a.list }
func (a Arguments) Map() map[string]any { return a.values }
func (a Arguments) Scalar() any { return a.scalar }
func (a Arguments) IsEmpty() bool { return a.Len() == 0 }
func (a Arguments) IsZero() bool { return a.kind == ArgsNone }
func (a Arguments) Is(kind ArgKind) bool { return a.kind == kind }
func (a Arguments) Value() any { return a.raw() }
func (a Arguments) MarshalYAML() (any, error) { return a.raw(), nil }

func (a Arguments) raw() any {
	switch a.kind {
	case ArgsList:
		return a.list
	case ArgsMap:
		return a.values
	case ArgsScalar:
		return a.scalar
	}
	return nil
}

// At returns the positional argument i. A scalar is positional argument 0.
func (a Arguments) At(i int) (any, bool) {
	switch a.kind {
	case ArgsList:
		if i >= 0 && i < len(a.list) {
			return a.list[i], true
		}
	case ArgsScalar:
		if i == 0 {
			return a.scalar, true
		}
	}
	return nil, false
}

// Lookup returns a named argument.
func (a Arguments) Lookup(key string) (any, bool) {
	if a.kind != ArgsMap {
		return nil, false
	}
	v, ok := a.values[key]
	return v, ok
}

// String formats positional argument i, or "" when absent.
func (a Arguments) String(i int) string {
	v, ok := a.At(i)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Int parses positional argument i as an integer.
func (a Arguments) Int(i int) (int, error) {
	v, ok := a.At(i)
	if !ok {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		i64, err := n.Int64()
		return int(i64), err
	}
	return strconv.Atoi(fmt.Sprint(v))
}

// Decode binds map-shaped arguments onto a struct, or list-shaped arguments onto a slice.
func (a Arguments) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(a.raw()); err != nil {
		return fmt.Errorf("decode %s arguments: %w", a.kind, err)
	}
	return nil
}

// Clone copies list and map containers recursively.
func (a Arguments) Clone() Arguments {
	switch a.kind {
	case ArgsList:
		return ListArgs(cloneValue(a.list).([]any)...)
	case ArgsMap:
		return MapArgs(cloneValue(a.values).(map[string]any))
	}
	return a
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	}
	return v
}

// UnmarshalYAML detects the argument shape from the YAML node kind.
func (a *Arguments) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	*a = ArgumentsOf(v)
	return nil
}

func (a Arguments) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw())
}

// UnmarshalJSON detects the argument shape from the JSON value.
func (a *Arguments) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = ArgumentsOf(v)
	return nil
}

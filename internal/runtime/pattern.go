package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ExprPrefix marks a boolean-expression pattern. The expression is CUE and sees
// the current state as the string `state` and, when it parses as a number, as `n`.
//
//	expr: n >= 3 && n < 10
//	expr: state =~ "^retry-"
const ExprPrefix = "expr:"

// Matcher evaluates step source patterns against a state. Forms, in precedence order:
//
//	1          exact match
//	*          anything
//	!X         anything but X
//	A|B|C      any of the literals
//	>=5 >5 <=5 <5 ==5   numeric comparison of the state with the operand
//	expr:...   CUE boolean expression
//
// The expression form is recognized by its prefix before the others, since CUE
// expressions may contain "!" and "|".
type Matcher struct {
	mu  sync.Mutex
	cue *cue.Context
}

// NewMatcher creates a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{cue: cuecontext.New()}
}

var comparisons = []string{">=", "<=", "==", ">", "<"}

// Match reports whether pattern accepts state. An error is returned only for an
// expression pattern that does not compile or does not yield a boolean.
func (m *Matcher) Match(pattern, state string) (bool, error) {
	pattern = strings.TrimSpace(pattern)
	switch {
	case pattern == state:
		return true, nil
	case pattern == "*":
		return true, nil
	case strings.HasPrefix(pattern, ExprPrefix):
		return m.eval(strings.TrimSpace(pattern[len(ExprPrefix):]), state)
	case strings.HasPrefix(pattern, "!"):
		return strings.TrimSpace(pattern[1:]) != state, nil
	case strings.Contains(pattern, "|"):
		for _, alt := range strings.Split(pattern, "|") {
			if strings.TrimSpace(alt) == state {
				return true, nil
			}
		}
		return false, nil
	}

	for _, op := range comparisons {
		if strings.HasPrefix(pattern, op) {
			return compare(op, state, strings.TrimSpace(pattern[len(op):])), nil
		}
	}
	return false, nil
}

func compare(op, state, operand string) bool {
	a, ok := number(state)
	if !ok {
		return false
	}
	b, ok := number(operand)
	if !ok {
		return false
	}
	switch op {
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case "==":
		return a == b
	case ">":
		return a > b
	case "<":
		return a < b
	}
	return false
}

func number(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (m *Matcher) eval(expr, state string) (bool, error) {
	if expr == "" {
		return false, fmt.Errorf("empty expression")
	}
	var src strings.Builder
	fmt.Fprintf(&src, "state: %s\n", strconv.Quote(state))
	if n, ok := number(state); ok {
		fmt.Fprintf(&src, "n: %s\n", strconv.FormatFloat(n, 'f', -1, 64))
	} else {
		src.WriteString("n: number\n")
	}
	fmt.Fprintf(&src, "result: %s\n", expr)

	// cue.Context is not safe for concurrent use.
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.cue.CompileString(src.String())
	if err := v.Err(); err != nil {
		return false, fmt.Errorf("compile %q: %w", expr, err)
	}
	res := v.LookupPath(cue.ParsePath("result"))
	if !res.Exists() {
		return false, fmt.Errorf("expression %q has no result", expr)
	}
	ok, err := res.Bool()
	if err != nil {
		// An expression over n stays incomplete when the state is not numeric.
		if _, numeric := number(state); !numeric {
			return false, nil
		}
		return false, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	return ok, nil
}

// Package function is the scalar function and operator registry consulted
// by expr's evaluator. Functions are plain Go closures keyed by name,
// mirroring original_source/opteryx/functions/__init__.py's FUNCTIONS
// dispatch table (itself wrapping numpy/pyarrow.compute) rather than a
// class hierarchy per node kind.
package function

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/types"
)

// Func is a registered scalar function.
type Func func(args []interface{}) (interface{}, error)

var registry = map[string]Func{}

// Register adds (or replaces) a scalar function under name, upper-cased.
func Register(name string, fn Func) {
	registry[strings.ToUpper(name)] = fn
}

// Call invokes a registered scalar function by name.
func Call(name string, args []interface{}) (interface{}, error) {
	fn, ok := registry[strings.ToUpper(name)]
	if !ok {
		return nil, errkind.UnsupportedSyntax.New(fmt.Sprintf("unknown function %s", name))
	}
	return fn(args)
}

// RegisteredNames returns every scalar function name, for SHOW FUNCTIONS.
func RegisteredNames() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("UPPER", func(a []interface{}) (interface{}, error) { return str1(a, strings.ToUpper) })
	Register("LOWER", func(a []interface{}) (interface{}, error) { return str1(a, strings.ToLower) })
	Register("TRIM", func(a []interface{}) (interface{}, error) { return str1(a, strings.TrimSpace) })
	Register("LENGTH", func(a []interface{}) (interface{}, error) {
		if a[0] == nil {
			return nil, nil
		}
		s, _ := a[0].(string)
		return int64(len([]rune(s))), nil
	})
	Register("CONCAT", func(a []interface{}) (interface{}, error) {
		var b strings.Builder
		for _, v := range a {
			if v == nil {
				return nil, nil
			}
			fmt.Fprintf(&b, "%v", v)
		}
		return b.String(), nil
	})
	Register("COALESCE", func(a []interface{}) (interface{}, error) {
		for _, v := range a {
			if v == nil {
				continue
			}
			// NaN is explicitly NULL-equivalent for COALESCE only, per
			// spec.md §9's Open Question resolution.
			if types.IsNaN(v) {
				continue
			}
			return v, nil
		}
		return nil, nil
	})
	Register("ROUND", func(a []interface{}) (interface{}, error) {
		f, ok := toFloat(a[0])
		if !ok {
			return nil, nil
		}
		prec := 0
		if len(a) > 1 {
			if p, ok := toFloat(a[1]); ok {
				prec = int(p)
			}
		}
		m := math.Pow(10, float64(prec))
		return math.Round(f*m) / m, nil
	})
	Register("ABS", func(a []interface{}) (interface{}, error) {
		f, ok := toFloat(a[0])
		if !ok {
			return nil, nil
		}
		return math.Abs(f), nil
	})
	Register("NOW", func(a []interface{}) (interface{}, error) { return time.Now().UTC(), nil })
	Register("VERSION", func(a []interface{}) (interface{}, error) { return "morselq 0.1.0", nil })
	Register("CAST", func(a []interface{}) (interface{}, error) {
		return castValue(a[0], a[1].(string), true)
	})
	Register("TRY_CAST", func(a []interface{}) (interface{}, error) {
		v, err := castValue(a[0], a[1].(string), false)
		if err != nil {
			return nil, nil
		}
		return v, nil
	})
}

func str1(a []interface{}, f func(string) string) (interface{}, error) {
	if a[0] == nil {
		return nil, nil
	}
	s, ok := a[0].(string)
	if !ok {
		return nil, nil
	}
	return f(s), nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func castValue(v interface{}, target string, strict bool) (interface{}, error) {
	var t types.Type
	switch strings.ToUpper(target) {
	case "BOOLEAN":
		t = types.Of(types.BOOLEAN)
	case "INTEGER":
		t = types.Of(types.INTEGER)
	case "DOUBLE", "NUMERIC":
		t = types.Of(types.DOUBLE)
	case "VARCHAR":
		t = types.Of(types.VARCHAR)
	case "TIMESTAMP":
		t = types.Of(types.TIMESTAMP)
	default:
		return nil, errkind.TypeMismatch.New(fmt.Sprintf("unable to cast values to %s", target))
	}
	return types.Coerce(t, v, strict)
}

// EvalUnary evaluates a UNARY_OPERATOR token against v.
func EvalUnary(op string, v interface{}) (interface{}, error) {
	switch op {
	case "-":
		f, ok := toFloat(v)
		if !ok {
			return nil, nil
		}
		return -f, nil
	case "+":
		return v, nil
	case "NOT":
		b, ok := v.(bool)
		if !ok {
			return nil, nil
		}
		return !b, nil
	case "IS NULL":
		return v == nil, nil
	case "IS NOT NULL":
		return v != nil, nil
	}
	return nil, errkind.UnsupportedSyntax.New(fmt.Sprintf("unary operator %s", op))
}

// EvalBinary evaluates a BINARY_OPERATOR token (arithmetic) against l, r.
// Division by zero yields NULL per spec.md §4.7's failure semantics.
func EvalBinary(op string, l, r interface{}) (interface{}, error) {
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return nil, nil
	}
	switch op {
	case "+":
		return combineNumeric(l, r, lf+rf), nil
	case "-":
		return combineNumeric(l, r, lf-rf), nil
	case "*":
		return combineNumeric(l, r, lf*rf), nil
	case "/":
		if rf == 0 {
			return nil, nil
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, nil
		}
		return math.Mod(lf, rf), nil
	}
	return nil, errkind.UnsupportedSyntax.New(fmt.Sprintf("binary operator %s", op))
}

func combineNumeric(l, r interface{}, f float64) interface{} {
	_, lInt := l.(int64)
	_, rInt := r.(int64)
	if lInt && rInt && f == math.Trunc(f) {
		return int64(f)
	}
	return f
}

// EvalComparison evaluates a COMPARISON_OPERATOR token against l, r.
func EvalComparison(op string, l, r interface{}) (interface{}, error) {
	if l == nil || r == nil {
		if op == "IS" {
			return l == nil && r == nil, nil
		}
		if op == "IS NOT" {
			return !(l == nil && r == nil), nil
		}
		return nil, nil
	}
	if lf, lok := toFloat(l); lok {
		if rf, rok := toFloat(r); rok {
			return compareNumbers(op, lf, rf)
		}
	}
	if ls, lok := l.(string); lok {
		if rs, rok := r.(string); rok {
			return compareStrings(op, ls, rs)
		}
	}
	if lb, lok := l.(bool); lok {
		if rb, rok := r.(bool); rok {
			switch op {
			case "=":
				return lb == rb, nil
			case "!=", "<>":
				return lb != rb, nil
			}
		}
	}
	if lt, lok := l.(time.Time); lok {
		if rt, rok := r.(time.Time); rok {
			switch op {
			case "=":
				return lt.Equal(rt), nil
			case "!=", "<>":
				return !lt.Equal(rt), nil
			case "<":
				return lt.Before(rt), nil
			case "<=":
				return lt.Before(rt) || lt.Equal(rt), nil
			case ">":
				return lt.After(rt), nil
			case ">=":
				return lt.After(rt) || lt.Equal(rt), nil
			}
		}
	}
	return nil, errkind.TypeMismatch.New(fmt.Sprintf("cannot compare %T and %T", l, r))
}

func compareNumbers(op string, l, r float64) (interface{}, error) {
	switch op {
	case "=":
		return l == r, nil
	case "!=", "<>":
		return l != r, nil
	case "<":
		return l < r, nil
	case "<=":
		return l <= r, nil
	case ">":
		return l > r, nil
	case ">=":
		return l >= r, nil
	}
	return nil, errkind.UnsupportedSyntax.New(fmt.Sprintf("comparison operator %s", op))
}

func compareStrings(op string, l, r string) (interface{}, error) {
	switch op {
	case "=":
		return l == r, nil
	case "!=", "<>":
		return l != r, nil
	case "<":
		return l < r, nil
	case "<=":
		return l <= r, nil
	case ">":
		return l > r, nil
	case ">=":
		return l >= r, nil
	case "LIKE":
		return likeMatch(l, r), nil
	}
	return nil, errkind.UnsupportedSyntax.New(fmt.Sprintf("comparison operator %s", op))
}

// likeMatch implements SQL LIKE with % and _ wildcards via a small
// recursive matcher; no regexp dependency needed for two wildcard tokens.
func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		if likeMatchRunes(s, p[1:]) {
			return true
		}
		for i := range s {
			if likeMatchRunes(s[i+1:], p[1:]) {
				return true
			}
		}
		return len(s) == 0 && likeMatchRunes(s, p[1:])
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	}
}

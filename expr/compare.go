package expr

import "time"

// Compare orders two cell values for Sort/HeapSort/ARRAY_AGG's ORDER
// modifier. NULL orders after every non-NULL value, so NULLs sort last
// ascending; Sort and HeapSort negate the result for DESC keys, so NULLs
// come first there. Values of differing dynamic type
// compare equal (0); the binder guarantees same-typed columns in practice.
func Compare(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	switch av := a.(type) {
	case int64:
		if bv, ok := toI64(b); ok {
			return cmpFloat(float64(av), float64(bv))
		}
	case float64:
		if bv, ok := toF64(b); ok {
			return cmpFloat(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	case bool:
		if bv, ok := b.(bool); ok {
			if av == bv {
				return 0
			}
			if !av {
				return -1
			}
			return 1
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			default:
				return 0
			}
		}
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toI64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func toF64(v interface{}) (float64, bool) {
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

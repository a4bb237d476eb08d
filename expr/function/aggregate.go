package function

import (
	"math"
	"sort"

	"github.com/morselq/morselq/errkind"
)

// Aggregator finalizes a column of values (already grouped, if grouping is
// in play) into a single result. Every aggregator in spec.md §4.7's
// Aggregator set is greedy by construction — AggregateAndGroup/Aggregate
// are themselves greedy operators per spec.md §5 — so there is no
// incremental Add/Result split the way a streaming engine would need.
type Aggregator func(values []interface{}, distinct bool) (interface{}, error)

var aggregators = map[string]Aggregator{
	"ALL":                 aggAll,
	"ANY":                 aggAny,
	"APPROXIMATE_MEDIAN":  aggMedian,
	"ARRAY_AGG":           aggArrayAgg,
	"COUNT":               aggCount,
	"COUNT_DISTINCT":      aggCountDistinct,
	"MAX":                 aggMax,
	"MEAN":                aggMean,
	"AVG":                 aggMean,
	"MIN":                 aggMin,
	"MIN_MAX":             aggMinMax,
	"ANY_VALUE":           aggAnyValue,
	"PRODUCT":             aggProduct,
	"STDDEV":              aggStddev,
	"SUM":                 aggSum,
	"VARIANCE":            aggVariance,
}

// Aggregate looks up and runs an aggregator by name.
func Aggregate(name string, values []interface{}, distinct bool) (interface{}, error) {
	fn, ok := aggregators[name]
	if !ok {
		return nil, errkind.UnsupportedSyntax.New("unknown aggregator " + name)
	}
	if distinct {
		values = dedupe(values)
	}
	return fn(values, distinct)
}

// IsAggregator reports whether name is a registered aggregator, the Go
// equivalent of original_source's `is_aggregator`.
func IsAggregator(name string) bool {
	_, ok := aggregators[name]
	return ok
}

// AggregatorNames returns every registered aggregator name, for SHOW
// FUNCTIONS.
func AggregatorNames() []string {
	names := make([]string, 0, len(aggregators))
	for n := range aggregators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func dedupe(values []interface{}) []interface{} {
	seen := make(map[interface{}]struct{}, len(values))
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func nonNullFloats(values []interface{}) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			out = append(out, f)
		}
	}
	return out
}

func aggCount(values []interface{}, _ bool) (interface{}, error) {
	// COUNT(col) ignores nulls; COUNT(*) is special-cased upstream (it
	// never reaches here with nulls present in the wildcard sense) and
	// passes every row, including nulls, as non-nil sentinel values.
	n := int64(0)
	for _, v := range values {
		if v != nil {
			n++
		}
	}
	return n, nil
}

func aggCountDistinct(values []interface{}, _ bool) (interface{}, error) {
	return aggCount(dedupe(values), false)
}

func aggSum(values []interface{}, _ bool) (interface{}, error) {
	fs := nonNullFloats(values)
	if len(fs) == 0 {
		return nil, nil
	}
	var sum float64
	for _, f := range fs {
		sum += f
	}
	return sum, nil
}

func aggProduct(values []interface{}, _ bool) (interface{}, error) {
	fs := nonNullFloats(values)
	if len(fs) == 0 {
		return nil, nil
	}
	p := 1.0
	for _, f := range fs {
		p *= f
	}
	return p, nil
}

func aggMean(values []interface{}, _ bool) (interface{}, error) {
	fs := nonNullFloats(values)
	if len(fs) == 0 {
		return nil, nil
	}
	var sum float64
	for _, f := range fs {
		sum += f
	}
	return sum / float64(len(fs)), nil
}

func aggMin(values []interface{}, _ bool) (interface{}, error) {
	fs := nonNullFloats(values)
	if len(fs) == 0 {
		return nil, nil
	}
	m := fs[0]
	for _, f := range fs[1:] {
		if f < m {
			m = f
		}
	}
	return m, nil
}

func aggMax(values []interface{}, _ bool) (interface{}, error) {
	fs := nonNullFloats(values)
	if len(fs) == 0 {
		return nil, nil
	}
	m := fs[0]
	for _, f := range fs[1:] {
		if f > m {
			m = f
		}
	}
	return m, nil
}

func aggMinMax(values []interface{}, _ bool) (interface{}, error) {
	min, err := aggMin(values, false)
	if err != nil {
		return nil, err
	}
	max, err := aggMax(values, false)
	if err != nil {
		return nil, err
	}
	return []interface{}{min, max}, nil
}

func aggAll(values []interface{}, _ bool) (interface{}, error) {
	for _, v := range values {
		if v == nil {
			continue
		}
		if b, ok := v.(bool); ok && !b {
			return false, nil
		}
	}
	return true, nil
}

func aggAny(values []interface{}, _ bool) (interface{}, error) {
	for _, v := range values {
		if v == nil {
			continue
		}
		if b, ok := v.(bool); ok && b {
			return true, nil
		}
	}
	return false, nil
}

func aggAnyValue(values []interface{}, _ bool) (interface{}, error) {
	for _, v := range values {
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}

func aggMedian(values []interface{}, _ bool) (interface{}, error) {
	fs := nonNullFloats(values)
	if len(fs) == 0 {
		return nil, nil
	}
	sort.Float64s(fs)
	mid := len(fs) / 2
	if len(fs)%2 == 1 {
		return fs[mid], nil
	}
	return (fs[mid-1] + fs[mid]) / 2, nil
}

func aggVariance(values []interface{}, _ bool) (interface{}, error) {
	fs := nonNullFloats(values)
	if len(fs) == 0 {
		return nil, nil
	}
	mean := 0.0
	for _, f := range fs {
		mean += f
	}
	mean /= float64(len(fs))
	var ss float64
	for _, f := range fs {
		d := f - mean
		ss += d * d
	}
	return ss / float64(len(fs)), nil
}

func aggStddev(values []interface{}, _ bool) (interface{}, error) {
	v, err := aggVariance(values, false)
	if err != nil || v == nil {
		return v, err
	}
	return math.Sqrt(v.(float64)), nil
}

// aggArrayAgg collects the non-aggregated values into a list, honouring
// ARRAY_AGG's DISTINCT modifier (handled by the distinct dedupe above
// Aggregate runs it) and returning every value in encounter order; the
// caller applies ORDER/LIMIT afterwards (see rowexec's aggregate operator),
// since those are a per-call modifier rather than part of the aggregator's
// own identity.
func aggArrayAgg(values []interface{}, _ bool) (interface{}, error) {
	out := make([]interface{}, len(values))
	copy(out, values)
	return out, nil
}

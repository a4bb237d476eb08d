package rowexec

import (
	"fmt"
	"strings"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/expr/function"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
	"github.com/morselq/morselq/schema"
)

// aggregate implements both AggregateAndGroup and Aggregate: both are
// greedy (spec.md §5 — they must see every upstream row before emitting
// anything) and differ only in whether n.GroupBy is non-empty. A plain
// Aggregate with no GROUP BY is one implicit group spanning the whole
// input, the same way original_source/opteryx/operators/aggregate_node.py
// treats an ungrouped aggregate as a single-bucket groupby.
type aggregate struct {
	n        *physicalplan.Node
	producer Operator
	qc       *qctx.Context
	grouped  bool
}

func newAggregateAndGroup(n *physicalplan.Node, producer Operator, qc *qctx.Context) *aggregate {
	return &aggregate{n: n, producer: producer, qc: qc, grouped: true}
}

func newAggregate(n *physicalplan.Node, producer Operator, qc *qctx.Context) *aggregate {
	return &aggregate{n: n, producer: producer, qc: qc, grouped: false}
}

func (a *aggregate) Name() string {
	if a.grouped {
		return "AggregateAndGroup"
	}
	return "Aggregate"
}
func (a *aggregate) Config() map[string]interface{} {
	return map[string]interface{}{"group_by": len(a.n.GroupBy), "aggregates": len(a.n.Aggregates)}
}
func (a *aggregate) IsGreedy() bool     { return true }
func (a *aggregate) ProducerArity() int { return 1 }

func (a *aggregate) Execute() (Stream, error) {
	up, err := a.producer.Execute()
	if err != nil {
		return nil, err
	}
	defer up.Close()

	if !a.grouped && a.countStarOnly() {
		return a.countStar(up)
	}

	var all []*batch.Batch
	var memory int64
	for {
		if err := checkCancelled(a.qc); err != nil {
			return nil, err
		}
		b, err := up.Next()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		all = append(all, b)
		memory += int64(b.NumRows() * b.NumColumns() * 16)
		if a.qc.MaxGreedyMemoryBytes > 0 && memory > a.qc.MaxGreedyMemoryBytes {
			return nil, errkind.OutOfMemory.New(a.Name())
		}
	}
	if len(all) == 0 {
		if a.grouped {
			// No input rows means no groups, so no output rows.
			return newSliceStream(batch.Empty(a.n.OutputSchema)), nil
		}
		// An ungrouped aggregate over an empty input still yields its
		// single implicit group: COUNT(*) = 0, SUM = NULL.
		all = append(all, batch.Empty(schema.Schema{}))
	}

	in := batch.Concat(all)
	out, err := a.run(in)
	if err != nil {
		return nil, err
	}
	return newSliceStream(out), nil
}

// countStarOnly reports whether every output is a bare COUNT(*), the case
// spec.md §4.7 requires Aggregate to short-circuit by summing num_rows
// across producer batches without materialising them.
func (a *aggregate) countStarOnly() bool {
	if a.n.Having != nil || len(a.n.Aggregates) == 0 {
		return false
	}
	for _, item := range a.n.Aggregates {
		e := item.Expr
		if e.NodeType != expr.AGGREGATOR || e.Value.(string) != "COUNT" {
			return false
		}
		if len(e.Parameters) != 1 || e.Parameters[0].NodeType != expr.WILDCARD {
			return false
		}
	}
	return true
}

func (a *aggregate) countStar(up Stream) (Stream, error) {
	var total int64
	for {
		if err := checkCancelled(a.qc); err != nil {
			return nil, err
		}
		b, err := up.Next()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		total += int64(b.NumRows())
	}
	cols := make([]batch.Column, len(a.n.OutputSchema))
	for i, c := range a.n.OutputSchema {
		cols[i] = batch.Column{Identity: c.Identity, Values: []interface{}{total}}
	}
	return newSliceStream(batch.New(a.n.OutputSchema, cols)), nil
}

type group struct {
	key  []interface{}
	rows []int
}

// tupleKey encodes a value tuple as a map key, tagging each element with
// its dynamic type so type-distinct tuples like (1, "2") and ("1", 2)
// never collide the way a plain fmt.Sprint rendering would.
func tupleKey(vals []interface{}) string {
	var b strings.Builder
	for _, v := range vals {
		if v == nil {
			b.WriteString("<nil>\x00")
			continue
		}
		fmt.Fprintf(&b, "%T:%v\x00", v, v)
	}
	return b.String()
}

func (a *aggregate) run(in *batch.Batch) (*batch.Batch, error) {
	groups, err := a.buildGroups(in)
	if err != nil {
		return nil, err
	}

	hiddenAggregators := hiddenHavingAggregators(a.n)

	outCols := make(map[schema.Identity][]interface{}, len(a.n.OutputSchema))
	for _, c := range a.n.OutputSchema {
		outCols[c.Identity] = make([]interface{}, 0, len(groups))
	}

	for _, g := range groups {
		values := make(map[schema.Identity]interface{}, len(a.n.OutputSchema))
		for i, id := range a.n.GroupByIDs {
			v, err := expr.EvalRow(a.n.GroupBy[i], in, g.rows[0])
			if err != nil {
				return nil, err
			}
			values[id] = v
		}
		for i := range a.n.Aggregates {
			item := a.n.Aggregates[i]
			if item.Expr.NodeType != expr.AGGREGATOR {
				continue
			}
			v, err := evalAggregator(item.Expr, in, g.rows)
			if err != nil {
				return nil, err
			}
			values[item.Identity] = v
		}
		for _, agg := range hiddenAggregators {
			if _, ok := values[agg.SchemaColumn.Identity]; ok {
				continue
			}
			v, err := evalAggregator(agg, in, g.rows)
			if err != nil {
				return nil, err
			}
			values[agg.SchemaColumn.Identity] = v
		}

		if a.n.Having != nil {
			keep, err := evalHaving(a.n.Having, a.n.OutputSchema, values)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
		}

		for _, c := range a.n.OutputSchema {
			outCols[c.Identity] = append(outCols[c.Identity], values[c.Identity])
		}
	}

	cols := make([]batch.Column, len(a.n.OutputSchema))
	for i, c := range a.n.OutputSchema {
		cols[i] = batch.Column{Identity: c.Identity, Values: outCols[c.Identity]}
	}
	return batch.New(a.n.OutputSchema, cols), nil
}

// buildGroups partitions in's rows by a.n.GroupBy's evaluated key tuple,
// in first-seen order. An ungrouped Aggregate has one group spanning
// every row.
func (a *aggregate) buildGroups(in *batch.Batch) ([]group, error) {
	if len(a.n.GroupBy) == 0 {
		rows := make([]int, in.NumRows())
		for i := range rows {
			rows[i] = i
		}
		return []group{{rows: rows}}, nil
	}

	index := map[string]int{}
	var groups []group
	for r := 0; r < in.NumRows(); r++ {
		key := make([]interface{}, len(a.n.GroupBy))
		for i, g := range a.n.GroupBy {
			v, err := expr.EvalRow(g, in, r)
			if err != nil {
				return nil, err
			}
			key[i] = v
		}
		sig := tupleKey(key)
		if idx, ok := index[sig]; ok {
			groups[idx].rows = append(groups[idx].rows, r)
			continue
		}
		index[sig] = len(groups)
		groups = append(groups, group{key: key, rows: []int{r}})
	}
	return groups, nil
}

// hiddenHavingAggregators finds every AGGREGATOR node reachable from n's
// HAVING predicate whose bound identity isn't already produced by a
// GROUP BY key or a SELECT-list aggregate (spec.md §4.5's "hidden
// aggregate" case: HAVING COUNT(*) > 1 with no COUNT(*) in the SELECT
// list).
func hiddenHavingAggregators(n *physicalplan.Node) []*expr.Node {
	if n.Having == nil {
		return nil
	}
	known := map[schema.Identity]bool{}
	for _, id := range n.GroupByIDs {
		known[id] = true
	}
	for _, item := range n.Aggregates {
		known[item.Identity] = true
	}
	var out []*expr.Node
	for _, a := range expr.AllOfType([]*expr.Node{n.Having}, expr.AGGREGATOR) {
		if a.SchemaColumn == nil || known[a.SchemaColumn.Identity] {
			continue
		}
		known[a.SchemaColumn.Identity] = true
		out = append(out, a)
	}
	return out
}

// evalAggregator gathers one AGGREGATOR node's argument values across
// rows and runs the matching function/aggregate.Aggregator, then applies
// ARRAY_AGG's ORDER/LIMIT modifiers (spec.md §9's Open Question: these are
// a per-call modifier the aggregate operator applies, not part of the
// aggregator's own identity).
func evalAggregator(a *expr.Node, in *batch.Batch, rows []int) (interface{}, error) {
	name := a.Value.(string)
	if len(a.Parameters) == 1 && a.Parameters[0].NodeType == expr.WILDCARD {
		values := make([]interface{}, len(rows))
		for i := range rows {
			values[i] = true
		}
		return function.Aggregate(name, values, false)
	}

	var values []interface{}
	for _, r := range rows {
		v, err := expr.EvalRow(a.Parameters[0], in, r)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	distinct := a.AggregatorOpts != nil && a.AggregatorOpts.Distinct
	result, err := function.Aggregate(name, values, distinct)
	if err != nil {
		return nil, err
	}

	if name == "ARRAY_AGG" {
		return applyArrayAggModifiers(a, result)
	}
	return result, nil
}

func applyArrayAggModifiers(a *expr.Node, result interface{}) (interface{}, error) {
	list, ok := result.([]interface{})
	if !ok || a.AggregatorOpts == nil {
		return result, nil
	}
	opts := a.AggregatorOpts
	if opts.HasOrder {
		out := append([]interface{}{}, list...)
		sortSlice(out, opts.OrderAsc)
		list = out
	}
	if opts.HasLimit && int64(len(list)) > opts.Limit {
		list = list[:opts.Limit]
	}
	return list, nil
}

func sortSlice(vals []interface{}, asc bool) {
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0; j-- {
			c := expr.Compare(vals[j-1], vals[j])
			if (asc && c <= 0) || (!asc && c >= 0) {
				break
			}
			vals[j-1], vals[j] = vals[j], vals[j-1]
		}
	}
}

// evalHaving evaluates having against a single synthetic row built from
// values, keyed by identity exactly as out declares.
func evalHaving(having *expr.Node, out schema.Schema, values map[schema.Identity]interface{}) (bool, error) {
	cols := make([]batch.Column, len(out))
	for i, c := range out {
		cols[i] = batch.Column{Identity: c.Identity, Values: []interface{}{values[c.Identity]}}
	}
	row := batch.New(out, cols)
	v, err := expr.EvalRow(having, row, 0)
	if err != nil {
		return false, err
	}
	keep, _ := v.(bool)
	return keep, nil
}


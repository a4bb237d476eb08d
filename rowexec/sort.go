package rowexec

import (
	"sort"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/logicalplan"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
)

// sortOp is a greedy, stable global sort over a list of (identity,
// direction) keys (spec.md §4.7). Named sortOp to avoid colliding with
// the stdlib sort package this file imports.
type sortOp struct {
	n        *physicalplan.Node
	producer Operator
	qc       *qctx.Context
}

func newSort(n *physicalplan.Node, producer Operator, qc *qctx.Context) *sortOp {
	return &sortOp{n: n, producer: producer, qc: qc}
}

func (s *sortOp) Name() string                   { return "Sort" }
func (s *sortOp) Config() map[string]interface{} { return map[string]interface{}{"keys": len(s.n.OrderBy)} }
func (s *sortOp) IsGreedy() bool                 { return true }
func (s *sortOp) ProducerArity() int             { return 1 }

func (s *sortOp) Execute() (Stream, error) {
	up, err := s.producer.Execute()
	if err != nil {
		return nil, err
	}
	defer up.Close()

	var all []*batch.Batch
	for {
		if err := checkCancelled(s.qc); err != nil {
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
	}
	if len(all) == 0 {
		return newSliceStream(batch.Empty(s.n.OutputSchema)), nil
	}

	in := batch.Concat(all)
	order := make([]int, in.NumRows())
	for i := range order {
		order[i] = i
	}
	keys, err := evalOrderKeys(s.n.OrderBy, in)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lessByKeys(keys, order[a], order[b], s.n.OrderBy) < 0
	})

	return newSliceStream(reorder(in, order)), nil
}

// evalOrderKeys evaluates every ORDER BY expression against every row of
// in, column-major so lessByKeys can compare row i across all keys
// without re-evaluating expressions per comparison.
func evalOrderKeys(items []logicalplan.OrderItem, in *batch.Batch) ([][]interface{}, error) {
	keys := make([][]interface{}, len(items))
	for i, it := range items {
		vals, err := expr.EvalBatch(it.Expr, in)
		if err != nil {
			return nil, err
		}
		keys[i] = vals
	}
	return keys, nil
}

func lessByKeys(keys [][]interface{}, a, b int, items []logicalplan.OrderItem) int {
	for i, col := range keys {
		c := expr.Compare(col[a], col[b])
		if items[i].Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func reorder(in *batch.Batch, order []int) *batch.Batch {
	cols := make([]batch.Column, len(in.Schema))
	for i, c := range in.Schema {
		src := in.Column(c.Identity)
		vals := make([]interface{}, len(order))
		for j, idx := range order {
			if idx < len(src) {
				vals[j] = src[idx]
			}
		}
		cols[i] = batch.Column{Identity: c.Identity, Values: vals}
	}
	return batch.New(in.Schema, cols)
}

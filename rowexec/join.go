package rowexec

import (
	"fmt"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/parse"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
	"github.com/morselq/morselq/schema"
)

// join implements every JoinType spec.md §4.7's table lists: it
// materialises the right producer fully (the greedy build side) and
// streams the left producer, matching each left row against the build
// side by a full scan of its rows; no hash index is built.
type join struct {
	n           *physicalplan.Node
	left, right Operator
	qc          *qctx.Context
	cross       bool
}

func newJoin(n *physicalplan.Node, left, right Operator, qc *qctx.Context) *join {
	return &join{n: n, left: left, right: right, qc: qc, cross: n.Kind == physicalplan.CrossJoinKind}
}

func (j *join) Name() string {
	if j.cross {
		return "CrossJoin"
	}
	return "Join"
}
func (j *join) Config() map[string]interface{} {
	return map[string]interface{}{"type": joinTypeName(j.n.JoinType)}
}
func (j *join) IsGreedy() bool     { return true }
func (j *join) ProducerArity() int { return 2 }

func (j *join) Execute() (Stream, error) {
	rightUp, err := j.right.Execute()
	if err != nil {
		return nil, err
	}
	defer rightUp.Close()

	var rightBatches []*batch.Batch
	for {
		if err := checkCancelled(j.qc); err != nil {
			return nil, err
		}
		b, err := rightUp.Next()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		rightBatches = append(rightBatches, b)
	}

	var rightSchema schema.Schema
	if len(rightBatches) > 0 {
		rightSchema = rightBatches[0].Schema
	}
	rightAll := batch.Concat(rightBatches)
	if rightAll == nil {
		rightAll = batch.Empty(rightSchema)
	}

	leftUp, err := j.left.Execute()
	if err != nil {
		return nil, err
	}

	return &joinStream{n: j.n, leftUp: leftUp, right: rightAll, qc: j.qc, cross: j.cross, matchedRight: make([]bool, rightAll.NumRows())}, nil
}

type joinStream struct {
	n            *physicalplan.Node
	leftUp       Stream
	right        *batch.Batch
	qc           *qctx.Context
	cross        bool
	matchedRight []bool
	leftDone     bool
	tailEmitted  bool
}

func (s *joinStream) Next() (*batch.Batch, error) {
	if !s.leftDone {
		for {
			if err := checkCancelled(s.qc); err != nil {
				return nil, err
			}
			lb, err := s.leftUp.Next()
			if err != nil {
				return nil, err
			}
			if lb == nil {
				s.leftDone = true
				break
			}
			out, err := s.probe(lb)
			if err != nil {
				return nil, err
			}
			if out.NumRows() > 0 {
				return out, nil
			}
		}
	}
	if !s.tailEmitted {
		s.tailEmitted = true
		if s.n.JoinType == parse.RightOuterJoin || s.n.JoinType == parse.FullOuterJoin {
			return s.unmatchedRightTail(), nil
		}
	}
	return nil, nil
}

func (s *joinStream) Close() error { return s.leftUp.Close() }

// probe matches every row of lb against s.right, assembling one output
// batch per left input batch.
func (s *joinStream) probe(lb *batch.Batch) (*batch.Batch, error) {
	out := newRowBuilder(s.n.OutputSchema)
	leftSchema := lb.Schema

	for r := 0; r < lb.NumRows(); r++ {
		matches, err := s.matchRows(lb, r)
		if err != nil {
			return nil, err
		}

		switch s.n.JoinType {
		case parse.LeftSemiJoin:
			if len(matches) > 0 {
				out.appendLeftOnly(lb, r, leftSchema)
			}
		case parse.LeftAntiJoin:
			if len(matches) == 0 {
				out.appendLeftOnly(lb, r, leftSchema)
			}
		default:
			if len(matches) == 0 {
				if s.n.JoinType == parse.LeftOuterJoin || s.n.JoinType == parse.FullOuterJoin {
					out.appendLeftOnly(lb, r, leftSchema)
				}
				continue
			}
			for _, rr := range matches {
				s.matchedRight[rr] = true
				out.appendJoined(lb, r, leftSchema, s.right, rr)
			}
		}
	}
	return out.build(), nil
}

// matchRows returns every right-side row index matching left row r.
func (s *joinStream) matchRows(lb *batch.Batch, r int) ([]int, error) {
	if s.cross {
		rows := make([]int, s.right.NumRows())
		for i := range rows {
			rows[i] = i
		}
		return rows, nil
	}

	var matches []int
	for rr := 0; rr < s.right.NumRows(); rr++ {
		ok, err := s.rowsMatch(lb, r, rr)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, rr)
		}
	}
	return matches, nil
}

func (s *joinStream) rowsMatch(lb *batch.Batch, l, r int) (bool, error) {
	if len(s.n.Using) > 0 {
		for _, pair := range s.n.Using {
			lv := lb.Column(pair.Left)
			rv := s.right.Column(pair.Right)
			var lval, rval interface{}
			if l < len(lv) {
				lval = lv[l]
			}
			if r < len(rv) {
				rval = rv[r]
			}
			if lval == nil || rval == nil || expr.Compare(lval, rval) != 0 {
				return false, nil
			}
		}
		return true, nil
	}
	if s.n.On == nil {
		return true, nil
	}
	joined := combineForPredicate(lb, l, s.right, r)
	v, err := expr.EvalRow(s.n.On, joined, 0)
	if err != nil {
		return false, err
	}
	keep, _ := v.(bool)
	return keep, nil
}

// combineForPredicate builds a single-row batch carrying both sides'
// columns so the join predicate (which references identities from both
// schemas) can be evaluated with the ordinary single-batch evaluator.
func combineForPredicate(lb *batch.Batch, l int, rb *batch.Batch, r int) *batch.Batch {
	sch := append(append(schema.Schema{}, lb.Schema...), rb.Schema...)
	cols := make([]batch.Column, 0, len(sch))
	for _, c := range lb.Schema {
		v := lb.Column(c.Identity)
		var val interface{}
		if l < len(v) {
			val = v[l]
		}
		cols = append(cols, batch.Column{Identity: c.Identity, Values: []interface{}{val}})
	}
	for _, c := range rb.Schema {
		v := rb.Column(c.Identity)
		var val interface{}
		if r < len(v) {
			val = v[r]
		}
		cols = append(cols, batch.Column{Identity: c.Identity, Values: []interface{}{val}})
	}
	return batch.New(sch, cols)
}

// unmatchedRightTail emits every right-side row never matched, with NULLs
// on the left side, for RIGHT OUTER and FULL OUTER.
func (s *joinStream) unmatchedRightTail() *batch.Batch {
	out := newRowBuilder(s.n.OutputSchema)
	for rr, matched := range s.matchedRight {
		if matched {
			continue
		}
		out.appendNullLeftWithRight(s.right, rr)
	}
	return out.build()
}

// rowBuilder accumulates output rows column-by-identity, used by join's
// several emission paths so each only needs to say which source row goes
// where.
type rowBuilder struct {
	sch  schema.Schema
	cols map[schema.Identity][]interface{}
}

func newRowBuilder(sch schema.Schema) *rowBuilder {
	cols := make(map[schema.Identity][]interface{}, len(sch))
	for _, c := range sch {
		cols[c.Identity] = []interface{}{}
	}
	return &rowBuilder{sch: sch, cols: cols}
}

// appendLeftOnly emits the left row's columns with NULLs for everything
// else; it serves both the semi/anti paths (where the output schema has
// no right-side columns to fill) and the outer-join null-padded path.
func (b *rowBuilder) appendLeftOnly(lb *batch.Batch, r int, leftSchema schema.Schema) {
	for _, c := range b.sch {
		if i := leftSchema.Find(c.Identity); i >= 0 {
			b.cols[c.Identity] = append(b.cols[c.Identity], valueAt(lb, c.Identity, r))
		} else {
			b.cols[c.Identity] = append(b.cols[c.Identity], nil)
		}
	}
}

func (b *rowBuilder) appendNullLeftWithRight(rb *batch.Batch, r int) {
	for _, c := range b.sch {
		if i := rb.Schema.Find(c.Identity); i >= 0 {
			b.cols[c.Identity] = append(b.cols[c.Identity], valueAt(rb, c.Identity, r))
		} else {
			b.cols[c.Identity] = append(b.cols[c.Identity], nil)
		}
	}
}

func (b *rowBuilder) appendJoined(lb *batch.Batch, l int, leftSchema schema.Schema, rb *batch.Batch, r int) {
	for _, c := range b.sch {
		if i := leftSchema.Find(c.Identity); i >= 0 {
			b.cols[c.Identity] = append(b.cols[c.Identity], valueAt(lb, c.Identity, l))
		} else if i := rb.Schema.Find(c.Identity); i >= 0 {
			b.cols[c.Identity] = append(b.cols[c.Identity], valueAt(rb, c.Identity, r))
		} else {
			b.cols[c.Identity] = append(b.cols[c.Identity], nil)
		}
	}
}

func valueAt(b *batch.Batch, id schema.Identity, row int) interface{} {
	v := b.Column(id)
	if row >= len(v) {
		return nil
	}
	return v[row]
}

func (b *rowBuilder) build() *batch.Batch {
	cols := make([]batch.Column, len(b.sch))
	for i, c := range b.sch {
		cols[i] = batch.Column{Identity: c.Identity, Values: b.cols[c.Identity]}
	}
	return batch.New(b.sch, cols)
}

func joinTypeName(t parse.JoinType) string {
	switch t {
	case parse.InnerJoin:
		return "INNER"
	case parse.LeftOuterJoin:
		return "LEFT OUTER"
	case parse.RightOuterJoin:
		return "RIGHT OUTER"
	case parse.FullOuterJoin:
		return "FULL OUTER"
	case parse.LeftSemiJoin:
		return "LEFT SEMI"
	case parse.LeftAntiJoin:
		return "LEFT ANTI"
	case parse.CrossJoin:
		return "CROSS"
	default:
		return fmt.Sprintf("JoinType(%d)", int(t))
	}
}

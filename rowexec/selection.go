package rowexec

import (
	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/logicalplan"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
	"github.com/morselq/morselq/schema"
)

// selection streams its producer, filtering rows against a predicate
// evaluated once per row. Streaming, per spec.md §4.7's Selection row.
type selection struct {
	n        *physicalplan.Node
	producer Operator
	qc       *qctx.Context
}

func newSelection(n *physicalplan.Node, producer Operator, qc *qctx.Context) *selection {
	return &selection{n: n, producer: producer, qc: qc}
}

func (s *selection) Name() string                     { return "Selection" }
func (s *selection) Config() map[string]interface{}   { return map[string]interface{}{"predicate": s.n.Predicate.String()} }
func (s *selection) IsGreedy() bool                   { return false }
func (s *selection) ProducerArity() int               { return 1 }

func (s *selection) Execute() (Stream, error) {
	up, err := s.producer.Execute()
	if err != nil {
		return nil, err
	}
	return &selectionStream{n: s.n, up: up, qc: s.qc}, nil
}

type selectionStream struct {
	n  *physicalplan.Node
	up Stream
	qc *qctx.Context
}

func (s *selectionStream) Next() (*batch.Batch, error) {
	for {
		if err := checkCancelled(s.qc); err != nil {
			return nil, err
		}
		b, err := s.up.Next()
		if err != nil || b == nil {
			return nil, err
		}
		mask := make([]bool, b.NumRows())
		any := false
		for i := range mask {
			v, err := expr.EvalRow(s.n.Predicate, b, i)
			if err != nil {
				return nil, err
			}
			keep, _ := v.(bool)
			mask[i] = keep
			any = any || keep
		}
		if !any {
			continue
		}
		return b.Filter(mask), nil
	}
}

func (s *selectionStream) Close() error { return s.up.Close() }

// projection streams its producer, computing each output ProjectItem's
// expression (or passing an already-bound schema column through
// unchanged) and reassembling the result batch in item order. Streaming.
type projection struct {
	n        *physicalplan.Node
	producer Operator
	qc       *qctx.Context
}

func newProjection(n *physicalplan.Node, producer Operator, qc *qctx.Context) *projection {
	return &projection{n: n, producer: producer, qc: qc}
}

func (p *projection) Name() string                   { return "Projection" }
func (p *projection) Config() map[string]interface{} { return map[string]interface{}{"items": len(p.n.Items)} }
func (p *projection) IsGreedy() bool                 { return false }
func (p *projection) ProducerArity() int             { return 1 }

func (p *projection) Execute() (Stream, error) {
	up, err := p.producer.Execute()
	if err != nil {
		return nil, err
	}
	return &projectionStream{n: p.n, up: up, qc: p.qc}, nil
}

type projectionStream struct {
	n  *physicalplan.Node
	up Stream
	qc *qctx.Context
}

func (p *projectionStream) Next() (*batch.Batch, error) {
	if err := checkCancelled(p.qc); err != nil {
		return nil, err
	}
	b, err := p.up.Next()
	if err != nil || b == nil {
		return nil, err
	}
	return projectBatch(b, p.n.Items, p.n.OutputSchema)
}

func (p *projectionStream) Close() error { return p.up.Close() }

// projectBatch evaluates every item against b and assembles a new batch
// with out's schema; the Projection operator is its only caller.
func projectBatch(b *batch.Batch, items []logicalplan.ProjectItem, out schema.Schema) (*batch.Batch, error) {
	cols := make([]batch.Column, len(items))
	for i, item := range items {
		vals, err := expr.EvalBatch(item.Expr, b)
		if err != nil {
			return nil, err
		}
		cols[i] = batch.Column{Identity: item.Identity, Values: vals}
	}
	return batch.New(out, cols), nil
}

package rowexec

import (
	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
)

// distinct streams its producer, keeping only the first-seen row for each
// distinct tuple of projected-identity values, in scan order (spec.md
// §4.7: "preserves first-seen order within a batch").
type distinct struct {
	n        *physicalplan.Node
	producer Operator
	qc       *qctx.Context
}

func newDistinct(n *physicalplan.Node, producer Operator, qc *qctx.Context) *distinct {
	return &distinct{n: n, producer: producer, qc: qc}
}

func (d *distinct) Name() string                   { return "Distinct" }
func (d *distinct) Config() map[string]interface{} { return map[string]interface{}{} }
func (d *distinct) IsGreedy() bool                 { return false }
func (d *distinct) ProducerArity() int             { return 1 }

func (d *distinct) Execute() (Stream, error) {
	up, err := d.producer.Execute()
	if err != nil {
		return nil, err
	}
	return &distinctStream{n: d.n, up: up, qc: d.qc, seen: map[string]struct{}{}}, nil
}

type distinctStream struct {
	n    *physicalplan.Node
	up   Stream
	qc   *qctx.Context
	seen map[string]struct{}
}

func (d *distinctStream) Next() (*batch.Batch, error) {
	for {
		if err := checkCancelled(d.qc); err != nil {
			return nil, err
		}
		b, err := d.up.Next()
		if err != nil || b == nil {
			return nil, err
		}
		mask := make([]bool, b.NumRows())
		any := false
		for r := 0; r < b.NumRows(); r++ {
			vals := make([]interface{}, len(b.Schema))
			for i, c := range b.Schema {
				col := b.Column(c.Identity)
				if r < len(col) {
					vals[i] = col[r]
				}
			}
			key := tupleKey(vals)
			if _, dup := d.seen[key]; dup {
				continue
			}
			d.seen[key] = struct{}{}
			mask[r] = true
			any = true
		}
		if !any {
			continue
		}
		return b.Filter(mask), nil
	}
}

func (d *distinctStream) Close() error { return d.up.Close() }

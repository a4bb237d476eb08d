package rowexec

import (
	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
)

// morselDefragment coalesces a run of small batches into ones at or near
// TargetMorselSize, passing already-large batches straight through
// (spec.md §4.7). It is inserted by the physical planner after every
// small-batch source (Scanner, InternalDataset, FunctionDataset).
type morselDefragment struct {
	n        *physicalplan.Node
	producer Operator
	qc       *qctx.Context
}

func newMorselDefragment(n *physicalplan.Node, producer Operator, qc *qctx.Context) *morselDefragment {
	return &morselDefragment{n: n, producer: producer, qc: qc}
}

func (m *morselDefragment) Name() string { return "MorselDefragment" }
func (m *morselDefragment) Config() map[string]interface{} {
	return map[string]interface{}{"target_morsel_size": m.n.TargetMorselSize}
}
func (m *morselDefragment) IsGreedy() bool     { return false }
func (m *morselDefragment) ProducerArity() int { return 1 }

func (m *morselDefragment) Execute() (Stream, error) {
	up, err := m.producer.Execute()
	if err != nil {
		return nil, err
	}
	target := m.n.TargetMorselSize
	if target <= 0 {
		target = 1
	}
	return &morselDefragmentStream{up: up, qc: m.qc, target: target}, nil
}

type morselDefragmentStream struct {
	up      Stream
	qc      *qctx.Context
	target  int
	pending []*batch.Batch
	done    bool
}

func (m *morselDefragmentStream) Next() (*batch.Batch, error) {
	for {
		if m.done && len(m.pending) == 0 {
			return nil, nil
		}
		if !m.done {
			if err := checkCancelled(m.qc); err != nil {
				return nil, err
			}
			b, err := m.up.Next()
			if err != nil {
				return nil, err
			}
			if b == nil {
				m.done = true
			} else if b.NumRows() >= m.target {
				if len(m.pending) == 0 {
					return b, nil
				}
				m.pending = append(m.pending, b)
			} else {
				m.pending = append(m.pending, b)
			}
		}

		total := 0
		for _, b := range m.pending {
			total += b.NumRows()
		}
		if total >= m.target || (m.done && total > 0) {
			merged := batch.Concat(m.pending)
			m.pending = nil
			return merged, nil
		}
		if m.done {
			return nil, nil
		}
	}
}

func (m *morselDefragmentStream) Close() error { return m.up.Close() }

package rowexec

import (
	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
)

// limit streams its producer, skipping Offset rows then emitting at most
// Limit rows, halting upstream once the threshold is reached (spec.md
// §4.7, and the "LIMIT 0 yields an empty stream without consuming
// upstream" edge case).
type limit struct {
	n        *physicalplan.Node
	producer Operator
	qc       *qctx.Context
}

func newLimit(n *physicalplan.Node, producer Operator, qc *qctx.Context) *limit {
	return &limit{n: n, producer: producer, qc: qc}
}

func (l *limit) Name() string { return "Limit" }
func (l *limit) Config() map[string]interface{} {
	return map[string]interface{}{"limit": l.n.Limit, "offset": l.n.Offset}
}
func (l *limit) IsGreedy() bool     { return false }
func (l *limit) ProducerArity() int { return 1 }

func (l *limit) Execute() (Stream, error) {
	if l.n.Limit == 0 {
		return newSliceStream(batch.Empty(l.n.OutputSchema)), nil
	}
	up, err := l.producer.Execute()
	if err != nil {
		return nil, err
	}
	return &limitStream{n: l.n, up: up, qc: l.qc, remaining: l.n.Limit, toSkip: l.n.Offset}, nil
}

type limitStream struct {
	n         *physicalplan.Node
	up        Stream
	qc        *qctx.Context
	remaining int64
	toSkip    int64
	done      bool
}

func (l *limitStream) Next() (*batch.Batch, error) {
	if l.done || l.remaining <= 0 {
		return nil, nil
	}
	for {
		if err := checkCancelled(l.qc); err != nil {
			return nil, err
		}
		b, err := l.up.Next()
		if err != nil {
			return nil, err
		}
		if b == nil {
			l.done = true
			return nil, nil
		}
		if l.toSkip > 0 {
			if int64(b.NumRows()) <= l.toSkip {
				l.toSkip -= int64(b.NumRows())
				continue
			}
			b = b.Slice(int(l.toSkip), b.NumRows())
			l.toSkip = 0
		}
		if int64(b.NumRows()) > l.remaining {
			b = b.Slice(0, int(l.remaining))
		}
		l.remaining -= int64(b.NumRows())
		if l.remaining <= 0 {
			l.done = true
			l.up.Close()
		}
		return b, nil
	}
}

func (l *limitStream) Close() error { return l.up.Close() }

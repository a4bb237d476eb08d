package rowexec

import (
	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
)

// exit is the single mandatory terminal every non-Show/Explain plan
// funnels through: it verifies the final schema's user-facing names are
// unique, renames identities to their query_column, and is the only
// operator whose output is user-visible (spec.md §4.7, §9's "out-degree
// 0" invariant).
type exit struct {
	n        *physicalplan.Node
	producer Operator
	qc       *qctx.Context
}

func newExit(n *physicalplan.Node, producer Operator, qc *qctx.Context) *exit {
	return &exit{n: n, producer: producer, qc: qc}
}

func (e *exit) Name() string                   { return "Exit" }
func (e *exit) Config() map[string]interface{} { return map[string]interface{}{"columns": e.n.QueryColumns} }
func (e *exit) IsGreedy() bool                 { return false }
func (e *exit) ProducerArity() int             { return 1 }

func (e *exit) Execute() (Stream, error) {
	if ok, dup := e.n.OutputSchema.UniqueQueryColumns(); !ok {
		return nil, errkind.UnsupportedSyntax.New("ambiguous output column " + dup)
	}
	up, err := e.producer.Execute()
	if err != nil {
		return nil, err
	}
	return &exitStream{n: e.n, up: up, qc: e.qc}, nil
}

type exitStream struct {
	n  *physicalplan.Node
	up Stream
	qc *qctx.Context
}

func (e *exitStream) Next() (*batch.Batch, error) {
	if err := checkCancelled(e.qc); err != nil {
		return nil, err
	}
	b, err := e.up.Next()
	if err != nil || b == nil {
		return nil, err
	}
	return b.RenameTo(e.n.QueryColumns), nil
}

func (e *exitStream) Close() error { return e.up.Close() }

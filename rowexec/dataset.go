package rowexec

import (
	"strings"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/connector"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
	"github.com/morselq/morselq/schema"
)

// scanner pulls batches from a Connector, the non-greedy leaf spec.md
// §4.7's operator table lists for connector-backed relations.
type scanner struct {
	n  *physicalplan.Node
	qc *qctx.Context
}

func newScanner(n *physicalplan.Node, qc *qctx.Context) *scanner { return &scanner{n: n, qc: qc} }

func (s *scanner) Name() string { return "Scanner" }
func (s *scanner) Config() map[string]interface{} {
	return map[string]interface{}{"relation": s.n.Relation}
}
func (s *scanner) IsGreedy() bool     { return false }
func (s *scanner) ProducerArity() int { return 0 }

func (s *scanner) Execute() (Stream, error) {
	if s.qc.Connector == nil {
		return nil, errkind.DatasetNotFound.New(s.n.Relation)
	}
	var tr connector.TemporalRange
	if s.n.ReadNode != nil && s.n.ReadNode.Temporal != nil {
		tr.Start, tr.End = s.n.ReadNode.Temporal.Resolve(s.qc.Now)
	} else if s.qc.Stats != nil {
		s.qc.Stats.AddMessage("no temporal range on " + s.n.Relation + ", defaulting to today")
	}
	it, err := s.qc.Connector.ReadDataset(s.qc.Ctx, s.n.Relation, tr)
	if err != nil {
		return nil, err
	}
	return &scannerStream{it: it, qc: s.qc, out: s.n.OutputSchema}, nil
}

type scannerStream struct {
	it  connector.BatchIterator
	qc  *qctx.Context
	out schema.Schema
}

func (s *scannerStream) Next() (*batch.Batch, error) {
	if err := checkCancelled(s.qc); err != nil {
		return nil, err
	}
	b, err := s.it.Next(s.qc.Ctx)
	if err != nil || b == nil {
		return nil, err
	}
	rekeyed := b.Rekey(s.out)
	if s.qc.Stats != nil {
		s.qc.Stats.AddRowsRead(int64(rekeyed.NumRows()))
		s.qc.Stats.AddColumnsRead(int64(rekeyed.NumColumns()))
	}
	return rekeyed, nil
}

func (s *scannerStream) Close() error { return s.it.Close() }

// internalDataset pulls the single batch a zero-I/O built-in relation
// (e.g. $planets, or a freshly bound reference to one) materialises via
// qctx.Context.Internal.
type internalDataset struct {
	n  *physicalplan.Node
	qc *qctx.Context
}

func newInternalDataset(n *physicalplan.Node, qc *qctx.Context) *internalDataset {
	return &internalDataset{n: n, qc: qc}
}

func (s *internalDataset) Name() string { return "InternalDataset" }
func (s *internalDataset) Config() map[string]interface{} {
	return map[string]interface{}{"relation": s.n.Relation}
}
func (s *internalDataset) IsGreedy() bool     { return false }
func (s *internalDataset) ProducerArity() int { return 0 }

func (s *internalDataset) Execute() (Stream, error) {
	if s.qc.Internal == nil {
		return nil, errkind.DatasetNotFound.New(s.n.Relation)
	}
	b, err := s.qc.Internal(s.n.Relation)
	if err != nil {
		return nil, err
	}
	rekeyed := b.Rekey(s.n.OutputSchema)
	if s.qc.Stats != nil {
		s.qc.Stats.AddRowsRead(int64(rekeyed.NumRows()))
		s.qc.Stats.AddColumnsRead(int64(rekeyed.NumColumns()))
	}
	return newSliceStream(rekeyed), nil
}

// functionDataset materialises one of the literal FROM-less relations
// spec.md §4.7 lists: the implicit single-row-single-(hidden)-column
// relation a FROM-less SELECT reads from (Call == nil, grounded on
// original_source/opteryx/samples/no_table_data.py's "no table ... it
// actually is a table, with one row and one column"), or an eagerly
// generated GENERATE_SERIES/FAKE/UNNEST/VALUES relation.
type functionDataset struct {
	n  *physicalplan.Node
	qc *qctx.Context
}

func newFunctionDataset(n *physicalplan.Node, qc *qctx.Context) *functionDataset {
	return &functionDataset{n: n, qc: qc}
}

func (s *functionDataset) Name() string { return "FunctionDataset" }
func (s *functionDataset) Config() map[string]interface{} {
	cfg := map[string]interface{}{}
	if s.n.Call != nil {
		cfg["call"] = s.n.Call.QueryColumn
	}
	return cfg
}
func (s *functionDataset) IsGreedy() bool     { return false }
func (s *functionDataset) ProducerArity() int { return 0 }

func (s *functionDataset) Execute() (Stream, error) {
	b, err := s.materialise()
	if err != nil {
		return nil, err
	}
	return newSliceStream(b), nil
}

func (s *functionDataset) materialise() (*batch.Batch, error) {
	call := s.n.Call
	sch := s.n.OutputSchema

	if call == nil {
		return singleRowBatch(sch), nil
	}

	name := call.Value.(string)
	switch strings.ToUpper(name) {
	case "GENERATE_SERIES":
		return s.generateSeries(sch)
	case "FAKE":
		return s.fake(sch)
	case "UNNEST":
		return s.unnest(sch)
	case "VALUES":
		return s.values(sch)
	default:
		return nil, errkind.UnsupportedSyntax.New("function dataset " + name)
	}
}

// singleRowBatch is the implicit FROM-less relation: no user-visible
// columns, but one row so a Project's scalar computations over constants
// still evaluate once.
func singleRowBatch(sch schema.Schema) *batch.Batch {
	phantom := batch.Column{Identity: schema.NewIdentity("_phantom"), Values: []interface{}{nil}}
	return batch.New(sch, []batch.Column{phantom})
}

func (s *functionDataset) generateSeries(sch schema.Schema) (*batch.Batch, error) {
	args, err := s.evalArgs()
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, errkind.ParameterError.New("GENERATE_SERIES requires at least 2 arguments")
	}
	start, ok1 := toInt(args[0])
	stop, ok2 := toInt(args[1])
	if !ok1 || !ok2 {
		return nil, errkind.TypeMismatch.New("GENERATE_SERIES bounds must be numeric")
	}
	step := int64(1)
	if len(args) > 2 {
		if st, ok := toInt(args[2]); ok && st != 0 {
			step = st
		}
	}
	var vals []interface{}
	if step > 0 {
		for v := start; v <= stop; v += step {
			vals = append(vals, v)
		}
	} else {
		for v := start; v >= stop; v += step {
			vals = append(vals, v)
		}
	}
	return batch.New(sch, []batch.Column{{Identity: sch[0].Identity, Values: vals}}), nil
}

func (s *functionDataset) fake(sch schema.Schema) (*batch.Batch, error) {
	args, err := s.evalArgs()
	if err != nil {
		return nil, err
	}
	n := int64(1)
	if len(args) > 0 {
		if v, ok := toInt(args[0]); ok {
			n = v
		}
	}
	vals := make([]interface{}, n)
	for i := range vals {
		vals[i] = int64(i)
	}
	return batch.New(sch, []batch.Column{{Identity: sch[0].Identity, Values: vals}}), nil
}

func (s *functionDataset) unnest(sch schema.Schema) (*batch.Batch, error) {
	args, err := s.evalArgs()
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return batch.Empty(sch), nil
	}
	list, ok := args[0].([]interface{})
	if !ok {
		return nil, errkind.TypeMismatch.New("UNNEST requires a LIST argument")
	}
	return batch.New(sch, []batch.Column{{Identity: sch[0].Identity, Values: list}}), nil
}

func (s *functionDataset) values(sch schema.Schema) (*batch.Batch, error) {
	args, err := s.evalArgs()
	if err != nil {
		return nil, err
	}
	cols := make([]batch.Column, len(sch))
	for i, c := range sch {
		var v interface{}
		if i < len(args) {
			v = args[i]
		}
		cols[i] = batch.Column{Identity: c.Identity, Values: []interface{}{v}}
	}
	return batch.New(sch, cols), nil
}

// evalArgs evaluates every FunctionDataset call argument against an empty
// row: GENERATE_SERIES/FAKE/UNNEST/VALUES arguments are always constant
// expressions, never column references, since the dataset they describe
// doesn't exist yet to reference.
func (s *functionDataset) evalArgs() ([]interface{}, error) {
	empty := singleRowBatch(schema.Schema{})
	args := make([]interface{}, len(s.n.Call.Parameters))
	for i, p := range s.n.Call.Parameters {
		v, err := expr.EvalRow(p, empty, 0)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}


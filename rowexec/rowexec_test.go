package rowexec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/logicalplan"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
	"github.com/morselq/morselq/schema"
	"github.com/morselq/morselq/types"
)

// stubOp hands out a fixed batch list and records whether it was pulled,
// standing in for an upstream producer in operator-level tests.
type stubOp struct {
	batches  []*batch.Batch
	executed bool
}

func (s *stubOp) Name() string                   { return "stub" }
func (s *stubOp) Config() map[string]interface{} { return nil }
func (s *stubOp) IsGreedy() bool                 { return false }
func (s *stubOp) ProducerArity() int             { return 0 }
func (s *stubOp) Execute() (Stream, error) {
	s.executed = true
	return newSliceStream(s.batches...), nil
}

func testSchema() schema.Schema {
	return schema.Schema{
		{Identity: "v", QueryColumn: "v", Type: types.Of(types.INTEGER)},
	}
}

func intBatch(sch schema.Schema, vals ...int64) *batch.Batch {
	boxed := make([]interface{}, len(vals))
	for i, v := range vals {
		boxed[i] = v
	}
	return batch.New(sch, []batch.Column{{Identity: sch[0].Identity, Values: boxed}})
}

func drain(t *testing.T, s Stream) []*batch.Batch {
	t.Helper()
	var out []*batch.Batch
	for {
		b, err := s.Next()
		require.NoError(t, err)
		if b == nil {
			return out
		}
		out = append(out, b)
	}
}

func TestLimitZeroDoesNotConsumeUpstream(t *testing.T) {
	sch := testSchema()
	up := &stubOp{batches: []*batch.Batch{intBatch(sch, 1, 2, 3)}}
	n := &physicalplan.Node{Kind: physicalplan.LimitKind, Limit: 0, OutputSchema: sch}

	s, err := newLimit(n, up, &qctx.Context{}).Execute()
	require.NoError(t, err)
	batches := drain(t, s)
	total := 0
	for _, b := range batches {
		total += b.NumRows()
	}
	require.Equal(t, 0, total)
	require.False(t, up.executed)
}

func TestLimitHaltsUpstreamAfterThreshold(t *testing.T) {
	sch := testSchema()
	up := &stubOp{batches: []*batch.Batch{intBatch(sch, 1, 2), intBatch(sch, 3, 4)}}
	n := &physicalplan.Node{Kind: physicalplan.LimitKind, Limit: 3, Offset: 1, OutputSchema: sch}

	s, err := newLimit(n, up, &qctx.Context{}).Execute()
	require.NoError(t, err)
	batches := drain(t, s)
	var vals []interface{}
	for _, b := range batches {
		vals = append(vals, b.Column(sch[0].Identity)...)
	}
	require.Equal(t, []interface{}{int64(2), int64(3), int64(4)}, vals)
}

func TestMorselDefragmentCoalesces(t *testing.T) {
	sch := testSchema()
	up := &stubOp{batches: []*batch.Batch{
		intBatch(sch, 1), intBatch(sch, 2), intBatch(sch, 3), intBatch(sch, 4), intBatch(sch, 5),
	}}
	n := &physicalplan.Node{Kind: physicalplan.MorselDefragmentKind, TargetMorselSize: 3, OutputSchema: sch}

	s, err := newMorselDefragment(n, up, &qctx.Context{}).Execute()
	require.NoError(t, err)
	batches := drain(t, s)
	require.Len(t, batches, 2)
	require.Equal(t, 3, batches[0].NumRows())
	require.Equal(t, 2, batches[1].NumRows())
}

func TestMorselDefragmentPassesLargeBatchesThrough(t *testing.T) {
	sch := testSchema()
	big := intBatch(sch, 1, 2, 3, 4)
	up := &stubOp{batches: []*batch.Batch{big}}
	n := &physicalplan.Node{Kind: physicalplan.MorselDefragmentKind, TargetMorselSize: 3, OutputSchema: sch}

	s, err := newMorselDefragment(n, up, &qctx.Context{}).Execute()
	require.NoError(t, err)
	batches := drain(t, s)
	require.Len(t, batches, 1)
	require.Same(t, big, batches[0])
}

func TestDistinctPreservesFirstSeenOrder(t *testing.T) {
	sch := testSchema()
	up := &stubOp{batches: []*batch.Batch{intBatch(sch, 3, 1, 3, 2), intBatch(sch, 2, 4)}}
	n := &physicalplan.Node{Kind: physicalplan.DistinctKind, OutputSchema: sch}

	s, err := newDistinct(n, up, &qctx.Context{}).Execute()
	require.NoError(t, err)
	var vals []interface{}
	for _, b := range drain(t, s) {
		vals = append(vals, b.Column(sch[0].Identity)...)
	}
	require.Equal(t, []interface{}{int64(3), int64(1), int64(2), int64(4)}, vals)
}

func orderByV(sch schema.Schema, desc bool) []logicalplan.OrderItem {
	id := expr.Identifier("v")
	id.SchemaColumn = &sch[0]
	return []logicalplan.OrderItem{{Expr: id, Desc: desc}}
}

func twoColSchema() schema.Schema {
	return schema.Schema{
		{Identity: "v", QueryColumn: "v", Type: types.Of(types.INTEGER)},
		{Identity: "seq", QueryColumn: "seq", Type: types.Of(types.INTEGER)},
	}
}

func twoColBatch(sch schema.Schema, vs, seqs []int64) *batch.Batch {
	bv := make([]interface{}, len(vs))
	bs := make([]interface{}, len(seqs))
	for i := range vs {
		bv[i] = vs[i]
		bs[i] = seqs[i]
	}
	return batch.New(sch, []batch.Column{
		{Identity: sch[0].Identity, Values: bv},
		{Identity: sch[1].Identity, Values: bs},
	})
}

func TestSortIsStableOnTies(t *testing.T) {
	sch := twoColSchema()
	up := &stubOp{batches: []*batch.Batch{
		twoColBatch(sch, []int64{2, 1, 2, 1}, []int64{0, 1, 2, 3}),
	}}
	n := &physicalplan.Node{Kind: physicalplan.SortKind, OrderBy: orderByV(sch, false), OutputSchema: sch}

	s, err := newSort(n, up, &qctx.Context{}).Execute()
	require.NoError(t, err)
	batches := drain(t, s)
	require.Len(t, batches, 1)
	seqs := batches[0].Column(sch[1].Identity)
	// Equal keys keep input order: the two 1s then the two 2s.
	require.Equal(t, []interface{}{int64(1), int64(3), int64(0), int64(2)}, seqs)
}

func TestHeapSortBreaksTiesByInsertionOrder(t *testing.T) {
	sch := twoColSchema()
	up := &stubOp{batches: []*batch.Batch{
		twoColBatch(sch, []int64{1, 1, 1, 2}, []int64{0, 1, 2, 3}),
	}}
	n := &physicalplan.Node{Kind: physicalplan.HeapSortKind, HeapK: 2, OrderBy: orderByV(sch, false), OutputSchema: sch}

	s, err := newHeapSort(n, up, &qctx.Context{}).Execute()
	require.NoError(t, err)
	batches := drain(t, s)
	require.Len(t, batches, 1)
	require.Equal(t, 2, batches[0].NumRows())
	seqs := batches[0].Column(sch[1].Identity)
	require.Equal(t, []interface{}{int64(0), int64(1)}, seqs)
}

func TestHeapSortLargerKIsFullStableSort(t *testing.T) {
	sch := twoColSchema()
	up := &stubOp{batches: []*batch.Batch{
		twoColBatch(sch, []int64{2, 1, 2}, []int64{0, 1, 2}),
	}}
	n := &physicalplan.Node{Kind: physicalplan.HeapSortKind, HeapK: 100, OrderBy: orderByV(sch, false), OutputSchema: sch}

	s, err := newHeapSort(n, up, &qctx.Context{}).Execute()
	require.NoError(t, err)
	batches := drain(t, s)
	require.Len(t, batches, 1)
	require.Equal(t, 3, batches[0].NumRows())
	seqs := batches[0].Column(sch[1].Identity)
	require.Equal(t, []interface{}{int64(1), int64(0), int64(2)}, seqs)
}

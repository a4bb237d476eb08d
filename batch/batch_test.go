package batch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/morselq/morselq/schema"
	"github.com/morselq/morselq/types"
)

func testBatch() *Batch {
	sch := schema.Schema{
		{Identity: "a", QueryColumn: "a", Type: types.Of(types.INTEGER)},
		{Identity: "b", QueryColumn: "b", Type: types.Of(types.VARCHAR)},
	}
	return New(sch, []Column{
		{Identity: "a", Values: []interface{}{int64(1), int64(2), int64(3)}},
		{Identity: "b", Values: []interface{}{"x", "y", "z"}},
	})
}

func TestSelectFullIdentityListIsIdentity(t *testing.T) {
	b := testBatch()
	sel := b.Select([]schema.Identity{"a", "b"})
	require.Empty(t, cmp.Diff(b.Schema, sel.Schema))
	require.Empty(t, cmp.Diff(b.Column("a"), sel.Column("a")))
	require.Empty(t, cmp.Diff(b.Column("b"), sel.Column("b")))
}

func TestSelectReorders(t *testing.T) {
	b := testBatch()
	sel := b.Select([]schema.Identity{"b", "a"})
	require.Equal(t, 2, sel.NumColumns())
	require.Equal(t, schema.Identity("b"), sel.Schema[0].Identity)
	require.Equal(t, schema.Identity("a"), sel.Schema[1].Identity)
	require.Empty(t, cmp.Diff([]interface{}{"x", "y", "z"}, sel.Column("b")))
}

func TestFilterMask(t *testing.T) {
	b := testBatch()
	f := b.Filter([]bool{true, false, true})
	require.Equal(t, 2, f.NumRows())
	require.Empty(t, cmp.Diff([]interface{}{int64(1), int64(3)}, f.Column("a")))
}

func TestSliceBounds(t *testing.T) {
	b := testBatch()
	s := b.Slice(1, 10)
	require.Equal(t, 2, s.NumRows())
	require.Empty(t, cmp.Diff([]interface{}{"y", "z"}, s.Column("b")))

	require.Equal(t, 0, b.Slice(2, 1).NumRows())
}

func TestConcatSharesSchema(t *testing.T) {
	b := testBatch()
	c := Concat([]*Batch{b, b})
	require.Equal(t, 6, c.NumRows())
	require.Empty(t, cmp.Diff(b.Schema, c.Schema))
}

func TestRekeyRemapsByPosition(t *testing.T) {
	b := testBatch()
	fresh := schema.Schema{
		{Identity: "a2", QueryColumn: "a", Type: types.Of(types.INTEGER)},
		{Identity: "b2", QueryColumn: "b", Type: types.Of(types.VARCHAR)},
	}
	r := b.Rekey(fresh)
	require.Nil(t, r.Column("a"))
	require.Empty(t, cmp.Diff([]interface{}{int64(1), int64(2), int64(3)}, r.Column("a2")))
}

func TestRenameTo(t *testing.T) {
	b := testBatch()
	r := b.RenameTo([]string{"first", "second"})
	require.Equal(t, "first", r.Schema[0].QueryColumn)
	require.Equal(t, "second", r.Schema[1].QueryColumn)
	require.Empty(t, cmp.Diff(b.Column("a"), r.Column("a")))
}

func TestEmptyCarriesSchema(t *testing.T) {
	b := Empty(testBatch().Schema)
	require.Equal(t, 0, b.NumRows())
	require.Equal(t, 2, b.NumColumns())
}

package astrewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morselq/morselq/parse"
	"github.com/morselq/morselq/rewrite"
)

func TestRewriteSubstitutesParams(t *testing.T) {
	stmt, err := parse.Parse("SELECT a FROM t WHERE a = ? AND b = ?", parse.MySQL)
	require.NoError(t, err)

	out, err := Rewrite(stmt, []interface{}{int64(1), "x"}, nil, Defaults{})
	require.NoError(t, err)

	where := out.Select.Where
	require.Equal(t, int64(1), where.Left.Right.Value)
	require.Equal(t, "x", where.Right.Right.Value)
}

func TestRewriteTooFewParams(t *testing.T) {
	stmt, err := parse.Parse("SELECT a FROM t WHERE a = ? AND b = ?", parse.MySQL)
	require.NoError(t, err)

	_, err = Rewrite(stmt, []interface{}{int64(1)}, nil, Defaults{})
	require.Error(t, err)
}

func TestRewriteTooManyParams(t *testing.T) {
	stmt, err := parse.Parse("SELECT a FROM t WHERE a = ?", parse.MySQL)
	require.NoError(t, err)

	_, err = Rewrite(stmt, []interface{}{int64(1), int64(2)}, nil, Defaults{})
	require.Error(t, err)
}

func TestRewriteIdentityWithoutParamsOrFilters(t *testing.T) {
	stmt, err := parse.Parse("SELECT a FROM t WHERE a = 1", parse.MySQL)
	require.NoError(t, err)

	out, err := Rewrite(stmt, nil, nil, Defaults{})
	require.NoError(t, err)
	require.Same(t, stmt, out)
}

func TestRewriteAttachesTemporalFilterByAlias(t *testing.T) {
	stmt, err := parse.Parse("SELECT a FROM orders AS o", parse.MySQL)
	require.NoError(t, err)

	filters := []rewrite.TemporalFilter{{Relation: "o", Named: rewrite.Yesterday, HasNamed: true}}
	out, err := Rewrite(stmt, nil, filters, Defaults{})
	require.NoError(t, err)
	require.NotNil(t, out.Select.From.Table.Temporal)
	require.Equal(t, rewrite.Yesterday, out.Select.From.Table.Temporal.Named)
}

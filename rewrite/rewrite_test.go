package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRewriteStripsComments(t *testing.T) {
	clean, filters, err := Rewrite("SELECT 1 -- trailing comment\n, 'a -- not a comment' FROM t")
	require.NoError(t, err)
	require.Empty(t, filters)
	require.Contains(t, clean, "'a -- not a comment'")
	require.NotContains(t, clean, "trailing comment")
}

func TestRewriteStripsBlockComments(t *testing.T) {
	clean, _, err := Rewrite("SELECT /* block */ 1 FROM t")
	require.NoError(t, err)
	require.Equal(t, "SELECT 1 FROM t", clean)
}

func TestRewriteUnterminatedBlockComment(t *testing.T) {
	_, _, err := Rewrite("SELECT 1 /* oops FROM t")
	require.Error(t, err)
}

func TestRewriteUnbalancedQuote(t *testing.T) {
	_, _, err := Rewrite("SELECT 'oops FROM t")
	require.Error(t, err)
}

func TestRewriteExtractsNamedRange(t *testing.T) {
	clean, filters, err := Rewrite("SELECT * FROM orders FOR YESTERDAY WHERE id = 1")
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM orders WHERE id = 1", clean)
	require.Len(t, filters, 1)
	require.Equal(t, "orders", filters[0].Relation)
	require.True(t, filters[0].HasNamed)
	require.Equal(t, Yesterday, filters[0].Named)
}

func TestRewriteIdempotentOnCleanInput(t *testing.T) {
	clean, filters, err := Rewrite("SELECT a, b FROM t WHERE a > 1")
	require.NoError(t, err)
	require.Empty(t, filters)
	clean2, filters2, err := Rewrite(clean)
	require.NoError(t, err)
	require.Equal(t, clean, clean2)
	require.Empty(t, filters2)
}

func TestRewriteRejectsUnknownRange(t *testing.T) {
	_, _, err := Rewrite("SELECT * FROM orders FOR NEXT_WEEK")
	require.Error(t, err)
}

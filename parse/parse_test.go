package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morselq/morselq/expr"
)

func TestParseSimpleSelect(t *testing.T) {
	stmt, err := Parse("SELECT a, b FROM t WHERE a > 1 ORDER BY b DESC LIMIT 10 OFFSET 5", MySQL)
	require.NoError(t, err)
	require.Equal(t, SelectKind, stmt.Kind)
	sel := stmt.Select
	require.Len(t, sel.Projection, 2)
	require.Equal(t, "a", sel.Projection[0].Expr.Value)
	require.NotNil(t, sel.Where)
	require.Equal(t, expr.COMPARISON_OPERATOR, sel.Where.NodeType)
	require.Len(t, sel.OrderBy, 1)
	require.True(t, sel.OrderBy[0].Desc)
	require.NotNil(t, sel.Limit)
	require.Equal(t, int64(10), *sel.Limit)
	require.NotNil(t, sel.Offset)
	require.Equal(t, int64(5), *sel.Offset)
}

func TestParseWildcardProjection(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t", MySQL)
	require.NoError(t, err)
	require.Len(t, stmt.Select.Projection, 1)
	require.Equal(t, expr.WILDCARD, stmt.Select.Projection[0].Expr.NodeType)
}

func TestParseInternalRelationName(t *testing.T) {
	stmt, err := Parse("SELECT name FROM $planets WHERE id = 3", MySQL)
	require.NoError(t, err)
	require.Equal(t, "$planets", stmt.Select.From.Table.Name)
}

func TestParseJoin(t *testing.T) {
	stmt, err := Parse("SELECT a FROM t1 LEFT OUTER JOIN t2 ON t1.id = t2.id", MySQL)
	require.NoError(t, err)
	from := stmt.Select.From
	require.NotNil(t, from.Join)
	require.Equal(t, LeftOuterJoin, from.Join.Type)
	require.Equal(t, "t1", from.Join.Left.Table.Name)
	require.Equal(t, "t2", from.Join.Right.Table.Name)
	require.NotNil(t, from.Join.On)
}

func TestParseUsingJoin(t *testing.T) {
	stmt, err := Parse("SELECT a FROM t1 JOIN t2 USING (id, kind)", MySQL)
	require.NoError(t, err)
	jc := stmt.Select.From.Join
	require.Equal(t, InnerJoin, jc.Type)
	require.Equal(t, []string{"id", "kind"}, jc.Using)
}

func TestParseGroupByHaving(t *testing.T) {
	stmt, err := Parse("SELECT k, COUNT(*) FROM t GROUP BY k HAVING COUNT(*) > 1", MySQL)
	require.NoError(t, err)
	sel := stmt.Select
	require.Len(t, sel.GroupBy, 1)
	require.NotNil(t, sel.Having)
	agg := sel.Projection[1].Expr
	require.Equal(t, expr.AGGREGATOR, agg.NodeType)
	require.Equal(t, "COUNT", agg.Value)
	require.Len(t, agg.Parameters, 1)
	require.Equal(t, expr.WILDCARD, agg.Parameters[0].NodeType)
}

func TestParseDistinctAggregator(t *testing.T) {
	stmt, err := Parse("SELECT COUNT(DISTINCT a) FROM t", MySQL)
	require.NoError(t, err)
	agg := stmt.Select.Projection[0].Expr
	require.Equal(t, expr.AGGREGATOR, agg.NodeType)
	require.True(t, agg.AggregatorOpts.Distinct)
}

func TestParseSubqueryInFrom(t *testing.T) {
	stmt, err := Parse("SELECT a FROM (SELECT a FROM t) AS sub", MySQL)
	require.NoError(t, err)
	from := stmt.Select.From
	require.NotNil(t, from.Table.Subquery)
	require.Equal(t, "sub", from.Table.Alias)
}

func TestParseCTE(t *testing.T) {
	stmt, err := Parse("WITH recent AS (SELECT a FROM t) SELECT a FROM recent", MySQL)
	require.NoError(t, err)
	require.Len(t, stmt.Select.CTEs, 1)
	require.Equal(t, "recent", stmt.Select.CTEs[0].Name)
}

func TestParseParameterPlaceholder(t *testing.T) {
	stmt, err := Parse("SELECT a FROM t WHERE a = ?", MySQL)
	require.NoError(t, err)
	lit := stmt.Select.Where.Right
	require.Equal(t, expr.LITERAL, lit.NodeType)
	_, ok := lit.Value.(ParamPlaceholder)
	require.True(t, ok)
}

func TestParseInListLowersToEqualityChain(t *testing.T) {
	stmt, err := Parse("SELECT a FROM t WHERE a IN (1, 2)", MySQL)
	require.NoError(t, err)
	where := stmt.Select.Where
	require.Equal(t, expr.OR, where.NodeType)
	require.Equal(t, expr.COMPARISON_OPERATOR, where.Left.NodeType)
	require.Equal(t, expr.COMPARISON_OPERATOR, where.Right.NodeType)
}

func TestParseShow(t *testing.T) {
	stmt, err := Parse("SHOW COLUMNS FROM t", MySQL)
	require.NoError(t, err)
	require.Equal(t, ShowKind, stmt.Kind)
	require.Equal(t, "COLUMNS", stmt.Show.Kind)
	require.Equal(t, "t", stmt.Show.Target)
}

func TestParseShowVariables(t *testing.T) {
	stmt, err := Parse("SHOW VARIABLES", MySQL)
	require.NoError(t, err)
	require.Equal(t, ShowKind, stmt.Kind)
	require.Equal(t, "VARIABLES", stmt.Show.Kind)
}

func TestParseExplain(t *testing.T) {
	stmt, err := Parse("EXPLAIN SELECT a FROM t", MySQL)
	require.NoError(t, err)
	require.Equal(t, ExplainKind, stmt.Kind)
	require.Equal(t, SelectKind, stmt.Explain.Kind)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := Parse("SELECT a FROM t WHERE", MySQL)
	require.Error(t, err)
}

func TestParseTSQLSelectTop(t *testing.T) {
	stmt, err := Parse("SELECT TOP 2 name FROM planets ORDER BY mass DESC", TSQL)
	require.NoError(t, err)
	sel := stmt.Select
	require.NotNil(t, sel.Limit)
	require.Equal(t, int64(2), *sel.Limit)
	require.Len(t, sel.OrderBy, 1)
	require.True(t, sel.OrderBy[0].Desc)
}

func TestParseTSQLInternalRelationName(t *testing.T) {
	stmt, err := Parse("SELECT name FROM $planets", TSQL)
	require.NoError(t, err)
	require.Equal(t, "$planets", stmt.Select.From.Table.Name)
}

func TestParseTSQLFullOuterJoin(t *testing.T) {
	stmt, err := Parse("SELECT a FROM t1 FULL OUTER JOIN t2 ON t1.id = t2.id", TSQL)
	require.NoError(t, err)
	require.Equal(t, FullOuterJoin, stmt.Select.From.Join.Type)
}

func TestParseTSQLWithinGroupOrder(t *testing.T) {
	stmt, err := Parse("SELECT ARRAY_AGG(a) WITHIN GROUP (ORDER BY a DESC) FROM t", TSQL)
	require.NoError(t, err)
	agg := stmt.Select.Projection[0].Expr
	require.Equal(t, expr.AGGREGATOR, agg.NodeType)
	require.True(t, agg.AggregatorOpts.HasOrder)
	require.False(t, agg.AggregatorOpts.OrderAsc)
}

func TestQuoteInternalRefsSkipsStringLiterals(t *testing.T) {
	quoted := quoteInternalRefs("SELECT '$notatable' FROM $planets", '`', '`')
	require.Equal(t, "SELECT '$notatable' FROM `$planets`", quoted)
}

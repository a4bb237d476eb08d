package binder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morselq/morselq/catalog"
	"github.com/morselq/morselq/logicalplan"
	"github.com/morselq/morselq/parse"
	"github.com/morselq/morselq/qctx"
	"github.com/morselq/morselq/schema"
	"github.com/morselq/morselq/types"
)

func testQctx(t *testing.T) *qctx.Context {
	cat := catalog.New(nil)
	cat.Register("t", schema.Schema{
		{Identity: "t.a", QueryColumn: "a", Type: types.Of(types.INTEGER)},
		{Identity: "t.b", QueryColumn: "b", Type: types.Of(types.VARCHAR)},
	}, nil)
	cat.Register("$planets", schema.Schema{
		{Identity: "planets.id", QueryColumn: "id", Type: types.Of(types.INTEGER)},
		{Identity: "planets.name", QueryColumn: "name", Type: types.Of(types.VARCHAR)},
		{Identity: "planets.mass", QueryColumn: "mass", Type: types.Of(types.DOUBLE)},
	}, nil)
	return &qctx.Context{Catalogue: cat}
}

func bindSQL(t *testing.T, sql string) *logicalplan.Plan {
	t.Helper()
	stmt, err := parse.Parse(sql, parse.MySQL)
	require.NoError(t, err)
	plan, err := logicalplan.Build(stmt, nil)
	require.NoError(t, err)
	plan, err = Bind(plan, testQctx(t))
	require.NoError(t, err)
	return plan
}

func TestBindSimpleProjection(t *testing.T) {
	plan := bindSQL(t, "SELECT a, b FROM t WHERE a > 1")
	root := plan.Node(plan.Root)
	require.Equal(t, logicalplan.ProjectKind, root.Kind)
	require.Len(t, root.OutputSchema, 2)
	require.Equal(t, "a", root.OutputSchema[0].QueryColumn)
	require.Equal(t, "b", root.OutputSchema[1].QueryColumn)
}

func TestBindWildcard(t *testing.T) {
	plan := bindSQL(t, "SELECT * FROM t")
	root := plan.Node(plan.Root)
	require.Len(t, root.OutputSchema, 2)
	require.Equal(t, plan.Node(root.Input()).OutputSchema[0].Identity, root.OutputSchema[0].Identity)
}

func TestBindUnknownColumnFails(t *testing.T) {
	stmt, err := parse.Parse("SELECT c FROM t", parse.MySQL)
	require.NoError(t, err)
	plan, err := logicalplan.Build(stmt, nil)
	require.NoError(t, err)
	_, err = Bind(plan, testQctx(t))
	require.Error(t, err)
}

func TestBindCountStar(t *testing.T) {
	plan := bindSQL(t, "SELECT COUNT(*) FROM $planets")
	root := plan.Node(plan.Root)
	require.Equal(t, logicalplan.ProjectKind, root.Kind)
	require.Len(t, root.OutputSchema, 1)
	require.Equal(t, types.INTEGER, root.OutputSchema[0].Type.ID)
}

func TestBindGroupByWithHavingHiddenAggregate(t *testing.T) {
	plan := bindSQL(t, "SELECT id, SUM(mass) FROM $planets GROUP BY id HAVING SUM(mass) > 0")
	root := plan.Node(plan.Root)
	require.Equal(t, logicalplan.ProjectKind, root.Kind)
	require.Len(t, root.OutputSchema, 2)

	below := plan.Node(root.Input())
	require.Equal(t, logicalplan.GroupAggregateKind, below.Kind)
	require.NotNil(t, below.Having)
	require.NotNil(t, below.Having.Left.SchemaColumn, "HAVING's SUM(mass) should rebind onto the already-computed aggregate column")
}

func TestBindSelfJoinUsingCoalescesColumns(t *testing.T) {
	plan := bindSQL(t, "SELECT * FROM $planets INNER JOIN $planets USING (name, id)")
	root := plan.Node(plan.Root)
	require.Equal(t, logicalplan.ProjectKind, root.Kind)

	join := plan.Node(root.Input())
	require.Equal(t, logicalplan.JoinKind, join.Kind)
	require.Len(t, join.ResolvedUsing, 2)

	names := map[string]int{}
	for _, c := range root.OutputSchema {
		names[c.QueryColumn]++
	}
	require.Equal(t, 1, names["id"])
	require.Equal(t, 1, names["name"])
	require.GreaterOrEqual(t, len(root.OutputSchema), 4)
}

func TestBindOrderByAndLimitPassThroughTags(t *testing.T) {
	plan := bindSQL(t, "SELECT id, SUM(mass) AS total FROM $planets GROUP BY id ORDER BY total LIMIT 1")
	root := plan.Node(plan.Root)
	require.Equal(t, logicalplan.ProjectKind, root.Kind)
	require.Len(t, root.OutputSchema, 2)
	require.Equal(t, "total", root.OutputSchema[1].QueryColumn)
}

func TestBindGenerateSeriesWithoutFrom(t *testing.T) {
	plan := bindSQL(t, "SELECT GENERATE_SERIES(1, 5) AS i")
	root := plan.Node(plan.Root)
	require.Equal(t, logicalplan.ProjectKind, root.Kind)
	require.Len(t, root.OutputSchema, 1)
	require.Equal(t, "i", root.OutputSchema[0].QueryColumn)

	below := plan.Node(root.Input())
	require.Equal(t, logicalplan.FunctionDatasetKind, below.Kind)
	require.NotNil(t, below.Call)
}

func TestBindShowColumns(t *testing.T) {
	stmt, err := parse.Parse("SHOW COLUMNS FROM t", parse.MySQL)
	require.NoError(t, err)
	plan, err := logicalplan.Build(stmt, nil)
	require.NoError(t, err)
	plan, err = Bind(plan, testQctx(t))
	require.NoError(t, err)
	root := plan.Node(plan.Root)
	require.Equal(t, logicalplan.ShowKind, root.Kind)
	require.Len(t, root.OutputSchema, 4)
}

package morselq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/config"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/logicalplan"
)

func execSQL(t *testing.T, sql string, params ...interface{}) *batch.Batch {
	t.Helper()
	e := New(WithConfig(config.Default()))
	res, err := e.Execute(context.Background(), sql, params)
	require.NoError(t, err)
	table, err := res.ReadAll()
	require.NoError(t, err)
	return table
}

// column fetches a result column's values by user-facing name.
func column(t *testing.T, b *batch.Batch, name string) []interface{} {
	t.Helper()
	for _, c := range b.Schema {
		if c.QueryColumn == name {
			return b.Column(c.Identity)
		}
	}
	t.Fatalf("no column %q in result (have %v)", name, queryColumns(b))
	return nil
}

func queryColumns(b *batch.Batch) []string {
	out := make([]string, len(b.Schema))
	for i, c := range b.Schema {
		out[i] = c.QueryColumn
	}
	return out
}

func firstColumn(b *batch.Batch) []interface{} {
	return b.Column(b.Schema[0].Identity)
}

func TestCountStarPlanets(t *testing.T) {
	table := execSQL(t, "SELECT COUNT(*) FROM $planets")
	require.Equal(t, 1, table.NumRows())
	require.Equal(t, int64(9), firstColumn(table)[0])
}

func TestFilterAndOrder(t *testing.T) {
	table := execSQL(t, "SELECT name FROM $planets WHERE id = 3 ORDER BY name")
	require.Equal(t, 1, table.NumRows())
	require.Equal(t, "Earth", column(t, table, "name")[0])
}

func TestSelfJoinUsing(t *testing.T) {
	table := execSQL(t, "SELECT * FROM $planets INNER JOIN $planets USING (name, id)")
	require.Equal(t, 9, table.NumRows())
	// id and name are coalesced; mass survives from both sides.
	require.Equal(t, 4, table.NumColumns())
	names := column(t, table, "name")
	require.Contains(t, names, "Earth")
}

func TestProjectionAliasAndLimit(t *testing.T) {
	table := execSQL(t, "SELECT UPPER(name) AS n FROM $planets LIMIT 2")
	require.Equal(t, 2, table.NumRows())
	vals := column(t, table, "n")
	require.Equal(t, "MERCURY", vals[0])
	require.Equal(t, "VENUS", vals[1])
}

func TestGenerateSeries(t *testing.T) {
	table := execSQL(t, "SELECT GENERATE_SERIES(1,5) AS i")
	require.Equal(t, 5, table.NumRows())
	vals := column(t, table, "i")
	for i := 0; i < 5; i++ {
		require.Equal(t, int64(i+1), vals[i])
	}
}

func TestGroupByHaving(t *testing.T) {
	table := execSQL(t, "SELECT id, SUM(mass) FROM $planets GROUP BY id HAVING SUM(mass) > 0")
	require.Equal(t, 9, table.NumRows())
	ids := column(t, table, "id")
	seen := map[interface{}]bool{}
	for _, id := range ids {
		require.False(t, seen[id], "duplicate group for id %v", id)
		seen[id] = true
	}
}

func TestLimitZeroYieldsEmpty(t *testing.T) {
	table := execSQL(t, "SELECT name FROM $planets LIMIT 0")
	require.Equal(t, 0, table.NumRows())
}

func TestDistinctOverEmptyRelation(t *testing.T) {
	table := execSQL(t, "SELECT DISTINCT name FROM $planets WHERE id > 100")
	require.Equal(t, 0, table.NumRows())
}

func TestHeapSortLargerThanInputIsFullSort(t *testing.T) {
	table := execSQL(t, "SELECT name FROM $planets ORDER BY mass LIMIT 100")
	require.Equal(t, 9, table.NumRows())
	names := column(t, table, "name")
	require.Equal(t, "Pluto", names[0])
	require.Equal(t, "Jupiter", names[8])
}

func TestCountStarOverEmptyInput(t *testing.T) {
	table := execSQL(t, "SELECT COUNT(*) FROM $planets WHERE id > 100")
	require.Equal(t, 1, table.NumRows())
	require.Equal(t, int64(0), firstColumn(table)[0])
}

func TestPositionalParameters(t *testing.T) {
	table := execSQL(t, "SELECT name FROM $planets WHERE id = ?", int64(5))
	require.Equal(t, 1, table.NumRows())
	require.Equal(t, "Jupiter", column(t, table, "name")[0])
}

func TestParameterCountMismatch(t *testing.T) {
	e := New(WithConfig(config.Default()))
	_, err := e.Execute(context.Background(), "SELECT name FROM $planets WHERE id = ?", nil)
	require.Error(t, err)
	require.True(t, errkind.ParameterError.Is(err))
}

func TestUnknownDatasetFails(t *testing.T) {
	e := New(WithConfig(config.Default()))
	_, err := e.Execute(context.Background(), "SELECT * FROM nope", nil)
	require.Error(t, err)
	require.True(t, errkind.DatasetNotFound.Is(err))
}

func TestEmptyStatementFails(t *testing.T) {
	e := New(WithConfig(config.Default()))
	_, err := e.Execute(context.Background(), "   ", nil)
	require.Error(t, err)
	require.True(t, errkind.MissingSqlStatement.Is(err))
}

func TestMultiStatementReturnsLast(t *testing.T) {
	table := execSQL(t, "SELECT id FROM $planets LIMIT 1; SELECT name FROM $planets WHERE id = 2")
	require.Equal(t, 1, table.NumRows())
	require.Equal(t, "Venus", column(t, table, "name")[0])
}

func TestExplainDoesNotExecute(t *testing.T) {
	table := execSQL(t, "EXPLAIN SELECT name FROM $planets WHERE id = 1")
	require.Equal(t, 1, table.NumRows())
	plan, ok := firstColumn(table)[0].(string)
	require.True(t, ok)
	require.Contains(t, plan, "InternalDataset")
}

func TestShowVariables(t *testing.T) {
	table := execSQL(t, "SHOW VARIABLES")
	require.Greater(t, table.NumRows(), 0)
	require.Contains(t, column(t, table, "name"), "morsel_size")
	require.Contains(t, column(t, table, "name"), "engine_version")
}

func TestCancellationBetweenBatches(t *testing.T) {
	e := New(WithConfig(config.Default()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Execute(ctx, "SELECT name FROM $planets", nil)
	if err == nil {
		_, err = res.ReadAll()
	}
	require.Error(t, err)
	require.True(t, errkind.Cancelled.Is(err))
}

func TestDeadlineExceeded(t *testing.T) {
	e := New(WithConfig(config.Default()))
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	res, err := e.Execute(ctx, "SELECT name FROM $planets", nil)
	if err == nil {
		_, err = res.ReadAll()
	}
	require.Error(t, err)
	require.True(t, errkind.Cancelled.Is(err))
}

type queryOnly struct{}

func (queryOnly) HasPermission(p logicalplan.Permission) bool {
	return p == logicalplan.PermQuery
}

func TestPermissionDenied(t *testing.T) {
	e := New(WithConfig(config.Default()))
	_, err := e.ExecuteWithPermissions(context.Background(), "SHOW VARIABLES", nil, queryOnly{})
	require.Error(t, err)
	require.True(t, errkind.PermissionsError.Is(err))

	res, err := e.ExecuteWithPermissions(context.Background(), "SELECT COUNT(*) FROM $planets", nil, queryOnly{})
	require.NoError(t, err)
	_, err = res.ReadAll()
	require.NoError(t, err)
}

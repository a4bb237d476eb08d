package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	morselq "github.com/morselq/morselq"
	"github.com/morselq/morselq/config"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/logicalplan"
)

func testConnection(t *testing.T, opts ...ConnectionOption) *Connection {
	t.Helper()
	return NewConnection(morselq.New(morselq.WithConfig(config.Default())), opts...)
}

func TestCursorExecuteAndArrow(t *testing.T) {
	cur := testConnection(t).Cursor()
	require.NoError(t, cur.Execute(context.Background(), "SELECT COUNT(*) FROM $planets"))

	table, err := cur.Arrow()
	require.NoError(t, err)
	require.Equal(t, 1, table.NumRows())
	require.Equal(t, int64(9), table.Column(table.Schema[0].Identity)[0])

	// Arrow is memoised; a second call must not re-drain the stream.
	again, err := cur.Arrow()
	require.NoError(t, err)
	require.Same(t, table, again)
}

func TestCursorIsSingleShot(t *testing.T) {
	cur := testConnection(t).Cursor()
	require.NoError(t, cur.Execute(context.Background(), "SELECT 1"))
	err := cur.Execute(context.Background(), "SELECT 2")
	require.Error(t, err)
	require.True(t, errkind.CursorInvalidState.Is(err))
}

func TestArrowBeforeExecuteFails(t *testing.T) {
	cur := testConnection(t).Cursor()
	_, err := cur.Arrow()
	require.Error(t, err)
	require.True(t, errkind.CursorInvalidState.Is(err))
}

func TestCursorStats(t *testing.T) {
	cur := testConnection(t).Cursor()
	require.NoError(t, cur.Execute(context.Background(), "SELECT name FROM $planets"))
	_, err := cur.Arrow()
	require.NoError(t, err)

	stats := cur.Stats()
	require.Equal(t, int64(9), stats["rows_read"])
}

func TestConnectionPermissions(t *testing.T) {
	conn := testConnection(t, WithPermissions(logicalplan.PermQuery))
	cur := conn.Cursor()
	err := cur.Execute(context.Background(), "SHOW VARIABLES")
	require.Error(t, err)
	require.True(t, errkind.PermissionsError.Is(err))

	cur = conn.Cursor()
	require.NoError(t, cur.Execute(context.Background(), "SELECT name FROM $planets"))
}

func TestUnrestrictedConnectionHoldsAllPermissions(t *testing.T) {
	conn := testConnection(t)
	require.True(t, conn.HasPermission(logicalplan.PermQuery))
	require.True(t, conn.HasPermission(logicalplan.PermShow))
	require.True(t, conn.HasPermission(logicalplan.PermExplain))
}

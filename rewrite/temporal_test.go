package rewrite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveDefaultsToToday(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	var f *TemporalFilter
	start, end := f.Resolve(now)
	require.Equal(t, today, start)
	require.Equal(t, today, end)
}

func TestResolveExplicitRange(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	s := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	e := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	start, end := (&TemporalFilter{Start: &s, End: &e}).Resolve(now)
	require.Equal(t, s, start)
	require.Equal(t, e, end)

	// A single date scopes to that one day.
	start, end = (&TemporalFilter{Start: &s}).Resolve(now)
	require.Equal(t, s, start)
	require.Equal(t, s, end)
}

func TestResolveNamedRanges(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	start, end := (&TemporalFilter{HasNamed: true, Named: Yesterday}).Resolve(now)
	require.Equal(t, today.AddDate(0, 0, -1), start)
	require.Equal(t, today.AddDate(0, 0, -1), end)

	start, end = (&TemporalFilter{HasNamed: true, Named: ThisMonth}).Resolve(now)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, today, end)

	start, end = (&TemporalFilter{HasNamed: true, Named: LastMonth}).Resolve(now)
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), end)

	start, end = (&TemporalFilter{HasNamed: true, Named: ThisCycle}).Resolve(now)
	require.Equal(t, today.AddDate(0, 0, -27), start)
	require.Equal(t, today, end)
}

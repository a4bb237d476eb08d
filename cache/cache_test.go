package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, c Cache) {
	t.Helper()

	ok, err := c.Contains("bucket/file.jsonl")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = c.Get("bucket/file.jsonl")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Put("bucket/file.jsonl", []byte("payload")))

	ok, err = c.Contains("bucket/file.jsonl")
	require.NoError(t, err)
	require.True(t, ok)

	got, ok, err := c.Get("bucket/file.jsonl")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("payload"), got)

	// Overwrite replaces, not appends.
	require.NoError(t, c.Put("bucket/file.jsonl", []byte("v2")))
	got, _, err = c.Get("bucket/file.jsonl")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	roundTrip(t, c)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	val := []byte("abc")
	require.NoError(t, c.Put("k", val))
	val[0] = 'x'
	got, _, err := c.Get("k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), got)
}

func TestBoltCache(t *testing.T) {
	c, err := NewBoltCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer c.Close()
	roundTrip(t, c)
}

func TestBadgerCache(t *testing.T) {
	c, err := NewBadgerCache(t.TempDir())
	require.NoError(t, err)
	defer c.Close()
	roundTrip(t, c)
}

func TestFactory(t *testing.T) {
	c, err := New("memory", "")
	require.NoError(t, err)
	defer c.Close()
	roundTrip(t, c)

	_, err = New("redis", "")
	require.Error(t, err)
}

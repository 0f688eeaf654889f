package seginfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogAndBakName(t *testing.T) {
	require.Equal(t, "7.log", LogName(7))
	require.Equal(t, "7.bak", BakName(7))
}

func TestParseID(t *testing.T) {
	id, ok := ParseID("42.log")
	require.True(t, ok)
	require.Equal(t, uint64(42), id)

	id, ok = ParseID("42.bak")
	require.True(t, ok)
	require.Equal(t, uint64(42), id)

	_, ok = ParseID("notanumber.log")
	require.False(t, ok)

	_, ok = ParseID("42.hint")
	require.False(t, ok)
}

func TestBoundsEmptyDir(t *testing.T) {
	dir := t.TempDir()

	first, active, ok, err := Bounds(dir)
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, first)
	require.Zero(t, active)
}

func TestBoundsAndListSegmentIDs(t *testing.T) {
	dir := t.TempDir()

	for _, id := range []uint64{3, 1, 2} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, LogName(id)), nil, 0644))
	}
	// a .bak file must never be counted as a visible segment.
	require.NoError(t, os.WriteFile(filepath.Join(dir, BakName(9)), nil, 0644))

	ids, err := ListSegmentIDs(dir)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, ids)

	first, active, ok, err := Bounds(dir)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), first)
	require.Equal(t, uint64(3), active)
}

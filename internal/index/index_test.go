package index

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIndex(t *testing.T) *Index {
	idx, err := New(&Config{Logger: zap.NewNop().Sugar()})
	require.NoError(t, err)
	return idx
}

func TestNewRejectsMissingConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	_, err = New(&Config{})
	require.Error(t, err)
}

func TestPutGetDelete(t *testing.T) {
	idx := newTestIndex(t)

	_, ok := idx.Get("a")
	require.False(t, ok)

	idx.Put("a", Position{FileID: 1, Offset: 10})
	pos, ok := idx.Get("a")
	require.True(t, ok)
	require.Equal(t, Position{FileID: 1, Offset: 10}, pos)
	require.Equal(t, 1, idx.Len())

	require.True(t, idx.Delete("a"))
	require.False(t, idx.Delete("a"))
	_, ok = idx.Get("a")
	require.False(t, ok)
}

func TestSnapshotIsACopy(t *testing.T) {
	idx := newTestIndex(t)
	idx.Put("a", Position{FileID: 1, Offset: 0})

	snap := idx.Snapshot()
	snap["b"] = Position{FileID: 2, Offset: 0}

	require.Equal(t, 1, idx.Len())
	_, ok := idx.Get("b")
	require.False(t, ok)
}

func TestReplaceSwapsContents(t *testing.T) {
	idx := newTestIndex(t)
	idx.Put("a", Position{FileID: 1, Offset: 0})

	idx.Replace(map[string]Position{"b": {FileID: 2, Offset: 5}})

	_, ok := idx.Get("a")
	require.False(t, ok)
	pos, ok := idx.Get("b")
	require.True(t, ok)
	require.Equal(t, Position{FileID: 2, Offset: 5}, pos)
}

func TestCloseClearsIndex(t *testing.T) {
	idx := newTestIndex(t)
	idx.Put("a", Position{FileID: 1, Offset: 0})
	require.NoError(t, idx.Close())
	require.Equal(t, 0, idx.Len())
}

package compaction

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dreamerlzl/ignitekv/internal/record"
	"github.com/dreamerlzl/ignitekv/pkg/seginfo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeSegment(t *testing.T, dir string, id uint64, recs []record.Record) {
	t.Helper()
	var buf bytes.Buffer
	for _, r := range recs {
		require.NoError(t, record.Encode(&buf, r))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, seginfo.LogName(id)), buf.Bytes(), 0644))
}

func TestRunNoOpWhenNothingClosed(t *testing.T) {
	dir := t.TempDir()
	result, err := Run(dir, 1, 1, 1024, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.FirstID)
	require.Equal(t, uint64(1), result.LastWrittenID)
	require.Empty(t, result.Index)
}

func TestRunDropsOverwrittenAndRemovedKeys(t *testing.T) {
	dir := t.TempDir()

	writeSegment(t, dir, 1, []record.Record{
		record.Set("a", "1"),
		record.Set("b", "1"),
	})
	writeSegment(t, dir, 2, []record.Record{
		record.Set("a", "2"),
		record.Remove("b"),
		record.Set("c", "1"),
	})
	// active segment (id 3) must never be touched by compaction.
	writeSegment(t, dir, 3, []record.Record{record.Set("d", "1")})

	result, err := Run(dir, 1, 3, 1024*1024, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.Len(t, result.Index, 2)
	_, hasB := result.Index["b"]
	require.False(t, hasB)

	// the surviving segments must actually contain "a"=2 and "c"=1 at the
	// recorded offsets, and segment 3 must be untouched.
	for key, expected := range map[string]string{"a": "2", "c": "1"} {
		pos, ok := result.Index[key]
		require.True(t, ok)

		f, err := os.Open(filepath.Join(dir, seginfo.LogName(pos.FileID)))
		require.NoError(t, err)
		_, err = f.Seek(pos.Offset, 0)
		require.NoError(t, err)

		rec, _, err := record.NewReader(f).Next()
		require.NoError(t, err)
		require.Equal(t, key, rec.Key)
		require.Equal(t, expected, rec.Value)
		require.NoError(t, f.Close())
	}

	_, err = os.Stat(filepath.Join(dir, seginfo.LogName(3)))
	require.NoError(t, err)
}

func TestRunRespectsRotationThresholdOnRewrite(t *testing.T) {
	dir := t.TempDir()

	writeSegment(t, dir, 1, []record.Record{
		record.Set("a", "aaaaaaaaaa"),
		record.Set("b", "bbbbbbbbbb"),
		record.Set("c", "cccccccccc"),
	})
	// the active segment sits at id 4, leaving ids 1..3 free for output.
	writeSegment(t, dir, 4, []record.Record{record.Set("active-only", "x")})

	// small enough that 3 records can't all fit in one compacted segment.
	result, err := Run(dir, 1, 4, 40, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.LastWrittenID, result.FirstID)
	require.Len(t, result.Index, 3)
}

func TestRunDeletesSupersededSegments(t *testing.T) {
	dir := t.TempDir()

	writeSegment(t, dir, 1, []record.Record{record.Set("a", "1")})
	writeSegment(t, dir, 2, []record.Record{record.Set("a", "2")})
	writeSegment(t, dir, 3, []record.Record{record.Set("active", "x")})

	_, err := Run(dir, 1, 3, 1024*1024, zap.NewNop().Sugar())
	require.NoError(t, err)

	// segment 2's data was folded into segment 1's rewrite; the old
	// segment 2 file must be gone, segment 3 (active) must remain.
	_, err = os.Stat(filepath.Join(dir, seginfo.LogName(2)))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, seginfo.LogName(3)))
	require.NoError(t, err)
}

package kvs

import (
	"fmt"
	"testing"
	"time"

	ignerrors "github.com/dreamerlzl/ignitekv/pkg/errors"
	"github.com/dreamerlzl/ignitekv/pkg/options"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testOptions(t *testing.T, rotation uint64) *options.Options {
	t.Helper()
	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.CompactInterval = time.Hour
	opts.SegmentOptions.RotationThreshold = rotation
	return &opts
}

func openEngine(t *testing.T, opts *options.Options) *Engine {
	t.Helper()
	e, err := Open(opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestSetGetOverwriteAndEmptyValue(t *testing.T) {
	e := openEngine(t, testOptions(t, options.MinRotationThreshold))

	require.NoError(t, e.Set("k", ""))
	v, err := e.Get("k")
	require.NoError(t, err)
	require.Equal(t, "", v)

	require.NoError(t, e.Set("k", "a"))
	require.NoError(t, e.Set("k", "b"))
	v, err = e.Get("k")
	require.NoError(t, err)
	require.Equal(t, "b", v)
}

func TestGetMissingKey(t *testing.T) {
	e := openEngine(t, testOptions(t, options.MinRotationThreshold))

	_, err := e.Get("missing")
	require.Error(t, err)
	require.True(t, ignerrors.IsKeyNotFoundError(err))
}

func TestRemoveAbsentKeyFails(t *testing.T) {
	e := openEngine(t, testOptions(t, options.MinRotationThreshold))

	err := e.Remove("ghost")
	require.Error(t, err)
	require.True(t, ignerrors.IsKeyNotFoundError(err))
}

func TestRemoveThenGetMisses(t *testing.T) {
	e := openEngine(t, testOptions(t, options.MinRotationThreshold))

	require.NoError(t, e.Set("k", "v"))
	require.NoError(t, e.Remove("k"))

	_, err := e.Get("k")
	require.True(t, ignerrors.IsKeyNotFoundError(err))
	require.Error(t, e.Remove("k"))
}

func TestDurabilityAcrossReopen(t *testing.T) {
	opts := testOptions(t, options.MinRotationThreshold)

	e := openEngine(t, opts)
	require.NoError(t, e.Set("a", "1"))
	require.NoError(t, e.Set("b", "2"))
	require.NoError(t, e.Remove("b"))
	require.NoError(t, e.Close())

	reopened, err := Open(opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get("a")
	require.NoError(t, err)
	require.Equal(t, "1", v)

	_, err = reopened.Get("b")
	require.True(t, ignerrors.IsKeyNotFoundError(err))
}

func TestRotationCreatesNewSegments(t *testing.T) {
	e := openEngine(t, testOptions(t, options.MinRotationThreshold))

	for i := 0; i < 2000; i++ {
		require.NoError(t, e.Set(fmt.Sprintf("key-%d", i), "some reasonably sized value to force rotation"))
	}

	require.Greater(t, e.storage.ActiveID(), uint64(1))

	for i := 0; i < 2000; i++ {
		v, err := e.Get(fmt.Sprintf("key-%d", i))
		require.NoError(t, err)
		require.Equal(t, "some reasonably sized value to force rotation", v)
	}
}

func TestCompactionPreservesLatestValues(t *testing.T) {
	e := openEngine(t, testOptions(t, options.MinRotationThreshold))

	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("k%d", i%20)
		require.NoError(t, e.Set(key, fmt.Sprintf("v%d", i)))
	}

	preCompactKeys := e.index.Len()

	require.NoError(t, e.Compact())

	require.Equal(t, preCompactKeys, e.index.Len())
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("k%d", i)
		v, err := e.Get(key)
		require.NoError(t, err)
		require.NotEmpty(t, v)
	}
}

func TestCompactionThenReopenIsIndistinguishable(t *testing.T) {
	opts := testOptions(t, options.MinRotationThreshold)
	e := openEngine(t, opts)

	for i := 0; i < 50; i++ {
		require.NoError(t, e.Set("k", fmt.Sprintf("v%d", i)))
	}
	require.NoError(t, e.Compact())

	want, err := e.Get("k")
	require.NoError(t, err)

	require.NoError(t, e.Close())

	reopened, err := Open(opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("k")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestStatsReflectsEngineState(t *testing.T) {
	e := openEngine(t, testOptions(t, options.MinRotationThreshold))

	require.NoError(t, e.Set("a", "1"))
	stats := e.Stats()
	require.Equal(t, 1, stats.Keys)
	require.Equal(t, e.storage.ActiveID(), stats.ActiveSegmentID)
}

func TestOperationsFailAfterClose(t *testing.T) {
	e := openEngine(t, testOptions(t, options.MinRotationThreshold))
	require.NoError(t, e.Close())

	require.ErrorIs(t, e.Set("a", "1"), ErrEngineClosed)
	_, err := e.Get("a")
	require.ErrorIs(t, err, ErrEngineClosed)
	require.ErrorIs(t, e.Remove("a"), ErrEngineClosed)
	require.ErrorIs(t, e.Close(), ErrEngineClosed)
}

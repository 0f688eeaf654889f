package boltengine

import (
	"testing"

	ignerrors "github.com/dreamerlzl/ignitekv/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestSetGetOverwrite(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Set("a", "1"))
	v, err := e.Get("a")
	require.NoError(t, err)
	require.Equal(t, "1", v)

	require.NoError(t, e.Set("a", "2"))
	v, err = e.Get("a")
	require.NoError(t, err)
	require.Equal(t, "2", v)
}

func TestGetMissing(t *testing.T) {
	e := openTestEngine(t)

	_, err := e.Get("missing")
	require.Error(t, err)
	require.True(t, ignerrors.IsKeyNotFoundError(err))
}

func TestRemove(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Set("a", "1"))
	require.NoError(t, e.Remove("a"))

	_, err := e.Get("a")
	require.True(t, ignerrors.IsKeyNotFoundError(err))

	err = e.Remove("a")
	require.True(t, ignerrors.IsKeyNotFoundError(err))
}

func TestDataSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, e.Set("a", "1"))
	require.NoError(t, e.Close())

	reopened, err := Open(dir, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get("a")
	require.NoError(t, err)
	require.Equal(t, "1", v)
}

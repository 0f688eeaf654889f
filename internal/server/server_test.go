package server

import (
	"sync"
	"testing"
	"time"

	"github.com/dreamerlzl/ignitekv/internal/client"
	"github.com/dreamerlzl/ignitekv/internal/kvs"
	"github.com/dreamerlzl/ignitekv/pkg/options"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *client.Client) {
	t.Helper()

	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.CompactInterval = time.Hour
	opts.SegmentOptions.RotationThreshold = options.MinRotationThreshold

	eng, err := kvs.Open(&opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	srv, err := New(&Config{
		Addr:     "127.0.0.1:0",
		Engine:   eng,
		PoolSize: 4,
		Logger:   zap.NewNop().Sugar(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	go srv.Serve()

	c, err := client.Dial(srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return srv, c
}

func TestEndToEndSetGetRemove(t *testing.T) {
	_, c := newTestServer(t)

	require.NoError(t, c.Set("a", "1"))
	require.NoError(t, c.Set("b", "2"))

	v, found, err := c.Get("a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "1", v)

	_, found, err = c.Get("missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.Remove("a"))
	_, found, err = c.Get("a")
	require.NoError(t, err)
	require.False(t, found)

	err = c.Remove("a")
	require.Error(t, err)
}

func TestSequentialRequestsOnOneConnectionRespondInOrder(t *testing.T) {
	_, c := newTestServer(t)

	for i := 0; i < 20; i++ {
		require.NoError(t, c.Set("k", "v1"))
		v, found, err := c.Get("k")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "v1", v)
	}
}

func TestConcurrentConnectionsShareEngineState(t *testing.T) {
	srv, seed := newTestServer(t)
	require.NoError(t, seed.Set("shared", "v"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := client.Dial(srv.Addr())
			require.NoError(t, err)
			defer c.Close()

			v, found, err := c.Get("shared")
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "v", v)
		}()
	}
	wg.Wait()
}

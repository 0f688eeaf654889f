package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSpawnRunsAllJobs(t *testing.T) {
	p := New(4, zap.NewNop().Sugar())
	defer p.Close()

	const n = 100
	var wg sync.WaitGroup
	var done int32
	wg.Add(n)
	for i := 0; i < n; i++ {
		p.Spawn(func() {
			atomic.AddInt32(&done, 1)
			wg.Done()
		})
	}

	waitOrTimeout(t, &wg, time.Second)
	require.EqualValues(t, n, atomic.LoadInt32(&done))
}

func TestPanicInOneJobDoesNotStopOthers(t *testing.T) {
	p := New(2, zap.NewNop().Sugar())
	defer p.Close()

	const n = 50
	var wg sync.WaitGroup
	var completed int32
	wg.Add(n)

	for i := 0; i < n; i++ {
		i := i
		p.Spawn(func() {
			defer wg.Done()
			if i%5 == 0 {
				panic("boom")
			}
			atomic.AddInt32(&completed, 1)
		})
	}

	waitOrTimeout(t, &wg, 2*time.Second)
	require.EqualValues(t, n-n/5, atomic.LoadInt32(&completed))
}

func TestNaivePoolRunsJobs(t *testing.T) {
	p := NewNaive(0, nil)
	defer p.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var ran bool
	p.Spawn(func() {
		ran = true
		wg.Done()
	})
	waitOrTimeout(t, &wg, time.Second)
	require.True(t, ran)
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for jobs to complete")
	}
}

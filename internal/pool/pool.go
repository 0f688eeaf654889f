// Package pool implements a fixed-size worker pool that survives panicking
// workers: a shared job channel, N long-running workers reading from it,
// and a recover-and-respawn guard around each job so a panic never shrinks
// the pool.
package pool

import (
	"go.uber.org/zap"
)

// Job is a unit of work submitted to a Pool.
type Job func()

// Pool accepts jobs and runs them on a bounded set of workers.
type Pool interface {
	Spawn(job Job)
	Close()
}

// SharedQueuePool is the production pool: N workers draining one shared,
// unbuffered channel. A worker that panics while running a job is replaced
// by a fresh worker reading from the same channel, so pool size is restored
// without tearing down the other workers or losing queued jobs.
type SharedQueuePool struct {
	jobs chan Job
	stop chan struct{}
	log  *zap.SugaredLogger
}

// New creates a SharedQueuePool of n workers. A non-positive n is treated
// as 1.
func New(n int, log *zap.SugaredLogger) *SharedQueuePool {
	if n <= 0 {
		n = 1
	}

	p := &SharedQueuePool{
		jobs: make(chan Job),
		stop: make(chan struct{}),
		log:  log,
	}

	for i := 0; i < n; i++ {
		p.spawnWorker()
	}

	return p
}

// Spawn enqueues job to run on some worker. It blocks until a worker
// accepts it or the pool is closed, matching the unbounded-channel
// semantics of the reference implementation closely enough for a bounded
// worker count: there is no queue depth limit here beyond what Go's
// unbuffered channel handoff implies.
func (p *SharedQueuePool) Spawn(job Job) {
	select {
	case p.jobs <- job:
	case <-p.stop:
	}
}

// Close signals every worker to exit after its current job. It does not
// wait for in-flight jobs to finish.
func (p *SharedQueuePool) Close() {
	close(p.stop)
}

func (p *SharedQueuePool) spawnWorker() {
	go func() {
		for {
			select {
			case <-p.stop:
				return
			case job, ok := <-p.jobs:
				if !ok {
					return
				}
				if p.runJob(job) {
					return
				}
			}
		}
	}()
}

// runJob executes job behind a sentinel: if job panics, the sentinel
// recovers, respawns a replacement worker, and reports the panic so the
// calling worker exits. The pool's worker count stays the same and the
// panic never propagates anywhere that would crash the process.
func (p *SharedQueuePool) runJob(job Job) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			if p.log != nil {
				p.log.Errorw("worker panicked, respawning", "panic", r)
			}
			p.spawnWorker()
			panicked = true
		}
	}()

	job()
	return false
}

// NaivePool spawns a bare goroutine per job with no panic containment and
// no fixed worker count. It exists for tests that want to exercise the
// engine or server without pool overhead; the server itself is always
// wired to SharedQueuePool.
type NaivePool struct{}

// NewNaive returns a NaivePool. The arguments are accepted for symmetry
// with New but otherwise ignored — NaivePool has no fixed size.
func NewNaive(int, *zap.SugaredLogger) *NaivePool {
	return &NaivePool{}
}

func (p *NaivePool) Spawn(job Job) {
	go job()
}

func (p *NaivePool) Close() {}

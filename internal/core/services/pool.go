package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/logger"
)

// errPoolClosed is returned when submitting to a closed pool.
var errPoolClosed = errors.New("decode pool closed")

type poolJob struct {
	ctx  context.Context
	run  func(context.Context) error
	done chan error
}

// decodePool runs CPU-bound decode jobs on a fixed set of goroutines,
// fed through a bounded channel.
type decodePool struct {
	jobs chan poolJob
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newDecodePool(workers, queueSize int) *decodePool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &decodePool{jobs: make(chan poolJob, queueSize)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *decodePool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job.done <- runJob(job)
	}
}

// runJob converts a panic inside the job into domain.ErrDecoderFault.
func runJob(job poolJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("decoder panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("%w: %v", domain.ErrDecoderFault, r)
		}
	}()
	if err := job.ctx.Err(); err != nil {
		return err
	}
	return job.run(job.ctx)
}

// Do runs fn on the pool and waits for it. Once submitted, fn always runs
// to completion before Do returns, so anything fn touches may be released
// by the caller afterwards; fn is expected to honour ctx.
func (p *decodePool) Do(ctx context.Context, fn func(context.Context) error) error {
	job := poolJob{ctx: ctx, run: fn, done: make(chan error, 1)}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return errPoolClosed
	}
	select {
	case p.jobs <- job:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	return <-job.done
}

// Close stops accepting jobs, lets queued jobs finish and waits for the
// workers to exit.
func (p *decodePool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

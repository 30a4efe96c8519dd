package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/noahsabaj/voxelcore/internal/common/logger"
)

// ComputePool is the engine's shared bounded-concurrency executor for
// background CPU work that doesn't belong to any one subsystem's own
// worker pool. No engine subsystem submits to it: the predictive
// loader's requests go through the stream pipeline instead. It is the
// "thread pool" the teardown order closes last.
type ComputePool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewComputePool builds a pool that runs at most maxConcurrent tasks at
// once.
func NewComputePool(maxConcurrent int64) *ComputePool {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &ComputePool{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Submit blocks until a slot is free (or ctx is canceled), then runs fn
// on its own goroutine.
func (p *ComputePool) Submit(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		fn()
	}()
	return nil
}

// Close waits for every submitted task to finish. It never returns an
// error; the signature matches resources.Closer for use with
// ResourceManager.
func (p *ComputePool) Close() error {
	p.wg.Wait()
	logger.Debug("engine: compute pool drained")
	return nil
}

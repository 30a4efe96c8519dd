package streaming

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/noahsabaj/voxelcore/internal/common/logger"
	"github.com/noahsabaj/voxelcore/internal/common/retry"
	"github.com/noahsabaj/voxelcore/internal/config"
	"github.com/noahsabaj/voxelcore/internal/paging"
)

// RequestSource records why a page request was made, for stats and
// priority bookkeeping.
type RequestSource int

const (
	SourceFault RequestSource = iota
	SourcePrediction
	SourcePrefetch
	SourceManual
)

// Request is one page the pipeline has been asked to make resident.
type Request struct {
	PageX, PageY, PageZ uint32
	Priority            float64
	Source              RequestSource
}

// Stats summarizes pipeline activity since construction.
type Stats struct {
	PagesLoaded        uint64
	FaultsHandled      uint64
	PredictionsHandled uint64
	Retries            uint64
}

// Pipeline drains two request sources into a bounded-concurrency worker
// pool: the paged store's fault ring (pages some other subsystem already
// marked streaming and is waiting on) and a direct submission channel
// (predictive prefetch, manual warm-up). Both ultimately call into the
// same store, so Resident-bit publication only ever happens after a
// page's upload has actually completed.
type Pipeline struct {
	store *paging.Store

	limiter *rate.Limiter
	sem     chan struct{}

	retryCfg retry.Config
	requests chan Request

	faultsHandled      atomic.Uint64
	predictionsHandled atomic.Uint64
	pagesLoaded        atomic.Uint64
	retries            atomic.Uint64

	wg sync.WaitGroup
}

// NewPipeline builds a pipeline over store using cfg's concurrency and
// retry knobs.
func NewPipeline(store *paging.Store, cfg config.StreamingConfig) *Pipeline {
	maxConcurrent := cfg.MaxConcurrentUploads
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = 100 * time.Millisecond
	}

	return &Pipeline{
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(maxConcurrent*10), maxConcurrent),
		sem:     make(chan struct{}, maxConcurrent),
		retryCfg: retry.Config{
			MaxAttempts:  maxAttempts,
			InitialDelay: initialBackoff,
			MaxDelay:     initialBackoff * 8,
			Multiplier:   2.0,
			Strategy:     retry.StrategyExponential,
			Jitter:       true,
			RetryIf:      retry.IsRetryable,
		},
		requests: make(chan Request, 1024),
	}
}

// Submit enqueues a request for direct fulfillment (predictive prefetch,
// manual warm-up). Drops the request and logs if the queue is full —
// prefetch is best-effort, never a guarantee.
func (p *Pipeline) Submit(req Request) {
	select {
	case p.requests <- req:
	default:
		logger.Warn("streaming: request queue full, dropping page (%d,%d,%d)", req.PageX, req.PageY, req.PageZ)
	}
}

// Run drains both request sources until ctx is canceled. It blocks the
// calling goroutine; callers typically run it in its own goroutine.
func (p *Pipeline) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			return
		case req := <-p.requests:
			p.dispatch(ctx, req, false)
		case <-ticker.C:
			for _, f := range p.store.Faults().Drain(32) {
				p.dispatch(ctx, Request{PageX: f.PageX, PageY: f.PageY, PageZ: f.PageZ, Priority: float64(f.Priority), Source: SourceFault}, true)
			}
		}
	}
}

// dispatch waits for a rate-limiter token and a free worker slot, then
// fulfills the request on its own goroutine. fromRing distinguishes a
// fault-ring entry (already reserved by its original RequestPage caller,
// so it only needs fulfilling) from a directly submitted request (which
// still needs to win its own streaming reservation).
func (p *Pipeline) dispatch(ctx context.Context, req Request, fromRing bool) {
	if err := p.limiter.Wait(ctx); err != nil {
		return
	}
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		p.fulfill(ctx, req, fromRing)
	}()
}

func (p *Pipeline) fulfill(ctx context.Context, req Request, fromRing bool) {
	result := retry.Do(ctx, func(ctx context.Context) error {
		if fromRing {
			return p.store.FulfillFault(ctx, paging.Fault{
				PageX: req.PageX, PageY: req.PageY, PageZ: req.PageZ,
				Access: paging.AccessRead, Priority: uint32(req.Priority),
			})
		}
		return p.store.EnsureResident(ctx, req.PageX, req.PageY, req.PageZ, paging.AccessRead, uint32(req.Priority))
	}, p.retryCfg)

	if req.Source == SourceFault {
		p.faultsHandled.Add(1)
	} else {
		p.predictionsHandled.Add(1)
	}
	if result.Success {
		p.pagesLoaded.Add(1)
	}
	if result.Attempts > 1 {
		p.retries.Add(uint64(result.Attempts - 1))
	}
	if !result.Success && result.LastError != nil {
		logger.Debug("streaming: giving up on page (%d,%d,%d) after %d attempts: %v",
			req.PageX, req.PageY, req.PageZ, result.Attempts, result.LastError)
	}
}

// Stats returns a snapshot of pipeline activity.
func (p *Pipeline) Stats() Stats {
	return Stats{
		PagesLoaded:        p.pagesLoaded.Load(),
		FaultsHandled:      p.faultsHandled.Load(),
		PredictionsHandled: p.predictionsHandled.Load(),
		Retries:            p.retries.Load(),
	}
}

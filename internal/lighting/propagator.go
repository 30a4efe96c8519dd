package lighting

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/noahsabaj/voxelcore/internal/common/logger"
	"github.com/noahsabaj/voxelcore/internal/config"
	"github.com/noahsabaj/voxelcore/internal/voxel"
)

const requestQueueCapacity = 1 << 16

// Stats is a point-in-time snapshot of propagator activity.
type Stats struct {
	Processed         uint64
	ChunksAffected    uint64
	CrossChunkRequeues uint64
}

// Propagator drains queued light requests in per-chunk batches, each
// batch processed under that chunk's own lock so two ticks' batches for
// the same chunk never race, while unrelated chunks process
// concurrently through an errgroup-bounded fan-out.
type Propagator struct {
	chunkSize    uint32
	maxLight     uint8
	falloff      uint8
	iterationCap int

	source ChunkSource

	requests chan LightRequest
	jobLocks sync.Map // voxel.ChunkPos -> *sync.Mutex

	processed          atomic.Uint64
	chunksAffected     atomic.Uint64
	crossChunkRequeues atomic.Uint64
}

// NewPropagator builds a propagator over source using cfg's light
// ceiling, falloff, and per-batch iteration cap.
func NewPropagator(chunkSize uint32, cfg config.LightingConfig, source ChunkSource) *Propagator {
	cap := cfg.IterationCap
	if cap <= 0 {
		cap = 65536
	}
	return &Propagator{
		chunkSize:    chunkSize,
		maxLight:     cfg.MaxLight,
		falloff:      cfg.Falloff,
		iterationCap: cap,
		source:       source,
		requests:     make(chan LightRequest, requestQueueCapacity),
	}
}

// Queue enqueues a request for the next ProcessPending call. Requests
// past the queue's capacity are dropped with a warning rather than
// applying backpressure to the caller (a tick driver shouldn't block on
// lighting).
func (p *Propagator) Queue(req LightRequest) {
	select {
	case p.requests <- req:
	default:
		logger.Warn("lighting: request queue full, dropping update for %v", req.Pos)
	}
}

// AddLight queues a light source addition/raise at pos.
func (p *Propagator) AddLight(pos voxel.VoxelPos, channel LightChannel, level uint8) {
	p.Queue(LightRequest{Pos: pos, Channel: channel, Level: level})
}

// RemoveLight queues removal of whatever light level currently occupies
// pos on channel. If the position's chunk isn't loaded there is nothing
// to unwind.
func (p *Propagator) RemoveLight(pos voxel.VoxelPos, channel LightChannel) {
	level, ok := p.currentLevel(pos, channel)
	if !ok || level == 0 {
		return
	}
	p.Queue(LightRequest{Pos: pos, Channel: channel, Level: level, IsRemoval: true})
}

// ProcessPending drains up to maxRequests queued requests, grouped by
// the chunk they target, and processes each chunk's batch concurrently.
// Boundary continuations produced along the way are re-queued for the
// next call rather than processed inline, so one call never cascades
// into unrelated chunks beyond its own iteration cap.
func (p *Propagator) ProcessPending(ctx context.Context, maxRequests int) error {
	grouped := make(map[voxel.ChunkPos][]LightRequest)
	count := 0

drain:
	for count < maxRequests {
		select {
		case req := <-p.requests:
			chunkPos := req.Pos.ToChunkPos(int32(p.chunkSize))
			grouped[chunkPos] = append(grouped[chunkPos], req)
			count++
		default:
			break drain
		}
	}
	if len(grouped) == 0 {
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	var boundaryMu sync.Mutex
	var boundary []LightRequest

	for chunkPos, reqs := range grouped {
		chunkPos, reqs := chunkPos, reqs
		g.Go(func() error {
			more, err := p.processChunkBatch(chunkPos, reqs)
			if err != nil {
				return err
			}
			if len(more) > 0 {
				boundaryMu.Lock()
				boundary = append(boundary, more...)
				boundaryMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, req := range boundary {
		p.Queue(req)
		p.crossChunkRequeues.Add(1)
	}
	return nil
}

func (p *Propagator) processChunkBatch(chunkPos voxel.ChunkPos, reqs []LightRequest) ([]LightRequest, error) {
	lockIface, _ := p.jobLocks.LoadOrStore(chunkPos, &sync.Mutex{})
	lock := lockIface.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := p.source.GetChunk(chunkPos); !ok {
		return nil, nil
	}

	var removalQueue, additionQueue []lightJob
	for _, r := range reqs {
		j := lightJob{pos: r.Pos, channel: r.Channel, level: r.Level}
		if r.IsRemoval {
			removalQueue = append(removalQueue, j)
		} else {
			additionQueue = append(additionQueue, j)
		}
	}

	var boundary []LightRequest
	iterations := 0

	// Removals drain fully before any addition runs, so a block removed
	// and relit in the same tick doesn't leave stale light behind.
	for len(removalQueue) > 0 && iterations < p.iterationCap {
		job := removalQueue[0]
		removalQueue = removalQueue[1:]
		iterations++

		result := p.removeStep(chunkPos, job)
		if result.boundary != nil {
			boundary = append(boundary, *result.boundary)
			continue
		}
		removalQueue = append(removalQueue, result.removals...)
		additionQueue = append(additionQueue, result.additions...)
	}

	for len(additionQueue) > 0 && iterations < p.iterationCap {
		job := additionQueue[0]
		additionQueue = additionQueue[1:]
		iterations++

		boundaryReq, spawned := p.addStep(chunkPos, job)
		if boundaryReq != nil {
			boundary = append(boundary, *boundaryReq)
			continue
		}
		additionQueue = append(additionQueue, spawned...)
	}

	p.processed.Add(uint64(iterations))
	p.chunksAffected.Add(1)
	return boundary, nil
}

func (p *Propagator) addStep(owner voxel.ChunkPos, job lightJob) (*LightRequest, []lightJob) {
	if !p.isTransparent(job.pos) {
		return nil, nil
	}

	chunkPos := job.pos.ToChunkPos(int32(p.chunkSize))
	if chunkPos != owner {
		return &LightRequest{Pos: job.pos, Channel: job.channel, Level: job.level}, nil
	}

	chunk, ok := p.source.GetChunk(chunkPos)
	if !ok {
		return nil, nil
	}

	x, y, z := job.pos.ToLocal(int32(p.chunkSize))
	current := chunk.GetLight(x, y, z)
	currentLevel := current.Sky
	if job.channel == ChannelBlock {
		currentLevel = current.Block
	}
	if job.level <= currentLevel {
		return nil, nil
	}

	updated := current
	if job.channel == ChannelSky {
		updated.Sky = job.level
	} else {
		updated.Block = job.level
	}
	chunk.SetLight(x, y, z, updated)

	if job.level <= p.falloff {
		return nil, nil
	}
	nextLevel := job.level - p.falloff

	spawned := make([]lightJob, 0, 6)
	for _, n := range neighbors6(job.pos) {
		lvl := nextLevel
		if job.channel == ChannelSky && n.Y < job.pos.Y && job.level == p.maxLight {
			lvl = p.maxLight
		}
		spawned = append(spawned, lightJob{pos: n, channel: job.channel, level: lvl})
	}
	return nil, spawned
}

func (p *Propagator) removeStep(owner voxel.ChunkPos, job lightJob) removeResult {
	chunkPos := job.pos.ToChunkPos(int32(p.chunkSize))
	if chunkPos != owner {
		return removeResult{boundary: &LightRequest{Pos: job.pos, Channel: job.channel, Level: job.level, IsRemoval: true}}
	}

	chunk, ok := p.source.GetChunk(chunkPos)
	if !ok {
		return removeResult{}
	}

	x, y, z := job.pos.ToLocal(int32(p.chunkSize))
	current := chunk.GetLight(x, y, z)
	currentLevel := current.Sky
	if job.channel == ChannelBlock {
		currentLevel = current.Block
	}
	if currentLevel != job.level {
		return removeResult{}
	}

	zeroed := current
	if job.channel == ChannelSky {
		zeroed.Sky = 0
	} else {
		zeroed.Block = 0
	}
	chunk.SetLight(x, y, z, zeroed)

	var removals, additions []lightJob
	for _, n := range neighbors6(job.pos) {
		neighborLevel, ok := p.currentLevel(n, job.channel)
		if !ok {
			continue
		}
		switch {
		case neighborLevel > 0 && neighborLevel < job.level:
			removals = append(removals, lightJob{pos: n, channel: job.channel, level: neighborLevel})
		case neighborLevel >= job.level && neighborLevel > 0:
			additions = append(additions, lightJob{pos: n, channel: job.channel, level: neighborLevel})
		}
	}
	return removeResult{removals: removals, additions: additions}
}

func (p *Propagator) currentLevel(pos voxel.VoxelPos, channel LightChannel) (uint8, bool) {
	chunkPos := pos.ToChunkPos(int32(p.chunkSize))
	chunk, ok := p.source.GetChunk(chunkPos)
	if !ok {
		return 0, false
	}
	x, y, z := pos.ToLocal(int32(p.chunkSize))
	light := chunk.GetLight(x, y, z)
	if channel == ChannelBlock {
		return light.Block, true
	}
	return light.Sky, true
}

func (p *Propagator) isTransparent(pos voxel.VoxelPos) bool {
	chunkPos := pos.ToChunkPos(int32(p.chunkSize))
	chunk, ok := p.source.GetChunk(chunkPos)
	if !ok {
		return true
	}
	x, y, z := pos.ToLocal(int32(p.chunkSize))
	if chunk.GetBlock(x, y, z) == voxel.BlockAir {
		return true
	}
	return chunk.GetMaterialFlags(x, y, z)&voxel.FlagOpaque == 0
}

// SnapshotStats returns the current cumulative counters.
func (p *Propagator) SnapshotStats() Stats {
	return Stats{
		Processed:          p.processed.Load(),
		ChunksAffected:     p.chunksAffected.Load(),
		CrossChunkRequeues: p.crossChunkRequeues.Load(),
	}
}

// QueueDepth reports how many requests are queued but not yet drained
// by a ProcessPending call, for backlog monitoring.
func (p *Propagator) QueueDepth() int {
	return len(p.requests)
}

// Package engine wires the chunk store, paging, streaming, lighting, and
// physics subsystems into a single owning type and drives them through
// one tick loop in the steady-state order the rest of the core assumes:
// chunk sync, page streaming, skylight seeding, light propagation, then
// physics.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noahsabaj/voxelcore/internal/common/logger"
	"github.com/noahsabaj/voxelcore/internal/common/resources"
	"github.com/noahsabaj/voxelcore/internal/config"
	"github.com/noahsabaj/voxelcore/internal/lighting"
	"github.com/noahsabaj/voxelcore/internal/metrics"
	"github.com/noahsabaj/voxelcore/internal/paging"
	"github.com/noahsabaj/voxelcore/internal/physics"
	"github.com/noahsabaj/voxelcore/internal/storage"
	"github.com/noahsabaj/voxelcore/internal/streaming"
	"github.com/noahsabaj/voxelcore/internal/world"
)

// segmentPagesDefault matches the original memory mapper's default
// segment window (§ supplement: segment-level ref-count LRU).
const segmentPagesDefault = 16

// lightBudgetPerTick bounds how many queued light requests a single
// Tick call drains, independent of the propagator's own per-chunk-job
// iteration cap.
const lightBudgetPerTick = 4096

// Observer is a camera/player/AI position the streaming and chunk-load
// subsystems keep world data resident around.
type Observer struct {
	ID       uuid.UUID
	Position [3]float64
}

// Engine owns one instance of every subsystem and the single tick loop
// that drives them.
type Engine struct {
	cfg *config.Config

	World     *world.Manager
	Lighting  *lighting.Propagator
	DayNight  *lighting.DayNightCycle
	Physics   *physics.Solver
	Hash      *physics.SpatialHash
	Store     *paging.Store
	Streaming *streaming.Pipeline
	Loader    *streaming.Loader
	Sink      *EventSink
	Pool      *ComputePool
	Metrics   *metrics.Metrics

	budget *world.FrameBudget

	resources *resources.ResourceManager

	clock      float64
	prevStream streaming.Stats
	cancel     context.CancelFunc
	runWg      sync.WaitGroup
}

// New builds an Engine from cfg, wiring every subsystem together.
// generate supplies terrain for chunks with no resident page and no
// unload-cache entry; it may be nil, in which case newly loaded chunks
// start empty.
func New(cfg *config.Config, generate world.GenerateChunkFunc) (*Engine, error) {
	if errs := config.NewConfigValidator().Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid engine configuration: %v", errs)
	}

	backend, err := storage.NewFromConfig(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("engine: building storage backend: %w", err)
	}

	table := paging.NewTable(cfg.World.WorldSizePages, cfg.World.PageSizeVoxels)
	device := newMemoryDevice()
	store, err := paging.NewStore(table, paging.StoreConfig{
		Backend:          backend,
		PagesPerSegment:  segmentPagesDefault,
		MaxSegments:      int(cfg.World.MaxResidentPages/segmentPagesDefault) + 1,
		MaxResidentPages: cfg.World.MaxResidentPages,
		Strategy:         paging.DirectStrategy{},
		Device:           device,
		FaultRingSize:    4096,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: building paged store: %w", err)
	}

	worldMgr := world.NewManager(
		cfg.World.ChunkSize,
		cfg.World.ViewDistanceChunks,
		cfg.World.MaxChunkCoord,
		cfg.World.ChunkCacheSize,
		generate,
		store,
	)

	propagator := lighting.NewPropagator(cfg.World.ChunkSize, cfg.Lighting, worldMgr)
	dayNight := lighting.NewDayNightCycle()

	worldExtent := float64(cfg.World.MaxChunkCoord) * float64(cfg.World.ChunkSize)
	hash := physics.NewSpatialHash(physics.SpatialHashConfig{
		CellSize: cfg.Physics.SpatialCell,
		WorldMin: physics.Vec3{-worldExtent, -worldExtent, -worldExtent},
		WorldMax: physics.Vec3{worldExtent, worldExtent, worldExtent},
	})
	solver := physics.NewSolver(cfg.Physics, hash, newWorldBlockSource(worldMgr))

	pipeline := streaming.NewPipeline(store, cfg.Streaming)
	chunkSpan := float64(cfg.World.ViewDistanceChunks) * float64(cfg.World.ChunkSize)
	loader := streaming.NewLoader(store, chunkSpan, chunkSpan*1.5, cfg.Streaming.PredictHorizonSeconds, cfg.Streaming.PredictSamples)

	sink := NewEventSink(512)
	pool := NewComputePool(int64(cfg.Streaming.MaxConcurrentUploads))

	e := &Engine{
		cfg:       cfg,
		World:     worldMgr,
		Lighting:  propagator,
		DayNight:  dayNight,
		Physics:   solver,
		Hash:      hash,
		Store:     store,
		Streaming: pipeline,
		Loader:    loader,
		Sink:      sink,
		Pool:      pool,
		Metrics:   metrics.New(),
		budget:    world.NewFrameBudgetWithTargetFPS(60),
		resources: resources.NewResourceManager(),
	}

	// Registered in the order Close() must run them in reverse: the
	// compute pool first (drained last), the event sink last
	// (drained first), since close order is mandated as
	// event sink -> streaming -> paged store -> chunk store -> thread pool.
	e.resources.RegisterFunc(func() error {
		return e.Pool.Close()
	})
	e.resources.RegisterFunc(func() error {
		logger.Debug("engine: chunk store released (%d chunks loaded)", e.World.LoadedLen())
		return nil
	})
	e.resources.RegisterFunc(func() error {
		logger.Debug("engine: paged store released (%d pages resident)", e.Store.Table().ResidentPages())
		return nil
	})
	e.resources.RegisterFunc(func() error {
		e.runWg.Wait()
		logger.Debug("engine: streaming pipeline stopped")
		return nil
	})
	e.resources.Register(e.Sink)

	return e, nil
}

// Start launches the background goroutines a running engine needs (the
// stream pipeline's worker loop). ctx bounds their lifetime; canceling
// it (or calling Close) stops them.
func (e *Engine) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.runWg.Add(1)
	go func() {
		defer e.runWg.Done()
		e.Streaming.Run(runCtx)
	}()
}

// Close stops every background goroutine and releases subsystems in the
// mandated teardown order.
func (e *Engine) Close() error {
	if e.cancel != nil {
		e.cancel()
	}
	return e.resources.Close()
}

// Tick advances the world by dt seconds for the given observers, in the
// steady-state data-flow order: chunk sync, predictive streaming, sky
// seeding for newly-dirty chunks, light propagation, physics. The light
// propagation and physics phases each check the frame budget first and,
// once it is spent, return early and leave the rest to the next call
// rather than running long enough to be felt as a stutter.
func (e *Engine) Tick(ctx context.Context, observers []Observer, dt float64) error {
	e.budget.StartFrame()
	e.DayNight.Update(dt)
	e.clock += dt

	for _, obs := range observers {
		e.World.Sync(obs.Position)
		predicted := e.Loader.UpdatePosition(obs.ID, obs.Position, e.clock)
		e.Metrics.RecordPredictedRequests(len(predicted))
		for _, req := range predicted {
			e.Streaming.Submit(req)
		}
	}
	e.Metrics.SetChunksLoaded(e.World.LoadedLen())

	if resident := e.Store.Table().ResidentPages(); len(observers) > 0 && resident > int64(e.cfg.World.MaxResidentPages) {
		overage := int(resident - int64(e.cfg.World.MaxResidentPages))
		evicted, err := e.Store.Evict(ctx, observers[0].Position, overage)
		if err != nil {
			return fmt.Errorf("engine: evicting pages: %w", err)
		}
		e.Metrics.RecordPageEvictions(evicted)
	}
	e.Metrics.SetResidentPages(e.Store.Table().ResidentPages())

	streamStats := e.Streaming.Stats()
	e.Metrics.RecordPagesLoaded(int(streamStats.PagesLoaded - e.prevStream.PagesLoaded))
	e.Metrics.RecordStreamingRetries(int(streamStats.Retries - e.prevStream.Retries))
	e.Metrics.RecordPageFaults(int(streamStats.FaultsHandled - e.prevStream.FaultsHandled))
	e.prevStream = streamStats

	ceiling := e.DayNight.SkyCeiling(e.cfg.Lighting.MaxLight)
	dirty := e.World.TakeDirtyChunks()
	e.Metrics.SetChunksDirty(len(dirty))
	for _, pos := range dirty {
		chunk, ok := e.World.GetChunk(pos)
		if !ok {
			continue
		}
		lighting.InitializeChunk(chunk, ceiling)
		e.Sink.publish(ChunkEvent{Pos: pos, Loaded: true})
	}

	e.Metrics.SetLightQueueDepth(e.Lighting.QueueDepth())
	if !e.budget.HasBudget() {
		logger.Debug("engine: frame budget exhausted before light propagation, deferring")
		return nil
	}
	lightStart := time.Now()
	statsBefore := e.Lighting.SnapshotStats()
	if err := e.Lighting.ProcessPending(ctx, lightBudgetPerTick); err != nil {
		return fmt.Errorf("engine: light propagation: %w", err)
	}
	lightElapsed := time.Since(lightStart)
	e.budget.RecordTime(lightElapsed)
	e.Metrics.ObserveLightPropagation(lightElapsed.Seconds())
	e.Metrics.RecordLightJobsProcessed(int(e.Lighting.SnapshotStats().Processed - statsBefore.Processed))

	if !e.budget.HasBudget() {
		logger.Debug("engine: frame budget exhausted before physics step, deferring")
		return nil
	}
	physicsStart := time.Now()
	e.Metrics.ObservePhysicsIterations(e.cfg.Physics.Iterations)
	if err := e.Physics.Step(ctx, dt); err != nil {
		return fmt.Errorf("engine: physics step: %w", err)
	}
	physicsElapsed := time.Since(physicsStart)
	e.budget.RecordTime(physicsElapsed)
	e.Metrics.ObservePhysicsStepDuration(physicsElapsed.Seconds())
	e.Metrics.SetPhysicsBodiesAwake(e.Physics.AwakeBodies())

	return nil
}

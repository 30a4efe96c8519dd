// Package metrics exposes the engine's Prometheus instrumentation:
// one counter/gauge/histogram set per subsystem. Each Metrics owns a
// private prometheus.Registry rather than registering against the
// global default registerer — an engine core can be constructed more
// than once in a process (multiple worlds, package tests), and
// promauto's package-level constructors would panic on the second
// registration of the same metric name.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the engine updates across a
// tick. It has no behavior of its own beyond recording observations;
// Engine.Tick and its subsystems call the Record/Update methods inline.
type Metrics struct {
	Registry *prometheus.Registry

	// Paging (C3/C4)
	residentPages prometheus.Gauge
	pageEvictions prometheus.Counter
	pageFaults    prometheus.Counter

	// Streaming (C5/C6)
	pagesLoaded        prometheus.Counter
	streamingRetries   prometheus.Counter
	predictedRequests  prometheus.Counter

	// Chunk store (C7)
	chunksLoaded prometheus.Gauge
	chunksDirty  prometheus.Gauge

	// Lighting (C8/C9)
	lightQueueDepth    prometheus.Gauge
	lightJobsProcessed prometheus.Counter
	lightPropagationMs prometheus.Histogram

	// Physics (C10/C11)
	physicsIterations   prometheus.Histogram
	physicsBodiesAwake  prometheus.Gauge
	physicsStepDuration prometheus.Histogram
}

// New creates a private registry and registers every engine metric
// against it.
func New() *Metrics {
	namespace := "voxelcore"
	subsystem := "engine"
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		residentPages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "resident_pages",
			Help:      "Number of pages currently resident in the hot cache.",
		}),
		pageEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "page_evictions_total",
			Help:      "Total number of pages evicted from residency.",
		}),
		pageFaults: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "page_faults_total",
			Help:      "Total number of page faults the streaming pipeline has resolved.",
		}),

		pagesLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pages_loaded_total",
			Help:      "Total number of pages the streaming pipeline made resident.",
		}),
		streamingRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "streaming_retries_total",
			Help:      "Total number of retried streaming requests.",
		}),
		predictedRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "predicted_requests_total",
			Help:      "Total number of page requests generated by the predictive loader.",
		}),

		chunksLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chunks_loaded",
			Help:      "Number of chunks currently loaded around observers.",
		}),
		chunksDirty: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chunks_dirty",
			Help:      "Number of chunks awaiting relight this tick.",
		}),

		lightQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "light_queue_depth",
			Help:      "Number of light updates queued but not yet processed.",
		}),
		lightJobsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "light_jobs_processed_total",
			Help:      "Total number of per-chunk light propagation jobs processed.",
		}),
		lightPropagationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "light_propagation_duration_seconds",
			Help:      "Time taken by one call to ProcessPending.",
			Buckets:   prometheus.DefBuckets,
		}),

		physicsIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "physics_solver_iterations",
			Help:      "Constraint-solver iterations spent per physics step.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		physicsBodiesAwake: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "physics_bodies_awake",
			Help:      "Number of bodies not currently sleeping.",
		}),
		physicsStepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "physics_step_duration_seconds",
			Help:      "Time taken by one fixed-step physics update.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// SetResidentPages records the page table's current resident count.
func (m *Metrics) SetResidentPages(n int64) { m.residentPages.Set(float64(n)) }

// RecordPageEvictions adds n pages evicted from residency.
func (m *Metrics) RecordPageEvictions(n int) { m.pageEvictions.Add(float64(n)) }

// RecordPageFaults adds n faults the streaming pipeline has resolved.
func (m *Metrics) RecordPageFaults(n int) { m.pageFaults.Add(float64(n)) }

// RecordPagesLoaded adds n successfully streamed pages.
func (m *Metrics) RecordPagesLoaded(n int) { m.pagesLoaded.Add(float64(n)) }

// RecordStreamingRetries adds n retried streaming requests.
func (m *Metrics) RecordStreamingRetries(n int) { m.streamingRetries.Add(float64(n)) }

// RecordPredictedRequests adds n requests generated by the predictive loader.
func (m *Metrics) RecordPredictedRequests(n int) { m.predictedRequests.Add(float64(n)) }

// SetChunksLoaded records the chunk manager's current loaded-chunk count.
func (m *Metrics) SetChunksLoaded(n int) { m.chunksLoaded.Set(float64(n)) }

// SetChunksDirty records how many chunks are pending relight this tick.
func (m *Metrics) SetChunksDirty(n int) { m.chunksDirty.Set(float64(n)) }

// SetLightQueueDepth records the propagator's pending-update backlog.
func (m *Metrics) SetLightQueueDepth(n int) { m.lightQueueDepth.Set(float64(n)) }

// RecordLightJobsProcessed adds n completed per-chunk light jobs.
func (m *Metrics) RecordLightJobsProcessed(n int) { m.lightJobsProcessed.Add(float64(n)) }

// ObserveLightPropagation records the duration of one ProcessPending call.
func (m *Metrics) ObserveLightPropagation(seconds float64) { m.lightPropagationMs.Observe(seconds) }

// ObservePhysicsIterations records the constraint iterations a step used.
func (m *Metrics) ObservePhysicsIterations(n int) { m.physicsIterations.Observe(float64(n)) }

// SetPhysicsBodiesAwake records how many bodies are not sleeping.
func (m *Metrics) SetPhysicsBodiesAwake(n int) { m.physicsBodiesAwake.Set(float64(n)) }

// ObservePhysicsStepDuration records the duration of one physics step.
func (m *Metrics) ObservePhysicsStepDuration(seconds float64) { m.physicsStepDuration.Observe(seconds) }

package streaming

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/noahsabaj/voxelcore/internal/paging"
)

const trackerHistoryCapacity = 20

// Loader tracks one trajectory per observer and turns each updated
// position into a set of prioritized page requests covering a
// speed-scaled radius around every predicted future position, so the
// pipeline can start streaming pages in before an observer actually
// reaches them.
type Loader struct {
	store *paging.Store

	mu       sync.Mutex
	trackers map[uuid.UUID]*Tracker

	baseRadius     float64
	maxRadius      float64
	horizonSeconds float64
	samples        int
}

// NewLoader builds a predictive loader over store. baseRadius and
// maxRadius are world-space distances; horizonSeconds and samples
// control how far ahead, and how finely, trajectories are extrapolated.
func NewLoader(store *paging.Store, baseRadius, maxRadius, horizonSeconds float64, samples int) *Loader {
	return &Loader{
		store:          store,
		trackers:       make(map[uuid.UUID]*Tracker),
		baseRadius:     baseRadius,
		maxRadius:      maxRadius,
		horizonSeconds: horizonSeconds,
		samples:        samples,
	}
}

// TrackObserver starts (or restarts) trajectory tracking for id.
func (l *Loader) TrackObserver(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trackers[id] = NewTracker(id, trackerHistoryCapacity)
}

// ForgetObserver drops an observer's trajectory history, e.g. on
// disconnect.
func (l *Loader) ForgetObserver(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.trackers, id)
}

// UpdatePosition feeds a fresh observer position into its tracker and
// returns the prioritized page requests covering every predicted future
// position within the observer's current dynamic load radius.
func (l *Loader) UpdatePosition(id uuid.UUID, pos [3]float64, timestamp float64) []Request {
	l.mu.Lock()
	tracker, ok := l.trackers[id]
	if !ok {
		tracker = NewTracker(id, trackerHistoryCapacity)
		l.trackers[id] = tracker
	}
	tracker.Update(pos, timestamp)

	radius := math.Min(l.baseRadius+tracker.Speed()*0.5, l.maxRadius)
	predictions := tracker.PredictPositions(l.horizonSeconds, l.samples)
	l.mu.Unlock()

	pageSize := float64(l.store.PageSizeVoxels())
	var requests []Request
	for _, pred := range predictions {
		requests = append(requests, pageRequestsAround(pred.Pos, radius, pred.Time, pageSize)...)
	}
	return requests
}

// pageRequestsAround enumerates page coordinates within radius of center,
// each carrying the priority formula used for every prediction-sourced
// request: closer pages and sooner predictions outrank farther, later
// ones.
func pageRequestsAround(center [3]float64, radius, predictedTime, pageSize float64) []Request {
	if pageSize <= 0 {
		return nil
	}
	pageRadius := int(math.Ceil(radius / pageSize))
	cx := int(math.Floor(center[0] / pageSize))
	cy := int(math.Floor(center[1] / pageSize))
	cz := int(math.Floor(center[2] / pageSize))

	var out []Request
	for dx := -pageRadius; dx <= pageRadius; dx++ {
		for dy := -pageRadius; dy <= pageRadius; dy++ {
			for dz := -pageRadius; dz <= pageRadius; dz++ {
				distSq := float64(dx*dx + dy*dy + dz*dz)
				if distSq > float64(pageRadius*pageRadius) {
					continue
				}
				px, py, pz := cx+dx, cy+dy, cz+dz
				if px < 0 || py < 0 || pz < 0 {
					continue
				}

				distance := math.Sqrt(distSq) * pageSize
				priority := 1000.0 / (distance + 1.0) / (predictedTime + 0.1)

				out = append(out, Request{
					PageX:    uint32(px),
					PageY:    uint32(py),
					PageZ:    uint32(pz),
					Priority: priority,
					Source:   SourcePrediction,
				})
			}
		}
	}
	return out
}

// AdaptParameters narrows the load radius under memory pressure and
// shortens the prediction horizon when frames are running long, the same
// shrink-under-load trade-off the teacher's spatial optimizer applies to
// its query cache TTLs.
func (l *Loader) AdaptParameters(frameTimeMs, memoryPressure float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case frameTimeMs > 20.0:
		l.horizonSeconds = math.Max(l.horizonSeconds*0.9, 0.5)
	case frameTimeMs < 10.0:
		l.horizonSeconds = math.Min(l.horizonSeconds*1.1, 5.0)
	}

	switch {
	case memoryPressure > 0.8:
		l.baseRadius *= 0.95
		l.maxRadius *= 0.95
	case memoryPressure < 0.5:
		l.baseRadius *= 1.05
		l.maxRadius *= 1.05
	}
}

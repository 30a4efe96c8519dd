// Package streaming drains the paged store's residency misses and a
// predictive loader's prefetch requests through a bounded worker pool,
// keeping pages resident ahead of where observers are headed rather than
// only where they already are.
package streaming

import (
	"math"

	"github.com/google/uuid"
)

// Movement classifies an observer's current motion regime, used to scale
// the predictive loader's radius and horizon.
type Movement int

const (
	MovementStationary Movement = iota
	MovementWalking
	MovementRunning
	MovementFlying
	MovementTeleporting
)

func (m Movement) String() string {
	switch m {
	case MovementStationary:
		return "stationary"
	case MovementWalking:
		return "walking"
	case MovementRunning:
		return "running"
	case MovementFlying:
		return "flying"
	case MovementTeleporting:
		return "teleporting"
	default:
		return "unknown"
	}
}

// Classify buckets a speed (world units/second) into a Movement regime.
func Classify(speed float64) Movement {
	switch {
	case speed < 0.1:
		return MovementStationary
	case speed < 5.0:
		return MovementWalking
	case speed < 20.0:
		return MovementRunning
	case speed < 100.0:
		return MovementFlying
	default:
		return MovementTeleporting
	}
}

type trajectorySample struct {
	pos       [3]float64
	timestamp float64
}

// PredictedPosition is a future observer position and its offset from
// now, in seconds.
type PredictedPosition struct {
	Pos  [3]float64
	Time float64
}

// Tracker maintains a short rolling history of one observer's positions
// and the finite-difference velocity/acceleration derived from them.
// Samples older than the configured capacity are dropped.
type Tracker struct {
	ID uuid.UUID

	samples  []trajectorySample
	capacity int

	velocity     [3]float64
	acceleration [3]float64
	speed        float64
}

// NewTracker returns a tracker for id that retains up to capacity
// position samples.
func NewTracker(id uuid.UUID, capacity int) *Tracker {
	if capacity <= 0 {
		capacity = 20
	}
	return &Tracker{ID: id, capacity: capacity}
}

// Update records a new observed position and recomputes velocity and, once
// at least three samples are available, acceleration via finite
// differences.
func (t *Tracker) Update(pos [3]float64, timestamp float64) {
	t.samples = append(t.samples, trajectorySample{pos: pos, timestamp: timestamp})
	if len(t.samples) > t.capacity {
		t.samples = t.samples[len(t.samples)-t.capacity:]
	}

	n := len(t.samples)
	if n < 2 {
		return
	}
	curr := t.samples[n-1]
	prev := t.samples[n-2]
	dt := curr.timestamp - prev.timestamp
	if dt <= 0 {
		return
	}

	newVelocity := [3]float64{
		(curr.pos[0] - prev.pos[0]) / dt,
		(curr.pos[1] - prev.pos[1]) / dt,
		(curr.pos[2] - prev.pos[2]) / dt,
	}

	if n >= 3 {
		t.acceleration = [3]float64{
			(newVelocity[0] - t.velocity[0]) / dt,
			(newVelocity[1] - t.velocity[1]) / dt,
			(newVelocity[2] - t.velocity[2]) / dt,
		}
	}

	t.velocity = newVelocity
	t.speed = math.Sqrt(
		newVelocity[0]*newVelocity[0] +
			newVelocity[1]*newVelocity[1] +
			newVelocity[2]*newVelocity[2],
	)
}

// Speed returns the most recently computed scalar velocity magnitude.
func (t *Tracker) Speed() float64 { return t.speed }

// Classify buckets the tracker's current speed into a Movement regime.
func (t *Tracker) Classify() Movement { return Classify(t.speed) }

// PredictPositions extrapolates numSamples future positions spaced evenly
// across horizonSeconds using a constant-acceleration model. Returns nil
// if the tracker has no samples yet.
func (t *Tracker) PredictPositions(horizonSeconds float64, numSamples int) []PredictedPosition {
	if len(t.samples) == 0 || numSamples <= 0 {
		return nil
	}

	current := t.samples[len(t.samples)-1].pos
	dt := horizonSeconds / float64(numSamples)

	out := make([]PredictedPosition, 0, numSamples)
	for i := 1; i <= numSamples; i++ {
		tt := float64(i) * dt
		pos := [3]float64{
			current[0] + t.velocity[0]*tt + 0.5*t.acceleration[0]*tt*tt,
			current[1] + t.velocity[1]*tt + 0.5*t.acceleration[1]*tt*tt,
			current[2] + t.velocity[2]*tt + 0.5*t.acceleration[2]*tt*tt,
		}
		out = append(out, PredictedPosition{Pos: pos, Time: tt})
	}
	return out
}

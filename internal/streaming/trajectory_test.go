package streaming

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTrackerComputesVelocityFromTwoSamples(t *testing.T) {
	tr := NewTracker(uuid.New(), 20)
	tr.Update([3]float64{0, 0, 0}, 0.0)
	tr.Update([3]float64{10, 0, 0}, 1.0)

	assert.InDelta(t, 10.0, tr.Speed(), 1e-9)
	assert.Equal(t, MovementRunning, tr.Classify())
}

func TestTrackerComputesAccelerationFromThreeSamples(t *testing.T) {
	tr := NewTracker(uuid.New(), 20)
	tr.Update([3]float64{0, 0, 0}, 0.0)
	tr.Update([3]float64{1, 0, 0}, 1.0)
	tr.Update([3]float64{3, 0, 0}, 2.0) // velocity went from 1 to 2 over 1s

	assert.InDelta(t, 1.0, tr.acceleration[0], 1e-9)
}

func TestTrackerHistoryCapIsEnforced(t *testing.T) {
	tr := NewTracker(uuid.New(), 3)
	for i := 0; i < 10; i++ {
		tr.Update([3]float64{float64(i), 0, 0}, float64(i))
	}
	assert.Len(t, tr.samples, 3)
}

func TestClassifyBuckets(t *testing.T) {
	assert.Equal(t, MovementStationary, Classify(0.0))
	assert.Equal(t, MovementWalking, Classify(1.0))
	assert.Equal(t, MovementRunning, Classify(10.0))
	assert.Equal(t, MovementFlying, Classify(50.0))
	assert.Equal(t, MovementTeleporting, Classify(500.0))
}

func TestPredictPositionsExtrapolatesLinearMotion(t *testing.T) {
	tr := NewTracker(uuid.New(), 20)
	tr.Update([3]float64{0, 0, 0}, 0.0)
	tr.Update([3]float64{1, 0, 0}, 1.0) // velocity = (1,0,0), no acceleration yet

	predictions := tr.PredictPositions(2.0, 2)
	assert.Len(t, predictions, 2)
	assert.InDelta(t, 1.0, predictions[0].Time, 1e-9)
	assert.InDelta(t, 2.0, predictions[0].Pos[0], 1e-9)
	assert.InDelta(t, 2.0, predictions[1].Time, 1e-9)
	assert.InDelta(t, 3.0, predictions[1].Pos[0], 1e-9)
}

func TestPredictPositionsEmptyWithNoHistory(t *testing.T) {
	tr := NewTracker(uuid.New(), 20)
	assert.Nil(t, tr.PredictPositions(2.0, 5))
}

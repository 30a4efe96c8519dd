package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameBudgetHasBudgetImmediatelyAfterStart(t *testing.T) {
	b := NewFrameBudgetWithTargetFPS(60)
	b.StartFrame()
	assert.True(t, b.HasBudget())
	assert.Greater(t, b.RemainingBudget(), time.Duration(0))
}

func TestFrameBudgetExhaustsAfterMaxFrameTime(t *testing.T) {
	b := NewFrameBudgetWithTargetFPS(1000) // 1ms target, 0.5ms max
	b.StartFrame()
	time.Sleep(2 * time.Millisecond)
	assert.False(t, b.HasBudget())
	assert.Equal(t, time.Duration(0), b.RemainingBudget())
}

func TestChunkLoadThrottlerRampsUpWhenUnderused(t *testing.T) {
	th := NewChunkLoadThrottler()
	start := th.ChunksPerFrame()
	for i := 0; i < 3; i++ {
		th.StartFrame()
	}
	assert.GreaterOrEqual(t, th.ChunksPerFrame(), start)
}

func TestChunkLoadThrottlerFixedModeIgnoresAdaptation(t *testing.T) {
	th := NewChunkLoadThrottler()
	th.SetAdaptiveMode(false)
	th.SetChunksPerFrame(3)

	for i := 0; i < 5; i++ {
		th.StartFrame()
	}
	assert.Equal(t, 3, th.ChunksPerFrame())
}

func TestChunkLoadThrottlerCanLoadChunkReflectsBudget(t *testing.T) {
	th := NewChunkLoadThrottler()
	th.StartFrame()
	assert.True(t, th.CanLoadChunk())
}

package lighting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeOfDayNoonIsDay(t *testing.T) {
	assert.True(t, Noon().IsDay())
	assert.False(t, Noon().IsNight())
}

func TestTimeOfDayMidnightIsNight(t *testing.T) {
	assert.True(t, Midnight().IsNight())
	assert.False(t, Midnight().IsDay())
}

func TestTimeOfDayAdvanceWrapsPastMidnight(t *testing.T) {
	tod := NewTimeOfDay(23)
	tod.Advance(7200, 86400) // 2 hours of real time over a 24h day
	assert.InDelta(t, 1.0, tod.Hours, 1e-9)
}

func TestTimeOfDayNewWrapsOutOfRangeHours(t *testing.T) {
	tod := NewTimeOfDay(30)
	assert.InDelta(t, 6.0, tod.Hours, 1e-9)
}

func TestDayNightCycleDefaultsToNoon(t *testing.T) {
	cycle := NewDayNightCycle()
	assert.True(t, cycle.Time.IsDay())
	assert.Equal(t, uint8(15), cycle.SkyCeiling(15))
}

func TestDayNightCycleUpdateAdvancesTime(t *testing.T) {
	cycle := NewDayNightCycle()
	cycle.DayLengthSeconds = 24 // 1 real second == 1 in-game hour
	cycle.Update(6)
	assert.InDelta(t, 18.0, cycle.Time.Hours, 1e-9)
	assert.False(t, cycle.Time.IsDay())
}

func TestDayNightCycleNightCeilingIsDimmer(t *testing.T) {
	cycle := NewDayNightCycle()
	cycle.Time = Midnight()
	assert.Less(t, cycle.SkyCeiling(15), uint8(15))
}

func TestDayNightCycleSetTimeScaleClampsNegative(t *testing.T) {
	cycle := NewDayNightCycle()
	cycle.SetTimeScale(-5)
	assert.Equal(t, 0.0, cycle.TimeScale)
}

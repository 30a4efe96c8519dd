package lighting

import "math"

// TimeOfDay tracks the current hour within a 24-hour cycle.
type TimeOfDay struct {
	Hours float64
}

// NewTimeOfDay builds a TimeOfDay, wrapping hours into [0, 24).
func NewTimeOfDay(hours float64) TimeOfDay {
	return TimeOfDay{Hours: math.Mod(hours, 24)}
}

// Noon returns the time of day at 12:00.
func Noon() TimeOfDay { return TimeOfDay{Hours: 12} }

// Midnight returns the time of day at 00:00.
func Midnight() TimeOfDay { return TimeOfDay{Hours: 0} }

// IsDay reports whether this time falls within the daylight window.
func (t TimeOfDay) IsDay() bool {
	return t.Hours >= 6 && t.Hours < 18
}

// IsNight reports the complement of IsDay.
func (t TimeOfDay) IsNight() bool {
	return !t.IsDay()
}

// Advance steps the clock forward by deltaSeconds of real time, scaled
// so a full 24-hour cycle takes dayLengthSeconds.
func (t *TimeOfDay) Advance(deltaSeconds, dayLengthSeconds float64) {
	if dayLengthSeconds <= 0 {
		return
	}
	hoursPerSecond := 24.0 / dayLengthSeconds
	t.Hours += deltaSeconds * hoursPerSecond
	for t.Hours >= 24 {
		t.Hours -= 24
	}
	for t.Hours < 0 {
		t.Hours += 24
	}
}

// DayNightCycle drives a TimeOfDay forward each tick and derives the
// sky's ambient light ceiling from it.
type DayNightCycle struct {
	Time             TimeOfDay
	DayLengthSeconds float64
	TimeScale        float64
}

// NewDayNightCycle starts at noon with a 20-minute day and real-time
// pacing.
func NewDayNightCycle() *DayNightCycle {
	return &DayNightCycle{
		Time:             Noon(),
		DayLengthSeconds: 20 * 60,
		TimeScale:        1.0,
	}
}

// Update advances the cycle by deltaSeconds of real time.
func (d *DayNightCycle) Update(deltaSeconds float64) {
	d.Time.Advance(deltaSeconds*d.TimeScale, d.DayLengthSeconds)
}

// SkyCeiling returns the sky light level a column should be seeded
// from at the current time of day, scaled proportionally against
// maxLight rather than assuming a fixed 15-level scale.
func (d *DayNightCycle) SkyCeiling(maxLight uint8) uint8 {
	if d.Time.IsDay() {
		return maxLight
	}
	return uint8(float64(maxLight) * 4.0 / 15.0)
}

// SetTimeScale adjusts how fast the cycle advances relative to real
// time. Negative scales are clamped to zero (a fully paused clock).
func (d *DayNightCycle) SetTimeScale(scale float64) {
	if scale < 0 {
		scale = 0
	}
	d.TimeScale = scale
}

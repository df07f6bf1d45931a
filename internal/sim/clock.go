package sim

import "time"

// Clock maps wall time onto game time.
type Clock struct {
	GameTime  time.Time
	TimeScale float64

	last time.Time
}

func NewClock(start time.Time, timeScale float64) *Clock {
	return &Clock{GameTime: start, TimeScale: timeScale}
}

// Advance moves game time by the wall time elapsed since the previous call,
// scaled by TimeScale. It returns the game delta in seconds and whether the
// calendar month changed. The first call only anchors the wall clock.
func (c *Clock) Advance(now time.Time) (float64, bool) {
	if c.last.IsZero() {
		c.last = now
		return 0, false
	}

	elapsed := now.Sub(c.last)
	c.last = now
	if elapsed <= 0 {
		return 0, false
	}

	delta := time.Duration(float64(elapsed) * c.TimeScale)
	prev := c.GameTime
	c.GameTime = c.GameTime.Add(delta)

	rolled := prev.Year() != c.GameTime.Year() || prev.Month() != c.GameTime.Month()
	return delta.Seconds(), rolled
}

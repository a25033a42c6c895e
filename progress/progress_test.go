package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func TestEstimatorUpdate(t *testing.T) {
	clock := newFakeClock()
	e := newWithClock(400, clock.now)

	clock.advance(5040 * time.Millisecond)
	avg, remaining := e.Update(12)

	assert.InDelta(t, 0.42, avg, 1e-9)
	assert.InDelta(t, 0.42*388, remaining, 1e-6)
}

func TestEstimatorZeroCompleted(t *testing.T) {
	clock := newFakeClock()
	e := newWithClock(10, clock.now)

	clock.advance(3 * time.Second)

	avg, remaining := e.Update(0)
	assert.Zero(t, avg)
	assert.Zero(t, remaining)

	avg, remaining = e.Update(-1)
	assert.Zero(t, avg)
	assert.Zero(t, remaining)
}

func TestEstimatorOvershootClampsRemaining(t *testing.T) {
	clock := newFakeClock()
	e := newWithClock(5, clock.now)

	clock.advance(6 * time.Second)
	avg, remaining := e.Update(6)

	assert.InDelta(t, 1.0, avg, 1e-9)
	assert.Zero(t, remaining)
}

func TestFormatETA(t *testing.T) {
	clock := newFakeClock()
	e := newWithClock(10, clock.now)

	clock.advance(2 * time.Second)
	assert.Equal(t, "avg 0.50s/file, ~3s remaining (4/10)", e.FormatETA(4))
}

func TestFormatETABeforeFirstCompletion(t *testing.T) {
	clock := newFakeClock()
	e := newWithClock(10, clock.now)

	assert.Equal(t, "avg 0.00s/file, ~0s remaining (0/10)", e.FormatETA(0))
}

func TestFormatETARoundsToSeconds(t *testing.T) {
	clock := newFakeClock()
	e := newWithClock(400, clock.now)

	clock.advance(5040 * time.Millisecond)
	assert.Equal(t, "avg 0.42s/file, ~2m43s remaining (12/400)", e.FormatETA(12))
}

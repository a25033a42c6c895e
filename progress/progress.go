package progress

import (
	"fmt"
	"time"
)

// Estimator projects the remaining duration of a fixed-size run from the
// average pace observed so far. It is presentation only; callers decide
// when and where to print its output, and a failure to print must never
// affect the run being measured.
type Estimator struct {
	total int
	start time.Time
	now   func() time.Time
}

func New(total int) *Estimator {
	return newWithClock(total, time.Now)
}

func newWithClock(total int, now func() time.Time) *Estimator {
	return &Estimator{total: total, start: now(), now: now}
}

// Update reports the average seconds per completed item and the projected
// seconds remaining. With completed at zero or less there is no pace to
// extrapolate from and both values are zero.
func (e *Estimator) Update(completed int) (avg, remaining float64) {
	if completed <= 0 {
		return 0, 0
	}
	elapsed := e.now().Sub(e.start).Seconds()
	avg = elapsed / float64(completed)
	remaining = avg * float64(e.total-completed)
	if remaining < 0 {
		remaining = 0
	}
	return avg, remaining
}

// FormatETA renders a single status line such as
// "avg 0.42s/file, ~1m30s remaining (12/400)".
func (e *Estimator) FormatETA(completed int) string {
	avg, remaining := e.Update(completed)
	eta := time.Duration(remaining * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("avg %.2fs/file, ~%s remaining (%d/%d)", avg, eta, completed, e.total)
}

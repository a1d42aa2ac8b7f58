package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manual time source. Scheduling tests usually think in a user's
// wall-clock time, so it can also be positioned by local date and time of day.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns Now for injection; a nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// SetLocal moves the clock to hour:minute on the given local date in loc.
func (c *Clock) SetLocal(loc *time.Location, year int, month time.Month, day, hour, minute int) time.Time {
	t := time.Date(year, month, day, hour, minute, 0, 0, loc)
	c.Set(t)
	return t
}

// AdvanceToLocal moves the clock forward to the next hour:minute wall time in
// loc. The clock always moves; an exact match advances a full day.
func (c *Clock) AdvanceToLocal(loc *time.Location, hour, minute int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	local := c.now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	c.now = next
	return next
}

// LocalDate is the clock's calendar date in loc, formatted as 2006-01-02.
func (c *Clock) LocalDate(loc *time.Location) string {
	return c.Now().In(loc).Format(time.DateOnly)
}

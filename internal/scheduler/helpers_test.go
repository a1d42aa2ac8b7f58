package scheduler

import (
	"testing"
	"time"

	"github.com/example/call-scheduler/internal/recurrence"
)

var tokyo = time.FixedZone("Asia/Tokyo", 9*60*60)

// wednesday 2023-10-25 11:00 Tokyo.
var referenceNow = time.Date(2023, time.October, 25, 2, 0, 0, 0, time.UTC)

// constSource always returns v clamped into [0, n).
type constSource int64

func (c constSource) Int64N(n int64) int64 {
	if int64(c) >= n {
		return n - 1
	}
	return int64(c)
}

// midSource returns the midpoint of every range.
type midSource struct{}

func (midSource) Int64N(n int64) int64 { return n / 2 }

func tokyoProfile() Profile {
	return Profile{
		Location:       tokyo,
		ActiveDays:     recurrence.AllDays,
		MorningStart:   NewTimeOfDay(9, 0),
		EveningEnd:     NewTimeOfDay(21, 0),
		DailyCallLimit: 3,
	}
}

func daily(id, name string, start, end TimeOfDay, priority int) BlockedInterval {
	return BlockedInterval{
		ID:       id,
		Name:     name,
		Start:    start,
		End:      end,
		Rule:     recurrence.Rule{Kind: recurrence.KindDaily},
		Priority: priority,
		Active:   true,
	}
}

func tokyoTime(day, hour, minute int) time.Time {
	return time.Date(2023, time.October, day, hour, minute, 0, 0, tokyo)
}

func newTestEngine(t *testing.T, src RandomSource) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultConfig(), src)
	if err != nil {
		t.Fatalf("failed to construct engine: %v", err)
	}
	return engine
}

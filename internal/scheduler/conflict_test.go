package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/example/call-scheduler/internal/recurrence"
)

func TestCheckConflicts(t *testing.T) {
	t.Parallel()

	lunch := daily("lunch", "Lunch", NewTimeOfDay(12, 0), NewTimeOfDay(13, 0), 1)

	t.Run("blocked candidate escapes after the interval", func(t *testing.T) {
		t.Parallel()
		got, err := CheckConflicts(time.Date(2023, time.October, 25, 3, 30, 0, 0, time.UTC), tokyoProfile(), []BlockedInterval{lunch})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Blocked || got.Interval.ID != "lunch" {
			t.Fatalf("expected lunch to block, got %+v", got)
		}
		if got.Interval.Reason() != "blocked_lunch" {
			t.Fatalf("unexpected reason %q", got.Interval.Reason())
		}
		if want := tokyoTime(25, 13, 15); !got.Escape.Equal(want) {
			t.Fatalf("Escape = %s, want %s", got.Escape, want)
		}
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		t.Parallel()
		for _, instant := range []time.Time{tokyoTime(25, 12, 0), tokyoTime(25, 13, 0)} {
			got, err := CheckConflicts(instant, tokyoProfile(), []BlockedInterval{lunch})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Blocked {
				t.Fatalf("expected %s to be blocked", instant)
			}
		}
		got, err := CheckConflicts(tokyoTime(25, 13, 0).Add(time.Second), tokyoProfile(), []BlockedInterval{lunch})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Blocked {
			t.Fatalf("expected instant after end to be free")
		}
	})

	t.Run("highest priority wins and ties keep input order", func(t *testing.T) {
		t.Parallel()
		low := daily("low", "Low", NewTimeOfDay(11, 0), NewTimeOfDay(14, 0), 2)
		high := daily("high", "High", NewTimeOfDay(12, 0), NewTimeOfDay(12, 45), 8)
		tie := daily("tie", "Tie", NewTimeOfDay(12, 0), NewTimeOfDay(15, 0), 8)

		got, err := CheckConflicts(tokyoTime(25, 12, 30), tokyoProfile(), []BlockedInterval{low, high, tie})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Interval.ID != "high" {
			t.Fatalf("expected high priority interval, got %q", got.Interval.ID)
		}
		if want := tokyoTime(25, 13, 0); !got.Escape.Equal(want) {
			t.Fatalf("Escape = %s, want %s", got.Escape, want)
		}
	})

	t.Run("inactive and non matching days are ignored", func(t *testing.T) {
		t.Parallel()
		inactive := lunch
		inactive.Active = false
		weekend := lunch
		weekend.ID = "weekend"
		weekend.Rule = recurrence.Rule{Kind: recurrence.KindWeekends}

		got, err := CheckConflicts(tokyoTime(25, 12, 30), tokyoProfile(), []BlockedInterval{inactive, weekend})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Blocked {
			t.Fatalf("expected no conflict on a Wednesday, got %+v", got)
		}

		got, err = CheckConflicts(tokyoTime(28, 12, 30), tokyoProfile(), []BlockedInterval{weekend})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Blocked {
			t.Fatalf("expected weekend rule to block on Saturday")
		}
	})

	t.Run("escape outside window moves to next morning", func(t *testing.T) {
		t.Parallel()
		late := daily("late", "Late Meetings", NewTimeOfDay(20, 0), NewTimeOfDay(20, 50), 3)
		got, err := CheckConflicts(tokyoTime(25, 20, 10), tokyoProfile(), []BlockedInterval{late})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := tokyoTime(26, 9, 0); !got.Escape.Equal(want) {
			t.Fatalf("Escape = %s, want %s", got.Escape, want)
		}
		if got.Interval.Reason() != "blocked_late_meetings" {
			t.Fatalf("unexpected reason %q", got.Interval.Reason())
		}
	})

	t.Run("configuration errors propagate", func(t *testing.T) {
		t.Parallel()
		profile := tokyoProfile()
		profile.ActiveDays = 0
		_, err := CheckConflicts(tokyoTime(25, 12, 30), profile, []BlockedInterval{lunch})
		if !errors.Is(err, ErrConfiguration) {
			t.Fatalf("expected configuration error, got %v", err)
		}
	})
}

func TestBlockedInterval_Validate(t *testing.T) {
	t.Parallel()

	valid := daily("a", "A", NewTimeOfDay(9, 0), NewTimeOfDay(10, 0), 0)
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid interval, got %v", err)
	}

	cases := map[string]func(*BlockedInterval){
		"reversed":         func(b *BlockedInterval) { b.Start, b.End = b.End, b.Start },
		"priority":         func(b *BlockedInterval) { b.Priority = 11 },
		"empty custom set": func(b *BlockedInterval) { b.Rule = recurrence.Rule{Kind: recurrence.KindCustom} },
	}
	for name, mutate := range cases {
		interval := valid
		mutate(&interval)
		if err := interval.Validate(); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", name, err)
		}
	}
}

func TestBlockedInterval_Reason(t *testing.T) {
	t.Parallel()

	cases := map[string]BlockedInterval{
		"blocked_school_run": {Name: "  School-Run! "},
		"blocked_abc":        {ID: "abc"},
		"blocked_interval":   {},
	}
	for want, interval := range cases {
		if got := interval.Reason(); got != want {
			t.Fatalf("Reason() = %q, want %q", got, want)
		}
	}
}

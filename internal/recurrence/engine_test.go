package recurrence

import (
	"errors"
	"testing"
	"time"
)

func TestEngine_Expand(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*60*60)
	// Monday 2024-03-04 10:00 JST.
	from := time.Date(2024, time.March, 4, 1, 0, 0, 0, time.UTC)

	t.Run("respects weekday selections", func(t *testing.T) {
		t.Parallel()

		engine := NewEngine(tokyo)
		rule := Rule{Kind: KindCustom, Days: NewWeekdays(time.Monday, time.Wednesday, time.Friday)}
		occurrences, err := engine.Expand(rule, 12*time.Hour, 13*time.Hour, from, 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 3 {
			t.Fatalf("expected 3 occurrences, got %d", len(occurrences))
		}
		wantDays := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
		for i, occ := range occurrences {
			if occ.Start.Weekday() != wantDays[i] {
				t.Fatalf("occurrence %d on %s, want %s", i, occ.Start.Weekday(), wantDays[i])
			}
			if occ.Start.Hour() != 12 || occ.End.Hour() != 13 {
				t.Fatalf("occurrence %d has unexpected bounds %s-%s", i, occ.Start, occ.End)
			}
			if occ.Start.Location() != tokyo {
				t.Fatalf("expected occurrences normalised to engine location")
			}
		}
	})

	t.Run("weekends over two weeks", func(t *testing.T) {
		t.Parallel()

		occurrences, err := NewEngine(tokyo).Expand(Rule{Kind: KindWeekends}, 0, time.Hour, from, 14)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 4 {
			t.Fatalf("expected 4 weekend occurrences, got %d", len(occurrences))
		}
	})

	t.Run("keeps wall clock across DST", func(t *testing.T) {
		t.Parallel()

		ny, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Skipf("timezone database unavailable: %v", err)
		}
		// DST starts on 2024-03-10 in New York.
		start := time.Date(2024, time.March, 9, 12, 0, 0, 0, ny)
		occurrences, err := NewEngine(ny).Expand(Rule{Kind: KindDaily}, 9*time.Hour, 10*time.Hour, start, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, occ := range occurrences {
			if occ.Start.Hour() != 9 {
				t.Fatalf("expected 09:00 local, got %s", occ.Start)
			}
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		t.Parallel()

		engine := NewEngine(nil)
		if _, err := engine.Expand(Rule{Kind: KindDaily}, time.Hour, time.Hour, from, 1); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
		if _, err := engine.Expand(Rule{Kind: KindDaily}, 0, time.Hour, from, 0); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
		if _, err := engine.Expand(Rule{Kind: KindCustom}, 0, time.Hour, from, 1); !errors.Is(err, ErrEmptyDaySet) {
			t.Fatalf("expected ErrEmptyDaySet, got %v", err)
		}
	})
}

func BenchmarkEngineExpand(b *testing.B) {
	engine := NewEngine(time.UTC)
	from := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	rule := Rule{Kind: KindWeekdays}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		occurrences, err := engine.Expand(rule, 9*time.Hour, 10*time.Hour+30*time.Minute, from, MaxExpandDays)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) == 0 {
			b.Fatal("expected occurrences to be generated")
		}
	}
}

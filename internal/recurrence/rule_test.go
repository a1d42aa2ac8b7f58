package recurrence

import (
	"errors"
	"testing"
	"time"
)

func TestRule_Applies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rule Rule
		want map[time.Weekday]bool
	}{
		{
			name: "daily matches every day",
			rule: Rule{Kind: KindDaily},
			want: map[time.Weekday]bool{time.Monday: true, time.Wednesday: true, time.Saturday: true, time.Sunday: true},
		},
		{
			name: "weekdays excludes weekend",
			rule: Rule{Kind: KindWeekdays},
			want: map[time.Weekday]bool{time.Monday: true, time.Friday: true, time.Saturday: false, time.Sunday: false},
		},
		{
			name: "weekends excludes working days",
			rule: Rule{Kind: KindWeekends},
			want: map[time.Weekday]bool{time.Monday: false, time.Thursday: false, time.Saturday: true, time.Sunday: true},
		},
		{
			name: "custom honours configured set",
			rule: Rule{Kind: KindCustom, Days: NewWeekdays(time.Tuesday, time.Thursday)},
			want: map[time.Weekday]bool{time.Monday: false, time.Tuesday: true, time.Wednesday: false, time.Thursday: true},
		},
		{
			name: "once behaves like daily",
			rule: Rule{Kind: KindOnce},
			want: map[time.Weekday]bool{time.Monday: true, time.Sunday: true},
		},
		{
			name: "custom ignores days for other kinds",
			rule: Rule{Kind: KindWeekends, Days: NewWeekdays(time.Monday)},
			want: map[time.Weekday]bool{time.Monday: false},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for day, want := range tt.want {
				if got := tt.rule.Applies(day); got != want {
					t.Fatalf("Applies(%s) = %v, want %v", day, got, want)
				}
			}
		})
	}
}

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	if err := (Rule{Kind: KindCustom}).Validate(); !errors.Is(err, ErrEmptyDaySet) {
		t.Fatalf("expected ErrEmptyDaySet, got %v", err)
	}
	if err := (Rule{Kind: "hourly"}).Validate(); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	if err := (Rule{Kind: KindCustom, Days: NewWeekdays(time.Monday)}).Validate(); err != nil {
		t.Fatalf("expected custom rule with days to validate, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	kind, err := ParseKind(" Weekdays ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != KindWeekdays {
		t.Fatalf("expected weekdays, got %q", kind)
	}

	if _, err := ParseKind("monthly"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestWeekdays_RoundTripTokens(t *testing.T) {
	t.Parallel()

	set, err := ParseWeekdayList("fri, Monday,sun,,wed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := set.String(); got != "mon,wed,fri,sun" {
		t.Fatalf("expected Monday-first ordering, got %q", got)
	}
	if set.Has(time.Tuesday) {
		t.Fatalf("expected Tuesday to be absent")
	}

	if _, err := ParseWeekdayList("mon,funday"); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}

	empty, err := ParseWeekdayList("  ")
	if err != nil || !empty.Empty() {
		t.Fatalf("expected empty set without error, got %v (%v)", empty, err)
	}
}

func TestWeekdays_Constants(t *testing.T) {
	t.Parallel()

	if got := len(AllDays.Days()); got != 7 {
		t.Fatalf("expected 7 days in AllDays, got %d", got)
	}
	if got := WorkingDays.String(); got != "mon,tue,wed,thu,fri" {
		t.Fatalf("unexpected working days %q", got)
	}
	if got := WeekendDays.String(); got != "sat,sun" {
		t.Fatalf("unexpected weekend days %q", got)
	}
}

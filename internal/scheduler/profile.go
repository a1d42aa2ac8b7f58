package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/call-scheduler/internal/recurrence"
)

// MinutesPerDay is the exclusive upper bound for a TimeOfDay.
const MinutesPerDay = 24 * 60

// ErrConfiguration marks profile or engine settings that can never yield a schedule.
var ErrConfiguration = errors.New("scheduler: configuration error")

// ConfigError describes the offending configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("scheduler: invalid %s: %s", e.Field, e.Reason)
}

// Is allows errors.Is(err, ErrConfiguration).
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// TimeOfDay is a local wall clock time expressed in minutes after midnight.
// MinutesPerDay itself is allowed so a window can end at midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses an "HH:MM" string. "24:00" is accepted.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("scheduler: invalid time of day %q, expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("scheduler: invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("scheduler: invalid minute in %q", raw)
	}
	tod := NewTimeOfDay(hour, minute)
	if hour < 0 || tod > MinutesPerDay {
		return 0, fmt.Errorf("scheduler: time of day %q out of range", raw)
	}
	return tod, nil
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration { return time.Duration(t) * time.Minute }

// String renders the value as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Valid reports whether the value lies within a day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= MinutesPerDay
}

// on returns the instant at which t occurs on the local calendar day of ref
// shifted by dayOffset days.
func (t TimeOfDay) on(ref time.Time, dayOffset int, loc *time.Location) time.Time {
	y, m, d := ref.In(loc).Date()
	return time.Date(y, m, d+dayOffset, 0, int(t), 0, 0, loc)
}

// secondsOfDay returns the local wall clock second of t.
func secondsOfDay(local time.Time) int {
	h, m, s := local.Clock()
	return h*3600 + m*60 + s
}

// Profile is the per-user configuration the engine schedules against.
type Profile struct {
	Location       *time.Location
	ActiveDays     recurrence.Weekdays
	MorningStart   TimeOfDay
	EveningEnd     TimeOfDay
	DailyCallLimit int
}

// Validate checks the profile invariants.
func (p Profile) Validate() error {
	if p.Location == nil {
		return &ConfigError{Field: "timezone", Reason: "location is required"}
	}
	if p.ActiveDays.Empty() {
		return &ConfigError{Field: "active_days", Reason: "at least one active day is required"}
	}
	if !p.MorningStart.Valid() || !p.EveningEnd.Valid() {
		return &ConfigError{Field: "daily_window", Reason: "times must lie within a day"}
	}
	if p.MorningStart >= p.EveningEnd {
		return &ConfigError{Field: "daily_window", Reason: "morning start must be before evening end"}
	}
	if p.DailyCallLimit <= 0 {
		return &ConfigError{Field: "daily_call_limit", Reason: "must be positive"}
	}
	return nil
}

func (p Profile) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// LocalDate returns the profile-local calendar date of t formatted as YYYY-MM-DD.
func (p Profile) LocalDate(t time.Time) string {
	return t.In(p.location()).Format(time.DateOnly)
}

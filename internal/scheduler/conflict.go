package scheduler

import (
	"strings"
	"time"

	"github.com/example/call-scheduler/internal/recurrence"
)

// EscapeBuffer is added to the end of a blocking interval when suggesting an escape.
const EscapeBuffer = 15 * time.Minute

// Priority bounds for blocked intervals.
const (
	MinPriority = 0
	MaxPriority = 10
)

// BlockedInterval is a recurring local time range during which calls are not allowed.
type BlockedInterval struct {
	ID       string
	Name     string
	Start    TimeOfDay
	End      TimeOfDay
	Rule     recurrence.Rule
	Priority int
	Active   bool
}

// Reason returns the constraint tag reported when the interval blocks a candidate.
func (b BlockedInterval) Reason() string {
	slug := slugify(b.Name)
	if slug == "" {
		slug = slugify(b.ID)
	}
	if slug == "" {
		slug = "interval"
	}
	return "blocked_" + slug
}

// Validate checks the interval invariants.
func (b BlockedInterval) Validate() error {
	if !b.Start.Valid() || !b.End.Valid() {
		return &ConfigError{Field: "blocked_interval", Reason: "times must lie within a day"}
	}
	if b.Start >= b.End {
		return &ConfigError{Field: "blocked_interval", Reason: "start must be before end"}
	}
	if b.Priority < MinPriority || b.Priority > MaxPriority {
		return &ConfigError{Field: "priority", Reason: "must be between 0 and 10"}
	}
	if err := b.Rule.Validate(); err != nil {
		return &ConfigError{Field: "repeat_kind", Reason: err.Error()}
	}
	return nil
}

// covers reports whether the local wall clock time falls in [Start, End] on a
// day the rule applies to. Both bounds are inclusive.
func (b BlockedInterval) covers(local time.Time) bool {
	if !b.Active || !b.Rule.Applies(local.Weekday()) {
		return false
	}
	sec := secondsOfDay(local)
	return sec >= int(b.Start)*60 && sec <= int(b.End)*60
}

// ConflictResult is the outcome of CheckConflicts.
type ConflictResult struct {
	Blocked  bool
	Interval BlockedInterval
	Escape   time.Time
}

// CheckConflicts reports the highest priority active interval covering
// instant. Ties keep the earliest interval in the slice. The escape instant is
// the interval end plus EscapeBuffer, moved into the daily window if needed.
func CheckConflicts(instant time.Time, profile Profile, intervals []BlockedInterval) (ConflictResult, error) {
	loc := profile.location()
	local := instant.In(loc)

	found := -1
	for i := range intervals {
		if !intervals[i].covers(local) {
			continue
		}
		if found < 0 || intervals[i].Priority > intervals[found].Priority {
			found = i
		}
	}
	if found < 0 {
		return ConflictResult{}, nil
	}

	blocking := intervals[found]
	escape := blocking.End.on(local, 0, loc).Add(EscapeBuffer)
	window, err := EvaluateWindow(escape, profile)
	if err != nil {
		return ConflictResult{}, err
	}
	if !window.Valid {
		escape = window.Nearest
	}
	return ConflictResult{Blocked: true, Interval: blocking, Escape: escape}, nil
}

func slugify(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

package recurrence

import (
	"errors"
	"time"
)

// MaxExpandDays bounds the number of days a single expansion may cover.
const MaxExpandDays = 31

var (
	// ErrInvalidWindow indicates the time-of-day bounds are not ordered.
	ErrInvalidWindow = errors.New("recurrence: interval end must be after start")
	// ErrInvalidRange indicates the requested number of days is out of bounds.
	ErrInvalidRange = errors.New("recurrence: expansion range must cover 1 to 31 days")
)

// Occurrence is a concrete local realisation of a recurring interval.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Engine expands day-match rules into concrete occurrences in one location.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that normalizes results to the provided location.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location returns the zone occurrences are produced in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// Expand produces the occurrences of rule on each of the days local calendar
// days starting with the day containing from. start and end are offsets from
// local midnight. Days are advanced on the calendar, so occurrences keep their
// wall clock time across DST transitions.
func (e *Engine) Expand(rule Rule, start, end time.Duration, from time.Time, days int) ([]Occurrence, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if end <= start || start < 0 {
		return nil, ErrInvalidWindow
	}
	if days <= 0 || days > MaxExpandDays {
		return nil, ErrInvalidRange
	}

	loc := e.Location()
	y, m, d := from.In(loc).Date()
	startMin, endMin := int(start/time.Minute), int(end/time.Minute)

	occurrences := make([]Occurrence, 0, days)
	for i := 0; i < days; i++ {
		midnight := time.Date(y, m, d+i, 0, 0, 0, 0, loc)
		if !rule.Applies(midnight.Weekday()) {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			Start: time.Date(y, m, d+i, 0, startMin, 0, 0, loc),
			End:   time.Date(y, m, d+i, 0, endMin, 0, 0, loc),
		})
	}
	return occurrences, nil
}

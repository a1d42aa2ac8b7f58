package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind names the fixed repeat kinds a blocked interval can use.
type Kind string

const (
	// KindDaily applies on every day of the week.
	KindDaily Kind = "daily"
	// KindWeekdays applies Monday through Friday.
	KindWeekdays Kind = "weekdays"
	// KindWeekends applies on Saturday and Sunday.
	KindWeekends Kind = "weekends"
	// KindCustom applies on an explicit set of weekdays.
	KindCustom Kind = "custom"
	// KindOnce has no calendar date attached and therefore applies on every day.
	KindOnce Kind = "once"
)

var (
	// ErrInvalidKind indicates the repeat kind is not one of the supported values.
	ErrInvalidKind = errors.New("recurrence: invalid repeat kind")
	// ErrEmptyDaySet indicates a custom rule was configured without any weekday.
	ErrEmptyDaySet = errors.New("recurrence: custom rule requires at least one weekday")
	// ErrInvalidWeekday indicates a weekday token could not be parsed.
	ErrInvalidWeekday = errors.New("recurrence: invalid weekday")
)

// ParseKind converts a stored or user supplied token into a Kind.
func ParseKind(raw string) (Kind, error) {
	switch kind := Kind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case KindDaily, KindWeekdays, KindWeekends, KindCustom, KindOnce:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
}

// Weekdays is a compact set of weekdays.
type Weekdays uint8

const (
	// AllDays contains every weekday.
	AllDays Weekdays = 1<<7 - 1
	// WorkingDays contains Monday through Friday.
	WorkingDays Weekdays = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday
	// WeekendDays contains Saturday and Sunday.
	WeekendDays Weekdays = 1<<time.Saturday | 1<<time.Sunday
)

var weekdayTokens = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// NewWeekdays builds a set containing the provided days.
func NewWeekdays(days ...time.Weekday) Weekdays {
	var set Weekdays
	for _, day := range days {
		set = set.With(day)
	}
	return set
}

// With returns a copy of the set that also contains day.
func (w Weekdays) With(day time.Weekday) Weekdays {
	if day < time.Sunday || day > time.Saturday {
		return w
	}
	return w | 1<<day
}

// Has reports whether day is part of the set.
func (w Weekdays) Has(day time.Weekday) bool {
	if day < time.Sunday || day > time.Saturday {
		return false
	}
	return w&(1<<day) != 0
}

// Empty reports whether the set contains no days.
func (w Weekdays) Empty() bool {
	return w&AllDays == 0
}

// Days lists the contained days starting from Monday.
func (w Weekdays) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for i := 1; i <= 7; i++ {
		day := time.Weekday(i % 7)
		if w.Has(day) {
			days = append(days, day)
		}
	}
	return days
}

// Tokens returns the lowercase three letter tokens for the set, Monday first.
func (w Weekdays) Tokens() []string {
	days := w.Days()
	tokens := make([]string, 0, len(days))
	for _, day := range days {
		tokens = append(tokens, weekdayTokens[day])
	}
	return tokens
}

// String renders the set as a comma separated token list.
func (w Weekdays) String() string {
	return strings.Join(w.Tokens(), ",")
}

// ParseWeekday accepts either a three letter token or a full English day name.
func ParseWeekday(raw string) (time.Weekday, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if len(token) > 3 {
		for day := time.Sunday; day <= time.Saturday; day++ {
			if strings.ToLower(day.String()) == token {
				return day, nil
			}
		}
	}
	for i, candidate := range weekdayTokens {
		if candidate == token {
			return time.Weekday(i), nil
		}
	}
	return time.Sunday, fmt.Errorf("%w: %q", ErrInvalidWeekday, raw)
}

// ParseWeekdays parses tokens into a set. Blank tokens are ignored.
func ParseWeekdays(tokens []string) (Weekdays, error) {
	var set Weekdays
	for _, token := range tokens {
		if strings.TrimSpace(token) == "" {
			continue
		}
		day, err := ParseWeekday(token)
		if err != nil {
			return 0, err
		}
		set = set.With(day)
	}
	return set, nil
}

// ParseWeekdayList parses a comma separated list such as "mon,wed,fri".
func ParseWeekdayList(raw string) (Weekdays, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return ParseWeekdays(strings.Split(raw, ","))
}

// Rule is the day-match rule of a recurring interval.
type Rule struct {
	Kind Kind
	// Days is only consulted for KindCustom.
	Days Weekdays
}

// Validate checks the rule for internal consistency.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindDaily, KindWeekdays, KindWeekends, KindOnce:
		return nil
	case KindCustom:
		if r.Days.Empty() {
			return ErrEmptyDaySet
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(r.Kind))
	}
}

// Applies reports whether the rule matches the given weekday.
func (r Rule) Applies(day time.Weekday) bool {
	return r.days().Has(day)
}

func (r Rule) days() Weekdays {
	switch r.Kind {
	case KindDaily, KindOnce:
		return AllDays
	case KindWeekdays:
		return WorkingDays
	case KindWeekends:
		return WeekendDays
	case KindCustom:
		return r.Days
	default:
		return 0
	}
}

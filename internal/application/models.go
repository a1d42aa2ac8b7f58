package application

import (
	"time"

	"github.com/example/call-scheduler/internal/recurrence"
	"github.com/example/call-scheduler/internal/scheduler"
)

// Profile holds a user's scheduling preferences.
type Profile struct {
	UserID         string
	Timezone       string
	ActiveDays     recurrence.Weekdays
	MorningStart   scheduler.TimeOfDay
	EveningEnd     scheduler.TimeOfDay
	DailyCallLimit int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SchedulerProfile resolves the timezone and returns the engine view of the
// profile. An unknown zone yields a *ConfigurationError.
func (p Profile) SchedulerProfile() (scheduler.Profile, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return scheduler.Profile{}, &ConfigurationError{Field: "timezone", Reason: "unknown timezone " + p.Timezone, Err: err}
	}
	return scheduler.Profile{
		Location:       loc,
		ActiveDays:     p.ActiveDays,
		MorningStart:   p.MorningStart,
		EveningEnd:     p.EveningEnd,
		DailyCallLimit: p.DailyCallLimit,
	}, nil
}

// ProfileInput captures caller provided profile fields. Times of day use
// "HH:MM" and days use weekday tokens such as "mon".
type ProfileInput struct {
	Timezone       string
	ActiveDays     []string
	MorningStart   string
	EveningEnd     string
	DailyCallLimit int
}

// BlockedInterval is a recurring range during which no call is scheduled.
type BlockedInterval struct {
	ID        string
	UserID    string
	Name      string
	Start     scheduler.TimeOfDay
	End       scheduler.TimeOfDay
	Rule      recurrence.Rule
	Priority  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SchedulerInterval returns the engine view of the interval.
func (b BlockedInterval) SchedulerInterval() scheduler.BlockedInterval {
	return scheduler.BlockedInterval{
		ID:       b.ID,
		Name:     b.Name,
		Start:    b.Start,
		End:      b.End,
		Rule:     b.Rule,
		Priority: b.Priority,
		Active:   b.Active,
	}
}

// BlockedIntervalInput captures caller provided interval fields. A nil Active
// defaults to true on create and keeps the stored value on update.
type BlockedIntervalInput struct {
	Name       string
	Start      string
	End        string
	RepeatKind string
	CustomDays []string
	Priority   int
	Active     *bool
}

// ScheduleState is the per-user scheduling row guarded by Version.
type ScheduleState struct {
	UserID         string
	NextCallDue    *time.Time
	LastCallTime   *time.Time
	LastGenerated  *time.Time
	CallsToday     int
	DailyResetDate string
	Version        int64
	UpdatedAt      time.Time
}

// ScheduleStatePatch lists the fields a conditional write changes. Nil
// pointers leave the stored value untouched.
type ScheduleStatePatch struct {
	NextCallDue      *time.Time
	ClearNextCallDue bool
	LastCallTime     *time.Time
	LastGenerated    *time.Time
	CallsToday       *int
	DailyResetDate   *string
}

// ApplyDailyReset zeroes CallsToday when the stored reset date is not today.
// It reports whether a reset happened and is idempotent for a given today.
func ApplyDailyReset(state ScheduleState, today string) (ScheduleState, bool) {
	if state.DailyResetDate == today {
		return state, false
	}
	state.CallsToday = 0
	state.DailyResetDate = today
	return state, true
}

// Outcome is the result of a call attempt.
type Outcome string

const (
	OutcomeCalled    Outcome = "called"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeLater     Outcome = "later"
	OutcomeFailed    Outcome = "failed"
	OutcomeSuggested Outcome = "suggested"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCalled, OutcomeSkipped, OutcomeLater, OutcomeFailed, OutcomeSuggested:
		return true
	}
	return false
}

// CallAttempt is an append-only record of a call.
type CallAttempt struct {
	ID            string
	UserID        string
	ScheduledTime *time.Time
	ActualTime    time.Time
	Outcome       Outcome
	Platform      string
	Rating        *int
	Notes         string
	CreatedAt     time.Time
}

// Proposal is a committed scheduling result.
type Proposal struct {
	UserID            string
	Instant           time.Time
	Strategy          scheduler.Strategy
	Attempts          int
	Constraints       []string
	Relaxation        *scheduler.Relaxation
	DailyLimitReached bool
	State             ScheduleState
}

// RecordAttemptParams wraps the data required to record a call attempt.
type RecordAttemptParams struct {
	UserID   string
	Outcome  Outcome
	Platform string
	Rating   *int
	Notes    string
}

// AttemptResult is the outcome of RecordAttempt. Record is the logged attempt,
// its ScheduledTime is the proposal that was consumed, if any.
type AttemptResult struct {
	State  ScheduleState
	Record CallAttempt
}

// InstantValidation is the outcome of checking a caller supplied instant.
type InstantValidation struct {
	Valid      bool
	Reason     string
	Suggestion *time.Time
}

// UpcomingBlock is a concrete occurrence of a blocked interval.
type UpcomingBlock struct {
	IntervalID string
	Name       string
	Priority   int
	Start      time.Time
	End        time.Time
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

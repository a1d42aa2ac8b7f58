package persistence

import "time"

// Profile stores a user's scheduling preferences. Times of day are minutes
// after local midnight.
type Profile struct {
	UserID         string
	Timezone       string
	ActiveDays     []string
	MorningStart   int
	EveningEnd     int
	DailyCallLimit int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BlockedInterval stores a recurring do-not-call range owned by a user.
type BlockedInterval struct {
	ID          string
	UserID      string
	Name        string
	StartMinute int
	EndMinute   int
	RepeatKind  string
	CustomDays  []string
	Priority    int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ScheduleState is the concurrency controlled scheduling row of a user.
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

// Apply returns state with the patch applied. The version is not touched.
func (p ScheduleStatePatch) Apply(state ScheduleState) ScheduleState {
	if p.ClearNextCallDue {
		state.NextCallDue = nil
	}
	if p.NextCallDue != nil {
		state.NextCallDue = cloneTime(p.NextCallDue)
	}
	if p.LastCallTime != nil {
		state.LastCallTime = cloneTime(p.LastCallTime)
	}
	if p.LastGenerated != nil {
		state.LastGenerated = cloneTime(p.LastGenerated)
	}
	if p.CallsToday != nil {
		state.CallsToday = *p.CallsToday
	}
	if p.DailyResetDate != nil {
		state.DailyResetDate = *p.DailyResetDate
	}
	return state
}

// CallAttempt is an append-only record of a call made against a proposal.
type CallAttempt struct {
	ID            string
	UserID        string
	ScheduledTime *time.Time
	ActualTime    time.Time
	Outcome       string
	Platform      string
	Rating        *int
	Notes         string
	CreatedAt     time.Time
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

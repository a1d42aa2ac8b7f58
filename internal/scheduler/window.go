package scheduler

import "time"

// Constraint reasons reported by the evaluators and the orchestrator.
const (
	ReasonOutsideDailyWindow = "outside_daily_window"
	ReasonInactiveDay        = "inactive_day"
	ReasonMinGap             = "min_gap"
	ReasonPastTime           = "past_time"
	ReasonDailyLimitReached  = "daily_limit_reached"
)

// WindowResult is the outcome of EvaluateWindow. Nearest is zero when Valid.
type WindowResult struct {
	Valid   bool
	Reason  string
	Nearest time.Time
}

// EvaluateWindow checks instant against the profile's daily window and active
// days. When the instant is rejected, Nearest holds the earliest morning start
// at or after the rejected day that falls on an active day.
func EvaluateWindow(instant time.Time, profile Profile) (WindowResult, error) {
	if profile.ActiveDays.Empty() {
		return WindowResult{}, &ConfigError{Field: "active_days", Reason: "at least one active day is required"}
	}
	loc := profile.location()
	local := instant.In(loc)
	sec := secondsOfDay(local)

	switch {
	case sec < int(profile.MorningStart)*60:
		return WindowResult{Reason: ReasonOutsideDailyWindow, Nearest: nextMorning(local, 0, profile)}, nil
	case sec >= int(profile.EveningEnd)*60:
		return WindowResult{Reason: ReasonOutsideDailyWindow, Nearest: nextMorning(local, 1, profile)}, nil
	case !profile.ActiveDays.Has(local.Weekday()):
		return WindowResult{Reason: ReasonInactiveDay, Nearest: nextMorning(local, 1, profile)}, nil
	}
	return WindowResult{Valid: true}, nil
}

// nextMorning scans at most seven days forward from local+offset and returns
// the morning start of the first active day. ActiveDays must be non-empty.
func nextMorning(local time.Time, offset int, profile Profile) time.Time {
	loc := profile.location()
	y, m, d := local.Date()
	for i := offset; i < offset+7; i++ {
		if profile.ActiveDays.Has(time.Date(y, m, d+i, 0, 0, 0, 0, loc).Weekday()) {
			return profile.MorningStart.on(local, i, loc)
		}
	}
	return profile.MorningStart.on(local, offset, loc)
}

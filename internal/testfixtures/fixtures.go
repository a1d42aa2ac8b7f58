package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/call-scheduler/internal/adapters"
	"github.com/example/call-scheduler/internal/application"
	"github.com/example/call-scheduler/internal/persistence"
	"github.com/example/call-scheduler/internal/recurrence"
	"github.com/example/call-scheduler/internal/scheduler"
)

var (
	profileCounter  uint64
	intervalCounter uint64
	attemptCounter  uint64
)

// referenceTime is a Wednesday, 11:00 in Asia/Tokyo.
var referenceTime = time.Date(2023, time.October, 25, 2, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ---------------------------- Profile fixtures ----------------------------

// ProfileFixture represents a deterministic scheduling profile that can be
// materialised for application or persistence tests.
type ProfileFixture struct {
	UserID         string
	Timezone       string
	ActiveDays     recurrence.Weekdays
	MorningStart   scheduler.TimeOfDay
	EveningEnd     scheduler.TimeOfDay
	DailyCallLimit int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfileOption configures the generated profile fixture.
type ProfileOption func(*ProfileFixture)

// NewProfileFixture returns a Tokyo profile active every day from 09:00 to
// 21:00 with a limit of three calls.
func NewProfileFixture(opts ...ProfileOption) ProfileFixture {
	idx := atomic.AddUint64(&profileCounter, 1)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := ProfileFixture{
		UserID:         fmt.Sprintf("user-%03d", idx),
		Timezone:       "Asia/Tokyo",
		ActiveDays:     recurrence.AllDays,
		MorningStart:   scheduler.NewTimeOfDay(9, 0),
		EveningEnd:     scheduler.NewTimeOfDay(21, 0),
		DailyCallLimit: 3,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProfileUserID overrides the generated user ID.
func WithProfileUserID(id string) ProfileOption {
	return func(f *ProfileFixture) {
		f.UserID = id
	}
}

// WithProfileTimezone overrides the IANA zone.
func WithProfileTimezone(zone string) ProfileOption {
	return func(f *ProfileFixture) {
		f.Timezone = zone
	}
}

// WithProfileActiveDays overrides the active weekdays.
func WithProfileActiveDays(days ...time.Weekday) ProfileOption {
	return func(f *ProfileFixture) {
		f.ActiveDays = recurrence.NewWeekdays(days...)
	}
}

// WithProfileWindow overrides the daily window.
func WithProfileWindow(start, end scheduler.TimeOfDay) ProfileOption {
	return func(f *ProfileFixture) {
		f.MorningStart = start
		f.EveningEnd = end
	}
}

// WithProfileDailyLimit overrides the daily call limit.
func WithProfileDailyLimit(limit int) ProfileOption {
	return func(f *ProfileFixture) {
		f.DailyCallLimit = limit
	}
}

// WithProfileTimestamps sets both created and updated timestamps.
func WithProfileTimestamps(created, updated time.Time) ProfileOption {
	return func(f *ProfileFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Profile value.
func (f ProfileFixture) Application() application.Profile {
	return application.Profile{
		UserID:         f.UserID,
		Timezone:       f.Timezone,
		ActiveDays:     f.ActiveDays,
		MorningStart:   f.MorningStart,
		EveningEnd:     f.EveningEnd,
		DailyCallLimit: f.DailyCallLimit,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Profile value.
func (f ProfileFixture) Persistence() persistence.Profile {
	return adapters.ToPersistenceProfile(f.Application())
}

// Input returns the fixture as an application.ProfileInput.
func (f ProfileFixture) Input() application.ProfileInput {
	return application.ProfileInput{
		Timezone:       f.Timezone,
		ActiveDays:     f.ActiveDays.Tokens(),
		MorningStart:   f.MorningStart.String(),
		EveningEnd:     f.EveningEnd.String(),
		DailyCallLimit: f.DailyCallLimit,
	}
}

// ------------------------ Blocked interval fixtures ------------------------

// BlockedIntervalFixture represents a deterministic blocked interval.
type BlockedIntervalFixture struct {
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

// BlockedIntervalOption configures the generated interval fixture.
type BlockedIntervalOption func(*BlockedIntervalFixture)

// NewBlockedIntervalFixture returns a daily 12:00-13:00 interval of priority 5.
func NewBlockedIntervalFixture(opts ...BlockedIntervalOption) BlockedIntervalFixture {
	idx := atomic.AddUint64(&intervalCounter, 1)
	created := referenceTime.Add(-time.Duration(idx) * time.Minute)
	fixture := BlockedIntervalFixture{
		ID:        fmt.Sprintf("interval-%03d", idx),
		UserID:    "user-001",
		Name:      fmt.Sprintf("Block %03d", idx),
		Start:     scheduler.NewTimeOfDay(12, 0),
		End:       scheduler.NewTimeOfDay(13, 0),
		Rule:      recurrence.Rule{Kind: recurrence.KindDaily},
		Priority:  5,
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithIntervalID overrides the interval ID.
func WithIntervalID(id string) BlockedIntervalOption {
	return func(f *BlockedIntervalFixture) {
		f.ID = id
	}
}

// WithIntervalUser sets the owning user.
func WithIntervalUser(userID string) BlockedIntervalOption {
	return func(f *BlockedIntervalFixture) {
		f.UserID = userID
	}
}

// WithIntervalName overrides the interval name.
func WithIntervalName(name string) BlockedIntervalOption {
	return func(f *BlockedIntervalFixture) {
		f.Name = name
	}
}

// WithIntervalRange sets the time-of-day range.
func WithIntervalRange(start, end scheduler.TimeOfDay) BlockedIntervalOption {
	return func(f *BlockedIntervalFixture) {
		f.Start = start
		f.End = end
	}
}

// WithIntervalRule sets the recurrence rule.
func WithIntervalRule(rule recurrence.Rule) BlockedIntervalOption {
	return func(f *BlockedIntervalFixture) {
		f.Rule = rule
	}
}

// WithIntervalPriority sets the priority.
func WithIntervalPriority(priority int) BlockedIntervalOption {
	return func(f *BlockedIntervalFixture) {
		f.Priority = priority
	}
}

// WithIntervalActive sets the active flag.
func WithIntervalActive(active bool) BlockedIntervalOption {
	return func(f *BlockedIntervalFixture) {
		f.Active = active
	}
}

// WithIntervalCreatedAt sets both timestamps.
func WithIntervalCreatedAt(t time.Time) BlockedIntervalOption {
	return func(f *BlockedIntervalFixture) {
		f.CreatedAt = t
		f.UpdatedAt = t
	}
}

// Application returns the fixture as an application.BlockedInterval value.
func (f BlockedIntervalFixture) Application() application.BlockedInterval {
	return application.BlockedInterval{
		ID:        f.ID,
		UserID:    f.UserID,
		Name:      f.Name,
		Start:     f.Start,
		End:       f.End,
		Rule:      f.Rule,
		Priority:  f.Priority,
		Active:    f.Active,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.BlockedInterval value.
func (f BlockedIntervalFixture) Persistence() persistence.BlockedInterval {
	return adapters.ToPersistenceInterval(f.Application())
}

// Input returns the fixture as an application.BlockedIntervalInput.
func (f BlockedIntervalFixture) Input() application.BlockedIntervalInput {
	active := f.Active
	input := application.BlockedIntervalInput{
		Name:       f.Name,
		Start:      f.Start.String(),
		End:        f.End.String(),
		RepeatKind: string(f.Rule.Kind),
		Priority:   f.Priority,
		Active:     &active,
	}
	if f.Rule.Kind == recurrence.KindCustom {
		input.CustomDays = f.Rule.Days.Tokens()
	}
	return input
}

// -------------------------- Call attempt fixtures --------------------------

// CallAttemptFixture represents a deterministic call attempt record.
type CallAttemptFixture struct {
	ID            string
	UserID        string
	ScheduledTime *time.Time
	ActualTime    time.Time
	Outcome       application.Outcome
	Platform      string
	Rating        *int
	Notes         string
}

// CallAttemptOption configures the generated attempt fixture.
type CallAttemptOption func(*CallAttemptFixture)

// NewCallAttemptFixture returns a "called" attempt; each new fixture is one
// minute later than the previous.
func NewCallAttemptFixture(opts ...CallAttemptOption) CallAttemptFixture {
	idx := atomic.AddUint64(&attemptCounter, 1)
	fixture := CallAttemptFixture{
		ID:         fmt.Sprintf("attempt-%03d", idx),
		UserID:     "user-001",
		ActualTime: referenceTime.Add(time.Duration(idx) * time.Minute),
		Outcome:    application.OutcomeCalled,
		Platform:   "phone",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAttemptUser sets the owning user.
func WithAttemptUser(userID string) CallAttemptOption {
	return func(f *CallAttemptFixture) {
		f.UserID = userID
	}
}

// WithAttemptActualTime sets the moment the attempt was recorded.
func WithAttemptActualTime(t time.Time) CallAttemptOption {
	return func(f *CallAttemptFixture) {
		f.ActualTime = t
	}
}

// WithAttemptScheduled sets the consumed proposal.
func WithAttemptScheduled(t time.Time) CallAttemptOption {
	return func(f *CallAttemptFixture) {
		f.ScheduledTime = &t
	}
}

// WithAttemptOutcome sets the outcome.
func WithAttemptOutcome(outcome application.Outcome) CallAttemptOption {
	return func(f *CallAttemptFixture) {
		f.Outcome = outcome
	}
}

// WithAttemptRating sets the rating.
func WithAttemptRating(rating int) CallAttemptOption {
	return func(f *CallAttemptFixture) {
		f.Rating = &rating
	}
}

// Application returns the fixture as an application.CallAttempt value.
func (f CallAttemptFixture) Application() application.CallAttempt {
	var rating *int
	if f.Rating != nil {
		r := *f.Rating
		rating = &r
	}
	var scheduled *time.Time
	if f.ScheduledTime != nil {
		s := *f.ScheduledTime
		scheduled = &s
	}
	return application.CallAttempt{
		ID:            f.ID,
		UserID:        f.UserID,
		ScheduledTime: scheduled,
		ActualTime:    f.ActualTime,
		Outcome:       f.Outcome,
		Platform:      f.Platform,
		Rating:        rating,
		Notes:         f.Notes,
		CreatedAt:     f.ActualTime,
	}
}

// Persistence returns the fixture as a persistence.CallAttempt value.
func (f CallAttemptFixture) Persistence() persistence.CallAttempt {
	return adapters.ToPersistenceAttempt(f.Application())
}

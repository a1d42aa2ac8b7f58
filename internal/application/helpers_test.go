package application

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/example/call-scheduler/internal/persistence"
	"github.com/example/call-scheduler/internal/recurrence"
	"github.com/example/call-scheduler/internal/scheduler"
)

// referenceNow is Wednesday 2023-10-25 11:00 in Tokyo.
var referenceNow = time.Date(2023, time.October, 25, 2, 0, 0, 0, time.UTC)

func tokyoLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load Asia/Tokyo: %v", err)
	}
	return loc
}

func tokyoTime(t *testing.T, day, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2023, time.October, day, hour, minute, 0, 0, tokyoLocation(t))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedSource always returns v clamped into [0, n).
type fixedSource int64

func (f fixedSource) Int64N(n int64) int64 {
	if int64(f) >= n {
		return n - 1
	}
	return int64(f)
}

func newTestEngine(t *testing.T) *scheduler.Engine {
	t.Helper()
	engine, err := scheduler.NewEngine(scheduler.DefaultConfig(), fixedSource(0))
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return engine
}

func tokyoProfile(userID string) Profile {
	return Profile{
		UserID:         userID,
		Timezone:       "Asia/Tokyo",
		ActiveDays:     recurrence.AllDays,
		MorningStart:   scheduler.NewTimeOfDay(9, 0),
		EveningEnd:     scheduler.NewTimeOfDay(21, 0),
		DailyCallLimit: 3,
	}
}

func lunchInterval(userID string) BlockedInterval {
	return BlockedInterval{
		ID:       "lunch",
		UserID:   userID,
		Name:     "Lunch",
		Start:    scheduler.NewTimeOfDay(12, 0),
		End:      scheduler.NewTimeOfDay(13, 0),
		Rule:     recurrence.Rule{Kind: recurrence.KindDaily},
		Priority: 1,
		Active:   true,
	}
}

type profileRepoStub struct {
	mu        sync.Mutex
	profiles  map[string]Profile
	getErr    error
	upsertErr error
	upserts   int
}

func newProfileRepoStub(profiles ...Profile) *profileRepoStub {
	stub := &profileRepoStub{profiles: make(map[string]Profile)}
	for _, p := range profiles {
		stub.profiles[p.UserID] = p
	}
	return stub
}

func (s *profileRepoStub) GetProfile(ctx context.Context, userID string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return Profile{}, s.getErr
	}
	profile, ok := s.profiles[userID]
	if !ok {
		return Profile{}, persistence.ErrNotFound
	}
	return profile, nil
}

func (s *profileRepoStub) UpsertProfile(ctx context.Context, profile Profile) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return Profile{}, s.upsertErr
	}
	s.upserts++
	s.profiles[profile.UserID] = profile
	return profile, nil
}

type intervalRepoStub struct {
	mu        sync.Mutex
	intervals []BlockedInterval
	listErr   error
	createErr error
}

func (s *intervalRepoStub) CreateBlockedInterval(ctx context.Context, interval BlockedInterval) (BlockedInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return BlockedInterval{}, s.createErr
	}
	s.intervals = append(s.intervals, interval)
	return interval, nil
}

func (s *intervalRepoStub) UpdateBlockedInterval(ctx context.Context, interval BlockedInterval) (BlockedInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.intervals {
		if existing.ID == interval.ID && existing.UserID == interval.UserID {
			s.intervals[i] = interval
			return interval, nil
		}
	}
	return BlockedInterval{}, persistence.ErrNotFound
}

func (s *intervalRepoStub) GetBlockedInterval(ctx context.Context, userID, id string) (BlockedInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.intervals {
		if existing.ID == id && existing.UserID == userID {
			return existing, nil
		}
	}
	return BlockedInterval{}, persistence.ErrNotFound
}

func (s *intervalRepoStub) ListBlockedIntervals(ctx context.Context, userID string, activeOnly bool) ([]BlockedInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []BlockedInterval
	for _, interval := range s.intervals {
		if interval.UserID != userID || (activeOnly && !interval.Active) {
			continue
		}
		out = append(out, interval)
	}
	return out, nil
}

// stateStoreStub is a compare-and-swap store. loadBarrier, when set, holds
// every load until the expected number of loads has arrived.
type stateStoreStub struct {
	mu          sync.Mutex
	states      map[string]ScheduleState
	loadErr     error
	writeErr    error
	writes      int
	beforeWrite func(s *stateStoreStub, userID string)
	loadBarrier *sync.WaitGroup
}

func newStateStoreStub(states ...ScheduleState) *stateStoreStub {
	stub := &stateStoreStub{states: make(map[string]ScheduleState)}
	for _, st := range states {
		stub.states[st.UserID] = st
	}
	return stub
}

func (s *stateStoreStub) LoadScheduleState(ctx context.Context, userID string) (ScheduleState, error) {
	s.mu.Lock()
	state, ok := s.states[userID]
	err := s.loadErr
	barrier := s.loadBarrier
	s.mu.Unlock()

	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	if err != nil {
		return ScheduleState{}, err
	}
	if !ok {
		return ScheduleState{}, persistence.ErrNotFound
	}
	return state, nil
}

func (s *stateStoreStub) ConditionalWrite(ctx context.Context, userID string, patch ScheduleStatePatch, expectedVersion int64) (ScheduleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beforeWrite != nil {
		s.beforeWrite(s, userID)
	}
	if s.writeErr != nil {
		return ScheduleState{}, s.writeErr
	}
	current, ok := s.states[userID]
	if !ok {
		current = ScheduleState{UserID: userID}
	}
	if current.Version != expectedVersion {
		return ScheduleState{}, persistence.ErrVersionConflict
	}

	if patch.ClearNextCallDue {
		current.NextCallDue = nil
	}
	if patch.NextCallDue != nil {
		current.NextCallDue = cloneTime(patch.NextCallDue)
	}
	if patch.LastCallTime != nil {
		current.LastCallTime = cloneTime(patch.LastCallTime)
	}
	if patch.LastGenerated != nil {
		current.LastGenerated = cloneTime(patch.LastGenerated)
	}
	if patch.CallsToday != nil {
		current.CallsToday = *patch.CallsToday
	}
	if patch.DailyResetDate != nil {
		current.DailyResetDate = *patch.DailyResetDate
	}
	current.Version++
	s.writes++
	s.states[userID] = current
	return current, nil
}

func (s *stateStoreStub) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type attemptLogStub struct {
	mu      sync.Mutex
	records []CallAttempt
	err     error
	limit   int
}

func (s *attemptLogStub) AppendCallAttempt(ctx context.Context, attempt CallAttempt) (CallAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return CallAttempt{}, s.err
	}
	s.records = append(s.records, attempt)
	return attempt, nil
}

func (s *attemptLogStub) ListCallAttempts(ctx context.Context, userID string, limit int) ([]CallAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.limit = limit
	var out []CallAttempt
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].UserID == userID {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

type observerStub struct {
	mu        sync.Mutex
	committed []string
	exhausted []int
	outcomes  []string
	conflicts []string
}

func (o *observerStub) ProposalCommitted(strategy string, attempts int, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.committed = append(o.committed, strategy)
}

func (o *observerStub) ProposalExhausted(attempts int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exhausted = append(o.exhausted, attempts)
}

func (o *observerStub) AttemptRecorded(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *observerStub) ConflictDetected(operation string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conflicts = append(o.conflicts, operation)
}

func sequenceIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/call-scheduler/internal/persistence"
	"github.com/example/call-scheduler/internal/scheduler"
)

// ProfileReader loads scheduling profiles.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// BlockedIntervalLister loads a user's blocked intervals ordered by
// descending priority.
type BlockedIntervalLister interface {
	ListBlockedIntervals(ctx context.Context, userID string, activeOnly bool) ([]BlockedInterval, error)
}

// ScheduleStateStore reads schedule state and writes it under a version
// precondition.
type ScheduleStateStore interface {
	// LoadScheduleState returns an error matching ErrNotFound or
	// persistence.ErrNotFound when the user has no state yet.
	LoadScheduleState(ctx context.Context, userID string) (ScheduleState, error)
	// ConditionalWrite fails with a version conflict when the stored version
	// differs from expectedVersion. Version zero means no state exists.
	ConditionalWrite(ctx context.Context, userID string, patch ScheduleStatePatch, expectedVersion int64) (ScheduleState, error)
}

// CallAttemptAppender persists call attempt records.
type CallAttemptAppender interface {
	AppendCallAttempt(ctx context.Context, attempt CallAttempt) (CallAttempt, error)
}

// ManagerOption customises a ScheduleManager.
type ManagerOption func(*ScheduleManager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *ScheduleManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the base logger used when the context carries none.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *ScheduleManager) {
		m.logger = defaultLogger(logger)
	}
}

// WithObserver registers an observer for operation outcomes.
func WithObserver(observer Observer) ManagerOption {
	return func(m *ScheduleManager) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// WithAttemptLog makes RecordAttempt append a CallAttempt record after the
// state write succeeds. idGenerator supplies record IDs.
func WithAttemptLog(log CallAttemptAppender, idGenerator func() string) ManagerOption {
	return func(m *ScheduleManager) {
		m.attempts = log
		if idGenerator != nil {
			m.idGenerator = idGenerator
		}
	}
}

// ScheduleManager runs the read, compute and conditional write cycle that
// proposes, consumes and validates call instants. It keeps no per-user state.
type ScheduleManager struct {
	profiles    ProfileReader
	intervals   BlockedIntervalLister
	states      ScheduleStateStore
	attempts    CallAttemptAppender
	engine      *scheduler.Engine
	idGenerator func() string
	now         func() time.Time
	observer    Observer
	logger      *slog.Logger
}

// NewScheduleManager wires the collaborators of the state manager.
func NewScheduleManager(profiles ProfileReader, intervals BlockedIntervalLister, states ScheduleStateStore, engine *scheduler.Engine, opts ...ManagerOption) *ScheduleManager {
	m := &ScheduleManager{
		profiles:    profiles,
		intervals:   intervals,
		states:      states,
		engine:      engine,
		idGenerator: func() string { return "" },
		now:         time.Now,
		observer:    NopObserver{},
		logger:      defaultLogger(nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *ScheduleManager) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	var base *slog.Logger
	if m != nil {
		base = m.logger
	}
	return serviceLogger(ctx, base, "ScheduleManager", operation, attrs...)
}

// snapshot is everything one operation reads before computing.
type snapshot struct {
	profile   scheduler.Profile
	state     ScheduleState
	reset     bool
	today     string
	intervals []scheduler.BlockedInterval
	now       time.Time
}

func (m *ScheduleManager) load(ctx context.Context, userID string, withIntervals bool) (snapshot, error) {
	if m == nil {
		return snapshot{}, fmt.Errorf("ScheduleManager is nil")
	}
	if strings.TrimSpace(userID) == "" {
		vErr := &ValidationError{}
		vErr.add("user_id", "user id is required")
		return snapshot{}, vErr
	}

	stored, err := m.profiles.GetProfile(ctx, userID)
	if err != nil {
		return snapshot{}, mapRepoError("load profile", err)
	}
	profile, err := stored.SchedulerProfile()
	if err != nil {
		return snapshot{}, err
	}

	state, err := m.states.LoadScheduleState(ctx, userID)
	switch {
	case isNotFound(err):
		state = ScheduleState{UserID: userID}
	case err != nil:
		return snapshot{}, mapStateRepoError("load schedule state", err)
	}

	snap := snapshot{profile: profile, now: m.now()}
	snap.today = profile.LocalDate(snap.now)
	snap.state, snap.reset = ApplyDailyReset(state, snap.today)

	if withIntervals {
		intervals, err := m.intervals.ListBlockedIntervals(ctx, userID, true)
		if err != nil {
			return snapshot{}, mapRepoError("list blocked intervals", err)
		}
		snap.intervals = make([]scheduler.BlockedInterval, 0, len(intervals))
		for _, interval := range intervals {
			snap.intervals = append(snap.intervals, interval.SchedulerInterval())
		}
	}
	return snap, nil
}

func (s snapshot) request() scheduler.Request {
	return scheduler.Request{
		Now:          s.now,
		Profile:      s.profile,
		LastCallTime: s.state.LastCallTime,
		CallsToday:   s.state.CallsToday,
		Intervals:    s.intervals,
	}
}

// resetPatch carries a pending daily reset into a write.
func (s snapshot) resetPatch() ScheduleStatePatch {
	if !s.reset {
		return ScheduleStatePatch{}
	}
	calls, today := s.state.CallsToday, s.today
	return ScheduleStatePatch{CallsToday: &calls, DailyResetDate: &today}
}

// ProposeAndCommit computes the next call instant for userID and commits it
// as nextCallDue. A concurrent write between read and commit yields
// ErrConcurrentModification; the whole call must then be repeated.
func (m *ScheduleManager) ProposeAndCommit(ctx context.Context, userID string) (proposal Proposal, err error) {
	logger := m.loggerWith(ctx, "ProposeAndCommit", "user_id", userID)
	started := time.Now()
	defer func() {
		if err != nil {
			logger.Log(ctx, errorLevel(err), "failed to propose call", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "call proposed",
			"instant", proposal.Instant,
			"strategy", proposal.Strategy,
			"attempts", proposal.Attempts,
			"version", proposal.State.Version,
		)
	}()

	snap, err := m.load(ctx, userID, true)
	if err != nil {
		return Proposal{}, err
	}

	result, err := m.engine.Schedule(snap.request())
	if err != nil {
		err = mapEngineError(err)
		var noSlot *NoValidSlotError
		if errors.As(err, &noSlot) {
			m.observer.ProposalExhausted(noSlot.Attempts)
		}
		return Proposal{}, err
	}

	instant, now := result.Instant, snap.now
	patch := snap.resetPatch()
	patch.NextCallDue = &instant
	patch.LastGenerated = &now

	written, err := m.states.ConditionalWrite(ctx, userID, patch, snap.state.Version)
	if err != nil {
		err = mapStateRepoError("commit proposal", err)
		if errors.Is(err, ErrConcurrentModification) {
			m.observer.ConflictDetected("propose")
		}
		return Proposal{}, err
	}

	m.observer.ProposalCommitted(string(result.Strategy), result.Attempts, time.Since(started))
	return Proposal{
		UserID:            userID,
		Instant:           result.Instant,
		Strategy:          result.Strategy,
		Attempts:          result.Attempts,
		Constraints:       result.Constraints,
		Relaxation:        result.Relaxation,
		DailyLimitReached: result.DailyLimitReached,
		State:             written,
	}, nil
}

// RecordAttempt consumes the pending proposal. It clears nextCallDue, sets
// lastCallTime to now and counts the call toward today's quota only when the
// outcome is OutcomeCalled.
func (m *ScheduleManager) RecordAttempt(ctx context.Context, params RecordAttemptParams) (result AttemptResult, err error) {
	logger := m.loggerWith(ctx, "RecordAttempt", "user_id", params.UserID, "outcome", params.Outcome)
	defer func() {
		if err != nil {
			logger.Log(ctx, errorLevel(err), "failed to record attempt", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "attempt recorded", "calls_today", result.State.CallsToday, "version", result.State.Version)
	}()

	if vErr := validateAttempt(params); vErr.HasErrors() {
		return AttemptResult{}, vErr
	}

	snap, err := m.load(ctx, params.UserID, false)
	if err != nil {
		return AttemptResult{}, err
	}

	now := snap.now
	patch := snap.resetPatch()
	patch.ClearNextCallDue = true
	patch.LastCallTime = &now
	if params.Outcome == OutcomeCalled {
		calls, today := snap.state.CallsToday+1, snap.today
		patch.CallsToday = &calls
		patch.DailyResetDate = &today
	}

	written, err := m.states.ConditionalWrite(ctx, params.UserID, patch, snap.state.Version)
	if err != nil {
		err = mapStateRepoError("record attempt", err)
		if errors.Is(err, ErrConcurrentModification) {
			m.observer.ConflictDetected("record_attempt")
		}
		return AttemptResult{}, err
	}
	m.observer.AttemptRecorded(string(params.Outcome))

	record := CallAttempt{
		ID:            m.idGenerator(),
		UserID:        params.UserID,
		ScheduledTime: cloneTime(snap.state.NextCallDue),
		ActualTime:    now,
		Outcome:       params.Outcome,
		Platform:      strings.TrimSpace(params.Platform),
		Rating:        params.Rating,
		Notes:         strings.TrimSpace(params.Notes),
		CreatedAt:     now,
	}
	if m.attempts != nil {
		// The state write already committed, so a failed append is logged
		// rather than returned to keep callers from recounting the call.
		persisted, appendErr := m.attempts.AppendCallAttempt(ctx, record)
		if appendErr != nil {
			logger.WarnContext(ctx, "failed to append call attempt record", "error", appendErr)
		} else {
			record = persisted
		}
	}

	return AttemptResult{State: written, Record: record}, nil
}

// ValidateInstant checks instant against the user's window, blocked intervals,
// minimum gap and the current time without writing state.
func (m *ScheduleManager) ValidateInstant(ctx context.Context, userID string, instant time.Time) (validation InstantValidation, err error) {
	logger := m.loggerWith(ctx, "ValidateInstant", "user_id", userID, "instant", instant)
	defer func() {
		if err != nil {
			logger.Log(ctx, errorLevel(err), "failed to validate instant", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "instant validated", "valid", validation.Valid, "reason", validation.Reason)
	}()

	snap, err := m.load(ctx, userID, true)
	if err != nil {
		return InstantValidation{}, err
	}

	result, err := m.engine.Validate(snap.request(), instant)
	if err != nil {
		return InstantValidation{}, mapEngineError(err)
	}

	validation = InstantValidation{Valid: result.Valid, Reason: result.Reason}
	if !result.Suggestion.IsZero() {
		suggestion := result.Suggestion
		validation.Suggestion = &suggestion
	}
	return validation, nil
}

func validateAttempt(params RecordAttemptParams) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(params.UserID) == "" {
		vErr.add("user_id", "user id is required")
	}
	if !params.Outcome.Valid() {
		vErr.add("outcome", "outcome must be one of called, skipped, later, failed, suggested")
	}
	if params.Rating != nil && (*params.Rating < 1 || *params.Rating > 5) {
		vErr.add("rating", "rating must be between 1 and 5")
	}
	return vErr
}

func mapEngineError(err error) error {
	if err == nil {
		return nil
	}
	var noSlot *scheduler.NoSlotError
	if errors.As(err, &noSlot) {
		return &NoValidSlotError{Attempts: noSlot.Attempts, Constraints: noSlot.Constraints}
	}
	var cfgErr *scheduler.ConfigError
	if errors.As(err, &cfgErr) {
		return &ConfigurationError{Field: cfgErr.Field, Reason: cfgErr.Reason, Err: err}
	}
	return err
}

// mapStateRepoError maps schedule state store failures. Version conflicts
// become ErrConcurrentModification.
func mapStateRepoError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrVersionConflict) || errors.Is(err, ErrConcurrentModification) {
		return fmt.Errorf("%s: %w", op, ErrConcurrentModification)
	}
	return mapRepoError(op, err)
}

// mapRepoError maps repository failures onto application errors. Anything
// unrecognised is reported as the store being unavailable.
func mapRepoError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate), errors.Is(err, ErrAlreadyExists):
		return ErrAlreadyExists
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}

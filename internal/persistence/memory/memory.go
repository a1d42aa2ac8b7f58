// Package memory provides a process-local implementation of the persistence
// repositories. The schedule state store honours the same version
// preconditions as the SQL and Redis stores.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/example/call-scheduler/internal/persistence"
)

// Storage keeps all records in maps guarded by a single RWMutex.
type Storage struct {
	mu        sync.RWMutex
	profiles  map[string]persistence.Profile
	intervals map[string]persistence.BlockedInterval
	states    map[string]persistence.ScheduleState
	attempts  map[string][]persistence.CallAttempt
	now       func() time.Time
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		profiles:  make(map[string]persistence.Profile),
		intervals: make(map[string]persistence.BlockedInterval),
		states:    make(map[string]persistence.ScheduleState),
		attempts:  make(map[string][]persistence.CallAttempt),
		now:       time.Now,
	}
}

// Close is a no-op.
func (s *Storage) Close() error {
	return nil
}

// --- ProfileRepository implementation ---

// UpsertProfile stores or replaces a profile, keeping the original CreatedAt.
func (s *Storage) UpsertProfile(_ context.Context, profile persistence.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.profiles[profile.UserID]; ok {
		profile.CreatedAt = existing.CreatedAt
	}
	s.profiles[profile.UserID] = cloneProfile(profile)
	return nil
}

// GetProfile retrieves a profile by user.
func (s *Storage) GetProfile(_ context.Context, userID string) (persistence.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return persistence.Profile{}, persistence.ErrNotFound
	}
	return cloneProfile(profile), nil
}

// --- BlockedIntervalRepository implementation ---

// CreateBlockedInterval stores a new interval.
func (s *Storage) CreateBlockedInterval(_ context.Context, interval persistence.BlockedInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.intervals[interval.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := s.profiles[interval.UserID]; !ok {
		return persistence.ErrConstraintViolation
	}
	s.intervals[interval.ID] = cloneInterval(interval)
	return nil
}

// UpdateBlockedInterval replaces an existing interval owned by the same user.
func (s *Storage) UpdateBlockedInterval(_ context.Context, interval persistence.BlockedInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.intervals[interval.ID]
	if !ok || existing.UserID != interval.UserID {
		return persistence.ErrNotFound
	}
	interval.CreatedAt = existing.CreatedAt
	s.intervals[interval.ID] = cloneInterval(interval)
	return nil
}

// GetBlockedInterval retrieves an interval owned by userID.
func (s *Storage) GetBlockedInterval(_ context.Context, userID, id string) (persistence.BlockedInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	interval, ok := s.intervals[id]
	if !ok || interval.UserID != userID {
		return persistence.BlockedInterval{}, persistence.ErrNotFound
	}
	return cloneInterval(interval), nil
}

// ListBlockedIntervals returns intervals ordered by descending priority, then creation.
func (s *Storage) ListBlockedIntervals(_ context.Context, userID string, activeOnly bool) ([]persistence.BlockedInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]persistence.BlockedInterval, 0)
	for _, interval := range s.intervals {
		if interval.UserID != userID || (activeOnly && !interval.Active) {
			continue
		}
		result = append(result, cloneInterval(interval))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// --- ScheduleStateRepository implementation ---

// LoadScheduleState returns the stored state or ErrNotFound.
func (s *Storage) LoadScheduleState(_ context.Context, userID string) (persistence.ScheduleState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return persistence.ScheduleState{}, persistence.ErrNotFound
	}
	return cloneState(state), nil
}

// ConditionalWrite applies patch when the stored version matches expectedVersion.
func (s *Storage) ConditionalWrite(_ context.Context, userID string, patch persistence.ScheduleStatePatch, expectedVersion int64) (persistence.ScheduleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.states[userID]
	if !ok {
		if expectedVersion != 0 {
			return persistence.ScheduleState{}, persistence.ErrVersionConflict
		}
		current = persistence.ScheduleState{UserID: userID}
	} else if current.Version != expectedVersion {
		return persistence.ScheduleState{}, persistence.ErrVersionConflict
	}

	next := patch.Apply(current)
	next.Version = current.Version + 1
	next.UpdatedAt = s.now().UTC()
	s.states[userID] = cloneState(next)
	return cloneState(next), nil
}

// --- CallAttemptRepository implementation ---

// AppendCallAttempt appends a record.
func (s *Storage) AppendCallAttempt(_ context.Context, attempt persistence.CallAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.attempts[attempt.UserID] {
		if existing.ID == attempt.ID {
			return persistence.ErrDuplicate
		}
	}
	s.attempts[attempt.UserID] = append(s.attempts[attempt.UserID], cloneAttempt(attempt))
	return nil
}

// ListCallAttempts returns up to limit records, most recent first. A
// non-positive limit returns every record.
func (s *Storage) ListCallAttempts(_ context.Context, userID string, limit int) ([]persistence.CallAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.attempts[userID]
	result := make([]persistence.CallAttempt, 0, len(records))
	for _, record := range records {
		result = append(result, cloneAttempt(record))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ActualTime.After(result[j].ActualTime)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func cloneProfile(p persistence.Profile) persistence.Profile {
	p.ActiveDays = slices.Clone(p.ActiveDays)
	return p
}

func cloneInterval(b persistence.BlockedInterval) persistence.BlockedInterval {
	b.CustomDays = slices.Clone(b.CustomDays)
	return b
}

func cloneState(s persistence.ScheduleState) persistence.ScheduleState {
	s.NextCallDue = cloneTime(s.NextCallDue)
	s.LastCallTime = cloneTime(s.LastCallTime)
	s.LastGenerated = cloneTime(s.LastGenerated)
	return s
}

func cloneAttempt(a persistence.CallAttempt) persistence.CallAttempt {
	a.ScheduledTime = cloneTime(a.ScheduledTime)
	if a.Rating != nil {
		v := *a.Rating
		a.Rating = &v
	}
	return a
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Package adapters translates between persistence models and application
// types so the application services stay independent of the storage layer.
package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/example/call-scheduler/internal/application"
	"github.com/example/call-scheduler/internal/persistence"
	"github.com/example/call-scheduler/internal/recurrence"
	"github.com/example/call-scheduler/internal/scheduler"
)

// ProfileStore exposes a persistence.ProfileRepository as an application.ProfileRepository.
type ProfileStore struct {
	repo persistence.ProfileRepository
}

// NewProfileStore wraps repo.
func NewProfileStore(repo persistence.ProfileRepository) *ProfileStore {
	return &ProfileStore{repo: repo}
}

// UpsertProfile stores profile and returns the stored row.
func (a *ProfileStore) UpsertProfile(ctx context.Context, profile application.Profile) (application.Profile, error) {
	if err := a.repo.UpsertProfile(ctx, ToPersistenceProfile(profile)); err != nil {
		return application.Profile{}, err
	}
	return a.GetProfile(ctx, profile.UserID)
}

// GetProfile loads the profile of userID.
func (a *ProfileStore) GetProfile(ctx context.Context, userID string) (application.Profile, error) {
	model, err := a.repo.GetProfile(ctx, userID)
	if err != nil {
		return application.Profile{}, err
	}
	return ToApplicationProfile(model)
}

// BlockedIntervalStore exposes a persistence.BlockedIntervalRepository as an
// application.BlockedIntervalRepository.
type BlockedIntervalStore struct {
	repo persistence.BlockedIntervalRepository
}

// NewBlockedIntervalStore wraps repo.
func NewBlockedIntervalStore(repo persistence.BlockedIntervalRepository) *BlockedIntervalStore {
	return &BlockedIntervalStore{repo: repo}
}

// CreateBlockedInterval stores a new interval and returns the stored row.
func (a *BlockedIntervalStore) CreateBlockedInterval(ctx context.Context, interval application.BlockedInterval) (application.BlockedInterval, error) {
	if err := a.repo.CreateBlockedInterval(ctx, ToPersistenceInterval(interval)); err != nil {
		return application.BlockedInterval{}, err
	}
	return a.GetBlockedInterval(ctx, interval.UserID, interval.ID)
}

// UpdateBlockedInterval replaces an interval and returns the stored row.
func (a *BlockedIntervalStore) UpdateBlockedInterval(ctx context.Context, interval application.BlockedInterval) (application.BlockedInterval, error) {
	if err := a.repo.UpdateBlockedInterval(ctx, ToPersistenceInterval(interval)); err != nil {
		return application.BlockedInterval{}, err
	}
	return a.GetBlockedInterval(ctx, interval.UserID, interval.ID)
}

// GetBlockedInterval loads one interval owned by userID.
func (a *BlockedIntervalStore) GetBlockedInterval(ctx context.Context, userID, id string) (application.BlockedInterval, error) {
	model, err := a.repo.GetBlockedInterval(ctx, userID, id)
	if err != nil {
		return application.BlockedInterval{}, err
	}
	return ToApplicationInterval(model)
}

// ListBlockedIntervals loads the intervals of userID in priority order.
func (a *BlockedIntervalStore) ListBlockedIntervals(ctx context.Context, userID string, activeOnly bool) ([]application.BlockedInterval, error) {
	models, err := a.repo.ListBlockedIntervals(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	intervals := make([]application.BlockedInterval, 0, len(models))
	for _, model := range models {
		interval, err := ToApplicationInterval(model)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, interval)
	}
	return intervals, nil
}

// ScheduleStateStore exposes a persistence.ScheduleStateRepository as an
// application.ScheduleStateStore.
type ScheduleStateStore struct {
	repo persistence.ScheduleStateRepository
}

// NewScheduleStateStore wraps repo.
func NewScheduleStateStore(repo persistence.ScheduleStateRepository) *ScheduleStateStore {
	return &ScheduleStateStore{repo: repo}
}

// LoadScheduleState loads the state of userID.
func (a *ScheduleStateStore) LoadScheduleState(ctx context.Context, userID string) (application.ScheduleState, error) {
	model, err := a.repo.LoadScheduleState(ctx, userID)
	if err != nil {
		return application.ScheduleState{}, err
	}
	return ToApplicationState(model), nil
}

// ConditionalWrite forwards the version conditioned write.
func (a *ScheduleStateStore) ConditionalWrite(ctx context.Context, userID string, patch application.ScheduleStatePatch, expectedVersion int64) (application.ScheduleState, error) {
	model, err := a.repo.ConditionalWrite(ctx, userID, ToPersistencePatch(patch), expectedVersion)
	if err != nil {
		return application.ScheduleState{}, err
	}
	return ToApplicationState(model), nil
}

// CallAttemptLog exposes a persistence.CallAttemptRepository as an
// application.CallAttemptRepository.
type CallAttemptLog struct {
	repo persistence.CallAttemptRepository
}

// NewCallAttemptLog wraps repo.
func NewCallAttemptLog(repo persistence.CallAttemptRepository) *CallAttemptLog {
	return &CallAttemptLog{repo: repo}
}

// AppendCallAttempt stores attempt.
func (a *CallAttemptLog) AppendCallAttempt(ctx context.Context, attempt application.CallAttempt) (application.CallAttempt, error) {
	if err := a.repo.AppendCallAttempt(ctx, ToPersistenceAttempt(attempt)); err != nil {
		return application.CallAttempt{}, err
	}
	return attempt, nil
}

// ListCallAttempts loads recent attempts of userID.
func (a *CallAttemptLog) ListCallAttempts(ctx context.Context, userID string, limit int) ([]application.CallAttempt, error) {
	models, err := a.repo.ListCallAttempts(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	attempts := make([]application.CallAttempt, 0, len(models))
	for _, model := range models {
		attempts = append(attempts, ToApplicationAttempt(model))
	}
	return attempts, nil
}

// ToApplicationProfile converts a stored profile. Unknown day tokens are
// reported as an error.
func ToApplicationProfile(model persistence.Profile) (application.Profile, error) {
	days, err := recurrence.ParseWeekdays(model.ActiveDays)
	if err != nil {
		return application.Profile{}, fmt.Errorf("profile %s: %w", model.UserID, err)
	}
	return application.Profile{
		UserID:         model.UserID,
		Timezone:       model.Timezone,
		ActiveDays:     days,
		MorningStart:   scheduler.TimeOfDay(model.MorningStart),
		EveningEnd:     scheduler.TimeOfDay(model.EveningEnd),
		DailyCallLimit: model.DailyCallLimit,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}, nil
}

// ToPersistenceProfile converts an application profile for storage.
func ToPersistenceProfile(profile application.Profile) persistence.Profile {
	return persistence.Profile{
		UserID:         profile.UserID,
		Timezone:       profile.Timezone,
		ActiveDays:     profile.ActiveDays.Tokens(),
		MorningStart:   int(profile.MorningStart),
		EveningEnd:     int(profile.EveningEnd),
		DailyCallLimit: profile.DailyCallLimit,
		CreatedAt:      profile.CreatedAt,
		UpdatedAt:      profile.UpdatedAt,
	}
}

// ToApplicationInterval converts a stored interval.
func ToApplicationInterval(model persistence.BlockedInterval) (application.BlockedInterval, error) {
	kind, err := recurrence.ParseKind(model.RepeatKind)
	if err != nil {
		return application.BlockedInterval{}, fmt.Errorf("blocked interval %s: %w", model.ID, err)
	}
	days, err := recurrence.ParseWeekdays(model.CustomDays)
	if err != nil {
		return application.BlockedInterval{}, fmt.Errorf("blocked interval %s: %w", model.ID, err)
	}
	return application.BlockedInterval{
		ID:        model.ID,
		UserID:    model.UserID,
		Name:      model.Name,
		Start:     scheduler.TimeOfDay(model.StartMinute),
		End:       scheduler.TimeOfDay(model.EndMinute),
		Rule:      recurrence.Rule{Kind: kind, Days: days},
		Priority:  model.Priority,
		Active:    model.Active,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

// ToPersistenceInterval converts an application interval for storage. Custom
// days are only stored for custom rules.
func ToPersistenceInterval(interval application.BlockedInterval) persistence.BlockedInterval {
	var days []string
	if interval.Rule.Kind == recurrence.KindCustom {
		days = interval.Rule.Days.Tokens()
	}
	return persistence.BlockedInterval{
		ID:          interval.ID,
		UserID:      interval.UserID,
		Name:        interval.Name,
		StartMinute: int(interval.Start),
		EndMinute:   int(interval.End),
		RepeatKind:  string(interval.Rule.Kind),
		CustomDays:  days,
		Priority:    interval.Priority,
		Active:      interval.Active,
		CreatedAt:   interval.CreatedAt,
		UpdatedAt:   interval.UpdatedAt,
	}
}

// ToApplicationState converts a stored schedule state.
func ToApplicationState(model persistence.ScheduleState) application.ScheduleState {
	return application.ScheduleState{
		UserID:         model.UserID,
		NextCallDue:    cloneTime(model.NextCallDue),
		LastCallTime:   cloneTime(model.LastCallTime),
		LastGenerated:  cloneTime(model.LastGenerated),
		CallsToday:     model.CallsToday,
		DailyResetDate: model.DailyResetDate,
		Version:        model.Version,
		UpdatedAt:      model.UpdatedAt,
	}
}

// ToPersistencePatch converts an application patch.
func ToPersistencePatch(patch application.ScheduleStatePatch) persistence.ScheduleStatePatch {
	return persistence.ScheduleStatePatch{
		NextCallDue:      cloneTime(patch.NextCallDue),
		ClearNextCallDue: patch.ClearNextCallDue,
		LastCallTime:     cloneTime(patch.LastCallTime),
		LastGenerated:    cloneTime(patch.LastGenerated),
		CallsToday:       patch.CallsToday,
		DailyResetDate:   patch.DailyResetDate,
	}
}

// ToApplicationAttempt converts a stored call attempt.
func ToApplicationAttempt(model persistence.CallAttempt) application.CallAttempt {
	return application.CallAttempt{
		ID:            model.ID,
		UserID:        model.UserID,
		ScheduledTime: cloneTime(model.ScheduledTime),
		ActualTime:    model.ActualTime,
		Outcome:       application.Outcome(model.Outcome),
		Platform:      model.Platform,
		Rating:        model.Rating,
		Notes:         model.Notes,
		CreatedAt:     model.CreatedAt,
	}
}

// ToPersistenceAttempt converts an application call attempt for storage.
func ToPersistenceAttempt(attempt application.CallAttempt) persistence.CallAttempt {
	return persistence.CallAttempt{
		ID:            attempt.ID,
		UserID:        attempt.UserID,
		ScheduledTime: cloneTime(attempt.ScheduledTime),
		ActualTime:    attempt.ActualTime,
		Outcome:       string(attempt.Outcome),
		Platform:      attempt.Platform,
		Rating:        attempt.Rating,
		Notes:         attempt.Notes,
		CreatedAt:     attempt.CreatedAt,
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

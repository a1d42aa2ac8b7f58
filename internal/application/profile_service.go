package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/call-scheduler/internal/recurrence"
	"github.com/example/call-scheduler/internal/scheduler"
)

// ProfileRepository captures the persistence operations needed by the profile service.
type ProfileRepository interface {
	UpsertProfile(ctx context.Context, profile Profile) (Profile, error)
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// ProfileService validates and stores scheduling profiles on behalf of their owner.
type ProfileService struct {
	profiles ProfileRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewProfileService wires dependencies for the profile service.
func NewProfileService(profiles ProfileRepository, now func() time.Time, logger *slog.Logger) *ProfileService {
	if now == nil {
		now = time.Now
	}
	return &ProfileService{profiles: profiles, now: now, logger: defaultLogger(logger)}
}

// PutProfile creates or replaces the profile of userID.
func (s *ProfileService) PutProfile(ctx context.Context, userID string, input ProfileInput) (profile Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}

	logger := serviceLogger(ctx, s.logger, "ProfileService", "PutProfile", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to store profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile stored", "timezone", profile.Timezone)
	}()

	profile, vErr := parseProfileInput(input)
	if strings.TrimSpace(userID) == "" {
		vErr.add("user_id", "user id is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	profile.UserID = userID
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if existing, getErr := s.profiles.GetProfile(ctx, userID); getErr == nil {
		profile.CreatedAt = existing.CreatedAt
	} else if !isNotFound(getErr) {
		err = mapRepoError("load profile", getErr)
		return
	}

	profile, err = s.profiles.UpsertProfile(ctx, profile)
	if err != nil {
		err = mapRepoError("store profile", err)
	}
	return
}

// GetProfile returns the stored profile of userID.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (Profile, error) {
	if s == nil {
		return Profile{}, fmt.Errorf("ProfileService is nil")
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return Profile{}, mapRepoError("load profile", err)
	}
	return profile, nil
}

func parseProfileInput(input ProfileInput) (Profile, *ValidationError) {
	vErr := &ValidationError{}
	var profile Profile

	profile.Timezone = strings.TrimSpace(input.Timezone)
	if profile.Timezone == "" {
		vErr.add("timezone", "timezone is required")
	} else if _, err := time.LoadLocation(profile.Timezone); err != nil {
		vErr.add("timezone", "timezone must be a valid IANA zone")
	}

	days, err := recurrence.ParseWeekdays(input.ActiveDays)
	switch {
	case err != nil:
		vErr.add("active_days", "active days must be weekday names such as mon or tuesday")
	case days.Empty():
		vErr.add("active_days", "at least one active day is required")
	default:
		profile.ActiveDays = days
	}

	start, startErr := scheduler.ParseTimeOfDay(input.MorningStart)
	if startErr != nil {
		vErr.add("morning_start", "morning start must use HH:MM")
	}
	end, endErr := scheduler.ParseTimeOfDay(input.EveningEnd)
	if endErr != nil {
		vErr.add("evening_end", "evening end must use HH:MM")
	}
	if startErr == nil && endErr == nil {
		if start >= end {
			vErr.add("evening_end", "evening end must be after morning start")
		}
		profile.MorningStart, profile.EveningEnd = start, end
	}

	if input.DailyCallLimit <= 0 {
		vErr.add("daily_call_limit", "daily call limit must be positive")
	}
	profile.DailyCallLimit = input.DailyCallLimit

	return profile, vErr
}

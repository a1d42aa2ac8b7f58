package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/example/call-scheduler/internal/recurrence"
	"github.com/example/call-scheduler/internal/scheduler"
)

// BlockedIntervalRepository captures the persistence operations needed by the interval service.
type BlockedIntervalRepository interface {
	CreateBlockedInterval(ctx context.Context, interval BlockedInterval) (BlockedInterval, error)
	UpdateBlockedInterval(ctx context.Context, interval BlockedInterval) (BlockedInterval, error)
	GetBlockedInterval(ctx context.Context, userID, id string) (BlockedInterval, error)
	ListBlockedIntervals(ctx context.Context, userID string, activeOnly bool) ([]BlockedInterval, error)
}

// BlockedIntervalService lets a profile owner manage blocked intervals.
type BlockedIntervalService struct {
	profiles    ProfileReader
	intervals   BlockedIntervalRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	cache       *blockCache
}

// NewBlockedIntervalService constructs the service with the provided dependencies.
func NewBlockedIntervalService(profiles ProfileReader, intervals BlockedIntervalRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BlockedIntervalService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BlockedIntervalService{
		profiles:    profiles,
		intervals:   intervals,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		cache:       newBlockCache(time.Minute, 256, now),
	}
}

func (s *BlockedIntervalService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BlockedIntervalService", operation, attrs...)
}

// CreateBlockedInterval validates input and stores a new interval for userID.
// The user's profile must already exist.
func (s *BlockedIntervalService) CreateBlockedInterval(ctx context.Context, userID string, input BlockedIntervalInput) (interval BlockedInterval, err error) {
	if s == nil {
		err = fmt.Errorf("BlockedIntervalService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateBlockedInterval", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create blocked interval", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("interval_id", interval.ID).InfoContext(ctx, "blocked interval created")
	}()

	interval, vErr := parseIntervalInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if _, err = s.profiles.GetProfile(ctx, userID); err != nil {
		err = mapRepoError("load profile", err)
		return
	}

	now := s.now()
	interval.ID = s.idGenerator()
	interval.UserID = userID
	interval.Active = input.Active == nil || *input.Active
	interval.CreatedAt = now
	interval.UpdatedAt = now

	interval, err = s.intervals.CreateBlockedInterval(ctx, interval)
	if err != nil {
		err = mapRepoError("create blocked interval", err)
		return
	}
	s.cache.InvalidateUser(userID)
	return
}

// UpdateBlockedInterval replaces the definition of an existing interval.
func (s *BlockedIntervalService) UpdateBlockedInterval(ctx context.Context, userID, intervalID string, input BlockedIntervalInput) (interval BlockedInterval, err error) {
	if s == nil {
		err = fmt.Errorf("BlockedIntervalService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateBlockedInterval", "user_id", userID, "interval_id", intervalID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update blocked interval", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "blocked interval updated", "active", interval.Active)
	}()

	existing, err := s.intervals.GetBlockedInterval(ctx, userID, intervalID)
	if err != nil {
		err = mapRepoError("load blocked interval", err)
		return
	}

	updated, vErr := parseIntervalInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	updated.ID = existing.ID
	updated.UserID = existing.UserID
	updated.Active = existing.Active
	if input.Active != nil {
		updated.Active = *input.Active
	}
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()

	interval, err = s.intervals.UpdateBlockedInterval(ctx, updated)
	if err != nil {
		err = mapRepoError("update blocked interval", err)
		return
	}
	s.cache.InvalidateUser(userID)
	return
}

// SetActive toggles an interval without changing its definition.
func (s *BlockedIntervalService) SetActive(ctx context.Context, userID, intervalID string, active bool) (BlockedInterval, error) {
	if s == nil {
		return BlockedInterval{}, fmt.Errorf("BlockedIntervalService is nil")
	}

	existing, err := s.intervals.GetBlockedInterval(ctx, userID, intervalID)
	if err != nil {
		return BlockedInterval{}, mapRepoError("load blocked interval", err)
	}
	existing.Active = active
	existing.UpdatedAt = s.now()

	updated, err := s.intervals.UpdateBlockedInterval(ctx, existing)
	if err != nil {
		return BlockedInterval{}, mapRepoError("update blocked interval", err)
	}
	s.cache.InvalidateUser(userID)
	s.loggerWith(ctx, "SetActive", "user_id", userID, "interval_id", intervalID).
		InfoContext(ctx, "blocked interval toggled", "active", active)
	return updated, nil
}

// GetBlockedInterval returns one interval owned by userID.
func (s *BlockedIntervalService) GetBlockedInterval(ctx context.Context, userID, intervalID string) (BlockedInterval, error) {
	if s == nil {
		return BlockedInterval{}, fmt.Errorf("BlockedIntervalService is nil")
	}
	interval, err := s.intervals.GetBlockedInterval(ctx, userID, intervalID)
	if err != nil {
		return BlockedInterval{}, mapRepoError("load blocked interval", err)
	}
	return interval, nil
}

// ListBlockedIntervals returns the user's intervals, highest priority first.
func (s *BlockedIntervalService) ListBlockedIntervals(ctx context.Context, userID string, activeOnly bool) ([]BlockedInterval, error) {
	if s == nil {
		return nil, fmt.Errorf("BlockedIntervalService is nil")
	}
	intervals, err := s.intervals.ListBlockedIntervals(ctx, userID, activeOnly)
	if err != nil {
		return nil, mapRepoError("list blocked intervals", err)
	}
	return intervals, nil
}

// UpcomingBlocks expands the user's active intervals into concrete
// occurrences in the user's timezone for the given number of days starting
// today. days defaults to 7 and may not exceed recurrence.MaxExpandDays.
func (s *BlockedIntervalService) UpcomingBlocks(ctx context.Context, userID string, days int) ([]UpcomingBlock, error) {
	if s == nil {
		return nil, fmt.Errorf("BlockedIntervalService is nil")
	}
	if days == 0 {
		days = 7
	}
	if days < 0 || days > recurrence.MaxExpandDays {
		vErr := &ValidationError{}
		vErr.add("days", fmt.Sprintf("days must be between 1 and %d", recurrence.MaxExpandDays))
		return nil, vErr
	}

	stored, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, mapRepoError("load profile", err)
	}
	profile, err := stored.SchedulerProfile()
	if err != nil {
		return nil, err
	}
	from := s.now()
	key := buildBlockCacheKey(userID, profile.Location.String(), profile.LocalDate(from), days)
	expanded, ok := s.cache.Get(key)
	if !ok {
		if expanded, err = s.expand(ctx, userID, profile.Location, from, days); err != nil {
			return nil, err
		}
		s.cache.Store(key, expanded)
	}

	blocks := make([]UpcomingBlock, 0, len(expanded))
	for _, block := range expanded {
		if block.End.After(from) {
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}

// expand lists the user's active intervals and realises each of them on the
// days starting with the local day of from.
func (s *BlockedIntervalService) expand(ctx context.Context, userID string, loc *time.Location, from time.Time, days int) ([]UpcomingBlock, error) {
	intervals, err := s.intervals.ListBlockedIntervals(ctx, userID, true)
	if err != nil {
		return nil, mapRepoError("list blocked intervals", err)
	}

	engine := recurrence.NewEngine(loc)
	blocks := make([]UpcomingBlock, 0)
	for _, interval := range intervals {
		occurrences, err := engine.Expand(interval.Rule, interval.Start.Duration(), interval.End.Duration(), from, days)
		if err != nil {
			return nil, &ConfigurationError{Field: "blocked_interval", Reason: interval.ID + ": " + err.Error(), Err: err}
		}
		for _, occ := range occurrences {
			blocks = append(blocks, UpcomingBlock{
				IntervalID: interval.ID,
				Name:       interval.Name,
				Priority:   interval.Priority,
				Start:      occ.Start,
				End:        occ.End,
			})
		}
	}
	sortBlocks(blocks)
	return blocks, nil
}

func sortBlocks(blocks []UpcomingBlock) {
	slices.SortStableFunc(blocks, func(a, b UpcomingBlock) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return b.Priority - a.Priority
	})
}

func parseIntervalInput(input BlockedIntervalInput) (BlockedInterval, *ValidationError) {
	vErr := &ValidationError{}
	var interval BlockedInterval

	interval.Name = strings.TrimSpace(input.Name)
	if interval.Name == "" {
		vErr.add("name", "name is required")
	}

	start, startErr := scheduler.ParseTimeOfDay(input.Start)
	if startErr != nil {
		vErr.add("start", "start must use HH:MM")
	}
	end, endErr := scheduler.ParseTimeOfDay(input.End)
	if endErr != nil {
		vErr.add("end", "end must use HH:MM")
	}
	if startErr == nil && endErr == nil {
		if start >= end {
			vErr.add("end", "end must be after start")
		}
		interval.Start, interval.End = start, end
	}

	kind, err := recurrence.ParseKind(input.RepeatKind)
	if err != nil {
		vErr.add("repeat_kind", "repeat kind must be one of daily, weekdays, weekends, custom, once")
	}
	interval.Rule.Kind = kind
	if kind == recurrence.KindCustom {
		days, err := recurrence.ParseWeekdays(input.CustomDays)
		switch {
		case err != nil:
			vErr.add("custom_days", "custom days must be weekday names")
		case days.Empty():
			vErr.add("custom_days", "custom repeat requires at least one day")
		default:
			interval.Rule.Days = days
		}
	}

	if input.Priority < scheduler.MinPriority || input.Priority > scheduler.MaxPriority {
		vErr.add("priority", fmt.Sprintf("priority must be between %d and %d", scheduler.MinPriority, scheduler.MaxPriority))
	}
	interval.Priority = input.Priority

	return interval, vErr
}

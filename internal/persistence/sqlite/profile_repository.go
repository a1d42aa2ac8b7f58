package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/call-scheduler/internal/persistence"
)

// ProfileRepository implements persistence.ProfileRepository using SQLite.
type ProfileRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewProfileRepository creates a new SQLite profile repository.
func NewProfileRepository(pool *ConnectionPool) *ProfileRepository {
	return &ProfileRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// UpsertProfile inserts a profile or replaces every column except created_at.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, profile persistence.Profile) error {
	if profile.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = profile.CreatedAt
	}

	const query = `
		INSERT INTO profiles (user_id, timezone, active_days, morning_start, evening_end, daily_call_limit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			timezone = excluded.timezone,
			active_days = excluded.active_days,
			morning_start = excluded.morning_start,
			evening_end = excluded.evening_end,
			daily_call_limit = excluded.daily_call_limit,
			updated_at = excluded.updated_at
	`
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query,
			profile.UserID,
			profile.Timezone,
			joinDays(profile.ActiveDays),
			profile.MorningStart,
			profile.EveningEnd,
			profile.DailyCallLimit,
			formatTime(profile.CreatedAt),
			formatTime(profile.UpdatedAt),
		)
		return err
	})
}

// GetProfile retrieves the profile of userID.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (persistence.Profile, error) {
	const query = `
		SELECT user_id, timezone, active_days, morning_start, evening_end, daily_call_limit, created_at, updated_at
		FROM profiles
		WHERE user_id = ?
	`
	var (
		profile              persistence.Profile
		activeDays           string
		createdAt, updatedAt string
	)
	err := r.pool.DB().QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Timezone,
		&activeDays,
		&profile.MorningStart,
		&profile.EveningEnd,
		&profile.DailyCallLimit,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Profile{}, persistence.ErrNotFound
		}
		return persistence.Profile{}, r.mapper.MapError(err)
	}

	profile.ActiveDays = splitDays(activeDays)
	if profile.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Profile{}, err
	}
	if profile.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Profile{}, err
	}
	return profile, nil
}

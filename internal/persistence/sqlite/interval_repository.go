package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/call-scheduler/internal/persistence"
)

// BlockedIntervalRepository implements persistence.BlockedIntervalRepository using SQLite.
type BlockedIntervalRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewBlockedIntervalRepository creates a new SQLite blocked interval repository.
func NewBlockedIntervalRepository(pool *ConnectionPool) *BlockedIntervalRepository {
	return &BlockedIntervalRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const intervalColumns = `id, user_id, name, start_minute, end_minute, repeat_kind, custom_days, priority, active, created_at, updated_at`

// CreateBlockedInterval inserts a new interval. The owning profile must exist.
func (r *BlockedIntervalRepository) CreateBlockedInterval(ctx context.Context, interval persistence.BlockedInterval) error {
	if interval.CreatedAt.IsZero() {
		interval.CreatedAt = time.Now()
	}
	if interval.UpdatedAt.IsZero() {
		interval.UpdatedAt = interval.CreatedAt
	}

	query := `INSERT INTO blocked_intervals (` + intervalColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query,
			interval.ID,
			interval.UserID,
			interval.Name,
			interval.StartMinute,
			interval.EndMinute,
			interval.RepeatKind,
			joinDays(interval.CustomDays),
			interval.Priority,
			interval.Active,
			formatTime(interval.CreatedAt),
			formatTime(interval.UpdatedAt),
		)
		return err
	})
}

// UpdateBlockedInterval replaces the mutable columns of an interval owned by interval.UserID.
func (r *BlockedIntervalRepository) UpdateBlockedInterval(ctx context.Context, interval persistence.BlockedInterval) error {
	if interval.UpdatedAt.IsZero() {
		interval.UpdatedAt = time.Now()
	}

	const query = `
		UPDATE blocked_intervals
		SET name = ?, start_minute = ?, end_minute = ?, repeat_kind = ?, custom_days = ?, priority = ?, active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, query,
			interval.Name,
			interval.StartMinute,
			interval.EndMinute,
			interval.RepeatKind,
			joinDays(interval.CustomDays),
			interval.Priority,
			interval.Active,
			formatTime(interval.UpdatedAt),
			interval.ID,
			interval.UserID,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// GetBlockedInterval retrieves an interval owned by userID.
func (r *BlockedIntervalRepository) GetBlockedInterval(ctx context.Context, userID, id string) (persistence.BlockedInterval, error) {
	query := `SELECT ` + intervalColumns + ` FROM blocked_intervals WHERE id = ? AND user_id = ?`
	interval, err := scanInterval(r.pool.DB().QueryRowContext(ctx, query, id, userID))
	if err != nil {
		return persistence.BlockedInterval{}, r.mapper.MapError(err)
	}
	return interval, nil
}

// ListBlockedIntervals returns intervals ordered by descending priority, then creation.
func (r *BlockedIntervalRepository) ListBlockedIntervals(ctx context.Context, userID string, activeOnly bool) ([]persistence.BlockedInterval, error) {
	query := `SELECT ` + intervalColumns + ` FROM blocked_intervals WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY priority DESC, created_at, id`

	rows, err := r.pool.DB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	intervals := make([]persistence.BlockedInterval, 0)
	for rows.Next() {
		interval, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, interval)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return intervals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterval(row rowScanner) (persistence.BlockedInterval, error) {
	var (
		interval             persistence.BlockedInterval
		customDays           string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&interval.ID,
		&interval.UserID,
		&interval.Name,
		&interval.StartMinute,
		&interval.EndMinute,
		&interval.RepeatKind,
		&customDays,
		&interval.Priority,
		&interval.Active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.BlockedInterval{}, persistence.ErrNotFound
		}
		return persistence.BlockedInterval{}, err
	}

	interval.CustomDays = splitDays(customDays)
	if interval.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.BlockedInterval{}, err
	}
	if interval.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.BlockedInterval{}, err
	}
	return interval, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/call-scheduler/internal/persistence"
)

// CallAttemptRepository implements persistence.CallAttemptRepository using SQLite.
type CallAttemptRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewCallAttemptRepository creates a new SQLite call attempt repository.
func NewCallAttemptRepository(pool *ConnectionPool) *CallAttemptRepository {
	return &CallAttemptRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// AppendCallAttempt inserts an attempt record.
func (r *CallAttemptRepository) AppendCallAttempt(ctx context.Context, attempt persistence.CallAttempt) error {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO call_attempts (id, user_id, scheduled_time, actual_time, outcome, platform, rating, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var rating sql.NullInt64
	if attempt.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*attempt.Rating), Valid: true}
	}
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query,
			attempt.ID,
			attempt.UserID,
			formatNullTime(attempt.ScheduledTime),
			formatTime(attempt.ActualTime),
			attempt.Outcome,
			attempt.Platform,
			rating,
			attempt.Notes,
			formatTime(attempt.CreatedAt),
		)
		return err
	})
}

// ListCallAttempts returns up to limit records, most recent first. A
// non-positive limit returns every record.
func (r *CallAttemptRepository) ListCallAttempts(ctx context.Context, userID string, limit int) ([]persistence.CallAttempt, error) {
	query := `
		SELECT id, user_id, scheduled_time, actual_time, outcome, platform, rating, notes, created_at
		FROM call_attempts
		WHERE user_id = ?
		ORDER BY actual_time DESC, created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	attempts := make([]persistence.CallAttempt, 0)
	for rows.Next() {
		var (
			attempt               persistence.CallAttempt
			scheduled             sql.NullString
			actualTime, createdAt string
			rating                sql.NullInt64
		)
		if err := rows.Scan(
			&attempt.ID,
			&attempt.UserID,
			&scheduled,
			&actualTime,
			&attempt.Outcome,
			&attempt.Platform,
			&rating,
			&attempt.Notes,
			&createdAt,
		); err != nil {
			return nil, err
		}
		if attempt.ScheduledTime, err = parseNullTime("scheduled_time", scheduled); err != nil {
			return nil, err
		}
		if attempt.ActualTime, err = parseTime("actual_time", actualTime); err != nil {
			return nil, err
		}
		if attempt.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := int(rating.Int64)
			attempt.Rating = &v
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return attempts, nil
}

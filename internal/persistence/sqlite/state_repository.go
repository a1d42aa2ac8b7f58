package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/call-scheduler/internal/persistence"
)

// ScheduleStateRepository implements persistence.ScheduleStateRepository
// using a version column as the write precondition.
type ScheduleStateRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewScheduleStateRepository creates a new SQLite schedule state repository.
func NewScheduleStateRepository(pool *ConnectionPool) *ScheduleStateRepository {
	return &ScheduleStateRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

const stateColumns = `user_id, next_call_due, last_call_time, last_generated, calls_today, daily_reset_date, version, updated_at`

// LoadScheduleState returns the stored state or persistence.ErrNotFound.
func (r *ScheduleStateRepository) LoadScheduleState(ctx context.Context, userID string) (persistence.ScheduleState, error) {
	query := `SELECT ` + stateColumns + ` FROM schedule_states WHERE user_id = ?`
	state, err := scanState(r.pool.DB().QueryRowContext(ctx, query, userID))
	if err != nil {
		return persistence.ScheduleState{}, r.mapper.MapError(err)
	}
	return state, nil
}

// ConditionalWrite applies patch when the stored version equals expectedVersion.
func (r *ScheduleStateRepository) ConditionalWrite(ctx context.Context, userID string, patch persistence.ScheduleStatePatch, expectedVersion int64) (persistence.ScheduleState, error) {
	var written persistence.ScheduleState
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			current, err := scanState(tx.QueryRowContext(ctx, `SELECT `+stateColumns+` FROM schedule_states WHERE user_id = ?`, userID))
			switch {
			case errors.Is(err, persistence.ErrNotFound):
				if expectedVersion != 0 {
					return persistence.ErrVersionConflict
				}
				next := patch.Apply(persistence.ScheduleState{UserID: userID})
				next.Version = 1
				next.UpdatedAt = r.now().UTC()
				if err := insertState(ctx, tx, next); err != nil {
					if errors.Is(r.mapper.MapError(err), persistence.ErrDuplicate) {
						return persistence.ErrVersionConflict
					}
					return err
				}
				written = next
				return nil
			case err != nil:
				return err
			}

			if current.Version != expectedVersion {
				return persistence.ErrVersionConflict
			}
			next := patch.Apply(current)
			next.Version = current.Version + 1
			next.UpdatedAt = r.now().UTC()
			if err := updateState(ctx, tx, next, expectedVersion); err != nil {
				return err
			}
			written = next
			return nil
		})
	})
	if err != nil {
		return persistence.ScheduleState{}, err
	}
	return written, nil
}

func insertState(ctx context.Context, tx *sql.Tx, state persistence.ScheduleState) error {
	query := `INSERT INTO schedule_states (` + stateColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, query,
		state.UserID,
		formatNullTime(state.NextCallDue),
		formatNullTime(state.LastCallTime),
		formatNullTime(state.LastGenerated),
		state.CallsToday,
		state.DailyResetDate,
		state.Version,
		formatTime(state.UpdatedAt),
	)
	return err
}

func updateState(ctx context.Context, tx *sql.Tx, state persistence.ScheduleState, expectedVersion int64) error {
	const query = `
		UPDATE schedule_states
		SET next_call_due = ?, last_call_time = ?, last_generated = ?, calls_today = ?, daily_reset_date = ?, version = ?, updated_at = ?
		WHERE user_id = ? AND version = ?
	`
	result, err := tx.ExecContext(ctx, query,
		formatNullTime(state.NextCallDue),
		formatNullTime(state.LastCallTime),
		formatNullTime(state.LastGenerated),
		state.CallsToday,
		state.DailyResetDate,
		state.Version,
		formatTime(state.UpdatedAt),
		state.UserID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows != 1 {
		return persistence.ErrVersionConflict
	}
	return nil
}

func scanState(row rowScanner) (persistence.ScheduleState, error) {
	var (
		state                            persistence.ScheduleState
		nextDue, lastCall, lastGenerated sql.NullString
		updatedAt                        string
	)
	err := row.Scan(
		&state.UserID,
		&nextDue,
		&lastCall,
		&lastGenerated,
		&state.CallsToday,
		&state.DailyResetDate,
		&state.Version,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.ScheduleState{}, persistence.ErrNotFound
		}
		return persistence.ScheduleState{}, err
	}

	if state.NextCallDue, err = parseNullTime("next_call_due", nextDue); err != nil {
		return persistence.ScheduleState{}, err
	}
	if state.LastCallTime, err = parseNullTime("last_call_time", lastCall); err != nil {
		return persistence.ScheduleState{}, err
	}
	if state.LastGenerated, err = parseNullTime("last_generated", lastGenerated); err != nil {
		return persistence.ScheduleState{}, err
	}
	if state.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.ScheduleState{}, err
	}
	return state, nil
}

package persistence

import "context"

// ProfileRepository stores scheduling profiles keyed by user.
type ProfileRepository interface {
	UpsertProfile(ctx context.Context, profile Profile) error
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// BlockedIntervalRepository stores blocked intervals owned by users.
type BlockedIntervalRepository interface {
	CreateBlockedInterval(ctx context.Context, interval BlockedInterval) error
	UpdateBlockedInterval(ctx context.Context, interval BlockedInterval) error
	GetBlockedInterval(ctx context.Context, userID, id string) (BlockedInterval, error)
	// ListBlockedIntervals returns the user's intervals ordered by descending
	// priority, then creation time.
	ListBlockedIntervals(ctx context.Context, userID string, activeOnly bool) ([]BlockedInterval, error)
}

// ScheduleStateRepository stores one schedule state row per user and only
// mutates it through a version conditioned write.
type ScheduleStateRepository interface {
	// LoadScheduleState returns ErrNotFound when the user has no state yet.
	LoadScheduleState(ctx context.Context, userID string) (ScheduleState, error)
	// ConditionalWrite applies patch when the stored version equals
	// expectedVersion and returns the new state with its version incremented
	// by one. An expectedVersion of zero creates the row. A mismatch yields
	// ErrVersionConflict and leaves the row untouched.
	ConditionalWrite(ctx context.Context, userID string, patch ScheduleStatePatch, expectedVersion int64) (ScheduleState, error)
}

// CallAttemptRepository appends and lists call attempt records.
type CallAttemptRepository interface {
	AppendCallAttempt(ctx context.Context, attempt CallAttempt) error
	// ListCallAttempts returns the most recent attempts first.
	ListCallAttempts(ctx context.Context, userID string, limit int) ([]CallAttempt, error)
}

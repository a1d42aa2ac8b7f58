package application

import (
	"context"
	"fmt"
)

// MaxCallAttemptPage bounds a single call log listing.
const MaxCallAttemptPage = 200

// CallAttemptRepository captures the persistence operations of the call log.
type CallAttemptRepository interface {
	CallAttemptAppender
	ListCallAttempts(ctx context.Context, userID string, limit int) ([]CallAttempt, error)
}

// CallLogService reads the call attempt history written by RecordAttempt.
type CallLogService struct {
	attempts CallAttemptRepository
}

// NewCallLogService wires the call log repository.
func NewCallLogService(attempts CallAttemptRepository) *CallLogService {
	return &CallLogService{attempts: attempts}
}

// ListCallAttempts returns up to limit attempts of userID, most recent first.
// A zero limit returns the default page of 50.
func (s *CallLogService) ListCallAttempts(ctx context.Context, userID string, limit int) ([]CallAttempt, error) {
	if s == nil {
		return nil, fmt.Errorf("CallLogService is nil")
	}
	if limit == 0 {
		limit = 50
	}
	if limit < 0 || limit > MaxCallAttemptPage {
		vErr := &ValidationError{}
		vErr.add("limit", fmt.Sprintf("limit must be between 1 and %d", MaxCallAttemptPage))
		return nil, vErr
	}

	attempts, err := s.attempts.ListCallAttempts(ctx, userID, limit)
	if err != nil {
		return nil, mapRepoError("list call attempts", err)
	}
	return attempts, nil
}

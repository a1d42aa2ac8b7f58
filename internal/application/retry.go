package application

import (
	"context"
	"errors"
)

// DefaultRetryAttempts bounds RetryOnConflict when callers pass no limit.
const DefaultRetryAttempts = 3

// RetryOnConflict runs op up to attempts times, repeating only while it fails
// with ErrConcurrentModification. Each run must redo the full read, compute
// and write cycle. The last error is returned when every attempt conflicts.
func RetryOnConflict[T any](ctx context.Context, attempts int, op func(context.Context) (T, error)) (T, error) {
	if attempts < 1 {
		attempts = DefaultRetryAttempts
	}

	var (
		zero T
		err  error
	)
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return zero, err
			}
			return zero, ctxErr
		}
		var value T
		value, err = op(ctx)
		if err == nil || !errors.Is(err, ErrConcurrentModification) {
			return value, err
		}
	}
	return zero, err
}

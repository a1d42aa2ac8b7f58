package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/call-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, service, operation string, attrs ...any) *slog.Logger {
	pairs := append([]any{"service", service, "operation", operation}, attrs...)
	return logging.Scoped(ctx, base, pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, ErrNoValidSlot):
		return "no_valid_slot"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrPersistenceUnavailable):
		return "persistence_unavailable"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	return "unexpected"
}

// errorLevel logs expected outcomes of a scheduling cycle, such as a lost
// version race or an exhausted search, below error level.
func errorLevel(err error) slog.Level {
	switch ErrorKind(err) {
	case "", "not_found", "concurrent_modification", "no_valid_slot", "validation":
		return slog.LevelWarn
	}
	return slog.LevelError
}

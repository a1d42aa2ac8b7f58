package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/call-scheduler/internal/logging"
)

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// userIDParam returns the trimmed {userID} path parameter.
func userIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "userID"))
}

func intervalIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "intervalID"))
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// routeLogger scopes the request logger, or fallback when the request carries
// none, to one handler operation. The {userID} parameter is attached when the
// route defines it.
func routeLogger(r *http.Request, fallback *slog.Logger, handler, operation string, attrs ...any) *slog.Logger {
	pairs := make([]any, 0, 6+len(attrs))
	pairs = append(pairs, "handler", handler, "operation", operation)
	if userID := userIDParam(r); userID != "" {
		pairs = append(pairs, "user_id", userID)
	}
	return logging.Scoped(r.Context(), defaultLogger(fallback), append(pairs, attrs...)...)
}

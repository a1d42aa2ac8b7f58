package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RouterConfig lists the handlers to mount. Nil handlers leave their routes
// unregistered.
type RouterConfig struct {
	Profiles  *ProfileHandler
	Intervals *BlockedIntervalHandler
	Schedule  *ScheduleHandler
	Health    http.Handler
	Metrics   http.Handler
	// Middleware wraps every route.
	Middleware []func(http.Handler) http.Handler
	// UserMiddleware wraps routes under /users/{userID} and can read the
	// userID parameter.
	UserMiddleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := chi.NewRouter()
	for _, mw := range cfg.Middleware {
		if mw != nil {
			router.Use(mw)
		}
	}
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		methodNotAllowed(w)
	})

	if cfg.Health != nil {
		router.Method(http.MethodGet, "/healthz", cfg.Health)
	}
	if cfg.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	router.Route("/users/{userID}", func(r chi.Router) {
		for _, mw := range cfg.UserMiddleware {
			if mw != nil {
				r.Use(mw)
			}
		}

		if cfg.Profiles != nil {
			r.Get("/profile", cfg.Profiles.Get)
			r.Put("/profile", cfg.Profiles.Put)
		}

		if cfg.Intervals != nil {
			r.Get("/blocked-intervals", cfg.Intervals.List)
			r.Post("/blocked-intervals", cfg.Intervals.Create)
			r.Get("/blocked-intervals/{intervalID}", cfg.Intervals.Get)
			r.Put("/blocked-intervals/{intervalID}", cfg.Intervals.Update)
			r.Post("/blocked-intervals/{intervalID}/activate", cfg.Intervals.Activate)
			r.Post("/blocked-intervals/{intervalID}/deactivate", cfg.Intervals.Deactivate)
			r.Get("/upcoming-blocks", cfg.Intervals.Upcoming)
		}

		if cfg.Schedule != nil {
			r.Post("/proposals", cfg.Schedule.Propose)
			r.Post("/attempts", cfg.Schedule.RecordAttempt)
			r.Get("/attempts", cfg.Schedule.ListAttempts)
			r.Post("/validate", cfg.Schedule.Validate)
		}
	})

	return router
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

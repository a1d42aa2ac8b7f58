package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/example/call-scheduler/internal/adapters"
	"github.com/example/call-scheduler/internal/application"
	"github.com/example/call-scheduler/internal/config"
	httptransport "github.com/example/call-scheduler/internal/http"
	"github.com/example/call-scheduler/internal/logging"
	"github.com/example/call-scheduler/internal/metrics"
	"github.com/example/call-scheduler/internal/persistence"
	"github.com/example/call-scheduler/internal/persistence/memory"
	"github.com/example/call-scheduler/internal/persistence/redis"
	"github.com/example/call-scheduler/internal/persistence/sqlite"
	"github.com/example/call-scheduler/internal/scheduler"
)

// repositories is the persistence surface the services are built on.
type repositories struct {
	profiles  persistence.ProfileRepository
	intervals persistence.BlockedIntervalRepository
	states    persistence.ScheduleStateRepository
	attempts  persistence.CallAttemptRepository
}

// app holds the wired services of one process.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	pingers map[string]httptransport.Pinger
	closers []func() error

	profiles  *application.ProfileService
	intervals *application.BlockedIntervalService
	manager   *application.ScheduleManager
	calls     *application.CallLogService
}

// newLogger builds the process logger from cfg. Logs go to w.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	return logging.New(w, cfg.LogLevel, cfg.LogFormat)
}

// openApp opens the configured stores, applies migrations and builds the
// services. Callers must call Close.
func openApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		pingers: make(map[string]httptransport.Pinger),
	}

	repos, err := a.openStores(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	settings, err := config.LoadEngine(cfg.EngineConfigPath)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	seed := settings.Seed
	if !settings.SeedSet {
		seed = uint64(time.Now().UnixNano())
	}
	engine, err := scheduler.NewEngine(settings.Engine, scheduler.NewRandomSource(seed))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("engine config: %w", err)
	}

	profiles := adapters.NewProfileStore(repos.profiles)
	intervals := adapters.NewBlockedIntervalStore(repos.intervals)
	attempts := adapters.NewCallAttemptLog(repos.attempts)
	now := time.Now

	a.profiles = application.NewProfileService(profiles, now, logger)
	a.intervals = application.NewBlockedIntervalService(profiles, intervals, uuid.NewString, now, logger)
	a.calls = application.NewCallLogService(attempts)
	a.manager = application.NewScheduleManager(
		profiles,
		intervals,
		adapters.NewScheduleStateStore(repos.states),
		engine,
		application.WithClock(now),
		application.WithLogger(logger),
		application.WithObserver(a.metrics),
		application.WithAttemptLog(attempts, uuid.NewString),
	)
	return a, nil
}

func (a *app) openStores(ctx context.Context) (repositories, error) {
	if a.cfg.Store == config.StoreMemory {
		storage := memory.New()
		a.logger.WarnContext(ctx, "using in-memory store, data is lost on exit")
		return repositories{profiles: storage, intervals: storage, states: storage, attempts: storage}, nil
	}

	store, err := openSQLite(ctx, a.cfg.SQLiteDSN, a.logger)
	if err != nil {
		return repositories{}, err
	}
	a.pingers["sqlite"] = store
	a.closers = append(a.closers, store.Close)
	repos := repositories{profiles: store, intervals: store, states: store, attempts: store}

	if a.cfg.Store == config.StoreRedis {
		states, err := redis.New(ctx, redis.Config{Addr: a.cfg.RedisAddr, Password: a.cfg.RedisPassword, DB: a.cfg.RedisDB})
		if err != nil {
			return repositories{}, err
		}
		a.pingers["redis"] = states
		a.closers = append(a.closers, states.Close)
		repos.states = states
	}
	return repos, nil
}

// openSQLite opens the database at dsn and applies pending migrations.
func openSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*sqlite.Store, error) {
	store, err := openSQLiteNoMigrate(dsn)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, logger); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// openSQLiteNoMigrate opens the database at dsn, creating its directory.
func openSQLiteNoMigrate(dsn string) (*sqlite.Store, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	store, err := sqlite.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return store, nil
}

// handler builds the HTTP handler tree for the app.
func (a *app) handler() http.Handler {
	cfg := httptransport.RouterConfig{
		Profiles:   httptransport.NewProfileHandler(a.profiles, a.logger),
		Intervals:  httptransport.NewBlockedIntervalHandler(a.intervals, a.logger),
		Schedule:   httptransport.NewScheduleHandler(a.manager, a.calls, a.cfg.RetryAttempts, a.logger),
		Health:     httptransport.NewHealthHandler(a.pingers, a.logger),
		Metrics:    a.metrics.Handler(),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(a.logger), a.metrics.Middleware},
	}
	if a.cfg.RateLimit > 0 {
		limiter := httptransport.NewUserRateLimiter(a.cfg.RateLimit, int(a.cfg.RateLimit))
		cfg.UserMiddleware = append(cfg.UserMiddleware, limiter.Middleware(a.logger))
	}
	return httptransport.NewRouter(cfg)
}

// Close releases every store in reverse open order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/call-scheduler/internal/application"
	"github.com/example/call-scheduler/internal/scheduler"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, clocks and random sources.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Seed        uint64
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Seed:        1,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithSeed sets the seed of engines built by the factory.
func WithSeed(seed uint64) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Seed = seed
	}
}

// NewEngine builds a scheduling engine with cfg and the factory seed. A zero
// cfg uses scheduler.DefaultConfig.
func (f *ServiceFactory) NewEngine(cfg scheduler.Config) (*scheduler.Engine, error) {
	if cfg.MaxAttempts == 0 && cfg.MinGap == 0 && cfg.MaxGap == 0 {
		cfg = scheduler.DefaultConfig()
	}
	return scheduler.NewEngine(cfg, scheduler.NewRandomSource(f.Seed))
}

// ScheduleManagerDeps captures dependencies for constructing a schedule manager.
type ScheduleManagerDeps struct {
	Profiles    application.ProfileReader
	Intervals   application.BlockedIntervalLister
	States      application.ScheduleStateStore
	Attempts    application.CallAttemptAppender
	Engine      *scheduler.Engine
	Observer    application.Observer
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewScheduleManager builds a schedule manager using the supplied dependencies
// combined with the factory defaults. A nil Engine uses the default tuning.
func (f *ServiceFactory) NewScheduleManager(deps ScheduleManagerDeps) (*application.ScheduleManager, error) {
	engine := deps.Engine
	if engine == nil {
		var err error
		engine, err = f.NewEngine(scheduler.Config{})
		if err != nil {
			return nil, err
		}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	opts := []application.ManagerOption{
		application.WithClock(now),
		application.WithLogger(deps.Logger),
		application.WithObserver(deps.Observer),
	}
	if deps.Attempts != nil {
		opts = append(opts, application.WithAttemptLog(deps.Attempts, idGen))
	}
	return application.NewScheduleManager(deps.Profiles, deps.Intervals, deps.States, engine, opts...), nil
}

// ProfileServiceDeps captures dependencies for constructing a profile service.
type ProfileServiceDeps struct {
	Profiles application.ProfileRepository
	Now      func() time.Time
	Logger   *slog.Logger
}

// NewProfileService builds a profile service using the supplied dependencies.
func (f *ServiceFactory) NewProfileService(deps ProfileServiceDeps) *application.ProfileService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewProfileService(deps.Profiles, now, deps.Logger)
}

// BlockedIntervalServiceDeps captures dependencies for constructing a blocked
// interval service.
type BlockedIntervalServiceDeps struct {
	Profiles    application.ProfileReader
	Intervals   application.BlockedIntervalRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewBlockedIntervalService builds a blocked interval service using the
// supplied dependencies.
func (f *ServiceFactory) NewBlockedIntervalService(deps BlockedIntervalServiceDeps) *application.BlockedIntervalService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewBlockedIntervalService(deps.Profiles, deps.Intervals, idGen, now, deps.Logger)
}

// NewCallLogService builds a call log service over attempts.
func (f *ServiceFactory) NewCallLogService(attempts application.CallAttemptRepository) *application.CallLogService {
	return application.NewCallLogService(attempts)
}

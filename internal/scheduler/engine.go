package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Strategy identifies how an instant was produced.
type Strategy string

const (
	// StrategyRandomOffset draws offsets uniformly between the gap bounds.
	StrategyRandomOffset Strategy = "random_offset"
	// StrategyPreferredSlot ranks a fixed set of hours and jitters them.
	StrategyPreferredSlot Strategy = "preferred_slot"
	// StrategyRelaxation loosens the gap and optional intervals.
	StrategyRelaxation Strategy = "relaxation"
	// StrategyDailyLimit is used when the quota short-circuits the search.
	StrategyDailyLimit Strategy = "daily_limit"
)

// Config holds the tuning knobs shared by all users of an Engine.
type Config struct {
	// MaxAttempts is the candidate budget of each strategy.
	MaxAttempts    int
	MinGap         time.Duration
	MaxGap         time.Duration
	JitterWindow   time.Duration
	PreferredHours []int
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    50,
		MinGap:         30 * time.Minute,
		MaxGap:         4 * time.Hour,
		JitterWindow:   30 * time.Minute,
		PreferredHours: []int{10, 11, 14, 16, 19, 20},
	}
}

// Validate checks the configuration for values that would make the search meaningless.
func (c Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return &ConfigError{Field: "max_attempts", Reason: "must be positive"}
	}
	if c.MinGap <= 0 {
		return &ConfigError{Field: "min_gap", Reason: "must be positive"}
	}
	if c.MaxGap <= c.MinGap {
		return &ConfigError{Field: "max_gap", Reason: "must be greater than min_gap"}
	}
	if c.JitterWindow < 0 {
		return &ConfigError{Field: "jitter_window", Reason: "must not be negative"}
	}
	for _, hour := range c.PreferredHours {
		if hour < 0 || hour > 23 {
			return &ConfigError{Field: "preferred_hours", Reason: fmt.Sprintf("hour %d out of range", hour)}
		}
	}
	return nil
}

// ErrNoValidSlot is matched by NoSlotError.
var ErrNoValidSlot = errors.New("scheduler: no valid slot")

// NoSlotError is returned when every strategy exhausted its budget.
type NoSlotError struct {
	Attempts    int
	Constraints []string
}

// Error implements the error interface.
func (e *NoSlotError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("scheduler: no valid slot after %d attempts (%s)", e.Attempts, strings.Join(e.Constraints, ", "))
}

// Is allows errors.Is(err, ErrNoValidSlot).
func (e *NoSlotError) Is(target error) bool {
	return target == ErrNoValidSlot
}

// Request is the input of a single scheduling computation. CallsToday must
// already reflect the daily reset rule.
type Request struct {
	Now          time.Time
	Profile      Profile
	LastCallTime *time.Time
	CallsToday   int
	Intervals    []BlockedInterval
}

// Relaxation records which constraints were loosened to accept an instant.
type Relaxation struct {
	Level            int
	MinGapPercent    int
	MinGap           time.Duration
	DroppedIntervals []string
}

// Result describes an accepted instant.
type Result struct {
	Instant           time.Time
	Strategy          Strategy
	Attempts          int
	Constraints       []string
	Relaxation        *Relaxation
	DailyLimitReached bool
}

// Validation is the outcome of checking a single instant. Suggestion is zero
// when the failing check has no alternative to offer.
type Validation struct {
	Valid      bool
	Reason     string
	Suggestion time.Time
}

// Engine proposes and validates call instants. It holds no per-user state and
// may be shared between goroutines.
type Engine struct {
	cfg Config
	rnd RandomSource
}

// NewEngine validates cfg and constructs an Engine. A nil source is replaced
// by one seeded from the wall clock.
func NewEngine(cfg Config, rnd RandomSource) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = NewRandomSource(uint64(time.Now().UnixNano()))
	}
	cfg.PreferredHours = append([]int(nil), cfg.PreferredHours...)
	return &Engine{cfg: cfg, rnd: rnd}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.PreferredHours = append([]int(nil), e.cfg.PreferredHours...)
	return cfg
}

// Schedule runs the quota check and then the strategies in order, returning
// the first accepted instant. A *NoSlotError is returned when all strategies
// are exhausted; a *ConfigError when the profile is unusable.
func (e *Engine) Schedule(req Request) (Result, error) {
	if err := req.Profile.Validate(); err != nil {
		return Result{}, err
	}
	// The next calendar day is used even when it is not an active day.
	if req.CallsToday >= req.Profile.DailyCallLimit {
		return e.nextDay(req), nil
	}

	env := &searchEnv{
		now:       req.Now,
		profile:   req.Profile,
		lastCall:  req.LastCallTime,
		minGap:    e.cfg.MinGap,
		intervals: activeIntervals(req.Intervals),
	}
	t := &tally{}

	instant, ok, err := e.randomOffset(env, e.cfg.MaxAttempts, t)
	if err != nil {
		return Result{}, err
	}
	if ok {
		return t.result(instant, StrategyRandomOffset, nil), nil
	}

	instant, ok, err = e.preferredSlot(env, e.cfg.MaxAttempts, t)
	if err != nil {
		return Result{}, err
	}
	if ok {
		return t.result(instant, StrategyPreferredSlot, nil), nil
	}

	instant, relaxation, ok, err := e.relax(env, e.cfg.MaxAttempts, t)
	if err != nil {
		return Result{}, err
	}
	if ok {
		return t.result(instant, StrategyRelaxation, relaxation), nil
	}

	return Result{}, &NoSlotError{Attempts: t.attempts, Constraints: t.reasons}
}

// Validate checks a single instant without searching. The first failing check
// determines the reason and suggestion.
func (e *Engine) Validate(req Request, instant time.Time) (Validation, error) {
	if err := req.Profile.Validate(); err != nil {
		return Validation{}, err
	}
	env := &searchEnv{
		now:       req.Now,
		profile:   req.Profile,
		lastCall:  req.LastCallTime,
		minGap:    e.cfg.MinGap,
		intervals: activeIntervals(req.Intervals),
	}
	return e.check(env, instant)
}

// nextDay places the call at the next calendar day's morning start plus up
// to 59 minutes of jitter, kept inside the window.
func (e *Engine) nextDay(req Request) Result {
	profile := req.Profile
	jitter := TimeOfDay(int64n(e.rnd, 60))
	if limit := profile.EveningEnd - profile.MorningStart - 1; jitter > limit {
		jitter = limit
	}
	instant := (profile.MorningStart + jitter).on(req.Now, 1, profile.location())
	return Result{
		Instant:           instant,
		Strategy:          StrategyDailyLimit,
		Constraints:       []string{ReasonDailyLimitReached},
		DailyLimitReached: true,
	}
}

type searchEnv struct {
	now       time.Time
	profile   Profile
	lastCall  *time.Time
	minGap    time.Duration
	intervals []BlockedInterval
}

// check applies window, active day, minimum gap, blocked intervals and the
// past-time check in that order.
func (e *Engine) check(env *searchEnv, candidate time.Time) (Validation, error) {
	window, err := EvaluateWindow(candidate, env.profile)
	if err != nil {
		return Validation{}, err
	}
	if !window.Valid {
		return Validation{Reason: window.Reason, Suggestion: window.Nearest}, nil
	}

	if env.lastCall != nil && candidate.Sub(*env.lastCall) < env.minGap {
		return Validation{Reason: ReasonMinGap, Suggestion: env.lastCall.Add(env.minGap)}, nil
	}

	conflict, err := CheckConflicts(candidate, env.profile, env.intervals)
	if err != nil {
		return Validation{}, err
	}
	if conflict.Blocked {
		return Validation{Reason: conflict.Interval.Reason(), Suggestion: conflict.Escape}, nil
	}

	if !candidate.After(env.now) {
		return Validation{Reason: ReasonPastTime, Suggestion: env.now.Add(env.minGap)}, nil
	}
	return Validation{Valid: true}, nil
}

// accept counts one attempt for candidate. A rejected candidate's suggestion
// is checked once more and accepted directly when it passes.
func (e *Engine) accept(env *searchEnv, candidate time.Time, t *tally) (time.Time, bool, error) {
	t.attempts++
	v, err := e.check(env, candidate)
	if err != nil {
		return time.Time{}, false, err
	}
	if v.Valid {
		return candidate, true, nil
	}
	t.note(v.Reason)
	if v.Suggestion.IsZero() {
		return time.Time{}, false, nil
	}

	retry, err := e.check(env, v.Suggestion)
	if err != nil {
		return time.Time{}, false, err
	}
	if retry.Valid {
		return v.Suggestion, true, nil
	}
	t.note(retry.Reason)
	return time.Time{}, false, nil
}

func activeIntervals(intervals []BlockedInterval) []BlockedInterval {
	active := make([]BlockedInterval, 0, len(intervals))
	for _, interval := range intervals {
		if interval.Active {
			active = append(active, interval)
		}
	}
	return active
}

// tally accumulates attempts and constraint reasons across strategies.
type tally struct {
	attempts int
	reasons  []string
}

func (t *tally) note(reason string) {
	for _, seen := range t.reasons {
		if seen == reason {
			return
		}
	}
	t.reasons = append(t.reasons, reason)
}

func (t *tally) result(instant time.Time, strategy Strategy, relaxation *Relaxation) Result {
	return Result{
		Instant:     instant,
		Strategy:    strategy,
		Attempts:    t.attempts,
		Constraints: append([]string(nil), t.reasons...),
		Relaxation:  relaxation,
	}
}

// Package redis stores schedule states in Redis so several scheduler
// processes can share them. Writes use WATCH/MULTI so the version
// precondition holds across clients.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/example/call-scheduler/internal/persistence"
)

// KeyPrefix prefixes every schedule state key; the user ID follows.
const KeyPrefix = "scheduler:state:"

// Config contains the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// StateStore implements persistence.ScheduleStateRepository on Redis.
type StateStore struct {
	client *goredis.Client
	now    func() time.Time
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*StateStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client) *StateStore {
	return &StateStore{client: client, now: time.Now}
}

// Ping checks the connection.
func (s *StateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *StateStore) Close() error {
	return s.client.Close()
}

// stateRecord is the JSON document stored under each key.
type stateRecord struct {
	UserID         string     `json:"user_id"`
	NextCallDue    *time.Time `json:"next_call_due,omitempty"`
	LastCallTime   *time.Time `json:"last_call_time,omitempty"`
	LastGenerated  *time.Time `json:"last_generated,omitempty"`
	CallsToday     int        `json:"calls_today"`
	DailyResetDate string     `json:"daily_reset_date"`
	Version        int64      `json:"version"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toRecord(state persistence.ScheduleState) stateRecord {
	return stateRecord(state)
}

func (r stateRecord) state() persistence.ScheduleState {
	return persistence.ScheduleState(r)
}

// LoadScheduleState returns the stored state or persistence.ErrNotFound.
func (s *StateStore) LoadScheduleState(ctx context.Context, userID string) (persistence.ScheduleState, error) {
	return load(ctx, s.client, userID)
}

type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func load(ctx context.Context, client getter, userID string) (persistence.ScheduleState, error) {
	raw, err := client.Get(ctx, KeyPrefix+userID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return persistence.ScheduleState{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.ScheduleState{}, fmt.Errorf("redis: get state: %w", err)
	}
	var record stateRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return persistence.ScheduleState{}, fmt.Errorf("redis: decode state: %w", err)
	}
	return record.state(), nil
}

// ConditionalWrite applies patch when the stored version equals
// expectedVersion. A concurrent modification of the key between WATCH and
// EXEC is reported as persistence.ErrVersionConflict.
func (s *StateStore) ConditionalWrite(ctx context.Context, userID string, patch persistence.ScheduleStatePatch, expectedVersion int64) (persistence.ScheduleState, error) {
	key := KeyPrefix + userID
	var next persistence.ScheduleState

	err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := load(ctx, tx, userID)
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			if expectedVersion != 0 {
				return persistence.ErrVersionConflict
			}
			current = persistence.ScheduleState{UserID: userID}
		case err != nil:
			return err
		case current.Version != expectedVersion:
			return persistence.ErrVersionConflict
		}

		next = patch.Apply(current)
		next.Version = current.Version + 1
		next.UpdatedAt = s.now().UTC()
		payload, err := json.Marshal(toRecord(next))
		if err != nil {
			return fmt.Errorf("redis: encode state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, goredis.TxFailedErr):
		return persistence.ScheduleState{}, persistence.ErrVersionConflict
	default:
		return persistence.ScheduleState{}, err
	}
}

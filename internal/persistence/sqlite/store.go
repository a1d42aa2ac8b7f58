// Package sqlite implements the persistence repositories on SQLite using the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/call-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store bundles the SQLite repositories over one connection pool.
type Store struct {
	*ProfileRepository
	*BlockedIntervalRepository
	*ScheduleStateRepository
	*CallAttemptRepository

	pool *ConnectionPool
}

// Open creates a Store for the database at path using the default configuration.
func Open(path string) (*Store, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(path))
}

// OpenWithConfig creates a Store from an explicit configuration.
func OpenWithConfig(config migration.SQLiteConfig) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Store{
		ProfileRepository:         NewProfileRepository(pool),
		BlockedIntervalRepository: NewBlockedIntervalRepository(pool),
		ScheduleStateRepository:   NewScheduleStateRepository(pool),
		CallAttemptRepository:     NewCallAttemptRepository(pool),
		pool:                      pool,
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	if err := migration.NewManager(s.pool.DB(), migrationFiles, "migrations", logger).Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending migrations.
func (s *Store) MigrationStatus(ctx context.Context) (migration.Status, error) {
	return migration.NewManager(s.pool.DB(), migrationFiles, "migrations", nil).Status(ctx)
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

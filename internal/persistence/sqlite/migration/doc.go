// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files live in an fs.FS (normally an embed.FS owned by the storage
// package) and follow the naming convention {version}_{description}.sql, for
// example "001_initial_schema.sql". Each file runs in its own transaction
// together with the bookkeeping row in the schema_migrations table, so a
// failed file leaves neither schema changes nor a version record behind.
//
// Example usage:
//
//	manager := migration.NewManager(db, migrationFiles, "migrations", logger)
//	if err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration

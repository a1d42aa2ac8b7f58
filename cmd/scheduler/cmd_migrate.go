package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/call-scheduler/internal/config"
)

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations",
		Long: `Apply the embedded schema migrations to the SQLite database.

Examples:
  # Apply pending migrations
  scheduler migrate

  # Show applied and pending migrations without applying anything
  scheduler migrate --status
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cfg.Store == config.StoreMemory {
				return fmt.Errorf("migrate requires a SQLite store")
			}
			ctx := cmd.Context()
			logger := newLogger(cmd.ErrOrStderr(), cfg)
			out := cmd.OutOrStdout()

			if statusOnly {
				store, err := openSQLiteNoMigrate(cfg.SQLiteDSN)
				if err != nil {
					return err
				}
				defer store.Close()
				status, err := store.MigrationStatus(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "current version: %s\n", displayVersion(status.CurrentVersion))
				for _, applied := range status.Applied {
					fmt.Fprintf(out, "applied  %s  %s\n", applied.Version, applied.AppliedAt.Format("2006-01-02 15:04:05"))
				}
				for _, pending := range status.Pending {
					fmt.Fprintf(out, "pending  %s  %s\n", pending.Version, pending.Description)
				}
				return nil
			}

			store, err := openSQLite(ctx, cfg.SQLiteDSN, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			status, err := store.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "schema at version %s\n", displayVersion(status.CurrentVersion))
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "report migration status without applying")
	return cmd
}

func displayVersion(version string) string {
	if version == "" {
		return "none"
	}
	return version
}

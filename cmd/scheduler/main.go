// Command scheduler serves the call scheduling API and offers one-shot
// maintenance and scheduling commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/example/call-scheduler/internal/config"
)

// globalFlags override the environment configuration.
type globalFlags struct {
	engineConfig string
	store        string
	sqliteDSN    string
}

func (f globalFlags) apply(cfg *config.Config) error {
	if f.engineConfig != "" {
		cfg.EngineConfigPath = f.engineConfig
	}
	if f.sqliteDSN != "" {
		cfg.SQLiteDSN = f.sqliteDSN
	}
	switch kind := config.StoreKind(f.store); kind {
	case "":
	case config.StoreSQLite, config.StoreMemory:
		cfg.Store = kind
	case config.StoreRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("--store=redis requires SCHEDULER_REDIS_ADDR")
		}
		cfg.Store = kind
	default:
		return fmt.Errorf("unknown store %q", f.store)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "scheduler",
		Short:         "Per-user recurring call scheduler",
		Long:          "scheduler proposes randomized call times inside each user's active window while avoiding blocked intervals.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.engineConfig, "engine-config", "", "path to the engine tuning YAML (overrides SCHEDULER_ENGINE_CONFIG)")
	root.PersistentFlags().StringVar(&flags.store, "store", "", "persistence backend: sqlite, redis or memory (overrides SCHEDULER_STORE)")
	root.PersistentFlags().StringVar(&flags.sqliteDSN, "sqlite-dsn", "", "SQLite database path (overrides SCHEDULER_SQLITE_DSN)")

	root.AddCommand(
		newServeCmd(flags),
		newMigrateCmd(flags),
		newProposeCmd(flags),
		newValidateCmd(flags),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the command line overrides.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := flags.apply(&cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.HTTPPort = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides SCHEDULER_HTTP_PORT)")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := newLogger(os.Stdout, cfg)

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr, "store", cfg.Store)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	logger.Info("scheduler API stopped")
	return nil
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/call-scheduler/internal/config"
	"github.com/example/call-scheduler/internal/testfixtures"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func useTempDatabase(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "data", "scheduler.db")
	t.Setenv("SCHEDULER_STORE", "sqlite")
	t.Setenv("SCHEDULER_SQLITE_DSN", dsn)
	t.Setenv("SCHEDULER_LOG_LEVEL", "error")
	return dsn
}

func TestMigrateCommand(t *testing.T) {
	useTempDatabase(t)

	out, err := runCommand(t, "migrate", "--status")
	if err != nil {
		t.Fatalf("migrate --status failed: %v", err)
	}
	if !strings.Contains(out, "current version: none") || !strings.Contains(out, "pending  001") {
		t.Fatalf("unexpected status before migrating:\n%s", out)
	}

	out, err = runCommand(t, "migrate")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if strings.TrimSpace(out) != "schema at version 001" {
		t.Fatalf("unexpected migrate output %q", out)
	}

	out, err = runCommand(t, "migrate", "--status")
	if err != nil {
		t.Fatalf("migrate --status failed: %v", err)
	}
	if !strings.Contains(out, "applied  001") || strings.Contains(out, "pending") {
		t.Fatalf("unexpected status after migrating:\n%s", out)
	}
}

func TestMigrateRejectsMemoryStore(t *testing.T) {
	useTempDatabase(t)

	if _, err := runCommand(t, "--store", "memory", "migrate"); err == nil {
		t.Fatal("expected migrate to refuse the memory store")
	}
}

func TestProposeAndValidateCommands(t *testing.T) {
	dsn := useTempDatabase(t)

	enginePath := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(enginePath, []byte("seed: 7\nmin_gap: 30m\n"), 0o644); err != nil {
		t.Fatalf("failed to write engine config: %v", err)
	}

	ctx := context.Background()
	store, err := openSQLite(ctx, dsn, newLogger(&bytes.Buffer{}, config.Config{}))
	if err != nil {
		t.Fatalf("openSQLite failed: %v", err)
	}
	profile := testfixtures.NewProfileFixture(testfixtures.WithProfileUserID("alice")).Persistence()
	if err := store.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	out, err := runCommand(t, "--engine-config", enginePath, "propose", "alice")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	var proposal proposalOutput
	if err := json.Unmarshal([]byte(out), &proposal); err != nil {
		t.Fatalf("failed to decode proposal %q: %v", out, err)
	}
	if proposal.UserID != "alice" || proposal.Version != 1 || proposal.Instant == "" {
		t.Fatalf("unexpected proposal %+v", proposal)
	}

	out, err = runCommand(t, "propose", "alice")
	if err != nil {
		t.Fatalf("second propose failed: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &proposal); err != nil {
		t.Fatalf("failed to decode proposal %q: %v", out, err)
	}
	if proposal.Version != 2 {
		t.Fatalf("expected the state to persist across runs, got version %d", proposal.Version)
	}

	out, err = runCommand(t, "validate", "alice", "2000-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	var validation validationOutput
	if err := json.Unmarshal([]byte(out), &validation); err != nil {
		t.Fatalf("failed to decode validation %q: %v", out, err)
	}
	if validation.Valid || validation.Reason == "" {
		t.Fatalf("expected a past instant to be rejected, got %+v", validation)
	}

	if _, err := runCommand(t, "propose", "nobody"); err == nil {
		t.Fatal("expected propose to fail for an unknown user")
	}
	if _, err := runCommand(t, "validate", "alice", "tomorrow"); err == nil {
		t.Fatal("expected validate to reject a malformed instant")
	}
}

func TestGlobalFlagsApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flags   globalFlags
		base    config.Config
		want    config.StoreKind
		wantErr bool
	}{
		{name: "keeps environment", flags: globalFlags{}, base: config.Config{Store: config.StoreSQLite}, want: config.StoreSQLite},
		{name: "memory override", flags: globalFlags{store: "memory"}, base: config.Config{Store: config.StoreSQLite}, want: config.StoreMemory},
		{name: "redis with address", flags: globalFlags{store: "redis"}, base: config.Config{RedisAddr: "localhost:6379"}, want: config.StoreRedis},
		{name: "redis without address", flags: globalFlags{store: "redis"}, wantErr: true},
		{name: "unknown store", flags: globalFlags{store: "postgres"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := tc.base
			err := tc.flags.apply(&cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Store != tc.want {
				t.Fatalf("expected store %q, got %q", tc.want, cfg.Store)
			}
		})
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/call-scheduler/internal/application"
)

func newProposeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "propose USER_ID",
		Short: "Propose and commit the next call time for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				proposal, err := application.RetryOnConflict(ctx, a.cfg.RetryAttempts, func(ctx context.Context) (application.Proposal, error) {
					return a.manager.ProposeAndCommit(ctx, args[0])
				})
				if err != nil {
					return err
				}
				out := proposalOutput{
					UserID:      proposal.UserID,
					Instant:     proposal.Instant.UTC().Format(time.RFC3339),
					Strategy:    string(proposal.Strategy),
					Attempts:    proposal.Attempts,
					Constraints: proposal.Constraints,
					Version:     proposal.State.Version,
					CallsToday:  proposal.State.CallsToday,
				}
				if proposal.Relaxation != nil {
					out.RelaxationLevel = proposal.Relaxation.Level
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate USER_ID INSTANT",
		Short: "Check whether an RFC 3339 instant is a valid call time for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			instant, err := time.Parse(time.RFC3339, args[1])
			if err != nil {
				return fmt.Errorf("instant must be RFC 3339: %w", err)
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				validation, err := a.manager.ValidateInstant(ctx, args[0], instant)
				if err != nil {
					return err
				}
				out := validationOutput{Valid: validation.Valid, Reason: validation.Reason}
				if validation.Suggestion != nil {
					out.Suggestion = validation.Suggestion.UTC().Format(time.RFC3339)
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

// withApp opens the configured stores for one command. Logs go to stderr so
// stdout carries only the command result.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, newLogger(cmd.ErrOrStderr(), cfg))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

type proposalOutput struct {
	UserID          string   `json:"user_id"`
	Instant         string   `json:"instant"`
	Strategy        string   `json:"strategy"`
	Attempts        int      `json:"attempts"`
	Constraints     []string `json:"constraints,omitempty"`
	RelaxationLevel int      `json:"relaxation_level,omitempty"`
	Version         int64    `json:"version"`
	CallsToday      int      `json:"calls_today"`
}

type validationOutput struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/taskflow/server/internal/api/middleware"
	"github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/bootstrap"
	"go.uber.org/zap"
)

func newMigrateCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and seed the task status dictionary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, zl, err := g.setup()
			if err != nil {
				return err
			}
			defer zl.Sync()
			return bootstrap.MigrateDatabase(cmd.Context(), *cfg, zl)
		},
	}
}

type runRecurringFlags struct {
	date           string
	dryRun         bool
	ignoreTimeGate bool
	forceDueAll    bool
	verbose        bool
}

func newRunRecurringCommand(g *globalFlags) *cobra.Command {
	f := &runRecurringFlags{}
	cmd := &cobra.Command{
		Use:   "run-recurring",
		Short: "Run the recurring task engine once",
		Example: `  taskctl run-recurring --dry-run
  taskctl run-recurring --date 2025-03-31 --ignore-time-gate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := recurring.RunOptions{
				DryRun:         f.dryRun,
				IgnoreTimeGate: f.ignoreTimeGate,
				ForceDueAll:    f.forceDueAll,
			}
			if f.date != "" {
				d, err := time.Parse(time.DateOnly, f.date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				opts.Date = mo.Some(d)
			}

			cfg, zl, err := g.setup()
			if err != nil {
				return err
			}
			defer zl.Sync()

			engine, cleanup, err := InitializeEngine(*cfg, zl)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := engine.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			zl.Info("recurring run finished",
				zap.Uint64("run_id", res.RunID),
				zap.String("status", string(res.Status)),
				zap.Bool("dry_run", res.DryRun),
				zap.Int("created", res.Stats.Created),
				zap.Int("errors", res.Stats.Errors))
			return printRunResult(res, f.verbose)
		},
	}
	cmd.Flags().StringVar(&f.date, "date", "", "effective date YYYY-MM-DD, defaults to today")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "roll back every change after the run")
	cmd.Flags().BoolVar(&f.ignoreTimeGate, "ignore-time-gate", false, "skip the HH:MM time gate")
	cmd.Flags().BoolVar(&f.forceDueAll, "force-due-all", false, "treat every active template as due")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "print every run item")
	return cmd
}

type runItemOutput struct {
	TemplateID uint64  `json:"template_id"`
	Due        bool    `json:"due"`
	Outcome    string  `json:"outcome"`
	TaskID     *uint64 `json:"task_id,omitempty"`
	Message    string  `json:"message,omitempty"`
}

type runOutput struct {
	RunID  uint64          `json:"run_id"`
	Status string          `json:"status"`
	DryRun bool            `json:"dry_run"`
	Date   string          `json:"date"`
	Stats  recurring.Stats `json:"stats"`
	Errors []string        `json:"errors,omitempty"`
	Items  []runItemOutput `json:"items,omitempty"`
}

func printRunResult(res *recurring.RunResult, verbose bool) error {
	out := runOutput{
		RunID:  res.RunID,
		Status: string(res.Status),
		DryRun: res.DryRun,
		Date:   res.Date.Format(time.DateOnly),
		Stats:  res.Stats,
		Errors: res.Errors,
	}
	if verbose {
		out.Items = lo.Map(res.Items, func(it *recurring.RunItem, _ int) runItemOutput {
			return runItemOutput{
				TemplateID: it.TemplateID,
				Due:        it.Due,
				Outcome:    string(it.Outcome),
				TaskID:     it.TaskID,
				Message:    it.Message,
			}
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newTokenCommand(g *globalFlags) *cobra.Command {
	var (
		userID uint64
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == 0 {
				return fmt.Errorf("--user-id is required")
			}
			cfg, zl, err := g.setup()
			if err != nil {
				return err
			}
			defer zl.Sync()
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth.secret is not configured")
			}

			now := time.Now()
			token, err := middleware.SignToken(cfg.Auth.Secret, middleware.Claims{
				UserID: userID,
				RegisteredClaims: jwt.RegisteredClaims{
					IssuedAt:  jwt.NewNumericDate(now),
					ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&userID, "user-id", 0, "user id carried in the user_id claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

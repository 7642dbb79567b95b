// Package cli implements the cfpulse-cli operator commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	service "github.com/okian/cfpulse/internal/app"
	"github.com/okian/cfpulse/internal/config"
	"github.com/okian/cfpulse/pkg/logger"
	"github.com/spf13/cobra"
)

// Set by the linker at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultDays = 14

var errDays = errors.New("--days must be positive")

type app struct {
	baseURL  string
	timeout  time.Duration
	logLevel string
	noColor  bool
	now      func() time.Time
	stderr   io.Writer
}

// Option configures the command tree.
type Option func(*app)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *app) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogOutput redirects CLI logs; they go to stderr by default.
func WithLogOutput(w io.Writer) Option {
	return func(a *app) {
		if w != nil {
			a.stderr = w
		}
	}
}

// New builds the root command.
func New(opts ...Option) *cobra.Command {
	a := &app{now: time.Now, stderr: os.Stderr}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "cfpulse-cli",
		Short:         "Inspect Codeforces activity streaks from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "upstream API root (overrides CFPULSE_UPSTREAM_BASE_URL)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "upstream call timeout (overrides CFPULSE_UPSTREAM_TIMEOUT_MS)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		a.streakCommand(),
		a.compareCommand(),
		a.upcomingCommand(),
		versionCommand(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	root := New()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// startService loads configuration, applies flag overrides and starts a
// service with a fresh in-process cache.
func (a *app) startService(ctx context.Context) (*service.Service, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if a.baseURL != "" {
		cfg.UpstreamBaseURL = a.baseURL
	}
	if a.timeout > 0 {
		cfg.UpstreamTimeoutMS = int(a.timeout / time.Millisecond)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	// One-shot commands gain nothing from a shared cache.
	cfg.CacheBackend = config.CacheBackendMemory
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(a.stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	svc := service.New(
		service.WithConfig(cfg),
		service.WithClock(a.now),
		service.WithLogger(log.Named("cli")),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

func (a *app) streakCommand() *cobra.Command {
	days := defaultDays
	cmd := &cobra.Command{
		Use:   "streak <handle>",
		Short: "Print the current and longest streak of a handle with a daily table.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return errDays
			}
			svc, err := a.startService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			res, err := svc.ComputeStreak(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeStreak(cmd.OutOrStdout(), args[0], res, a.now(), days, a.palette())
		},
	}
	cmd.Flags().IntVar(&days, "days", defaultDays, "number of days shown in the table")
	return cmd
}

func (a *app) compareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <handle>...",
		Short: "Rank several handles by current streak.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.startService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			rows, err := svc.CompareStreaks(cmd.Context(), args)
			if err != nil {
				return err
			}
			return writeComparison(cmd.OutOrStdout(), rows, a.palette())
		},
	}
}

func (a *app) upcomingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upcoming",
		Short: "List contests that have not started yet.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.startService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			contests, err := svc.UpcomingContests(cmd.Context())
			if err != nil {
				return err
			}
			return writeUpcoming(cmd.OutOrStdout(), contests, a.now())
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cfpulse-cli.",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("cfpulse CLI\n")
			cmd.Printf("  Version: %s\n", version)
			cmd.Printf("  Commit:  %s\n", commit)
			cmd.Printf("  Built:   %s\n", date)
			cmd.Printf("  Runtime: %s\n", runtime.Version())
		},
	}
}

// Command fademctl is the operator CLI for the FADEM rent ledger: data
// export and import, backups, arrears scans, schedules, reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/clock"
	"github.com/matthewbaird/fadem/internal/config"
	"github.com/matthewbaird/fadem/internal/ledger"
	"github.com/matthewbaird/fadem/internal/logger"
	"github.com/matthewbaird/fadem/internal/storage"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fademctl",
		Short:         "FADEM rent ledger administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("module", "", "data module (default from FADEM_MODULE)")
	root.PersistentFlags().Bool("verbose", false, "log to stderr")

	root.AddCommand(
		ExportCmd(),
		ImportCmd(),
		BackupCmd(),
		RestoreCmd(),
		ResetCmd(),
		ScanCmd(),
		ScheduleCmd(),
		ReportCmd(),
		StatsCmd(),
	)
	return root
}

// session is an opened ledger for one command.
type session struct {
	repo    *storage.Repository
	engine  *ledger.Engine
	backend *storage.Backend
	logger  *zap.Logger
}

func (s *session) Close() error { return s.backend.Close() }

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}
	if m, _ := cmd.Flags().GetString("module"); m != "" {
		cfg.Module = m
	}
	log := zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		if log, err = logger.New(cfg.Log.Level, "console", "fademctl"); err != nil {
			return nil, err
		}
	}

	ctx := cmd.Context()
	backend, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	clk := clock.System{}
	repo := storage.NewRepository(backend.KV, cfg.Module,
		storage.WithCurrency(cfg.Currency),
		storage.WithClock(clk),
		storage.WithLogger(log))
	engine, err := ledger.NewEngine(ctx, repo, clk, ledger.WithLogger(log))
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &session{repo: repo, engine: engine, backend: backend, logger: log}, nil
}

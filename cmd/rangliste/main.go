// Command rangliste maintains the player store and computes youth rankings.
//
// Usage:
//
//	rangliste ingest --roster Spielberechtigungen.csv
//	rangliste match --results turnier.csv --json
//	rangliste rank --results turnier.csv --out reports
//	rangliste history --player 3f0c...
//	rangliste history --recent 50
//	rangliste remove 3f0c... 9a1d...
//	rangliste stats
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/ttbw/rangliste/internal/app"
	"github.com/ttbw/rangliste/internal/config"
	"github.com/ttbw/rangliste/internal/observability"
	"github.com/ttbw/rangliste/internal/platform/logging"
)

func main() {
	config.LoadDotEnv()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "rangliste",
		Short:        "Player identity store and youth ranking CLI",
		SilenceUsage: true,
	}

	root.AddCommand(ingestCmd())
	root.AddCommand(matchCmd())
	root.AddCommand(rankCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(removeCmd())
	root.AddCommand(statsCmd())
	return root
}

// withApp loads configuration, wires the application and runs fn with a
// context cancelled on SIGINT or SIGTERM.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdown, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close store failed", "error", err)
		}
	}()

	ctx, span := otel.Tracer("rangliste/cmd").Start(ctx, "cli."+cmd.Name())
	defer span.End()

	if err := fn(ctx, a); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func newLogger(cfg config.Config, w io.Writer) *logging.Logger {
	if cfg.AppEnv == config.EnvDev {
		return logging.NewConsole(cfg.LogLevel, w)
	}
	return logging.NewJSONWriter(cfg.LogLevel, w)
}

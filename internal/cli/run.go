package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/gistcut/internal/config"
	"github.com/forPelevin/gistcut/internal/pipeline"
)

const runTimeout = 3 * time.Hour

func run(cmd *cobra.Command, input string) error {
	flags := cmd.Flags()
	outDir, _ := flags.GetString("out")
	strategy, _ := flags.GetString("strategy")
	tuningPath, _ := flags.GetString("tuning")
	render, _ := flags.GetBool("render")
	burn, _ := flags.GetBool("burn-subtitles")
	concurrency, _ := flags.GetInt("concurrency")
	skipPreflight, _ := flags.GetBool("skip-preflight")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	env, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	tuning, err := config.LoadTuning(tuningPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := env.NewLogger(cmd.ErrOrStderr())
	logger.Debug("environment", slog.String("config", env.String()))

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	cfg := pipeline.Config{
		Input:         absIn,
		OutDir:        outDir,
		Strategy:      strategy,
		Tuning:        tuning,
		Render:        render,
		BurnSubtitles: burn,
		Concurrency:   concurrency,
		SkipPreflight: skipPreflight,
		Env:           env,
		Logger:        logger,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d ideas -> %s\n", len(res.Manifest.Ideas), res.ManifestPath)
	return nil
}

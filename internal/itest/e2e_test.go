//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/gistcut/internal/config"
	"github.com/forPelevin/gistcut/internal/pipeline"
	"github.com/forPelevin/gistcut/internal/types"
)

func TestE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	env, err := config.Load(ctx)
	if err != nil {
		t.Skipf("no provider configured: %v", err)
	}

	tmp := t.TempDir()
	in := filepath.Join(tmp, "input.mp4")

	// Generate speech audio via espeak-ng.
	wav := filepath.Join(tmp, "speech.wav")
	text := "Here is the key idea. Step one: do this. Step two: measure results. This is important."
	cmd := exec.Command("espeak-ng", "-w", wav, text)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("espeak-ng failed: %v\n%s", err, string(b))
	}

	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=black:s=1280x720:d=15",
		"-i", wav,
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}

	tuning := config.DefaultTuning()
	tuning.Ideas.MinSegment = 1
	tuning.Ideas.MinTotal = 1
	tuning.Ideas.MinAvgSegment = 1
	tuning.Scan.MinArc = 1

	for _, strategy := range []string{pipeline.StrategyTwoStage, pipeline.StrategyWindowed} {
		t.Run(strategy, func(t *testing.T) {
			cfg := pipeline.Config{
				Input:         in,
				OutDir:        filepath.Join(tmp, "out-"+strategy),
				Strategy:      strategy,
				Tuning:        tuning,
				Render:        true,
				BurnSubtitles: true,
				Concurrency:   2,
				Env:           env,
				Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
			}
			require.NoError(t, cfg.Validate())

			res, err := pipeline.Run(ctx, cfg)
			require.NoError(t, err)

			b, err := os.ReadFile(res.ManifestPath)
			require.NoError(t, err)
			var m types.Manifest
			require.NoError(t, json.Unmarshal(b, &m))
			assert.Equal(t, strategy, m.Strategy)
			assert.NotEmpty(t, m.Provider)

			for _, idea := range m.Ideas {
				require.NotEmpty(t, idea.File)
				sec, err := probeDurationSeconds(filepath.Join(res.OutDir, filepath.FromSlash(idea.File)))
				require.NoError(t, err)
				assert.LessOrEqual(t, sec, tuning.Stitch.Ceiling+1)
			}
		})
	}
}

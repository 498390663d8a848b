package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/gistcut/internal/config"
	"github.com/forPelevin/gistcut/internal/domain/stitch"
	"github.com/forPelevin/gistcut/internal/extract"
	"github.com/forPelevin/gistcut/internal/llm"
	"github.com/forPelevin/gistcut/internal/ports"
	"github.com/forPelevin/gistcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/gistcut/internal/ports/adapters/openaicompat"
	"github.com/forPelevin/gistcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/gistcut/internal/ports/adapters/postgres"
	"github.com/forPelevin/gistcut/internal/ports/adapters/s3store"
	"github.com/forPelevin/gistcut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/gistcut/internal/types"
	"github.com/forPelevin/gistcut/internal/usecase"
)

const (
	StrategyTwoStage = "two-stage"
	StrategyWindowed = "windowed"
)

type Config struct {
	// Input is a transcript (.json) or a media file.
	Input         string
	OutDir        string
	Strategy      string
	Tuning        config.Tuning
	Render        bool
	BurnSubtitles bool
	Concurrency   int
	SkipPreflight bool

	Env    *config.Config
	Logger *slog.Logger
}

func (c Config) TranscriptInput() bool {
	return strings.EqualFold(filepath.Ext(c.Input), ".json")
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	switch c.Strategy {
	case StrategyTwoStage, StrategyWindowed:
	default:
		return fmt.Errorf("unknown strategy %q (want %s or %s)", c.Strategy, StrategyTwoStage, StrategyWindowed)
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be >= 1")
	}
	if c.TranscriptInput() && c.Render {
		return errors.New("rendering needs a media input, not a transcript")
	}
	if c.BurnSubtitles && !c.Render {
		return errors.New("burning subtitles needs rendering")
	}
	if err := c.Tuning.Validate(); err != nil {
		return fmt.Errorf("tuning: %w", err)
	}
	if c.Env == nil {
		return errors.New("environment config is missing")
	}
	if err := c.Env.Validate(); err != nil {
		return err
	}
	if !c.TranscriptInput() && c.Env.WhisperModel == "" {
		return errors.New("whisper model path is required for media input")
	}
	if c.Env.OpenRouterAPIKey != "" {
		return openrouter.ValidateBaseURL(c.Env.OpenRouterBaseURL, c.Env.OpenRouterAllowedHosts)
	}
	return nil
}

type Result struct {
	Manifest     types.Manifest
	OutDir       string
	ManifestPath string
}

type deps struct {
	providers []ports.LLM
	video     ports.VideoTool
	asr       ports.ASR
	runs      ports.RunStore
	artifacts ports.ArtifactStore
	now       func() time.Time
}

// Providers lists every backend in priority order. Unconfigured ones report
// Available() == false and are skipped during selection.
func Providers(env *config.Config) []ports.LLM {
	return []ports.LLM{
		openrouter.New(env.OpenRouterAPIKey, env.OpenRouterModel, env.OpenRouterBaseURL),
		openaicompat.NewGroq(env.GroqAPIKey, env.GroqModel),
		openaicompat.NewOpenAI(env.OpenAIAPIKey, env.OpenAIModel, env.OpenAIBaseURL),
	}
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	env := cfg.Env
	d := deps{
		providers: Providers(env),
		video:     ffmpeg.New(env.FFmpegPath, env.FFprobePath),
		asr:       whispercpp.New(env.WhisperBin, env.WhisperModel),
		now:       time.Now,
	}
	if env.PostgresEnabled() {
		st, err := postgres.Open(ctx, env.DatabaseURL)
		if err != nil {
			return Result{}, err
		}
		defer st.Close(context.WithoutCancel(ctx))
		d.runs = st
	}
	if env.S3Enabled() {
		s, err := s3store.New(ctx, s3store.Config{
			Bucket:          env.S3Bucket,
			Region:          env.S3Region,
			Endpoint:        env.S3Endpoint,
			AccessKeyID:     env.AWSAccessKeyID,
			SecretAccessKey: env.AWSSecretAccessKey,
		})
		if err != nil {
			return Result{}, err
		}
		d.artifacts = s
	}
	return run(ctx, cfg, d)
}

func run(ctx context.Context, cfg Config, d deps) (Result, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	model, err := llm.Select(ctx, d.providers, log, llm.SelectOptions{SkipProbe: cfg.SkipPreflight})
	if err != nil {
		return Result{}, err
	}
	strategy, err := newStrategy(cfg, model, log)
	if err != nil {
		return Result{}, err
	}

	in := usecase.Input{
		Render:        cfg.Render,
		BurnSubtitles: cfg.BurnSubtitles,
	}
	if cfg.TranscriptInput() {
		tr, err := LoadTranscript(cfg.Input)
		if err != nil {
			return Result{}, err
		}
		in.Transcript = &tr
	} else {
		in.Media = cfg.Input
	}

	jobID := hash(cfg.Input)
	baseCache := ".cache"
	if cfg.Env != nil && cfg.Env.CacheDir != "" {
		baseCache = cfg.Env.CacheDir
	}
	in.CacheDir = filepath.Join(baseCache, "runs", jobID)
	if err := os.MkdirAll(in.CacheDir, 0o755); err != nil {
		return Result{}, err
	}

	outRoot := cfg.OutDir
	if outRoot == "" {
		outRoot = "out"
	}
	in.OutDir = buildRunOutDir(outRoot, cfg.Input, d.now().UTC())
	if err := os.MkdirAll(in.OutDir, 0o755); err != nil {
		return Result{}, err
	}
	log.Info("workspace ready", slog.String("cache", in.CacheDir), slog.String("out", in.OutDir))

	uc := usecase.New(usecase.Deps{
		Video:    d.video,
		ASR:      d.asr,
		Strategy: strategy,
		Stitcher: stitch.New(cfg.Tuning.Stitch),
		Logger:   log,
	})
	res, err := uc.Run(ctx, in)
	if err != nil {
		return Result{}, err
	}

	m := res.Manifest
	m.RunID = uuid.NewString()
	m.Input = cfg.Input
	m.Provider = model.Name()
	m.Model = model.Model()

	if d.artifacts != nil {
		if err := publishClips(ctx, d.artifacts, in.OutDir, &m); err != nil {
			return Result{}, err
		}
	}

	manifestPath := filepath.Join(in.OutDir, "manifest.json")
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return Result{}, err
	}
	log.Info("manifest written", slog.Int("ideas", len(m.Ideas)), slog.String("path", manifestPath))

	if d.artifacts != nil {
		f, err := os.Open(manifestPath)
		if err != nil {
			return Result{}, err
		}
		url, err := d.artifacts.Put(ctx, artifactKey(m.RunID, "manifest.json"), f)
		f.Close()
		if err != nil {
			return Result{}, err
		}
		log.Info("manifest uploaded", slog.String("url", url))
	}
	if d.runs != nil {
		if err := d.runs.SaveRun(ctx, m); err != nil {
			return Result{}, fmt.Errorf("save run (manifest kept at %s): %w", manifestPath, err)
		}
		log.Info("run saved", slog.String("run_id", m.RunID))
	}

	return Result{Manifest: m, OutDir: in.OutDir, ManifestPath: manifestPath}, nil
}

func newStrategy(cfg Config, model ports.LLM, log *slog.Logger) (extract.Strategy, error) {
	opts := []extract.Option{
		extract.WithLogger(log.With(slog.String("strategy", cfg.Strategy))),
		extract.WithConcurrency(cfg.Concurrency),
	}
	switch cfg.Strategy {
	case StrategyTwoStage:
		return extract.NewTwoStage(model, cfg.Tuning.Ideas, opts...), nil
	case StrategyWindowed:
		return extract.NewWindowed(model, cfg.Tuning.Scan, opts...), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
}

// LoadTranscript reads and validates a transcript JSON file. Segments are
// sorted by start time.
func LoadTranscript(p string) (types.Transcript, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return types.Transcript{}, err
	}
	var tr types.Transcript
	if err := json.Unmarshal(b, &tr); err != nil {
		return types.Transcript{}, fmt.Errorf("decode transcript %s: %w", p, err)
	}
	if err := config.ValidateStruct(tr); err != nil {
		return types.Transcript{}, fmt.Errorf("transcript %s: %w", p, err)
	}
	sort.SliceStable(tr.Segments, func(i, j int) bool { return tr.Segments[i].Start < tr.Segments[j].Start })
	return tr, nil
}

func publishClips(ctx context.Context, store ports.ArtifactStore, outDir string, m *types.Manifest) error {
	for i := range m.Ideas {
		mi := &m.Ideas[i]
		if mi.File == "" {
			continue
		}
		f, err := os.Open(filepath.Join(outDir, filepath.FromSlash(mi.File)))
		if err != nil {
			return err
		}
		url, err := store.Put(ctx, artifactKey(m.RunID, mi.File), f)
		f.Close()
		if err != nil {
			return err
		}
		mi.URL = url
	}
	return nil
}

func artifactKey(runID, rel string) string {
	return path.Join("runs", runID, rel)
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := usecase.Slug(strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)), 0)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	suffix := hash(fmt.Sprintf("%s|%d", input, now.UTC().UnixNano()))[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.VideoTool     = (*ffmpeg.Adapter)(nil)
	_ ports.ASR           = (*whispercpp.Adapter)(nil)
	_ ports.LLM           = (*openrouter.Adapter)(nil)
	_ ports.LLM           = (*openaicompat.Adapter)(nil)
	_ ports.RunStore      = (*postgres.Store)(nil)
	_ ports.ArtifactStore = (*s3store.Store)(nil)
)

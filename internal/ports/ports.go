package ports

import (
	"context"
	"io"

	"github.com/forPelevin/gistcut/internal/domain/stitch"
	"github.com/forPelevin/gistcut/internal/types"
)

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error
	RenderPlan(ctx context.Context, inMP4 string, plan stitch.Plan, outMP4 string, burnASS string) error
	ProbeDuration(ctx context.Context, inMP4 string) (float64, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// QueryOptions shape a single model call.
type QueryOptions struct {
	Temperature float32
	// JSON asks the backend for a JSON-only reply where it supports it.
	JSON bool
}

// LLM is one interchangeable language-model backend.
type LLM interface {
	Name() string
	Model() string
	// Available reports whether the backend is configured at all.
	Available() bool
	// Probe performs a cheap liveness check; nil means healthy.
	Probe(ctx context.Context) error
	Query(ctx context.Context, prompt string, opts QueryOptions) (string, error)
}

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, m types.Manifest) error
}

// ArtifactStore publishes output files and returns where they can be fetched.
type ArtifactStore interface {
	Put(ctx context.Context, key string, body io.Reader) (string, error)
}

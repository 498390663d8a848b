package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/forPelevin/gistcut/internal/domain/ideas"
	"github.com/forPelevin/gistcut/internal/domain/stitch"
	"github.com/forPelevin/gistcut/internal/extract"
)

// Tuning holds the per-run thresholds. Values missing from the file keep
// their defaults.
type Tuning struct {
	Ideas  ideas.Limits        `yaml:"ideas"`
	Scan   extract.ScanOptions `yaml:"scan"`
	Stitch stitch.Options      `yaml:"stitch"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Ideas:  ideas.DefaultLimits(),
		Scan:   extract.DefaultScanOptions(),
		Stitch: stitch.DefaultOptions(),
	}
}

// LoadTuning reads path over the defaults. An empty path returns the
// defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("tuning: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("tuning %s: %w", path, err)
	}
	return t, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate applies the struct tags and the checks that span sections.
func (t Tuning) Validate() error {
	if err := validate.Struct(t); err != nil {
		return err
	}
	if t.Ideas.MinAvgSegment > t.Ideas.MaxSegment {
		return fmt.Errorf("ideas.min_avg_segment_duration (%.1f) exceeds ideas.max_segment_duration (%.1f)",
			t.Ideas.MinAvgSegment, t.Ideas.MaxSegment)
	}
	if t.Ideas.MinSegment > t.Ideas.MaxTotal {
		return fmt.Errorf("ideas.min_segment_duration (%.1f) exceeds ideas.max_total_duration (%.1f)",
			t.Ideas.MinSegment, t.Ideas.MaxTotal)
	}
	if t.Stitch.Fade*2 > t.Stitch.Ceiling {
		return fmt.Errorf("stitch.fade_duration (%.1f) does not fit twice into stitch.max_output_duration (%.1f)",
			t.Stitch.Fade, t.Stitch.Ceiling)
	}
	return nil
}

// ValidateStruct runs the shared tag validator on v.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

// Package extract finds narratively complete moments in a transcript.
//
// Two strategies share one contract: TwoStage (ideas first, then supporting
// ranges, gated by ideas.Validator) and Windowed (overlapping windows scanned
// for arcs, with a deterministic fallback per window).
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/forPelevin/gistcut/internal/domain/ideas"
	"github.com/forPelevin/gistcut/internal/types"
)

// Strategy extracts accepted ideas from one transcript. A run that accepts
// nothing returns an empty Result and a nil error.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, tr types.Transcript) (Result, error)
}

type Result struct {
	Ideas  []ideas.Idea
	Report Report
}

// Report counts what happened to every proposal in a run.
type Report struct {
	// Proposed is what the model offered: Stage 1 candidates, or window arcs
	// including fallbacks.
	Proposed int
	Accepted int
	// Malformed counts calls whose reply could not be decoded.
	Malformed int
	// Failed counts calls that returned an error.
	Failed   int
	Rejected map[ideas.RejectKind]int
	Dropped  map[ideas.DropReason]int

	Windows    int
	Fallbacks  int
	Duplicates int
	Filtered   int
}

func (r *Report) reject(k ideas.RejectKind) {
	if r.Rejected == nil {
		r.Rejected = make(map[ideas.RejectKind]int)
	}
	r.Rejected[k]++
}

func (r *Report) drop(d ideas.DropReason) {
	if r.Dropped == nil {
		r.Dropped = make(map[ideas.DropReason]int)
	}
	r.Dropped[d]++
}

// RejectedTotal sums the quality-gate rejections.
func (r Report) RejectedTotal() int {
	n := 0
	for _, v := range r.Rejected {
		n += v
	}
	return n
}

type options struct {
	logger      *slog.Logger
	concurrency int
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConcurrency bounds parallel per-idea or per-window calls. Output order
// does not depend on it.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), concurrency: 1}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// FormatTranscript renders one "[MM:SS] text" line per segment.
func FormatTranscript(tr types.Transcript) string {
	var b strings.Builder
	for i, s := range tr.Segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s", ideas.FormatTimecode(s.Start), strings.TrimSpace(s.Text))
	}
	return b.String()
}

// compactSegments renders a minified JSON slice to keep window prompts small.
func compactSegments(segs []types.Segment) string {
	type row struct {
		S float64 `json:"s"`
		E float64 `json:"e"`
		T string  `json:"t"`
	}
	rows := make([]row, 0, len(segs))
	for _, s := range segs {
		rows = append(rows, row{S: round2(s.Start), E: round2(s.End), T: strings.TrimSpace(s.Text)})
	}
	b, _ := json.Marshal(rows)
	return string(b)
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

// looseString decodes a JSON string, number or null into text so a wrongly
// typed timecode drops one range instead of the whole reply.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	t := strings.TrimSpace(string(b))
	if t == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(t, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(t)
	return nil
}

package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/gistcut/internal/domain/ideas"
	"github.com/forPelevin/gistcut/internal/domain/modeljson"
	"github.com/forPelevin/gistcut/internal/ports"
	"github.com/forPelevin/gistcut/internal/types"
)

const (
	windowTemperature = 0.6
	fallbackTitle     = "Valuable Context"
	fallbackSalience  = 5
)

// ScanOptions configure the windowed scanner.
type ScanOptions struct {
	// WindowSize and Step are counted in transcript segments.
	WindowSize int     `yaml:"window_size" validate:"gte=1"`
	Step       int     `yaml:"step" validate:"gte=1,ltfield=WindowSize"`
	MinArc     float64 `yaml:"min_arc_duration" validate:"gt=0"`
	MaxArc     float64 `yaml:"max_arc_duration" validate:"gtfield=MinArc"`
	// Arcs whose starts differ by less than DedupGap seconds are duplicates.
	DedupGap    float64 `yaml:"dedup_gap" validate:"gte=0"`
	FallbackCap float64 `yaml:"fallback_cap" validate:"gt=0"`
}

func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		WindowSize:  40,
		Step:        30,
		MinArc:      15,
		MaxArc:      120,
		DedupGap:    10,
		FallbackCap: 60,
	}
}

type arc struct {
	Title       string  `json:"title"`
	Explanation string  `json:"explanation"`
	Timestamps  [][]any `json:"timestamps"`
	Salience    any     `json:"salience_score"`
}

type windowReply struct {
	Ideas []json.RawMessage `json:"ideas"`
}

type scanned struct {
	start, end float64
	title      string
	why        string
	salience   int
}

type windowOutcome struct {
	arcs      []scanned
	fallback  bool
	malformed bool
	err       error
}

// Windowed scans overlapping transcript windows for narrative arcs. Every
// window yields at least one arc: when the model offers nothing usable the
// window span itself becomes a capped fallback arc.
type Windowed struct {
	llm  ports.LLM
	scan ScanOptions
	opts options
}

func NewWindowed(llm ports.LLM, scan ScanOptions, opts ...Option) *Windowed {
	return &Windowed{llm: llm, scan: scan, opts: buildOptions(opts)}
}

func (w *Windowed) Name() string { return "windowed" }

// Windows splits segments into overlapping windows of size, advancing by
// step. The last windows may be shorter than size.
func Windows(segs []types.Segment, size, step int) [][]types.Segment {
	if size < 1 || step < 1 {
		return nil
	}
	var out [][]types.Segment
	for i := 0; i < len(segs); i += step {
		out = append(out, segs[i:min(i+size, len(segs))])
	}
	return out
}

func (w *Windowed) Extract(ctx context.Context, tr types.Transcript) (Result, error) {
	var res Result
	windows := Windows(tr.Segments, w.scan.WindowSize, w.scan.Step)
	res.Report.Windows = len(windows)
	if len(windows) == 0 {
		return res, nil
	}

	outs := make([]windowOutcome, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.concurrency)
	for i, win := range windows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outs[i] = w.scanWindow(gctx, win)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	duration := tr.VideoDuration()
	var kept []scanned
	for i, o := range outs {
		log := w.opts.logger.With(slog.Int("window", i+1))
		switch {
		case o.err != nil:
			res.Report.Failed++
			log.Warn("window scan failed", slog.Any("err", o.err))
			continue
		case o.malformed:
			res.Report.Malformed++
			log.Warn("window reply malformed")
			continue
		}
		if o.fallback {
			res.Report.Fallbacks++
			log.Info("window fell back to its own span")
		}
		for _, a := range o.arcs {
			res.Report.Proposed++
			if a.start >= duration {
				res.Report.drop(ideas.DropOutOfRange)
				log.Debug("arc past the end", slog.String("title", a.title), slog.Float64("start_sec", a.start))
				continue
			}
			a.end = min(a.end, duration)
			d := a.end - a.start
			if d < w.scan.MinArc || d > w.scan.MaxArc {
				res.Report.Filtered++
				log.Debug("arc filtered", slog.String("title", a.title), slog.Float64("duration_sec", d))
				continue
			}
			if duplicateOf(kept, a, w.scan.DedupGap) {
				res.Report.Duplicates++
				log.Debug("arc duplicate", slog.String("title", a.title), slog.Float64("start_sec", a.start))
				continue
			}
			kept = append(kept, a)
		}
	}

	for _, a := range kept {
		d := a.end - a.start
		res.Ideas = append(res.Ideas, ideas.Idea{
			Title:       a.title,
			Description: a.why,
			Segments: []ideas.Segment{{
				Start:      a.start,
				End:        a.end,
				Duration:   d,
				Purpose:    a.why,
				StartLabel: ideas.FormatTimecode(a.start),
				EndLabel:   ideas.FormatTimecode(a.end),
			}},
			TotalDuration: d,
			Reasoning:     a.why,
			Salience:      a.salience,
		})
	}
	res.Report.Accepted = len(res.Ideas)
	w.opts.logger.Info("windowed scan finished",
		slog.Int("windows", res.Report.Windows),
		slog.Int("accepted", res.Report.Accepted),
		slog.Int("fallbacks", res.Report.Fallbacks),
	)
	return res, nil
}

func duplicateOf(kept []scanned, a scanned, gap float64) bool {
	for _, k := range kept {
		if math.Abs(k.start-a.start) < gap {
			return true
		}
	}
	return false
}

func (w *Windowed) scanWindow(ctx context.Context, win []types.Segment) windowOutcome {
	reply, err := w.llm.Query(ctx, windowPrompt(compactSegments(win), w.scan), ports.QueryOptions{
		Temperature: windowTemperature,
		JSON:        true,
	})
	if err != nil {
		return windowOutcome{err: err}
	}
	var out windowReply
	if err := modeljson.Decode(reply, &out); err != nil {
		return windowOutcome{malformed: true}
	}

	var arcs []scanned
	for _, raw := range out.Ideas {
		if a, ok := parseArc(raw); ok {
			arcs = append(arcs, a)
		}
	}
	if len(arcs) > 0 {
		return windowOutcome{arcs: arcs}
	}
	return windowOutcome{arcs: []scanned{w.fallback(win)}, fallback: true}
}

func (w *Windowed) fallback(win []types.Segment) scanned {
	start := win[0].Start
	end := win[len(win)-1].End
	if end-start > w.scan.FallbackCap {
		end = start + w.scan.FallbackCap
	}
	return scanned{
		start:    start,
		end:      end,
		title:    fallbackTitle,
		why:      "No distinct arc was found in this part of the video; the opening of the section is kept as context.",
		salience: fallbackSalience,
	}
}

// parseArc reads one arc. Only its first timestamp pair is used.
func parseArc(raw json.RawMessage) (scanned, bool) {
	var a arc
	if err := json.Unmarshal(raw, &a); err != nil {
		return scanned{}, false
	}
	if len(a.Timestamps) == 0 || len(a.Timestamps[0]) < 2 {
		return scanned{}, false
	}
	start, ok1 := number(a.Timestamps[0][0])
	end, ok2 := number(a.Timestamps[0][1])
	if !ok1 || !ok2 || end <= start || start < 0 {
		return scanned{}, false
	}
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = fallbackTitle
	}
	sal, ok := number(a.Salience)
	if !ok {
		sal = fallbackSalience
	}
	return scanned{
		start:    start,
		end:      end,
		title:    title,
		why:      strings.TrimSpace(a.Explanation),
		salience: int(math.Round(math.Max(0, math.Min(10, sal)))),
	}, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	default:
		return 0, false
	}
}

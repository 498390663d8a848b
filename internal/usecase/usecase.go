package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/forPelevin/gistcut/internal/domain/ideas"
	"github.com/forPelevin/gistcut/internal/domain/stitch"
	"github.com/forPelevin/gistcut/internal/domain/subtitles"
	"github.com/forPelevin/gistcut/internal/extract"
	"github.com/forPelevin/gistcut/internal/ports"
	"github.com/forPelevin/gistcut/internal/types"
)

var ErrNoVideoTool = errors.New("rendering needs a video tool")

type Deps struct {
	// Video and ASR are only needed for media input or rendering.
	Video    ports.VideoTool
	ASR      ports.ASR
	Strategy extract.Strategy
	Stitcher stitch.Stitcher
	Logger   *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return Usecase{d: d}
}

type Input struct {
	// Media is the source video. It may be empty when Transcript is set and
	// nothing is rendered.
	Media string
	// Transcript skips audio extraction and speech recognition when set.
	Transcript *types.Transcript

	Render        bool
	BurnSubtitles bool

	CacheDir string
	OutDir   string
}

type Result struct {
	Manifest types.Manifest
	Ideas    []ideas.Idea
	Plans    []stitch.Plan
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := u.d.Logger
	if in.Render && u.d.Video == nil {
		return Result{}, ErrNoVideoTool
	}

	tr, err := u.transcript(ctx, in)
	if err != nil {
		return Result{}, err
	}
	duration := tr.VideoDuration()
	log.Info("transcript ready",
		slog.Int("segments", len(tr.Segments)),
		slog.Float64("video_duration_sec", duration),
	)

	log.Info("extracting ideas", slog.String("strategy", u.d.Strategy.Name()))
	ex, err := u.d.Strategy.Extract(ctx, tr)
	if err != nil {
		return Result{}, fmt.Errorf("extract ideas: %w", err)
	}

	res := Result{Manifest: types.Manifest{
		Input:         in.Media,
		Strategy:      u.d.Strategy.Name(),
		VideoDuration: duration,
		Report:        manifestReport(ex.Report),
		Ideas:         []types.ManifestIdea{},
	}}

	for _, idea := range ex.Ideas {
		plan, err := u.d.Stitcher.Plan(idea.Ranges(), duration)
		if err != nil {
			log.Warn("idea skipped", slog.String("title", idea.Title), slog.Any("err", err))
			continue
		}
		id := fmt.Sprintf("%03d", len(res.Ideas)+1)
		mi := manifestIdea(id, idea, plan)

		if in.Render {
			if err := u.render(ctx, in, tr, plan, &mi); err != nil {
				return Result{}, err
			}
		}

		res.Ideas = append(res.Ideas, idea)
		res.Plans = append(res.Plans, plan)
		res.Manifest.Ideas = append(res.Manifest.Ideas, mi)
	}

	log.Info("ideas ready",
		slog.Int("proposed", ex.Report.Proposed),
		slog.Int("accepted", len(res.Ideas)),
		slog.Int("rejected", ex.Report.RejectedTotal()),
		slog.Int("malformed", ex.Report.Malformed),
	)
	return res, nil
}

func (u Usecase) transcript(ctx context.Context, in Input) (types.Transcript, error) {
	if in.Transcript != nil {
		return *in.Transcript, nil
	}
	if u.d.Video == nil || u.d.ASR == nil {
		return types.Transcript{}, errors.New("media input needs a video tool and ASR")
	}

	wav := filepath.Join(in.CacheDir, "audio.wav")
	u.d.Logger.Info("extracting audio", slog.String("wav", wav))
	if err := u.d.Video.ExtractAudioMono16k(ctx, in.Media, wav); err != nil {
		return types.Transcript{}, err
	}
	u.d.Logger.Info("transcribing")
	tr, err := u.d.ASR.Transcribe(ctx, wav, in.CacheDir)
	if err != nil {
		return types.Transcript{}, err
	}
	d, err := u.d.Video.ProbeDuration(ctx, in.Media)
	if err != nil {
		return types.Transcript{}, err
	}
	if d > 0 {
		tr.Duration = d
	}
	return tr, nil
}

func (u Usecase) render(ctx context.Context, in Input, tr types.Transcript, plan stitch.Plan, mi *types.ManifestIdea) error {
	name := mi.ID
	if s := Slug(mi.Title, 40); s != "" {
		name += "-" + s
	}
	clipRel := filepath.Join("clips", name+".mp4")
	if err := os.MkdirAll(filepath.Join(in.OutDir, "clips"), 0o755); err != nil {
		return err
	}

	var assPath string
	if in.BurnSubtitles {
		ass, err := subtitles.RenderPlanASS(tr, plan)
		switch {
		case errors.Is(err, subtitles.ErrNoSpeech):
			u.d.Logger.Warn("no subtitles for idea", slog.String("id", mi.ID))
		case err != nil:
			return err
		default:
			subRel := filepath.Join("subtitles", mi.ID+".ass")
			assPath = filepath.Join(in.OutDir, subRel)
			if err := os.MkdirAll(filepath.Dir(assPath), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(assPath, []byte(ass), 0o644); err != nil {
				return err
			}
			mi.Subtitles = filepath.ToSlash(subRel)
		}
	}

	u.d.Logger.Info("rendering clip",
		slog.String("id", mi.ID),
		slog.Int("cuts", len(plan.Cuts)),
		slog.Float64("duration_sec", plan.Total),
	)
	if err := u.d.Video.RenderPlan(ctx, in.Media, plan, filepath.Join(in.OutDir, clipRel), assPath); err != nil {
		return fmt.Errorf("render idea %s: %w", mi.ID, err)
	}
	mi.File = filepath.ToSlash(clipRel)
	return nil
}

func manifestIdea(id string, idea ideas.Idea, plan stitch.Plan) types.ManifestIdea {
	mi := types.ManifestIdea{
		ID:               id,
		Title:            idea.Title,
		Description:      idea.Description,
		Reasoning:        idea.Reasoning,
		Excerpt:          idea.Excerpt,
		Salience:         idea.Salience,
		SegmentCount:     len(idea.Segments),
		TotalDurationSec: idea.TotalDuration,
		Segments:         make([]types.ManifestSegment, 0, len(idea.Segments)),
		Cuts:             make([]types.ManifestCut, 0, len(plan.Cuts)),
		PlanDurationSec:  plan.Total,
		FadeInSec:        plan.FadeIn,
		FadeOutSec:       plan.FadeOut,
	}
	for _, s := range idea.Segments {
		mi.Segments = append(mi.Segments, types.ManifestSegment{
			StartSec:    s.Start,
			EndSec:      s.End,
			DurationSec: s.Duration,
			StartLabel:  s.StartLabel,
			EndLabel:    s.EndLabel,
			Purpose:     s.Purpose,
		})
	}
	for _, c := range plan.Cuts {
		mi.Cuts = append(mi.Cuts, types.ManifestCut{
			StartSec:    c.Start,
			EndSec:      c.End,
			OutStartSec: c.OutStart,
			OutEndSec:   c.OutEnd,
		})
	}
	return mi
}

func manifestReport(r extract.Report) types.ManifestReport {
	out := types.ManifestReport{
		Proposed:   r.Proposed,
		Accepted:   r.Accepted,
		Malformed:  r.Malformed,
		Failed:     r.Failed,
		Windows:    r.Windows,
		Fallbacks:  r.Fallbacks,
		Duplicates: r.Duplicates,
		Filtered:   r.Filtered,
	}
	if len(r.Rejected) > 0 {
		out.Rejected = make(map[string]int, len(r.Rejected))
		for k, v := range r.Rejected {
			out.Rejected[string(k)] = v
		}
	}
	if len(r.Dropped) > 0 {
		out.Dropped = make(map[string]int, len(r.Dropped))
		for k, v := range r.Dropped {
			out.Dropped[string(k)] = v
		}
	}
	return out
}

// Slug lowercases s, keeps letters and digits, collapses everything else
// into single dashes and cuts the result to at most n runes (n <= 0 means
// no limit).
func Slug(s string, n int) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if r := []rune(out); n > 0 && len(r) > n {
		out = strings.TrimRight(string(r[:n]), "-")
	}
	return out
}

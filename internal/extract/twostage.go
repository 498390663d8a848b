package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/gistcut/internal/domain/ideas"
	"github.com/forPelevin/gistcut/internal/domain/modeljson"
	"github.com/forPelevin/gistcut/internal/ports"
	"github.com/forPelevin/gistcut/internal/types"
)

const (
	stageOneTemperature = 0.3
	stageTwoTemperature = 0.3
)

type stageOneReply struct {
	Ideas []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"ideas"`
}

type stageTwoReply struct {
	Segments []struct {
		Start   looseString `json:"start"`
		End     looseString `json:"end"`
		Purpose string      `json:"purpose"`
	} `json:"segments"`
	Reasoning string `json:"reasoning"`
	Excerpt   string `json:"transcript_excerpt"`
}

// TwoStage asks for standalone ideas first, then for the ranges that support
// each idea, and gates every idea through a Validator.
type TwoStage struct {
	llm       ports.LLM
	validator ideas.Validator
	opts      options
}

func NewTwoStage(llm ports.LLM, limits ideas.Limits, opts ...Option) *TwoStage {
	return &TwoStage{llm: llm, validator: ideas.NewValidator(limits), opts: buildOptions(opts)}
}

func (s *TwoStage) Name() string { return "two-stage" }

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeRejected
	outcomeMalformed
	outcomeFailed
)

type discovery struct {
	candidate ideas.Candidate
	kind      outcome
	idea      ideas.Idea
	drops     []ideas.Drop
	err       error
}

func (s *TwoStage) Extract(ctx context.Context, tr types.Transcript) (Result, error) {
	var res Result
	if len(tr.Segments) == 0 {
		return res, nil
	}
	formatted := FormatTranscript(tr)
	duration := tr.VideoDuration()

	cands, err := s.identify(ctx, formatted)
	if err != nil {
		return res, fmt.Errorf("stage 1: %w", err)
	}
	res.Report.Proposed = len(cands)
	s.opts.logger.Info("ideas proposed", slog.Int("count", len(cands)))
	if len(cands) == 0 {
		return res, nil
	}

	found := make([]discovery, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.concurrency)
	for i, c := range cands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found[i] = s.discover(gctx, formatted, c, duration)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	for i, d := range found {
		log := s.opts.logger.With(slog.Int("idea", i+1), slog.String("title", d.candidate.Title))
		for _, dr := range d.drops {
			res.Report.drop(dr.Reason)
			log.Debug("range dropped",
				slog.Int("range", dr.Index),
				slog.String("reason", string(dr.Reason)),
				slog.String("start", dr.Range.Start),
				slog.String("end", dr.Range.End),
			)
		}
		switch d.kind {
		case outcomeAccepted:
			res.Report.Accepted++
			res.Ideas = append(res.Ideas, d.idea)
			log.Info("idea accepted",
				slog.Int("segments", len(d.idea.Segments)),
				slog.Float64("total_sec", d.idea.TotalDuration),
			)
		case outcomeRejected:
			var rej *ideas.RejectionError
			if errors.As(d.err, &rej) {
				res.Report.reject(rej.Kind)
			}
			log.Info("idea rejected", slog.Any("err", d.err))
		case outcomeMalformed:
			res.Report.Malformed++
			log.Warn("segment reply malformed", slog.Any("err", d.err))
		case outcomeFailed:
			res.Report.Failed++
			log.Warn("segment discovery failed", slog.Any("err", d.err))
		}
	}
	return res, nil
}

func (s *TwoStage) identify(ctx context.Context, formatted string) ([]ideas.Candidate, error) {
	l := s.validator.Limits()
	reply, err := s.llm.Query(ctx, stageOnePrompt(formatted, l), ports.QueryOptions{
		Temperature: stageOneTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	var out stageOneReply
	if err := modeljson.Decode(reply, &out, "ideas"); err != nil {
		return nil, err
	}
	cands := make([]ideas.Candidate, 0, len(out.Ideas))
	for _, it := range out.Ideas {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		cands = append(cands, ideas.Candidate{Title: title, Description: strings.TrimSpace(it.Description)})
	}
	return cands, nil
}

func (s *TwoStage) discover(ctx context.Context, formatted string, c ideas.Candidate, duration float64) discovery {
	d := discovery{candidate: c}
	reply, err := s.llm.Query(ctx, stageTwoPrompt(formatted, c, s.validator.Limits()), ports.QueryOptions{
		Temperature: stageTwoTemperature,
		JSON:        true,
	})
	if err != nil {
		d.kind, d.err = outcomeFailed, err
		return d
	}
	var out stageTwoReply
	if err := modeljson.Decode(reply, &out, "segments"); err != nil {
		d.kind, d.err = outcomeMalformed, err
		return d
	}

	sup := ideas.Support{Reasoning: out.Reasoning, Excerpt: out.Excerpt}
	for _, seg := range out.Segments {
		sup.Ranges = append(sup.Ranges, ideas.RawRange{
			Start:   string(seg.Start),
			End:     string(seg.End),
			Purpose: seg.Purpose,
		})
	}
	idea, drops, err := s.validator.Validate(c, sup, duration)
	d.drops = drops
	if err != nil {
		d.kind, d.err = outcomeRejected, err
		return d
	}
	d.kind, d.idea = outcomeAccepted, idea
	return d
}

package ideas

import (
	"fmt"
	"strings"
)

// RejectKind names why a whole idea was discarded.
type RejectKind string

const (
	RejectNoSegments      RejectKind = "no_segments"
	RejectTooLong         RejectKind = "too_long"
	RejectTooManySegments RejectKind = "too_many_segments"
	RejectTooShort        RejectKind = "too_short"
	RejectMicroChopped    RejectKind = "micro_chopped"
)

// RejectionError is a quality-gate outcome, not a failure: the model output
// was well formed but the idea does not make a usable clip.
type RejectionError struct {
	Kind     RejectKind
	Title    string
	Segments int
	Total    float64
	Average  float64
	Limit    float64
}

func (e *RejectionError) Error() string {
	switch e.Kind {
	case RejectNoSegments:
		return fmt.Sprintf("idea %q rejected: no segment survived validation", e.Title)
	case RejectTooLong:
		return fmt.Sprintf("idea %q rejected: too long (%.1fs > %.1fs)", e.Title, e.Total, e.Limit)
	case RejectTooManySegments:
		return fmt.Sprintf("idea %q rejected: too many segments (%d > %.0f)", e.Title, e.Segments, e.Limit)
	case RejectTooShort:
		return fmt.Sprintf("idea %q rejected: too short (%.1fs < %.1fs)", e.Title, e.Total, e.Limit)
	case RejectMicroChopped:
		return fmt.Sprintf("idea %q rejected: micro-chopped (avg %.1fs < %.1fs)", e.Title, e.Average, e.Limit)
	default:
		return fmt.Sprintf("idea %q rejected: %s", e.Title, e.Kind)
	}
}

// DropReason names why a single range was dropped. A drop never rejects the
// enclosing idea by itself.
type DropReason string

const (
	DropBadTimestamp DropReason = "bad_timestamp"
	DropOutOfRange   DropReason = "out_of_range"
	DropTooShort     DropReason = "too_short"
	DropTooLong      DropReason = "too_long"
)

type Drop struct {
	Index    int
	Reason   DropReason
	Range    RawRange
	Duration float64
	Err      error
}

type Validator struct {
	limits Limits
}

func NewValidator(l Limits) Validator { return Validator{limits: l} }

func (v Validator) Limits() Limits { return v.limits }

// Validate pads and filters the ranges of one candidate and applies the
// idea-level gate. On rejection the error is a *RejectionError; the drops are
// returned either way.
func (v Validator) Validate(c Candidate, sup Support, videoDuration float64) (Idea, []Drop, error) {
	var (
		drops []Drop
		segs  []Segment
		total float64
	)
	for i, r := range sup.Ranges {
		seg, drop, ok := v.segment(i, r, videoDuration)
		if !ok {
			drops = append(drops, drop)
			continue
		}
		segs = append(segs, seg)
		total += seg.Duration
	}

	title := strings.TrimSpace(c.Title)
	rej := &RejectionError{Title: title, Segments: len(segs), Total: total}
	if len(segs) > 0 {
		rej.Average = total / float64(len(segs))
	}

	switch {
	case len(segs) == 0:
		rej.Kind = RejectNoSegments
	case total > v.limits.MaxTotal:
		rej.Kind, rej.Limit = RejectTooLong, v.limits.MaxTotal
	case len(segs) > v.limits.MaxSegments:
		rej.Kind, rej.Limit = RejectTooManySegments, float64(v.limits.MaxSegments)
	case total < v.limits.MinTotal:
		rej.Kind, rej.Limit = RejectTooShort, v.limits.MinTotal
	case rej.Average < v.limits.MinAvgSegment:
		rej.Kind, rej.Limit = RejectMicroChopped, v.limits.MinAvgSegment
	}
	if rej.Kind != "" {
		return Idea{}, drops, rej
	}

	return Idea{
		Title:         title,
		Description:   strings.TrimSpace(c.Description),
		Segments:      segs,
		TotalDuration: total,
		Reasoning:     strings.TrimSpace(sup.Reasoning),
		Excerpt:       strings.TrimSpace(sup.Excerpt),
	}, drops, nil
}

func (v Validator) segment(i int, r RawRange, videoDuration float64) (Segment, Drop, bool) {
	drop := Drop{Index: i, Range: r}

	start, err := ParseTimecode(r.Start)
	if err != nil {
		drop.Reason, drop.Err = DropBadTimestamp, err
		return Segment{}, drop, false
	}
	end, err := ParseTimecode(r.End)
	if err != nil {
		drop.Reason, drop.Err = DropBadTimestamp, err
		return Segment{}, drop, false
	}

	start, end = v.Pad(start, end, videoDuration)
	if start >= videoDuration {
		drop.Reason = DropOutOfRange
		return Segment{}, drop, false
	}

	d := end - start
	drop.Duration = d
	if d < v.limits.MinSegment {
		drop.Reason = DropTooShort
		return Segment{}, drop, false
	}
	if d > v.limits.MaxSegment {
		drop.Reason = DropTooLong
		return Segment{}, drop, false
	}

	return Segment{
		Start:      start,
		End:        end,
		Duration:   d,
		Purpose:    strings.TrimSpace(r.Purpose),
		StartLabel: strings.TrimSpace(r.Start),
		EndLabel:   strings.TrimSpace(r.End),
	}, Drop{}, true
}

// Pad widens [start, end] by the configured padding, clamped to
// [0, videoDuration].
func (v Validator) Pad(start, end, videoDuration float64) (float64, float64) {
	start -= v.limits.Padding
	end += v.limits.Padding
	if start < 0 {
		start = 0
	}
	if end > videoDuration {
		end = videoDuration
	}
	return start, end
}

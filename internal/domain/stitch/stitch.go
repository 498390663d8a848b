// Package stitch turns an idea's possibly scattered ranges into one ordered
// cut list with a single playable output time axis.
package stitch

import (
	"errors"
	"math"
	"sort"

	"github.com/forPelevin/gistcut/internal/domain/ideas"
)

var ErrEmptyPlan = errors.New("stitch: no usable ranges")

type Options struct {
	// Ceiling is the hard cap on the stitched output length in seconds.
	Ceiling float64 `yaml:"max_output_duration" validate:"gt=0"`
	// Fade is applied at the very start and the very end of the output.
	Fade float64 `yaml:"fade_duration" validate:"gte=0"`
}

func DefaultOptions() Options {
	return Options{Ceiling: 85, Fade: 0.5}
}

// Cut is one source interval and where it lands in the output.
type Cut struct {
	Start    float64
	End      float64
	OutStart float64
	OutEnd   float64
}

func (c Cut) Duration() float64 { return c.End - c.Start }

// Plan is the merged cut list for one idea.
type Plan struct {
	Cuts    []Cut
	Total   float64
	FadeIn  float64
	FadeOut float64
}

// ToOutput maps a source timestamp to the output axis. ok is false when t
// falls outside every cut.
func (p Plan) ToOutput(t float64) (float64, bool) {
	for _, c := range p.Cuts {
		if t >= c.Start && t <= c.End {
			return c.OutStart + (t - c.Start), true
		}
	}
	return 0, false
}

type Stitcher struct {
	opts Options
}

func New(o Options) Stitcher { return Stitcher{opts: o} }

// Plan merges the ranges, enforces the ceiling by shortening the tail and
// lays the result out on the output axis.
func (s Stitcher) Plan(ranges []ideas.Range, videoDuration float64) (Plan, error) {
	clean := make([]ideas.Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Start < 0 {
			r.Start = 0
		}
		if videoDuration > 0 && r.End > videoDuration {
			r.End = videoDuration
		}
		if r.End <= r.Start {
			continue
		}
		clean = append(clean, r)
	}

	merged := Merge(clean)
	if len(merged) == 0 {
		return Plan{}, ErrEmptyPlan
	}
	merged = trimTail(merged, s.opts.Ceiling)

	p := Plan{Cuts: make([]Cut, 0, len(merged))}
	for _, r := range merged {
		c := Cut{Start: r.Start, End: r.End, OutStart: p.Total}
		p.Total += r.Duration()
		c.OutEnd = p.Total
		p.Cuts = append(p.Cuts, c)
	}
	fade := math.Min(s.opts.Fade, p.Total/2)
	p.FadeIn, p.FadeOut = fade, fade
	return p, nil
}

// Merge sorts a copy of the ranges and unions every pair where the next start
// is not after the current end.
func Merge(ranges []ideas.Range) []ideas.Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := append([]ideas.Range(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	out := []ideas.Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// trimTail removes the excess over ceiling from the end of the last interval.
// An interval consumed entirely is dropped and the remainder comes off the
// new last one; interior intervals keep their bounds otherwise.
func trimTail(merged []ideas.Range, ceiling float64) []ideas.Range {
	if ceiling <= 0 {
		return merged
	}
	var total float64
	for _, r := range merged {
		total += r.Duration()
	}
	excess := total - ceiling
	for excess > 0 && len(merged) > 0 {
		last := &merged[len(merged)-1]
		if d := last.Duration(); d > excess {
			last.End -= excess
			break
		}
		excess -= last.Duration()
		merged = merged[:len(merged)-1]
	}
	return merged
}

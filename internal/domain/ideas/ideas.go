// Package ideas holds the editorial data model and the deterministic quality
// gate applied to model-proposed time ranges.
package ideas

// Candidate is a Stage 1 proposal. It carries no timing yet.
type Candidate struct {
	Title       string
	Description string
}

// RawRange is one model-proposed range in model-native "MM:SS" form.
type RawRange struct {
	Start   string
	End     string
	Purpose string
}

// Support is everything Stage 2 returned for one candidate.
type Support struct {
	Ranges    []RawRange
	Reasoning string
	Excerpt   string
}

// Range is a time interval in seconds.
type Range struct {
	Start float64
	End   float64
}

func (r Range) Duration() float64 { return r.End - r.Start }

// Segment is a validated, padded range.
type Segment struct {
	Start    float64
	End      float64
	Duration float64
	Purpose  string

	// StartLabel and EndLabel keep the timecodes exactly as the model wrote
	// them, for operator diagnostics.
	StartLabel string
	EndLabel   string
}

// Idea is the final unit of work handed to the stitcher.
type Idea struct {
	Title         string
	Description   string
	Segments      []Segment
	TotalDuration float64
	Reasoning     string
	Excerpt       string
	Salience      int
}

// Ranges returns the segment bounds in order.
func (i Idea) Ranges() []Range {
	out := make([]Range, 0, len(i.Segments))
	for _, s := range i.Segments {
		out = append(out, Range{Start: s.Start, End: s.End})
	}
	return out
}

// AverageSegment returns TotalDuration / len(Segments), or 0 for no segments.
func (i Idea) AverageSegment() float64 {
	if len(i.Segments) == 0 {
		return 0
	}
	return i.TotalDuration / float64(len(i.Segments))
}

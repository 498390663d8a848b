package types

import "encoding/json"

// Transcript is the speech-to-text output for one video. Segments are ordered
// by start time.
type Transcript struct {
	// Duration is the source video length in seconds. When zero the end of
	// the last segment is used.
	Duration float64   `json:"video_duration,omitempty" validate:"gte=0"`
	Segments []Segment `json:"segments" validate:"dive"`
}

// UnmarshalJSON accepts both "video_duration" and the shorter "duration" key
// written by older ingestion runs.
func (t *Transcript) UnmarshalJSON(b []byte) error {
	var raw struct {
		VideoDuration *float64  `json:"video_duration"`
		Duration      *float64  `json:"duration"`
		Segments      []Segment `json:"segments"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.Segments = raw.Segments
	t.Duration = 0
	switch {
	case raw.VideoDuration != nil:
		t.Duration = *raw.VideoDuration
	case raw.Duration != nil:
		t.Duration = *raw.Duration
	}
	return nil
}

// VideoDuration returns the explicit duration or, failing that, the last
// segment end.
func (t Transcript) VideoDuration() float64 {
	if t.Duration > 0 {
		return t.Duration
	}
	var end float64
	for _, s := range t.Segments {
		if s.End > end {
			end = s.End
		}
	}
	return end
}

type Segment struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtfield=Start"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

type Manifest struct {
	RunID         string         `json:"run_id"`
	Input         string         `json:"input"`
	Strategy      string         `json:"strategy"`
	Provider      string         `json:"provider"`
	Model         string         `json:"model"`
	VideoDuration float64        `json:"video_duration"`
	Report        ManifestReport `json:"report"`
	Ideas         []ManifestIdea `json:"ideas"`
}

// ManifestReport keeps "proposed" and "accepted" apart so a run that found
// nothing is distinguishable from one whose ideas were all filtered.
type ManifestReport struct {
	Proposed   int            `json:"proposed"`
	Accepted   int            `json:"accepted"`
	Malformed  int            `json:"malformed"`
	Failed     int            `json:"failed"`
	Rejected   map[string]int `json:"rejected,omitempty"`
	Dropped    map[string]int `json:"dropped_ranges,omitempty"`
	Windows    int            `json:"windows,omitempty"`
	Fallbacks  int            `json:"fallbacks,omitempty"`
	Duplicates int            `json:"duplicates,omitempty"`
	Filtered   int            `json:"filtered,omitempty"`
}

type ManifestIdea struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	Reasoning        string            `json:"reasoning,omitempty"`
	Excerpt          string            `json:"transcript_excerpt,omitempty"`
	Salience         int               `json:"salience_score,omitempty"`
	SegmentCount     int               `json:"segment_count"`
	TotalDurationSec float64           `json:"total_duration_sec"`
	Segments         []ManifestSegment `json:"segments"`
	Cuts             []ManifestCut     `json:"cuts"`
	PlanDurationSec  float64           `json:"plan_duration_sec"`
	FadeInSec        float64           `json:"fade_in_sec"`
	FadeOutSec       float64           `json:"fade_out_sec"`
	File             string            `json:"file,omitempty"`
	Subtitles        string            `json:"subtitles,omitempty"`
	URL              string            `json:"url,omitempty"`
}

type ManifestSegment struct {
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	DurationSec float64 `json:"duration_sec"`
	StartLabel  string  `json:"start_label,omitempty"`
	EndLabel    string  `json:"end_label,omitempty"`
	Purpose     string  `json:"purpose,omitempty"`
}

type ManifestCut struct {
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	OutStartSec float64 `json:"out_start_sec"`
	OutEndSec   float64 `json:"out_end_sec"`
}

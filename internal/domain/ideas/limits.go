package ideas

// Limits are the quality thresholds for one run. The value is copied into
// each Validator, so concurrent runs with different tuning never share it.
type Limits struct {
	MinSegment    float64 `yaml:"min_segment_duration" validate:"gt=0"`
	MaxSegment    float64 `yaml:"max_segment_duration" validate:"gtefield=MinSegment"`
	MinTotal      float64 `yaml:"min_total_duration" validate:"gt=0"`
	MaxTotal      float64 `yaml:"max_total_duration" validate:"gtefield=MinTotal"`
	MaxSegments   int     `yaml:"max_segments" validate:"gte=1"`
	MinAvgSegment float64 `yaml:"min_avg_segment_duration" validate:"gte=0"`
	Padding       float64 `yaml:"padding" validate:"gte=0"`

	// MinIdeas and MaxIdeas only shape the Stage 1 prompt.
	MinIdeas int `yaml:"min_ideas" validate:"gte=1"`
	MaxIdeas int `yaml:"max_ideas" validate:"gtefield=MinIdeas"`
}

func DefaultLimits() Limits {
	return Limits{
		MinSegment:    15,
		MaxSegment:    90,
		MinTotal:      30,
		MaxTotal:      90,
		MaxSegments:   4,
		MinAvgSegment: 15,
		Padding:       1,
		MinIdeas:      3,
		MaxIdeas:      10,
	}
}

package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/gistcut/internal/domain/stitch"
	"github.com/forPelevin/gistcut/internal/types"
)

func twoCuts() stitch.Plan {
	return stitch.Plan{
		Cuts: []stitch.Cut{
			{Start: 10, End: 20, OutStart: 0, OutEnd: 10},
			{Start: 40, End: 50, OutStart: 10, OutEnd: 20},
		},
		Total: 20,
	}
}

func TestRenderPlanASS_KaraokeOnOutputAxis(t *testing.T) {
	tr := types.Transcript{Segments: []types.Segment{
		{Start: 10, End: 22, Text: "alpha beta", Words: []types.Word{
			{Start: 12, End: 13, Word: "alpha"},
			{Start: 19.5, End: 21, Word: "beta"},
		}},
		{Start: 30, End: 32, Text: "gone", Words: []types.Word{{Start: 30, End: 31, Word: "gone"}}},
		{Start: 40, End: 45, Text: "gamma", Words: []types.Word{{Start: 41, End: 42, Word: "gamma"}}},
	}}

	ass, err := RenderPlanASS(tr, twoCuts())
	require.NoError(t, err)
	assert.Contains(t, ass, "Dialogue: 0,0:00:02.00,0:00:12.00,Caption,,0,0,0,,{\\k100}alpha {\\k50}beta {\\k100}gamma\n")
	assert.NotContains(t, ass, "gone")
}

func TestRenderPlanASS_PlainFallbackPerCut(t *testing.T) {
	tr := types.Transcript{Segments: []types.Segment{
		{Start: 9, End: 15, Text: "first {part}"},
		{Start: 42, End: 48, Text: "second"},
	}}
	ass, err := RenderPlanASS(tr, twoCuts())
	require.NoError(t, err)
	assert.Contains(t, ass, "Dialogue: 0,0:00:00.00,0:00:10.00,Caption,,0,0,0,,first (part)\n")
	assert.Contains(t, ass, "Dialogue: 0,0:00:10.00,0:00:20.00,Caption,,0,0,0,,second\n")
}

func TestRenderPlanASS_Errors(t *testing.T) {
	_, err := RenderPlanASS(types.Transcript{}, stitch.Plan{})
	assert.ErrorIs(t, err, stitch.ErrEmptyPlan)

	tr := types.Transcript{Segments: []types.Segment{{Start: 100, End: 110, Text: "elsewhere"}}}
	_, err = RenderPlanASS(tr, twoCuts())
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestPackWords_SplitsOnBudgets(t *testing.T) {
	var words []word
	for i := 0; i < 12; i++ {
		words = append(words, word{Start: time.Duration(i) * time.Second, End: time.Duration(i+1) * time.Second, Text: "w"})
	}
	lines := packWords(words)
	require.Len(t, lines, 2)
	assert.Len(t, lines[0].Words, lineWords)
	assert.Equal(t, 9*time.Second, lines[0].End)
	assert.Equal(t, 9*time.Second, lines[1].Start)
	assert.Equal(t, 12*time.Second, lines[1].End)

	long := []word{{Text: strings.Repeat("a", 30)}, {Text: strings.Repeat("b", 30)}}
	assert.Len(t, packWords(long), 2)
}

func TestAssTime_Format(t *testing.T) {
	assert.Equal(t, "0:01:01.23", assTime(61*time.Second+234*time.Millisecond))
	assert.Equal(t, "0:00:00.00", assTime(-time.Second))
}

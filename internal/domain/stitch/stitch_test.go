package stitch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/gistcut/internal/domain/ideas"
)

func TestMerge_OrderIndependent(t *testing.T) {
	want := []ideas.Range{{Start: 10, End: 25}, {Start: 30, End: 40}}
	orders := [][]ideas.Range{
		{{Start: 10, End: 20}, {Start: 15, End: 25}, {Start: 30, End: 40}},
		{{Start: 30, End: 40}, {Start: 15, End: 25}, {Start: 10, End: 20}},
		{{Start: 15, End: 25}, {Start: 30, End: 40}, {Start: 10, End: 20}},
	}
	for _, in := range orders {
		assert.Equal(t, want, Merge(in))
	}
}

func TestMerge_TouchingAndContained(t *testing.T) {
	assert.Equal(t, []ideas.Range{{Start: 0, End: 30}}, Merge([]ideas.Range{{Start: 0, End: 10}, {Start: 10, End: 30}}))
	assert.Equal(t, []ideas.Range{{Start: 0, End: 30}}, Merge([]ideas.Range{{Start: 0, End: 30}, {Start: 5, End: 10}}))
	assert.Equal(t, []ideas.Range{{Start: 0, End: 10}, {Start: 10.5, End: 20}}, Merge([]ideas.Range{{Start: 10.5, End: 20}, {Start: 0, End: 10}}))
	assert.Nil(t, Merge(nil))
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	in := []ideas.Range{{Start: 30, End: 40}, {Start: 10, End: 20}}
	_ = Merge(in)
	assert.Equal(t, []ideas.Range{{Start: 30, End: 40}, {Start: 10, End: 20}}, in)
}

func TestPlan_TrimsOnlyLastInterval(t *testing.T) {
	s := New(Options{Ceiling: 85, Fade: 0.5})
	p, err := s.Plan([]ideas.Range{{Start: 0, End: 40}, {Start: 100, End: 130}, {Start: 200, End: 230}}, 600)
	require.NoError(t, err)
	require.Len(t, p.Cuts, 3)

	assert.Equal(t, Cut{Start: 0, End: 40, OutStart: 0, OutEnd: 40}, p.Cuts[0])
	assert.Equal(t, Cut{Start: 100, End: 130, OutStart: 40, OutEnd: 70}, p.Cuts[1])
	assert.Equal(t, 200.0, p.Cuts[2].Start)
	assert.Equal(t, 215.0, p.Cuts[2].End)
	assert.Equal(t, 15.0, p.Cuts[2].Duration())
	assert.Equal(t, 85.0, p.Total)
	assert.Equal(t, 0.5, p.FadeIn)
	assert.Equal(t, 0.5, p.FadeOut)
}

func TestPlan_UnderCeilingUnchanged(t *testing.T) {
	s := New(DefaultOptions())
	p, err := s.Plan([]ideas.Range{{Start: 15, End: 25}, {Start: 10, End: 20}, {Start: 30, End: 40}}, 100)
	require.NoError(t, err)
	require.Len(t, p.Cuts, 2)
	assert.Equal(t, 25.0, p.Total)
	assert.Equal(t, Cut{Start: 10, End: 25, OutStart: 0, OutEnd: 15}, p.Cuts[0])
	assert.Equal(t, Cut{Start: 30, End: 40, OutStart: 15, OutEnd: 25}, p.Cuts[1])
}

func TestPlan_DropsConsumedTail(t *testing.T) {
	s := New(Options{Ceiling: 50})
	p, err := s.Plan([]ideas.Range{{Start: 0, End: 48}, {Start: 60, End: 63}}, 100)
	require.NoError(t, err)
	require.Len(t, p.Cuts, 1)
	assert.Equal(t, 48.0, p.Total)

	p, err = s.Plan([]ideas.Range{{Start: 0, End: 40}, {Start: 60, End: 70}, {Start: 80, End: 85}}, 100)
	require.NoError(t, err)
	require.Len(t, p.Cuts, 2)
	assert.Equal(t, 40.0, p.Cuts[0].Duration())
	assert.Equal(t, 10.0, p.Cuts[1].Duration())
	assert.Equal(t, 50.0, p.Total)
}

func TestPlan_ClampsToVideo(t *testing.T) {
	s := New(DefaultOptions())
	p, err := s.Plan([]ideas.Range{{Start: -2, End: 10}, {Start: 95, End: 120}}, 100)
	require.NoError(t, err)
	require.Len(t, p.Cuts, 2)
	assert.Equal(t, 0.0, p.Cuts[0].Start)
	assert.Equal(t, 100.0, p.Cuts[1].End)
}

func TestPlan_Empty(t *testing.T) {
	s := New(DefaultOptions())
	_, err := s.Plan(nil, 100)
	assert.True(t, errors.Is(err, ErrEmptyPlan))

	_, err = s.Plan([]ideas.Range{{Start: 50, End: 40}, {Start: 120, End: 130}}, 100)
	assert.True(t, errors.Is(err, ErrEmptyPlan))
}

func TestPlan_FadeNeverExceedsHalf(t *testing.T) {
	s := New(Options{Ceiling: 85, Fade: 5})
	p, err := s.Plan([]ideas.Range{{Start: 0, End: 4}}, 100)
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.FadeIn)
}

func TestPlan_ToOutput(t *testing.T) {
	s := New(DefaultOptions())
	p, err := s.Plan([]ideas.Range{{Start: 10, End: 20}, {Start: 50, End: 60}}, 100)
	require.NoError(t, err)

	got, ok := p.ToOutput(55)
	require.True(t, ok)
	assert.Equal(t, 15.0, got)

	got, ok = p.ToOutput(10)
	require.True(t, ok)
	assert.Equal(t, 0.0, got)

	_, ok = p.ToOutput(30)
	assert.False(t, ok)
}

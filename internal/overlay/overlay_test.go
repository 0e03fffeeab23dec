package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subview/internal/domain"
)

func field(id, name string) domain.ExtractedField {
	return domain.ExtractedField{Field: domain.Field{ID: id, Name: name}}
}

func TestBuild(t *testing.T) {
	fields := []domain.ExtractedField{field("f1", "Insured Name"), field("f2", "Premium")}
	boxes := []*domain.NormalizedBox{
		{X: 0.1, Y: 0.1, W: 0.2, H: 0.05},
		{X: 0.5, Y: 0.6, W: 0.3, H: 0.1},
	}

	o := Build(800, 1000, fields, boxes, "f2")
	require.NotNil(t, o)
	require.Len(t, o.Regions, 2)

	assert.Equal(t, 800.0, o.PageWidthPx)
	assert.Equal(t, 10.0, o.Regions[0].LeftPct)
	assert.Equal(t, 5.0, o.Regions[0].HeightPct)
	assert.False(t, o.Regions[0].Active)
	assert.True(t, o.Regions[1].Active)
}

func TestBuildSkipsRejectedGeometry(t *testing.T) {
	fields := []domain.ExtractedField{field("f1", "a"), field("f2", "b"), field("f3", "c")}
	boxes := []*domain.NormalizedBox{
		{X: 0.1, Y: 0.1, W: 0.1, H: 0.1},
		nil,
		{X: 0.5, Y: 0.5, W: 0.1, H: 0.1},
	}

	o := Build(800, 1000, fields, boxes, "")
	require.NotNil(t, o)
	require.Len(t, o.Regions, 2)
	assert.Equal(t, "f1", o.Regions[0].FieldID)
	assert.Equal(t, "f3", o.Regions[1].FieldID)
}

func TestBuildEmpty(t *testing.T) {
	assert.Nil(t, Build(800, 1000, nil, nil, ""))
	assert.Nil(t, Build(800, 1000,
		[]domain.ExtractedField{field("f1", "a")},
		[]*domain.NormalizedBox{nil}, ""))
	// Mismatched lengths are a caller bug; the overlay refuses to guess.
	assert.Nil(t, Build(800, 1000,
		[]domain.ExtractedField{field("f1", "a")},
		nil, ""))
}

func TestHitTest(t *testing.T) {
	fields := []domain.ExtractedField{field("f1", "a"), field("f2", "b")}
	boxes := []*domain.NormalizedBox{
		{X: 0.1, Y: 0.1, W: 0.4, H: 0.4},
		// Overlaps the first region's lower-right quadrant.
		{X: 0.3, Y: 0.3, W: 0.4, H: 0.4},
	}
	o := Build(800, 1000, fields, boxes, "")
	require.NotNil(t, o)

	t.Run("miss", func(t *testing.T) {
		assert.Nil(t, o.HitTest(0.9, 0.9))
	})

	t.Run("hit", func(t *testing.T) {
		got := o.HitTest(0.15, 0.15)
		require.NotNil(t, got)
		assert.Equal(t, "f1", got.ID)
	})

	t.Run("topmost region wins on overlap", func(t *testing.T) {
		got := o.HitTest(0.4, 0.4)
		require.NotNil(t, got)
		assert.Equal(t, "f2", got.ID)
	})

	t.Run("edge is inclusive", func(t *testing.T) {
		got := o.HitTest(0.1, 0.1)
		require.NotNil(t, got)
		assert.Equal(t, "f1", got.ID)
	})
}

func TestField(t *testing.T) {
	fields := []domain.ExtractedField{field("f1", "a")}
	boxes := []*domain.NormalizedBox{{X: 0, Y: 0, W: 1, H: 1}}
	o := Build(800, 1000, fields, boxes, "")
	require.NotNil(t, o)

	f, ok := o.Field("f1")
	assert.True(t, ok)
	assert.Equal(t, "a", f.Name)

	_, ok = o.Field("missing")
	assert.False(t, ok)
}

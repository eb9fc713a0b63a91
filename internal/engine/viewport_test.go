package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewportRanges(t *testing.T) {
	tests := []struct {
		name        string
		top         int
		height      int
		buffer      int
		total       int
		wantVisible Range
		wantRender  Range
	}{
		{
			name: "mid-file",
			top:  1000, height: 50, buffer: 10, total: 2000,
			wantVisible: Range{1000, 1050},
			wantRender:  Range{990, 1060},
		},
		{
			name: "near end clamps top",
			top:  1990, height: 50, buffer: 10, total: 2000,
			wantVisible: Range{1950, 2000},
			wantRender:  Range{1940, 2000},
		},
		{
			name: "at start buffer clamps to zero",
			top:  0, height: 50, buffer: 10, total: 2000,
			wantVisible: Range{0, 50},
			wantRender:  Range{0, 60},
		},
		{
			name: "empty dataset",
			top:  0, height: 50, buffer: 10, total: 0,
			wantVisible: Range{0, 0},
			wantRender:  Range{0, 0},
		},
		{
			name: "scroll past empty dataset",
			top:  500, height: 50, buffer: 10, total: 0,
			wantVisible: Range{0, 0},
			wantRender:  Range{0, 0},
		},
		{
			name: "dataset shorter than a page",
			top:  30, height: 50, buffer: 10, total: 20,
			wantVisible: Range{0, 20},
			wantRender:  Range{0, 20},
		},
		{
			name: "negative top clamps to zero",
			top:  -5, height: 10, buffer: 5, total: 100,
			wantVisible: Range{0, 10},
			wantRender:  Range{0, 15},
		},
		{
			name: "jump to last line of a large dataset",
			top:  999999, height: 40, buffer: 50, total: 1000000,
			wantVisible: Range{999960, 1000000},
			wantRender:  Range{999910, 1000000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViewport(tt.top, tt.height, tt.buffer, tt.total)
			assert.Equal(t, tt.wantVisible, v.Visible())
			assert.Equal(t, tt.wantRender, v.RenderRange())
		})
	}
}

func TestRangeHelpers(t *testing.T) {
	r := Range{Start: 10, End: 20}
	assert.Equal(t, 10, r.Len())
	assert.False(t, r.Empty())
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(19))
	assert.False(t, r.Contains(20))
	assert.False(t, r.Contains(9))

	empty := Range{Start: 5, End: 5}
	assert.True(t, empty.Empty())
	assert.Equal(t, 0, empty.Len())

	inverted := Range{Start: 8, End: 3}
	assert.True(t, inverted.Empty())
	assert.Equal(t, 0, inverted.Len())
}

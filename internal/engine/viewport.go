package engine

// Range is a half-open interval of line indices [Start, End)
type Range struct {
	Start int
	End   int
}

// Len returns the number of lines covered
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether the range covers no lines
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// Contains reports whether index falls inside the range
func (r Range) Contains(index int) bool {
	return index >= r.Start && index < r.End
}

// Viewport is an immutable snapshot of the visible window into a dataset.
// Every scroll or resize produces a fresh snapshot via NewViewport; nothing
// mutates one in place.
type Viewport struct {
	Top    int // first visible line, already clamped
	Height int // visible lines
	Buffer int // prefetch lines above and below the visible range
	Total  int // dataset line count
}

// NewViewport builds a snapshot with top clamped so the last page stays
// fully on screen. A zero-line dataset yields empty ranges, not an error.
func NewViewport(top, height, buffer, total int) Viewport {
	if height < 0 {
		height = 0
	}
	if buffer < 0 {
		buffer = 0
	}
	if total < 0 {
		total = 0
	}
	return Viewport{
		Top:    clampTop(top, height, total),
		Height: height,
		Buffer: buffer,
		Total:  total,
	}
}

// clampTop keeps top within [0, total-height] so scrolling never runs past
// the end of the dataset
func clampTop(top, height, total int) int {
	maxTop := total - height
	if maxTop < 0 {
		maxTop = 0
	}
	if top > maxTop {
		top = maxTop
	}
	if top < 0 {
		top = 0
	}
	return top
}

// Visible returns the on-screen range [Top, Top+Height) clamped to the dataset
func (v Viewport) Visible() Range {
	end := v.Top + v.Height
	if end > v.Total {
		end = v.Total
	}
	return Range{Start: v.Top, End: end}
}

// RenderRange returns the visible range expanded by the prefetch buffer on
// both sides, clamped to [0, Total)
func (v Viewport) RenderRange() Range {
	start := v.Top - v.Buffer
	if start < 0 {
		start = 0
	}
	end := v.Top + v.Height + v.Buffer
	if end > v.Total {
		end = v.Total
	}
	if end < start {
		end = start
	}
	return Range{Start: start, End: end}
}

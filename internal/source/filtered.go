package source

import (
	"context"
	"fmt"
)

const filterScanChunk = 4096

// MatchFunc reports whether a line belongs in a filtered view
type MatchFunc func(content []byte) bool

// Filtered exposes the subset of a LineSource accepted by a MatchFunc as a
// dataset of its own. The matching index is built once at construction; a
// filtered view is a wholesale replacement dataset, not a reactive overlay.
// Rebuilding after the underlying source grows means constructing a new
// Filtered.
type Filtered struct {
	src     LineSource
	indices []int // original line numbers that passed the filter
}

// NewFiltered scans src and keeps the lines accepted by match. The scan reads
// the whole dataset, so callers run it off the UI goroutine; ctx cancels it
// between chunks.
func NewFiltered(ctx context.Context, src LineSource, match MatchFunc) (*Filtered, error) {
	f := &Filtered{src: src}

	total := src.LineCount()
	for start := 0; start < total; start += filterScanChunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + filterScanChunk
		if end > total {
			end = total
		}

		lines, err := src.FetchLines(start, end)
		if err != nil {
			return nil, fmt.Errorf("filter scan at line %d: %w", start, err)
		}
		for i, content := range lines {
			if match(content) {
				f.indices = append(f.indices, start+i)
			}
		}
	}

	return f, nil
}

// LineCount returns the number of lines that passed the filter
func (f *Filtered) LineCount() int {
	return len(f.indices)
}

// FetchLines returns filtered lines [start, end). Indices are positions in
// the filtered view, not the original dataset.
func (f *Filtered) FetchLines(start, end int) ([][]byte, error) {
	if start < 0 {
		start = 0
	}
	if end > len(f.indices) {
		end = len(f.indices)
	}
	if start >= end {
		return nil, nil
	}

	out := make([][]byte, 0, end-start)
	for i := start; i < end; i++ {
		lines, err := f.src.FetchLines(f.indices[i], f.indices[i]+1)
		if err != nil {
			return nil, err
		}
		out = append(out, lines[0])
	}
	return out, nil
}

// OriginalIndex maps a filtered position back to the original line number,
// for display. Returns -1 when out of range.
func (f *Filtered) OriginalIndex(filteredIndex int) int {
	if filteredIndex < 0 || filteredIndex >= len(f.indices) {
		return -1
	}
	return f.indices[filteredIndex]
}

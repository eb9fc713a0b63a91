package source

// Static serves lines from an in-memory slice. Used for piped input that has
// been fully read, and throughout the tests. The backing slice is never
// mutated after construction, so concurrent reads are safe.
type Static struct {
	lines [][]byte
}

// NewStatic builds a static source from string lines
func NewStatic(lines []string) *Static {
	raw := make([][]byte, len(lines))
	for i, l := range lines {
		raw[i] = []byte(l)
	}
	return &Static{lines: raw}
}

// NewStaticBytes builds a static source from raw lines, without copying
func NewStaticBytes(lines [][]byte) *Static {
	return &Static{lines: lines}
}

// LineCount returns total number of lines
func (s *Static) LineCount() int {
	return len(s.lines)
}

// FetchLines returns lines [start, end)
func (s *Static) FetchLines(start, end int) ([][]byte, error) {
	if start < 0 {
		start = 0
	}
	if end > len(s.lines) {
		end = len(s.lines)
	}
	if start >= end {
		return nil, nil
	}

	out := make([][]byte, end-start)
	copy(out, s.lines[start:end])
	return out, nil
}

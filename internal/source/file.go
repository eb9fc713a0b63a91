package source

import (
	"fmt"
	"sync"

	"github.com/user/loupe/internal/index"
	loupeio "github.com/user/loupe/internal/io"
)

// File provides lines from a single memory-mapped file.
// Reads are safe from multiple goroutines; Refresh and Close serialize
// against them.
type File struct {
	mu        sync.RWMutex
	file      *loupeio.MappedFile
	lineIndex *index.LineIndex
	path      string
	closed    bool
}

// OpenFile opens a file source, mapping the file and indexing its lines
func OpenFile(path string) (*File, error) {
	file, err := loupeio.OpenMapped(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	lineIndex, err := index.Build(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("index %s: %w", path, err)
	}

	return &File{
		file:      file,
		lineIndex: lineIndex,
		path:      path,
	}, nil
}

// LineCount returns total number of lines
func (s *File) LineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lineIndex.LineCount()
}

// FetchLines returns lines [start, end)
func (s *File) FetchLines(start, end int) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrUnavailable
	}

	lines, err := s.lineIndex.Lines(start, end-start)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	return lines, nil
}

// Refresh checks whether the file has grown and indexes any new lines,
// returning how many were added.
func (s *File) Refresh() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrUnavailable
	}

	oldSize := s.file.Size()
	oldCount := s.lineIndex.LineCount()

	changed, err := s.file.Refresh()
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	if !changed {
		return 0, nil
	}

	if err := s.lineIndex.Extend(oldSize); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	return s.lineIndex.LineCount() - oldCount, nil
}

// Path returns the file path
func (s *File) Path() string {
	return s.path
}

// Close closes the file source. Fetches after Close report ErrUnavailable.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

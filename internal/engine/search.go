package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/user/loupe/internal/source"
)

// SearchMode selects how a pattern is interpreted
type SearchMode int

const (
	// MatchPlain matches the pattern as a literal substring
	MatchPlain SearchMode = iota
	// MatchRegex matches the pattern as a Go regular expression
	MatchRegex
)

// ErrEmptyPattern is returned when a search is requested with no pattern.
// An empty pattern is a caller error, never a silent empty result.
var ErrEmptyPattern = errors.New("empty search pattern")

// Query describes one search over the full dataset
type Query struct {
	Pattern   string
	Mode      SearchMode
	StartLine int  // first line to scan
	Wrap      bool // continue from line 0 after the end, stopping before StartLine
}

// SearchResult is the outcome of a search. Matches are ascending in scan
// order. When Cancelled is set the scan stopped early and Matches holds only
// what was found up to that point; callers must not treat it as exhaustive.
type SearchResult struct {
	Matches   []int
	Cancelled bool
	Err       error // set when the source failed mid-scan
}

// SearchTask is the handle for a running background search
type SearchTask struct {
	cancel context.CancelFunc
	done   chan struct{}
	result SearchResult
}

// Cancel requests the search stop at its next chunk boundary. Safe to call
// more than once.
func (t *SearchTask) Cancel() {
	t.cancel()
}

// Done is closed once the result is available
func (t *SearchTask) Done() <-chan struct{} {
	return t.done
}

// Result returns the outcome. Only valid after Done is closed.
func (t *SearchTask) Result() SearchResult {
	return t.result
}

// Wait blocks until the search finishes and returns its result
func (t *SearchTask) Wait() SearchResult {
	<-t.done
	return t.result
}

type matchFunc func(line []byte) bool

// compileMatcher validates a query and returns its line predicate.
// Validation errors surface synchronously; a search with a bad query never
// starts.
func compileMatcher(q Query) (matchFunc, error) {
	if q.Pattern == "" {
		return nil, ErrEmptyPattern
	}

	switch q.Mode {
	case MatchRegex:
		re, err := regexp.Compile(q.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid search pattern: %w", err)
		}
		return re.Match, nil
	default:
		pattern := []byte(q.Pattern)
		return func(line []byte) bool {
			return bytes.Contains(line, pattern)
		}, nil
	}
}

// runSearch scans src in ascending index order, chunk by chunk, checking for
// cancellation between chunks. With wrap enabled the scan continues once
// from the beginning up to the start line.
func runSearch(ctx context.Context, src source.LineSource, match matchFunc, startLine int, wrap bool, chunkSize int) SearchResult {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}

	total := src.LineCount()
	if startLine < 0 || startLine >= total {
		startLine = 0
	}

	segments := []Range{{Start: startLine, End: total}}
	if wrap && startLine > 0 {
		segments = append(segments, Range{Start: 0, End: startLine})
	}

	var res SearchResult
	for _, seg := range segments {
		for start := seg.Start; start < seg.End; start += chunkSize {
			select {
			case <-ctx.Done():
				res.Cancelled = true
				return res
			default:
			}

			end := start + chunkSize
			if end > seg.End {
				end = seg.End
			}

			lines, err := src.FetchLines(start, end)
			if err != nil {
				res.Err = fmt.Errorf("search at line %d: %w", start, err)
				return res
			}
			for i, line := range lines {
				if match(line) {
					res.Matches = append(res.Matches, start+i)
				}
			}
		}
	}
	return res
}

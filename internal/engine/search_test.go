package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/loupe/internal/source"
)

// gatedSource wraps a Static source and blocks the first fetch at or beyond
// blockFrom until released, so tests can hold a scan mid-flight.
type gatedSource struct {
	inner     *source.Static
	blockFrom int
	blocked   chan struct{} // signalled when the gated fetch arrives
	release   chan struct{}
	once      sync.Once
}

func newGatedSource(lines []string, blockFrom int) *gatedSource {
	return &gatedSource{
		inner:     source.NewStatic(lines),
		blockFrom: blockFrom,
		blocked:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (g *gatedSource) LineCount() int { return g.inner.LineCount() }

func (g *gatedSource) FetchLines(start, end int) ([][]byte, error) {
	if start >= g.blockFrom {
		g.once.Do(func() { close(g.blocked) })
		<-g.release
	}
	return g.inner.FetchLines(start, end)
}

func mustMatcher(t *testing.T, q Query) matchFunc {
	t.Helper()
	m, err := compileMatcher(q)
	require.NoError(t, err)
	return m
}

func TestSearchPlainSubstring(t *testing.T) {
	src := source.NewStatic([]string{"a", "ab", "b", "abc", "c"})
	q := Query{Pattern: "ab"}

	res := runSearch(context.Background(), src, mustMatcher(t, q), 0, false, 1000)

	assert.Equal(t, []int{0, 1, 3}, res.Matches)
	assert.False(t, res.Cancelled)
	assert.NoError(t, res.Err)
}

func TestSearchRegex(t *testing.T) {
	src := source.NewStatic([]string{"error: disk", "warn", "ERROR 42", "fine"})
	q := Query{Pattern: `(?i)error`, Mode: MatchRegex}

	res := runSearch(context.Background(), src, mustMatcher(t, q), 0, false, 1000)

	assert.Equal(t, []int{0, 2}, res.Matches)
}

func TestSearchFromStartLine(t *testing.T) {
	src := source.NewStatic([]string{"x", "y", "x", "y", "x"})
	q := Query{Pattern: "x", StartLine: 1}

	res := runSearch(context.Background(), src, mustMatcher(t, q), 1, false, 1000)

	assert.Equal(t, []int{2, 4}, res.Matches)
}

func TestSearchWrapScansBeginningOnce(t *testing.T) {
	src := source.NewStatic([]string{"x", "y", "x", "y", "x"})
	q := Query{Pattern: "x", StartLine: 3, Wrap: true}

	res := runSearch(context.Background(), src, mustMatcher(t, q), 3, true, 1000)

	// Ascending from the start line, then one wrap through [0, start).
	assert.Equal(t, []int{4, 0, 2}, res.Matches)
}

func TestSearchNoWrapStopsAtEnd(t *testing.T) {
	src := source.NewStatic([]string{"x", "y", "x"})

	res := runSearch(context.Background(), src, mustMatcher(t, Query{Pattern: "x"}), 2, false, 1000)

	assert.Equal(t, []int{2}, res.Matches)
}

func TestCompileMatcherRejectsEmptyPattern(t *testing.T) {
	_, err := compileMatcher(Query{Pattern: ""})
	assert.ErrorIs(t, err, ErrEmptyPattern)
}

func TestCompileMatcherRejectsBadRegex(t *testing.T) {
	_, err := compileMatcher(Query{Pattern: "([", Mode: MatchRegex})
	assert.Error(t, err)
}

func TestSearchCancelReturnsPartialResults(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = fmt.Sprintf("match %d", i)
	}
	// Chunk size 2: the scan blocks entering its third chunk (line 4).
	src := newGatedSource(lines, 4)

	ctx, cancel := context.WithCancel(context.Background())
	matcher := mustMatcher(t, Query{Pattern: "match"})
	resCh := make(chan SearchResult, 1)
	go func() {
		resCh <- runSearch(ctx, src, matcher, 0, false, 2)
	}()

	// Cancel while the third fetch is in flight. In-flight fetches are not
	// aborted; cancellation is observed at the next chunk boundary.
	<-src.blocked
	cancel()
	close(src.release)

	res := <-resCh
	assert.True(t, res.Cancelled)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, res.Matches,
		"partial results from completed chunks are kept")
}

func TestSearchSourceFailureSurfaces(t *testing.T) {
	src := failingSource{lines: 10}

	res := runSearch(context.Background(), src, mustMatcher(t, Query{Pattern: "x"}), 0, false, 4)

	assert.ErrorIs(t, res.Err, source.ErrUnavailable)
	assert.False(t, res.Cancelled)
}

type failingSource struct{ lines int }

func (f failingSource) LineCount() int { return f.lines }

func (f failingSource) FetchLines(start, end int) ([][]byte, error) {
	return nil, source.ErrUnavailable
}

package engine

import (
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/user/loupe/internal/cache"
	"github.com/user/loupe/internal/source"
)

const (
	// DefaultChunkSize caps how many lines one background fetch may cover,
	// bounding per-call I/O latency and letting gaps fill progressively.
	DefaultChunkSize = 1000

	// DefaultFetchConcurrency bounds how many fetches run at once against
	// the line source.
	DefaultFetchConcurrency = 4
)

// fetchResult carries one completed background fetch back to the run loop.
// Generation-stamped so stale results can be discarded unapplied.
type fetchResult struct {
	generation uint64
	r          Range
	lines      [][]byte
	err        error
}

// loader issues background fetches for cache gaps. It owns no cache state:
// gap detection happens on the run loop, fetching happens here, and results
// travel back over the engine's message channel.
type loader struct {
	chunkSize int
	group     *errgroup.Group
	logger    *slog.Logger
}

func newLoader(chunkSize, concurrency int, logger *slog.Logger) *loader {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	if concurrency < 1 {
		concurrency = DefaultFetchConcurrency
	}

	group := new(errgroup.Group)
	group.SetLimit(concurrency)

	return &loader{
		chunkSize: chunkSize,
		group:     group,
		logger:    logger,
	}
}

// dispatch starts one background fetch per chunk of each gap, delivering
// results to out. Fetches never abort each other: a failed chunk reports its
// own result and the rest continue. done aborts delivery on shutdown.
//
// Enqueueing happens on its own goroutine: group.Go blocks at the
// concurrency limit, and the run loop must never wait on fetch capacity.
func (l *loader) dispatch(src source.LineSource, gaps []Range, generation uint64, out chan<- any, done <-chan struct{}) {
	var chunks []Range
	for _, gap := range gaps {
		chunks = append(chunks, splitChunks(gap, l.chunkSize)...)
	}

	go func() {
		for _, chunk := range chunks {
			select {
			case <-done:
				return
			default:
			}

			r := chunk
			l.group.Go(func() error {
				lines, err := src.FetchLines(r.Start, r.End)
				if err != nil {
					l.logger.Warn("fetch failed", "start", r.Start, "end", r.End, "err", err)
				}
				select {
				case out <- fetchResult{generation: generation, r: r, lines: lines, err: err}:
				case <-done:
				}
				return nil
			})
		}
	}()
}

// wait blocks until all in-flight fetches have finished
func (l *loader) wait() {
	l.group.Wait()
}

// findGaps partitions r into maximal contiguous sub-ranges not resident in
// the cache. Probing uses Contains so the scan leaves recency untouched.
func findGaps(c *cache.LineCache, r Range) []Range {
	var gaps []Range
	gapStart := -1

	for i := r.Start; i < r.End; i++ {
		if c.Contains(i) {
			if gapStart >= 0 {
				gaps = append(gaps, Range{Start: gapStart, End: i})
				gapStart = -1
			}
			continue
		}
		if gapStart < 0 {
			gapStart = i
		}
	}
	if gapStart >= 0 {
		gaps = append(gaps, Range{Start: gapStart, End: r.End})
	}
	return gaps
}

// splitChunks cuts a range into pieces of at most size lines
func splitChunks(r Range, size int) []Range {
	if r.Empty() {
		return nil
	}
	chunks := make([]Range, 0, (r.Len()+size-1)/size)
	for start := r.Start; start < r.End; start += size {
		end := start + size
		if end > r.End {
			end = r.End
		}
		chunks = append(chunks, Range{Start: start, End: end})
	}
	return chunks
}

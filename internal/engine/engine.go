// Package engine implements the virtual-windowing core of the viewer: it
// decides which lines must be resident for the current viewport, fetches and
// evicts them under a fixed memory budget, and hands the render sink exactly
// the batches it needs.
//
// Concurrency model: one goroutine (the run loop) owns the cache, the
// viewport and the generation counter. Background fetches and searches are
// the only blocking work; their results come back over the engine's message
// channel and are applied on the run loop, in arrival order, never by
// concurrent mutation.
package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/user/loupe/internal/cache"
	"github.com/user/loupe/internal/source"
)

// DefaultBufferLines is the prefetch margin above and below the visible
// range when none is configured.
const DefaultBufferLines = 50

// Config carries the engine's recognized options. Zero values fall back to
// the documented defaults, so the zero Config is usable.
type Config struct {
	CacheCapacity    int           // resident line budget (default 10000)
	BufferLines      int           // prefetch margin (default 50)
	DebounceInterval time.Duration // scroll quiet interval (default 50ms)
	ChunkSize        int           // max lines per background fetch (default 1000)
	FetchConcurrency int           // parallel fetches (default 4)
	SearchWrap       bool          // searches wrap past the end (default false)
}

func (c Config) withDefaults() Config {
	if c.CacheCapacity < 1 {
		c.CacheCapacity = cache.DefaultCapacity
	}
	if c.BufferLines < 0 {
		c.BufferLines = DefaultBufferLines
	}
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = DefaultDebounce
	}
	if c.ChunkSize < 1 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.FetchConcurrency < 1 {
		c.FetchConcurrency = DefaultFetchConcurrency
	}
	return c
}

// LineEntry is one renderable line handed to the sink
type LineEntry struct {
	Index     int
	Content   []byte
	Highlight string // highlight tag, "" for none
}

// RenderSink consumes render batches; the engine never paints anything
// itself. Calls arrive on the engine's run loop, so implementations should
// hand the batch off rather than block.
type RenderSink interface {
	// RenderBatch delivers loaded lines for a contiguous sub-range of the
	// current render range. Batches arrive progressively as gaps resolve.
	RenderBatch(r Range, entries []LineEntry)

	// RangeUnavailable reports a sub-range whose fetch failed; the rest of
	// the render range is unaffected.
	RangeUnavailable(r Range)
}

// Messages handled by the run loop. Background results share the same
// channel as input events, which is what gives results their in-order
// application guarantee.
type (
	setContentMsg struct{ src source.LineSource }
	scrollByMsg   struct{ delta int }
	scrollToMsg   struct{ top int }
	jumpMsg       struct{ index int }
	resizeMsg     struct{ height int }
	reloadMsg     struct{}
	recomputeMsg  struct{}
	highlightMsg  struct {
		index int
		tag   string
	}
	clearHighlightsMsg struct{}
)

// Engine ties the cache, viewport, loader, debouncer and search together
// behind a small thread-safe API.
type Engine struct {
	cfg    Config
	sink   RenderSink
	logger *slog.Logger

	msgs chan any
	done chan struct{}
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// src is read by background searches, replaced wholesale by SetContent
	// on the run loop.
	srcMu sync.RWMutex
	src   source.LineSource

	// Owned by the run loop. Never touched from any other goroutine.
	cache      *cache.LineCache
	vp         Viewport
	generation uint64
	pendingTop int
	highlights map[int]string
	debounce   *Debouncer
	loader     *loader
}

// New creates an engine delivering batches to sink. Call Start before use
// and Close when done.
func New(sink RenderSink, cfg Config, logger *slog.Logger) *Engine {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:        cfg,
		sink:       sink,
		logger:     logger,
		msgs:       make(chan any, 128),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		cache:      cache.New(cfg.CacheCapacity),
		vp:         NewViewport(0, 0, cfg.BufferLines, 0),
		highlights: make(map[int]string),
		loader:     newLoader(cfg.ChunkSize, cfg.FetchConcurrency, logger),
	}
	e.debounce = NewDebouncer(cfg.DebounceInterval, func() {
		e.post(recomputeMsg{})
	})
	return e
}

// Start launches the run loop
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
}

// Close shuts the engine down: pending work is cancelled, in-flight fetches
// drain, and the sink receives nothing further.
func (e *Engine) Close() {
	e.cancel()
	e.debounce.Stop()
	close(e.done)
	e.wg.Wait()
	e.loader.wait()
}

// SetContent replaces the dataset wholesale: the cache is cleared,
// highlights drop, and a full recomputation runs immediately under a new
// generation. Results still in flight from the previous dataset are
// generation-filtered on arrival.
func (e *Engine) SetContent(src source.LineSource) {
	e.post(setContentMsg{src: src})
}

// ScrollBy is the high-frequency scroll ingress; deltas accumulate and the
// viewport recomputes once input goes quiet.
func (e *Engine) ScrollBy(delta int) {
	e.post(scrollByMsg{delta: delta})
}

// ScrollTo sets an absolute top line through the debouncer
func (e *Engine) ScrollTo(top int) {
	e.post(scrollToMsg{top: top})
}

// JumpTo scrolls to a line immediately, bypassing the debouncer. Out-of-range
// indices are clamped, never an error.
func (e *Engine) JumpTo(index int) {
	e.post(jumpMsg{index: index})
}

// Resize updates the viewport height
func (e *Engine) Resize(height int) {
	e.post(resizeMsg{height: height})
}

// Reload picks up a changed line count from the current source, for datasets
// that grow in place (follow mode).
func (e *Engine) Reload() {
	e.post(reloadMsg{})
}

// SetHighlight tags a line for the sink to emphasize; an empty tag clears it
func (e *Engine) SetHighlight(index int, tag string) {
	e.post(highlightMsg{index: index, tag: tag})
}

// ClearHighlights drops every highlight tag
func (e *Engine) ClearHighlights() {
	e.post(clearHighlightsMsg{})
}

// Search scans the full dataset in the background, not just resident lines.
// Query validation is synchronous: an empty or malformed pattern fails here
// and no task starts. The returned task yields ascending match indices and a
// cancelled indicator.
func (e *Engine) Search(q Query) (*SearchTask, error) {
	match, err := compileMatcher(q)
	if err != nil {
		return nil, err
	}

	e.srcMu.RLock()
	src := e.src
	e.srcMu.RUnlock()
	if src == nil {
		src = source.NewStaticBytes(nil)
	}

	wrap := q.Wrap || e.cfg.SearchWrap

	ctx, cancel := context.WithCancel(e.ctx)
	t := &SearchTask{cancel: cancel, done: make(chan struct{})}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		t.result = runSearch(ctx, src, match, q.StartLine, wrap, e.cfg.ChunkSize)
		close(t.done)
	}()
	return t, nil
}

// post delivers a message to the run loop unless the engine is shut down
func (e *Engine) post(m any) {
	select {
	case e.msgs <- m:
	case <-e.done:
	}
}

func (e *Engine) run() {
	defer e.wg.Done()

	for {
		select {
		case <-e.done:
			return
		case m := <-e.msgs:
			e.handle(m)
		}
	}
}

func (e *Engine) handle(m any) {
	switch m := m.(type) {
	case setContentMsg:
		e.srcMu.Lock()
		e.src = m.src
		e.srcMu.Unlock()

		// The generation is not reset here: an in-flight fetch from the old
		// dataset must never collide with the new dataset's first
		// recomputation. The bump in recompute starts a fresh epoch.
		e.cache.InvalidateAll()
		e.pendingTop = 0
		e.highlights = make(map[int]string)
		e.vp = NewViewport(0, e.vp.Height, e.cfg.BufferLines, m.src.LineCount())
		e.recompute()

	case scrollByMsg:
		e.pendingTop += m.delta
		e.debounce.Notify()

	case scrollToMsg:
		e.pendingTop = m.top
		e.debounce.Notify()

	case jumpMsg:
		e.pendingTop = m.index
		e.recompute()

	case resizeMsg:
		e.vp = NewViewport(e.pendingTop, m.height, e.cfg.BufferLines, e.vp.Total)
		e.debounce.Notify()

	case reloadMsg:
		e.srcMu.RLock()
		src := e.src
		e.srcMu.RUnlock()
		if src != nil {
			e.vp = NewViewport(e.pendingTop, e.vp.Height, e.cfg.BufferLines, src.LineCount())
		}
		e.recompute()

	case recomputeMsg:
		e.recompute()

	case highlightMsg:
		if m.tag == "" {
			delete(e.highlights, m.index)
		} else {
			e.highlights[m.index] = m.tag
		}
		e.reemit(Range{Start: m.index, End: m.index + 1})

	case clearHighlightsMsg:
		e.highlights = make(map[int]string)
		e.reemit(e.vp.RenderRange())

	case fetchResult:
		e.applyFetch(m)
	}
}

// recompute is the one place the generation advances. The bump happens
// synchronously, before any background work starts, which is what cancels
// results from superseded viewports.
func (e *Engine) recompute() {
	e.generation++

	e.vp = NewViewport(e.pendingTop, e.vp.Height, e.cfg.BufferLines, e.vp.Total)
	e.pendingTop = e.vp.Top

	rr := e.vp.RenderRange()
	if rr.Empty() {
		return
	}

	// Resident lines render right away; gaps fill in progressively.
	e.reemit(rr)

	gaps := findGaps(e.cache, rr)
	if len(gaps) == 0 {
		return
	}

	e.logger.Debug("dispatching gaps",
		"generation", e.generation, "render", rr, "gaps", len(gaps))

	e.srcMu.RLock()
	src := e.src
	e.srcMu.RUnlock()
	if src == nil {
		return
	}
	e.loader.dispatch(src, gaps, e.generation, e.msgs, e.done)
}

// applyFetch folds one background fetch into the cache, or drops it when its
// generation is stale. Stale results are internal noise, never surfaced.
func (e *Engine) applyFetch(res fetchResult) {
	if res.generation != e.generation {
		e.logger.Debug("dropping stale fetch",
			"generation", res.generation, "current", e.generation, "range", res.r)
		return
	}

	if res.err != nil {
		e.sink.RangeUnavailable(res.r)
		return
	}

	for i, line := range res.lines {
		e.cache.Put(res.r.Start+i, line)
	}

	entries := make([]LineEntry, 0, len(res.lines))
	for i, line := range res.lines {
		idx := res.r.Start + i
		entries = append(entries, LineEntry{
			Index:     idx,
			Content:   line,
			Highlight: e.highlights[idx],
		})
	}
	e.sink.RenderBatch(res.r, entries)
}

// reemit sends render batches for every contiguous resident run inside r,
// intersected with the current render range
func (e *Engine) reemit(r Range) {
	rr := e.vp.RenderRange()
	if r.Start < rr.Start {
		r.Start = rr.Start
	}
	if r.End > rr.End {
		r.End = rr.End
	}
	if r.Empty() {
		return
	}

	runStart := -1
	var entries []LineEntry

	flush := func(end int) {
		if runStart < 0 {
			return
		}
		e.sink.RenderBatch(Range{Start: runStart, End: end}, entries)
		runStart = -1
		entries = nil
	}

	for i := r.Start; i < r.End; i++ {
		content, ok := e.cache.Get(i)
		if !ok {
			flush(i)
			continue
		}
		if runStart < 0 {
			runStart = i
		}
		entries = append(entries, LineEntry{
			Index:     i,
			Content:   content,
			Highlight: e.highlights[i],
		})
	}
	flush(r.End)
}

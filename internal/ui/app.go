package ui

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/loupe/internal/config"
	"github.com/user/loupe/internal/engine"
	"github.com/user/loupe/internal/render"
	"github.com/user/loupe/internal/source"
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeGoto
	ModeFilter
)

const highlightTag = "match"

// Messages delivered from the engine and background work into the tea loop
type (
	batchMsg struct {
		r       engine.Range
		entries []engine.LineEntry
	}
	unavailableMsg struct{ r engine.Range }
	searchDoneMsg  struct{ res engine.SearchResult }
	filterDoneMsg  struct {
		filtered *source.Filtered
		err      error
	}
)

// engineSink forwards engine output into the tea event loop over a channel.
// The model re-subscribes after consuming each message.
type engineSink struct {
	ch chan tea.Msg
}

func (s *engineSink) RenderBatch(r engine.Range, entries []engine.LineEntry) {
	s.send(batchMsg{r: r, entries: entries})
}

func (s *engineSink) RangeUnavailable(r engine.Range) {
	s.send(unavailableMsg{r: r})
}

// send must never block the engine's run loop. The buffer only fills when
// nothing is draining it, which means the program is on its way out.
func (s *engineSink) send(msg tea.Msg) {
	select {
	case s.ch <- msg:
	default:
	}
}

// lineState is what the model knows about one line in the render range
type lineState struct {
	content   []byte
	highlight string
	loaded    bool
	failed    bool
}

// Model is the main application model
type Model struct {
	cfg    *config.Config
	logger *slog.Logger

	eng  *engine.Engine
	sink *engineSink

	file     *source.File // the backing file, kept for refresh and filtering
	src      source.LineSource
	filtered *source.Filtered // non-nil while a filter is active

	renderer render.Renderer
	input    textinput.Model

	mode   Mode
	width  int
	height int
	top    int

	lines map[int]lineState

	// Search state
	searchTerm    string
	searchResults []int
	searchIndex   int
	searchPartial bool

	// Filter state
	filterTerm string

	filename string
	err      error

	// Styles
	lineNumberStyle lipgloss.Style
	statusStyle     lipgloss.Style
	matchStyle      lipgloss.Style
	pendingStyle    lipgloss.Style
	failedStyle     lipgloss.Style
	helpStyle       lipgloss.Style
}

// NewModel opens the file and wires the engine to a fresh model
func NewModel(path string, cfg *config.Config, logger *slog.Logger) (*Model, error) {
	file, err := source.OpenFile(path)
	if err != nil {
		return nil, err
	}

	sink := &engineSink{ch: make(chan tea.Msg, 128)}
	eng := engine.New(sink, engine.Config{
		CacheCapacity:    cfg.Engine.CacheCapacity,
		BufferLines:      cfg.Engine.BufferLines,
		DebounceInterval: time.Duration(cfg.Engine.DebounceMs) * time.Millisecond,
		ChunkSize:        cfg.Engine.ChunkSize,
		SearchWrap:       cfg.Engine.SearchWrap,
	}, logger)

	var renderer render.Renderer
	if cfg.Display.SyntaxHighlight && render.IsSyntaxHighlightable(path) {
		renderer = render.NewSyntaxRenderer(path)
	} else {
		renderer = render.NewLogLevelRenderer(cfg)
	}

	input := textinput.New()
	input.Placeholder = "Search..."
	input.CharLimit = 256

	m := &Model{
		cfg:      cfg,
		logger:   logger,
		eng:      eng,
		sink:     sink,
		file:     file,
		src:      file,
		renderer: renderer,
		input:    input,
		mode:     ModeNormal,
		lines:    make(map[int]lineState),
		filename: path,

		lineNumberStyle: lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.LineNumbers)),
		statusStyle: lipgloss.NewStyle().
			Background(lipgloss.Color(cfg.Theme.StatusBar)).
			Foreground(lipgloss.Color(cfg.Theme.StatusBarText)),
		matchStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.SearchMatch)).Bold(true),
		pendingStyle: lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Pending)),
		failedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Unavailable)),
		helpStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.LineNumbers)),
	}

	eng.Start()
	eng.SetContent(file)
	return m, nil
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return m.waitForEngine()
}

// waitForEngine subscribes to the next engine message
func (m *Model) waitForEngine() tea.Cmd {
	return func() tea.Msg {
		return <-m.sink.ch
	}
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Reserve 2 lines for status bar and help
		m.eng.Resize(msg.Height - 2)
		return m, nil

	case batchMsg:
		for _, e := range msg.entries {
			m.lines[e.Index] = lineState{
				content:   e.Content,
				highlight: e.Highlight,
				loaded:    true,
			}
		}
		m.pruneLines()
		return m, m.waitForEngine()

	case unavailableMsg:
		for i := msg.r.Start; i < msg.r.End; i++ {
			m.lines[i] = lineState{failed: true}
		}
		return m, m.waitForEngine()

	case searchDoneMsg:
		m.searchResults = msg.res.Matches
		m.searchPartial = msg.res.Cancelled
		m.err = msg.res.Err
		if len(m.searchResults) > 0 {
			m.searchIndex = 0
			m.gotoMatch()
		}
		return m, nil

	case filterDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.filtered = msg.filtered
		m.applySource(msg.filtered)
		return m, nil
	}

	return m, nil
}

// pruneLines drops line state far outside the current window so the model's
// buffer stays bounded like the engine's cache
func (m *Model) pruneLines() {
	keep := 4 * (m.cfg.Engine.BufferLines + m.height)
	if len(m.lines) <= 2*keep {
		return
	}
	for idx := range m.lines {
		if idx < m.top-keep || idx > m.top+keep {
			delete(m.lines, idx)
		}
	}
}

// applySource swaps the dataset shown by the engine
func (m *Model) applySource(src source.LineSource) {
	m.src = src
	m.top = 0
	m.lines = make(map[int]lineState)
	m.searchResults = nil
	m.searchTerm = ""
	m.eng.SetContent(src)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeSearch, ModeGoto, ModeFilter:
		return m.handlePromptKey(msg)
	}

	kb := m.cfg.Keybindings
	key := msg.String()

	switch {
	case keyMatches(key, kb.Quit):
		return m, tea.Quit

	case keyMatches(key, kb.ScrollDown):
		m.scrollBy(1)
	case keyMatches(key, kb.ScrollUp):
		m.scrollBy(-1)

	case keyMatches(key, kb.PageDown):
		m.scrollBy(m.pageSize())
	case keyMatches(key, kb.PageUp):
		m.scrollBy(-m.pageSize())

	case keyMatches(key, kb.Top):
		m.jumpTo(0)
	case keyMatches(key, kb.Bottom):
		m.jumpTo(m.src.LineCount() - 1)

	case keyMatches(key, kb.Search):
		m.mode = ModeSearch
		m.input.Placeholder = "Search..."
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case keyMatches(key, kb.Goto):
		m.mode = ModeGoto
		m.input.Placeholder = "Line number..."
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case keyMatches(key, kb.Filter):
		m.mode = ModeFilter
		m.input.Placeholder = "Filter (empty clears)..."
		m.input.SetValue(m.filterTerm)
		m.input.Focus()
		return m, textinput.Blink

	case keyMatches(key, kb.NextMatch):
		m.nextMatch()
	case keyMatches(key, kb.PrevMatch):
		m.prevMatch()

	case key == "R":
		// Pick up appended lines when the file grew
		if m.filtered == nil {
			if _, err := m.file.Refresh(); err != nil {
				m.err = err
			} else {
				m.eng.Reload()
			}
		}
	}

	return m, nil
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		value := m.input.Value()
		mode := m.mode
		m.mode = ModeNormal
		m.input.Blur()
		return m.submitPrompt(mode, value)

	case "esc":
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submitPrompt(mode Mode, value string) (tea.Model, tea.Cmd) {
	switch mode {
	case ModeSearch:
		return m, m.startSearch(value)

	case ModeGoto:
		var lineNum int
		fmt.Sscanf(value, "%d", &lineNum)
		if lineNum > 0 {
			m.jumpTo(lineNum - 1) // 1-based for humans
		}

	case ModeFilter:
		return m, m.startFilter(value)
	}
	return m, nil
}

// startSearch kicks off a background search over the full dataset
func (m *Model) startSearch(term string) tea.Cmd {
	m.searchTerm = term
	m.searchResults = nil
	m.searchIndex = 0
	m.searchPartial = false
	m.eng.ClearHighlights()
	if term == "" {
		return nil
	}

	task, err := m.eng.Search(engine.Query{
		Pattern:   term,
		StartLine: m.top,
		Wrap:      m.cfg.Engine.SearchWrap,
	})
	if err != nil {
		m.err = err
		return nil
	}
	m.err = nil

	return func() tea.Msg {
		return searchDoneMsg{res: task.Wait()}
	}
}

// startFilter builds a filtered view of the backing file in the background
func (m *Model) startFilter(term string) tea.Cmd {
	m.filterTerm = term
	if term == "" {
		m.filtered = nil
		m.applySource(m.file)
		return nil
	}

	needle := []byte(term)
	return func() tea.Msg {
		filtered, err := source.NewFiltered(context.Background(), m.file, func(content []byte) bool {
			return bytes.Contains(content, needle)
		})
		return filterDoneMsg{filtered: filtered, err: err}
	}
}

func (m *Model) pageSize() int {
	if m.height > 3 {
		return m.height - 3
	}
	return 1
}

// scrollBy moves the window and notifies the engine through its debounced
// ingress; the screen repaints immediately with whatever is resident
func (m *Model) scrollBy(delta int) {
	m.top = engine.NewViewport(m.top+delta, m.viewHeight(), 0, m.src.LineCount()).Top
	m.eng.ScrollTo(m.top)
}

// jumpTo is an immediate reposition that bypasses the debouncer
func (m *Model) jumpTo(index int) {
	m.top = engine.NewViewport(index, m.viewHeight(), 0, m.src.LineCount()).Top
	m.eng.JumpTo(m.top)
}

func (m *Model) viewHeight() int {
	if m.height > 2 {
		return m.height - 2
	}
	return 0
}

func (m *Model) gotoMatch() {
	if len(m.searchResults) == 0 {
		return
	}
	target := m.searchResults[m.searchIndex]
	m.eng.ClearHighlights()
	m.eng.SetHighlight(target, highlightTag)
	m.jumpTo(target)
}

func (m *Model) nextMatch() {
	if len(m.searchResults) == 0 {
		return
	}
	m.searchIndex = (m.searchIndex + 1) % len(m.searchResults)
	m.gotoMatch()
}

func (m *Model) prevMatch() {
	if len(m.searchResults) == 0 {
		return
	}
	m.searchIndex--
	if m.searchIndex < 0 {
		m.searchIndex = len(m.searchResults) - 1
	}
	m.gotoMatch()
}

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder

	total := m.src.LineCount()
	height := m.viewHeight()
	numWidth := len(fmt.Sprintf("%d", total))

	for row := 0; row < height; row++ {
		if row > 0 {
			b.WriteString("\n")
		}

		idx := m.top + row
		if idx >= total {
			b.WriteString("~")
			continue
		}

		if m.cfg.Display.ShowLineNumbers {
			numStr := fmt.Sprintf("%*d ", numWidth, m.displayNumber(idx))
			if st, ok := m.lines[idx]; ok && st.highlight != "" {
				b.WriteString(m.matchStyle.Render(numStr))
			} else {
				b.WriteString(m.lineNumberStyle.Render(numStr))
			}
		}

		st, ok := m.lines[idx]
		switch {
		case !ok || (!st.loaded && !st.failed):
			b.WriteString(m.pendingStyle.Render("…"))
		case st.failed:
			b.WriteString(m.failedStyle.Render("∅ unavailable"))
		case st.highlight != "":
			b.WriteString(m.matchStyle.Render(string(st.content)))
		default:
			b.WriteString(m.renderer.Render(st.content))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.statusStyle.Width(m.width).Render(m.statusLine(total)))
	b.WriteString("\n")
	b.WriteString(m.helpStyle.Render(m.helpLine()))

	return b.String()
}

// displayNumber returns the 1-based line number shown in the gutter,
// mapped back to the original file when a filter is active
func (m *Model) displayNumber(idx int) int {
	if m.filtered != nil {
		if orig := m.filtered.OriginalIndex(idx); orig >= 0 {
			return orig + 1
		}
	}
	return idx + 1
}

func (m *Model) statusLine(total int) string {
	switch m.mode {
	case ModeSearch:
		return "/" + m.input.View()
	case ModeGoto:
		return ":" + m.input.View()
	case ModeFilter:
		return "&" + m.input.View()
	}

	var percent float64
	if total > m.viewHeight() && total > 0 {
		percent = float64(m.top) / float64(total-m.viewHeight()) * 100
	} else if total > 0 {
		percent = 100
	}

	status := fmt.Sprintf(" %s  L%d/%d  %.0f%%", m.filename, m.top+1, total, percent)
	if m.filterTerm != "" {
		status += fmt.Sprintf("  &%s", m.filterTerm)
	}
	if m.searchTerm != "" {
		suffix := ""
		if m.searchPartial {
			suffix = "+"
		}
		status += fmt.Sprintf("  [%d%s matches]", len(m.searchResults), suffix)
	}
	if m.err != nil {
		status += fmt.Sprintf("  !%v", m.err)
	}
	return status
}

func (m *Model) helpLine() string {
	return "j/k:scroll  f/b:page  g/G:top/bottom  /:search  n/N:match  &:filter  ::goto  R:refresh  q:quit"
}

// Close shuts the engine down and releases the file mapping
func (m *Model) Close() error {
	m.eng.Close()
	return m.file.Close()
}

func keyMatches(key string, bindings []string) bool {
	for _, b := range bindings {
		if key == b {
			return true
		}
	}
	return false
}

package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/user/loupe/internal/config"
	"github.com/user/loupe/pkg/logformat"
)

// Renderer applies styling to line content
type Renderer interface {
	Render(content []byte) string
}

// PlainRenderer renders without styling
type PlainRenderer struct{}

// NewPlainRenderer creates a plain renderer
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// Render returns the line content as-is
func (r *PlainRenderer) Render(content []byte) string {
	return string(content)
}

// LogLevelRenderer colors lines based on detected log level
type LogLevelRenderer struct {
	detector *logformat.Detector
	styles   map[logformat.Level]lipgloss.Style
}

// NewLogLevelRenderer creates a renderer with config
func NewLogLevelRenderer(cfg *config.Config) *LogLevelRenderer {
	detector := logformat.NewDetector(logformat.Patterns{
		Trace: cfg.LogLevels.TracePatterns,
		Debug: cfg.LogLevels.DebugPatterns,
		Info:  cfg.LogLevels.InfoPatterns,
		Warn:  cfg.LogLevels.WarnPatterns,
		Error: cfg.LogLevels.ErrorPatterns,
		Fatal: cfg.LogLevels.FatalPatterns,
	})

	styles := map[logformat.Level]lipgloss.Style{
		logformat.LevelUnknown: lipgloss.NewStyle(),
		logformat.LevelTrace:   lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Trace)),
		logformat.LevelDebug:   lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Debug)),
		logformat.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Info)),
		logformat.LevelWarn:    lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Warn)),
		logformat.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Error)),
		logformat.LevelFatal:   lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.Theme.Levels.Fatal)),
	}

	return &LogLevelRenderer{
		detector: detector,
		styles:   styles,
	}
}

// Render applies log level styling to a line
func (r *LogLevelRenderer) Render(content []byte) string {
	return r.styles[r.detector.Detect(content)].Render(string(content))
}

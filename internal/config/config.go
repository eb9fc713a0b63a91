package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Engine      EngineConfig     `toml:"engine"`
	Theme       ThemeConfig      `toml:"theme"`
	LogLevels   LogLevelConfig   `toml:"log_levels"`
	Keybindings KeybindingConfig `toml:"keybindings"`
	Display     DisplayConfig    `toml:"display"`
}

// EngineConfig tunes the windowing engine
type EngineConfig struct {
	CacheCapacity int  `toml:"cache_capacity"` // resident line budget
	BufferLines   int  `toml:"buffer_lines"`   // prefetch above/below the viewport
	DebounceMs    int  `toml:"debounce_ms"`    // scroll quiet interval
	ChunkSize     int  `toml:"chunk_size"`     // max lines per background fetch
	SearchWrap    bool `toml:"search_wrap"`    // searches continue from the top
}

// ThemeConfig defines color schemes
type ThemeConfig struct {
	Name          string         `toml:"name"`
	LineNumbers   string         `toml:"line_numbers"`
	StatusBar     string         `toml:"status_bar"`
	StatusBarText string         `toml:"status_bar_text"`
	SearchMatch   string         `toml:"search_match"`
	Pending       string         `toml:"pending"`
	Unavailable   string         `toml:"unavailable"`
	Levels        LogLevelColors `toml:"levels"`
}

// LogLevelColors defines colors for each log level
type LogLevelColors struct {
	Trace string `toml:"trace"`
	Debug string `toml:"debug"`
	Info  string `toml:"info"`
	Warn  string `toml:"warn"`
	Error string `toml:"error"`
	Fatal string `toml:"fatal"`
}

// LogLevelConfig defines log level detection patterns
type LogLevelConfig struct {
	TracePatterns []string `toml:"trace_patterns"`
	DebugPatterns []string `toml:"debug_patterns"`
	InfoPatterns  []string `toml:"info_patterns"`
	WarnPatterns  []string `toml:"warn_patterns"`
	ErrorPatterns []string `toml:"error_patterns"`
	FatalPatterns []string `toml:"fatal_patterns"`
}

// KeybindingConfig allows customizing keybindings
type KeybindingConfig struct {
	Quit       []string `toml:"quit"`
	ScrollUp   []string `toml:"scroll_up"`
	ScrollDown []string `toml:"scroll_down"`
	PageUp     []string `toml:"page_up"`
	PageDown   []string `toml:"page_down"`
	Top        []string `toml:"top"`
	Bottom     []string `toml:"bottom"`
	Search     []string `toml:"search"`
	NextMatch  []string `toml:"next_match"`
	PrevMatch  []string `toml:"prev_match"`
	Filter     []string `toml:"filter"`
	Goto       []string `toml:"goto"`
}

// DisplayConfig holds display options
type DisplayConfig struct {
	ShowLineNumbers bool `toml:"show_line_numbers"`
	TabWidth        int  `toml:"tab_width"`
	SyntaxHighlight bool `toml:"syntax_highlight"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			CacheCapacity: 10000,
			BufferLines:   50,
			DebounceMs:    50,
			ChunkSize:     1000,
			SearchWrap:    false,
		},
		Theme: ThemeConfig{
			Name:          "subtle",
			LineNumbers:   "240", // Dark gray
			StatusBar:     "236", // Darker gray background
			StatusBarText: "252", // Light gray text
			SearchMatch:   "226", // Yellow
			Pending:       "238",
			Unavailable:   "167",
			Levels: LogLevelColors{
				Trace: "240", // Dark gray
				Debug: "244", // Medium gray
				Info:  "250", // Light gray (default)
				Warn:  "214", // Orange
				Error: "167", // Soft red
				Fatal: "196", // Bright red
			},
		},
		LogLevels: LogLevelConfig{
			TracePatterns: []string{"[TRC]", "[TRACE]", "TRACE", "TRC"},
			DebugPatterns: []string{"[DBG]", "[DEBUG]", "DEBUG", "DBG"},
			InfoPatterns:  []string{"[INF]", "[INFO]", "INFO", "INF"},
			WarnPatterns:  []string{"[WRN]", "[WARN]", "[WARNING]", "WARN", "WRN", "WARNING"},
			ErrorPatterns: []string{"[ERR]", "[ERROR]", "ERROR", "ERR"},
			FatalPatterns: []string{"[FTL]", "[FATAL]", "FATAL", "FTL", "[CRIT]", "CRITICAL"},
		},
		Keybindings: KeybindingConfig{
			Quit:       []string{"q", "ctrl+c"},
			ScrollUp:   []string{"k", "up"},
			ScrollDown: []string{"j", "down"},
			PageUp:     []string{"b", "pgup", "ctrl+u"},
			PageDown:   []string{"f", "pgdown", "ctrl+d", " "},
			Top:        []string{"g", "home"},
			Bottom:     []string{"G", "end"},
			Search:     []string{"/"},
			NextMatch:  []string{"n"},
			PrevMatch:  []string{"N"},
			Filter:     []string{"&"},
			Goto:       []string{":"},
		},
		Display: DisplayConfig{
			ShowLineNumbers: true,
			TabWidth:        4,
			SyntaxHighlight: true,
		},
	}
}

// Load loads config from path, or the default location when path is empty,
// falling back to defaults when no file exists.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = defaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save saves config to its default location
func Save(cfg *Config) error {
	path := defaultPath()
	if path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// defaultPath returns the config file path under XDG_CONFIG_HOME or ~/.config
func defaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "loupe", "config.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "loupe", "config.toml")
}

// DefaultPath exports the config path for user reference
func DefaultPath() string {
	return defaultPath()
}

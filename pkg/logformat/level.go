package logformat

import "bytes"

// Level represents a log severity level
type Level int

const (
	LevelUnknown Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the lowercase level name
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Patterns holds the substrings that identify each level in a line
type Patterns struct {
	Trace []string
	Debug []string
	Info  []string
	Warn  []string
	Error []string
	Fatal []string
}

// DefaultPatterns covers the common bracketed and bare level markers
func DefaultPatterns() Patterns {
	return Patterns{
		Trace: []string{"[TRC]", "[TRACE]", "TRACE", "TRC"},
		Debug: []string{"[DBG]", "[DEBUG]", "DEBUG", "DBG"},
		Info:  []string{"[INF]", "[INFO]", "INFO", "INF"},
		Warn:  []string{"[WRN]", "[WARN]", "[WARNING]", "WARN", "WRN", "WARNING"},
		Error: []string{"[ERR]", "[ERROR]", "ERROR", "ERR"},
		Fatal: []string{"[FTL]", "[FATAL]", "FATAL", "FTL", "[CRIT]", "CRITICAL"},
	}
}

// Detector detects log levels from line content
type Detector struct {
	patterns map[Level][][]byte
}

// NewDetector creates a detector for the given patterns
func NewDetector(p Patterns) *Detector {
	return &Detector{
		patterns: map[Level][][]byte{
			LevelTrace: toBytes(p.Trace),
			LevelDebug: toBytes(p.Debug),
			LevelInfo:  toBytes(p.Info),
			LevelWarn:  toBytes(p.Warn),
			LevelError: toBytes(p.Error),
			LevelFatal: toBytes(p.Fatal),
		},
	}
}

func toBytes(patterns []string) [][]byte {
	out := make([][]byte, len(patterns))
	for i, p := range patterns {
		out[i] = []byte(p)
	}
	return out
}

// Detect returns the log level for a line. Severities are checked from most
// to least important so a line mentioning both counts as the worse one.
func (d *Detector) Detect(content []byte) Level {
	order := []Level{LevelFatal, LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace}
	for _, level := range order {
		for _, pattern := range d.patterns[level] {
			if bytes.Contains(content, pattern) {
				return level
			}
		}
	}
	return LevelUnknown
}

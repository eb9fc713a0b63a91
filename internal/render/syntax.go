package render

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
)

// SyntaxRenderer applies syntax highlighting based on file type
type SyntaxRenderer struct {
	lexerName   string
	syntaxTheme string
}

// NewSyntaxRenderer creates a syntax highlighting renderer for the given filename
func NewSyntaxRenderer(filename string) *SyntaxRenderer {
	lexer := lexers.Match(filename)
	lexerName := "plaintext"
	if lexer != nil {
		lexerName = lexer.Config().Name
	}

	return &SyntaxRenderer{
		lexerName:   lexerName,
		syntaxTheme: "monokai",
	}
}

// Render applies syntax highlighting to a line
func (r *SyntaxRenderer) Render(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, string(content), r.lexerName, "terminal16m", r.syntaxTheme); err != nil {
		return string(content)
	}

	// quick.Highlight appends newlines; a single line must stay a single line
	highlighted := strings.ReplaceAll(buf.String(), "\n", "")
	return strings.ReplaceAll(highlighted, "\r", "")
}

// IsSyntaxHighlightable returns true if the file type supports syntax highlighting
func IsSyntaxHighlightable(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))

	syntaxExts := map[string]bool{
		".go": true, ".rs": true, ".py": true, ".js": true, ".ts": true,
		".jsx": true, ".tsx": true, ".c": true, ".cpp": true, ".h": true,
		".hpp": true, ".java": true, ".rb": true, ".php": true, ".swift": true,
		".kt": true, ".scala": true, ".cs": true, ".lua": true,
		".sh": true, ".bash": true, ".zsh": true, ".fish": true,
		".yaml": true, ".yml": true, ".json": true, ".toml": true, ".xml": true,
		".html": true, ".css": true, ".scss": true, ".sql": true, ".md": true,
	}
	if syntaxExts[ext] {
		return true
	}

	base := strings.ToLower(filepath.Base(filename))
	specialFiles := map[string]bool{
		"makefile": true, "dockerfile": true, "cmakelists.txt": true,
	}
	return specialFiles[base]
}

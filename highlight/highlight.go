// Package highlight applies ANSI terminal highlighting to Cypher
// statements (Cypher, used by the tui inspect view) and to response
// meta summaries (Meta, which the tui package does not call).
package highlight

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	lexer     chroma.Lexer
	formatter chroma.Formatter
	style     *chroma.Style
)

func init() {
	// chroma ships no Cypher lexer; its SQL lexer's keyword/string/
	// comment tokenizing is close enough to be useful for a live
	// traffic view and is kept rather than writing a bespoke lexer.
	lexer = lexers.Get("sql")
	formatter = formatters.Get("terminal256")
	style = styles.Get("monokai")
}

// Cypher returns s with ANSI terminal syntax highlighting applied. On
// error or empty input, the original string is returned unchanged.
func Cypher(s string) string {
	if s == "" {
		return s
	}

	iterator, err := lexer.Tokenise(nil, s)
	if err != nil {
		return s
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return s
	}

	return strings.TrimRight(buf.String(), "\n")
}

var (
	keyRe     = regexp.MustCompile(`(?m)^\s*[\w.]+:`)
	countRe   = regexp.MustCompile(`\b\d+(\.\d+)?(ms|s)?\b`)
	failureRe = regexp.MustCompile(`(?i)^\s*(code|message):`)

	boldStyle = lipgloss.NewStyle().Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
	errStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// Meta renders a SUCCESS/FAILURE meta map's text summary (one
// "key: value" pair per line) with keys bold, numeric/duration values
// dim, and FAILURE's code/message pair in red.
func Meta(s string) string {
	if s == "" {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if failureRe.MatchString(line) {
			lines[i] = errStyle.Render(line)
			continue
		}
		line = countRe.ReplaceAllStringFunc(line, func(m string) string {
			return dimStyle.Render(m)
		})
		line = keyRe.ReplaceAllStringFunc(line, func(m string) string {
			return boldStyle.Render(m)
		})
		lines[i] = line
	}

	return strings.Join(lines, "\n")
}

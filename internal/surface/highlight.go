// Package surface renders editor sessions and affordance listings to a
// terminal and round-trips edits through an external editor.
package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"mledit/internal/content"
)

const defaultStyleName = "monokai"

// Highlighter colors the display form of structured values.
type Highlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
	lexer     chroma.Lexer
	enabled   bool
}

// NewHighlighter returns a highlighter using the named chroma style. When
// enabled is false, text is written unchanged.
func NewHighlighter(styleName string, enabled bool) *Highlighter {
	if styleName == "" {
		styleName = defaultStyleName
	}
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return &Highlighter{
		style:     styles.Get(styleName),
		formatter: formatter,
		lexer:     chroma.Coalesce(lexer),
		enabled:   enabled,
	}
}

// Highlight writes text, colored as JSON when kind is structured. The {{ }}
// delimiter lines of delimited values are written uncolored.
func (h *Highlighter) Highlight(w io.Writer, kind content.Kind, text string) error {
	if !h.enabled || !kind.Structured() {
		_, err := io.WriteString(w, text)
		return err
	}

	body, prefix, suffix := text, "", ""
	if kind == content.KindDelimitedJSON {
		head, tail := content.DelimOpen+"\n", "\n"+content.DelimClose
		if len(body) >= len(head)+len(tail) && strings.HasPrefix(body, head) && strings.HasSuffix(body, tail) {
			prefix, suffix = head, tail
			body = body[len(head) : len(body)-len(tail)]
		}
	}

	if _, err := io.WriteString(w, prefix); err != nil {
		return err
	}
	it, err := h.lexer.Tokenise(nil, body)
	if err != nil {
		return fmt.Errorf("tokenise: %w", err)
	}
	if err := h.formatter.Format(w, h.style, it); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	_, err = io.WriteString(w, suffix)
	return err
}

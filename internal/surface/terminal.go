package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"mledit/internal/scanner"
	"mledit/internal/session"
)

// DefaultPreviewWidth is the preview column width in terminal cells.
const DefaultPreviewWidth = 48

// Preview returns text on a single line, truncated to width terminal cells.
func Preview(text string, width int) string {
	s := strings.Join(strings.Fields(text), " ")
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

var (
	titleColor   = color.New(color.Bold, color.FgWhite, color.BgHiBlack)
	buttonColor  = color.New(color.Bold, color.FgHiBlue)
	warningColor = color.New(color.FgYellow)
	editColor    = color.New(color.FgGreen)
	viewColor    = color.New(color.FgCyan)
)

// Terminal renders sessions and affordance listings as text.
type Terminal struct {
	Out          io.Writer
	Highlighter  *Highlighter
	PreviewWidth int
}

// NewTerminal returns a terminal surface writing to out.
func NewTerminal(out io.Writer, h *Highlighter) *Terminal {
	if h == nil {
		h = NewHighlighter("", false)
	}
	return &Terminal{Out: out, Highlighter: h, PreviewWidth: DefaultPreviewWidth}
}

// Render writes the overlay for v: title bar, body, warnings and buttons.
// Hidden views render nothing.
func (t *Terminal) Render(v session.View) error {
	if !v.Visible {
		return nil
	}
	title := " " + v.Title + " "
	if v.FieldKey != "" {
		title += "(" + v.FieldKey + ") "
	}
	if _, err := titleColor.Fprintln(t.Out, title); err != nil {
		return err
	}
	if err := t.Highlighter.Highlight(t.Out, v.Kind, v.Text); err != nil {
		return err
	}
	fmt.Fprintln(t.Out)
	for _, w := range v.Warnings {
		warningColor.Fprintln(t.Out, "! "+w)
	}

	var buttons []string
	if v.ShowSave {
		buttons = append(buttons, "["+v.SaveLabel+"]")
	}
	buttons = append(buttons, "["+v.CancelLabel+"]")
	_, err := buttonColor.Fprintln(t.Out, strings.Join(buttons, " "))
	return err
}

// ListAffordances writes one line per affordance: id, kind, key and preview.
func (t *Terminal) ListAffordances(affs []*scanner.Affordance) error {
	keyWidth := 0
	for _, a := range affs {
		if w := runewidth.StringWidth(a.Key()); w > keyWidth {
			keyWidth = w
		}
	}
	for _, a := range affs {
		kind := editColor.Sprint(runewidth.FillRight(a.Kind.String(), 4))
		if a.Kind == scanner.KindView {
			kind = viewColor.Sprint(runewidth.FillRight(a.Kind.String(), 4))
		}
		detail := Preview(a.Text(), t.PreviewWidth)
		if a.Kind == scanner.KindView {
			detail = fmt.Sprintf("%s (%d lines)", detail, a.Lines)
		}
		_, err := fmt.Fprintf(t.Out, "%3d  %s  %s  %s\n",
			a.ID, kind, runewidth.FillRight(a.Key(), keyWidth), detail)
		if err != nil {
			return err
		}
	}
	return nil
}

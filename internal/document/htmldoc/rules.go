package htmldoc

import (
	"fmt"

	"github.com/andybalholm/cascadia"

	"mledit/internal/config"
)

// Rules are the compiled element matching rules.
type Rules struct {
	labelText     string
	labelTextSel  cascadia.Selector
	ariaLabel     string
	label         cascadia.Selector
	formControl   cascadia.Selector
	input         cascadia.Selector
	row           cascadia.Selector
	cellIndex     int
	cellContent   cascadia.Selector
	cellValueAttr string
	marker        string
}

// CompileRules compiles the selectors of a match configuration.
func CompileRules(m config.MatchConfig) (*Rules, error) {
	r := &Rules{
		labelText:     m.LabelText,
		ariaLabel:     m.AriaLabel,
		cellIndex:     m.CellIndex,
		cellValueAttr: m.CellValueAttr,
		marker:        m.MarkerAttr,
		label:         cascadia.MustCompile("label"),
	}

	compile := func(field, sel string) (cascadia.Selector, error) {
		s, err := cascadia.Compile(sel)
		if err != nil {
			return nil, fmt.Errorf("compile %s %q: %w", field, sel, err)
		}
		return s, nil
	}

	var err error
	if m.LabelTextSelector != "" {
		if r.labelTextSel, err = compile("label_text_selector", m.LabelTextSelector); err != nil {
			return nil, err
		}
	}
	if r.formControl, err = compile("form_control_selector", m.FormControlSelector); err != nil {
		return nil, err
	}
	if r.input, err = compile("input_selector", m.InputSelector); err != nil {
		return nil, err
	}
	if r.row, err = compile("row_selector", m.RowSelector); err != nil {
		return nil, err
	}
	if r.cellContent, err = compile("cell_content_selector", m.CellContentSelector); err != nil {
		return nil, err
	}
	if r.marker == "" {
		return nil, fmt.Errorf("compile rules: marker attribute is required")
	}
	return r, nil
}

// DefaultRules returns the rules compiled from the default configuration.
func DefaultRules() *Rules {
	r, err := CompileRules(config.DefaultConfig().Match)
	if err != nil {
		panic(err)
	}
	return r
}

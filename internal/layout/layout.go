// Package layout estimates how many visual lines a block of rendered text
// occupies. The estimate divides the rendered box height by the effective line
// height; it is an approximation and does not shape text.
package layout

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// FallbackRatio is the line height to font size ratio used when the declared
// line height is "normal" or unusable.
const FallbackRatio = 1.2

// Metrics are the rendered measurements of a text block, in CSS pixels.
// LineHeight is NaN when the computed value is "normal".
type Metrics struct {
	RenderedHeight float64
	LineHeight     float64
	FontSize       float64
}

// LineCount estimates the number of lines in the block.
func (m Metrics) LineCount() (int, bool) {
	return EstimateLineCount(m.RenderedHeight, m.LineHeight, m.FontSize)
}

// EffectiveLineHeight returns the declared line height when it is a finite
// positive number, and fontSize*FallbackRatio otherwise.
func EffectiveLineHeight(lineHeight, fontSize float64) float64 {
	if isUsable(lineHeight) {
		return lineHeight
	}
	return fontSize * FallbackRatio
}

// EstimateLineCount returns round(renderedHeight / lineHeight). The second
// result is false when no usable line height can be derived, in which case the
// caller should not act on the element.
func EstimateLineCount(renderedHeight, lineHeight, fontSize float64) (int, bool) {
	lh := EffectiveLineHeight(lineHeight, fontSize)
	if !isUsable(lh) {
		return 0, false
	}
	if math.IsNaN(renderedHeight) || math.IsInf(renderedHeight, 0) {
		return 0, false
	}
	// Ties round toward +Inf.
	return int(math.Floor(renderedHeight/lh + 0.5)), true
}

func isUsable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

var leadingNumber = regexp.MustCompile(`^\s*[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// ParseLength parses the leading number of a CSS computed value such as
// "20px" or "1.5". Keywords like "normal" and empty strings yield NaN.
func ParseLength(s string) float64 {
	m := leadingNumber.FindString(s)
	if m == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseLineHeight parses a declared line-height. Pixel values are returned as
// is, while unitless numbers, em and percentages scale fontSize. "normal" and
// unparseable values yield NaN.
func ParseLineHeight(s string, fontSize float64) float64 {
	s = strings.TrimSpace(strings.ToLower(s))
	m := leadingNumber.FindString(s)
	if m == "" {
		return math.NaN()
	}
	v := ParseLength(m)
	switch unit := strings.TrimSpace(s[len(m):]); unit {
	case "", "em":
		return v * fontSize
	case "%":
		return v / 100 * fontSize
	default:
		return v
	}
}

// Normal returns the value used for a "normal" line height.
func Normal() float64 {
	return math.NaN()
}

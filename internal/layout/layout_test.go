package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateLineCount(t *testing.T) {
	tests := []struct {
		name       string
		height     float64
		lineHeight float64
		fontSize   float64
		want       int
		ok         bool
	}{
		{"declared line height", 135, 45, 14, 3, true},
		{"normal falls back to font size", 90, math.NaN(), 15, 5, true},
		{"box of 64 at 20", 64, 20, 14, 3, true},
		{"box of 38 at 20", 38, 20, 14, 2, true},
		{"tie rounds up", 50, 20, 14, 3, true},
		{"zero line height falls back", 72, 0, 20, 3, true},
		{"infinite line height falls back", 48, math.Inf(1), 20, 2, true},
		{"no usable metric", 90, math.NaN(), 0, 0, false},
		{"NaN font size", 90, math.NaN(), math.NaN(), 0, false},
		{"negative font size", 90, math.NaN(), -10, 0, false},
		{"NaN height", math.NaN(), 20, 14, 0, false},
		{"empty box", 0, 20, 14, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EstimateLineCount(tt.height, tt.lineHeight, tt.fontSize)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetricsLineCount(t *testing.T) {
	n, ok := Metrics{RenderedHeight: 64, LineHeight: 20, FontSize: 14}.LineCount()
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = Metrics{RenderedHeight: 54, LineHeight: Normal(), FontSize: 15}.LineCount()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestEffectiveLineHeight(t *testing.T) {
	assert.Equal(t, 20.0, EffectiveLineHeight(20, 14))
	assert.InDelta(t, 16.8, EffectiveLineHeight(Normal(), 14), 1e-9)
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"20px", 20},
		{" 14.5px", 14.5},
		{"1.5", 1.5},
		{".5em", 0.5},
		{"-3px", -3},
		{"1e2px", 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLength(tt.in), "in=%q", tt.in)
	}

	for _, in := range []string{"normal", "", "px", "auto"} {
		assert.True(t, math.IsNaN(ParseLength(in)), "in=%q", in)
	}
}

func TestParseLineHeight(t *testing.T) {
	tests := []struct {
		in   string
		font float64
		want float64
	}{
		{"20px", 14, 20},
		{"1.5", 16, 24},
		{"2em", 10, 20},
		{"150%", 20, 30},
		{" 18PX ", 12, 18},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ParseLineHeight(tt.in, tt.font), 1e-9, "in=%q", tt.in)
	}

	for _, in := range []string{"normal", "", "inherit"} {
		assert.True(t, math.IsNaN(ParseLineHeight(in, 16)), "in=%q", in)
	}
}

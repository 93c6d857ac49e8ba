package theme

import (
	"image/color"
	"runtime"

	"gioui.org/font"
	"gioui.org/unit"
	"gioui.org/widget/material"
)

// Palette defines the overlay colors.
type Palette struct {
	Backdrop     color.NRGBA
	Background   color.NRGBA
	Surface      color.NRGBA
	SurfaceMuted color.NRGBA
	Primary      color.NRGBA
	Secondary    color.NRGBA
	Text         color.NRGBA
	TextBright   color.NRGBA
	TextMuted    color.NRGBA
	Border       color.NRGBA
	EditButton   color.NRGBA
	ViewButton   color.NRGBA
	Warning      color.NRGBA
	Error        color.NRGBA
}

// Config defines the overlay metrics.
type Config struct {
	CornerRadius  unit.Dp
	EditorRadius  unit.Dp
	Spacing       unit.Dp
	Padding       unit.Dp
	SidebarWidth  unit.Dp
	FontTitle     unit.Sp
	FontBody      unit.Sp
	FontEditor    unit.Sp
	FontCaption   unit.Sp
	MonospaceFace font.Typeface
}

// Theme wraps the material theme with overlay styling.
type Theme struct {
	*material.Theme
	Palette Palette
	Config  Config
}

// NewTheme creates the overlay theme for the current OS.
func NewTheme(mtheme *material.Theme) *Theme {
	t := &Theme{
		Theme:   mtheme,
		Palette: darkPalette(),
	}

	if runtime.GOOS == "darwin" {
		setupMacOSMetrics(t)
	} else {
		setupDefaultMetrics(t)
	}

	t.Theme.Palette.Bg = t.Palette.Background
	t.Theme.Palette.Fg = t.Palette.Text
	t.Theme.Palette.ContrastBg = t.Palette.Primary
	t.Theme.Palette.ContrastFg = t.Palette.TextBright
	return t
}

func rgb(v uint32) color.NRGBA {
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

func darkPalette() Palette {
	return Palette{
		Backdrop:     color.NRGBA{A: 0xB3},
		Background:   rgb(0x2c2c2c),
		Surface:      rgb(0x1e1e1e),
		SurfaceMuted: rgb(0x252526), // read-only editor
		Primary:      rgb(0x007bff),
		Secondary:    rgb(0x555555),
		Text:         rgb(0xe0e0e0),
		TextBright:   rgb(0xffffff),
		TextMuted:    rgb(0xa0a0a0),
		Border:       rgb(0x444444),
		EditButton:   rgb(0x444444),
		ViewButton:   rgb(0x3a3a3a),
		Warning:      rgb(0xffb900),
		Error:        rgb(0xe81123),
	}
}

func setupDefaultMetrics(t *Theme) {
	t.Config = Config{
		CornerRadius:  unit.Dp(12),
		EditorRadius:  unit.Dp(8),
		Spacing:       unit.Dp(10),
		Padding:       unit.Dp(28),
		SidebarWidth:  unit.Dp(300),
		FontTitle:     unit.Sp(24),
		FontBody:      unit.Sp(14),
		FontEditor:    unit.Sp(16),
		FontCaption:   unit.Sp(13),
		MonospaceFace: "Go Mono",
	}
}

func setupMacOSMetrics(t *Theme) {
	setupDefaultMetrics(t)
	// macOS system text runs slightly smaller
	t.Config.FontBody = unit.Sp(13)
	t.Config.FontCaption = unit.Sp(11)
	t.Config.FontEditor = unit.Sp(14)
}

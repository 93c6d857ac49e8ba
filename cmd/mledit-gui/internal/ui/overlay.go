package ui

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gioui.org/font"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"mledit/cmd/mledit-gui/internal/theme"
	"mledit/internal/scanner"
	"mledit/internal/session"
	"mledit/internal/surface"
)

type (
	C = layout.Context
	D = layout.Dimensions
)

const previewWidth = 36

// Overlay is the editor window: a sidebar of affordances and the session
// panel.
type Overlay struct {
	theme      *theme.Theme
	sess       *session.Session
	sc         *scanner.Scanner
	persist    func() error
	invalidate func()

	mu          sync.Mutex
	view        session.View
	viewChanged bool
	status      string
	statusErr   bool

	list      widget.List
	buttons   map[int]*widget.Clickable
	editor    widget.Editor
	saveBtn   widget.Clickable
	cancelBtn widget.Clickable
}

// NewOverlay creates the overlay. persist writes the document after a save;
// invalidate requests a redraw and must be safe to call from any goroutine.
func NewOverlay(t *theme.Theme, sess *session.Session, sc *scanner.Scanner, persist func() error, invalidate func()) *Overlay {
	o := &Overlay{
		theme:      t,
		sess:       sess,
		sc:         sc,
		persist:    persist,
		invalidate: invalidate,
		buttons:    make(map[int]*widget.Clickable),
		list: widget.List{
			List: layout.List{Axis: layout.Vertical},
		},
	}
	sess.OnChange(o.onView)
	sc.OnAttach(func(*scanner.Affordance) { invalidate() })
	return o
}

func (o *Overlay) onView(v session.View) {
	o.mu.Lock()
	o.view = v
	o.viewChanged = true
	o.mu.Unlock()
	o.invalidate()
}

// SetStatus shows a message under the affordance list.
func (o *Overlay) SetStatus(msg string, isErr bool) {
	o.mu.Lock()
	o.status, o.statusErr = msg, isErr
	o.mu.Unlock()
	o.invalidate()
}

// Layout handles input and renders the overlay.
func (o *Overlay) Layout(gtx C) D {
	affs := o.sc.Affordances()
	o.update(gtx, affs)

	paint.Fill(gtx.Ops, o.theme.Palette.Backdrop)

	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
		layout.Rigid(func(gtx C) D {
			w := gtx.Dp(o.theme.Config.SidebarWidth)
			gtx.Constraints.Min.X, gtx.Constraints.Max.X = w, w
			return o.layoutSidebar(gtx, affs)
		}),
		layout.Rigid(func(gtx C) D {
			size := image.Pt(gtx.Dp(1), gtx.Constraints.Max.Y)
			paint.FillShape(gtx.Ops, o.theme.Palette.Border, clip.Rect{Max: size}.Op())
			return D{Size: size}
		}),
		layout.Flexed(1, func(gtx C) D {
			return o.layoutContent(gtx)
		}),
	)
}

func (o *Overlay) update(gtx C, affs []*scanner.Affordance) {
	live := make(map[int]bool, len(affs))
	for _, a := range affs {
		live[a.ID] = true
		if o.button(a.ID).Clicked(gtx) {
			if err := a.Open(); err != nil {
				o.SetStatus(err.Error(), true)
			}
		}
	}
	for id := range o.buttons {
		if !live[id] {
			delete(o.buttons, id)
		}
	}

	if o.saveBtn.Clicked(gtx) {
		o.saveSession()
	}
	if o.cancelBtn.Clicked(gtx) {
		o.sess.Cancel()
	}

	for {
		ev, ok := gtx.Event(
			key.Filter{Focus: &o.editor, Name: key.NameTab},
			key.Filter{Name: key.NameEscape},
		)
		if !ok {
			break
		}
		e, ok := ev.(key.Event)
		if !ok || e.State != key.Press {
			continue
		}
		switch e.Name {
		case key.NameTab:
			o.insertTab()
		case key.NameEscape:
			o.sess.Cancel()
		}
	}

	o.mu.Lock()
	changed := o.viewChanged
	o.viewChanged = false
	v := o.view
	o.mu.Unlock()
	if changed && v.Visible {
		o.editor.SetText(v.Text)
		o.editor.ReadOnly = v.ReadOnly
		o.editor.SetCaret(0, 0)
		gtx.Execute(key.FocusCmd{Tag: &o.editor})
	}
}

func (o *Overlay) button(id int) *widget.Clickable {
	b, ok := o.buttons[id]
	if !ok {
		b = new(widget.Clickable)
		o.buttons[id] = b
	}
	return b
}

func (o *Overlay) insertTab() {
	if err := o.sess.SetText(o.editor.Text()); err != nil {
		return
	}
	start, end := o.editor.Selection()
	caret, err := o.sess.InsertTab(start, end)
	if err != nil {
		return
	}
	o.editor.SetText(o.sess.Text())
	o.editor.SetCaret(caret, caret)
}

func (o *Overlay) saveSession() {
	if err := o.sess.SetText(o.editor.Text()); err != nil {
		o.SetStatus(err.Error(), true)
		return
	}
	res, err := o.sess.Save()
	if err != nil {
		o.SetStatus(err.Error(), true)
		return
	}
	if !res.Committed {
		return
	}
	if err := o.persist(); err != nil {
		o.SetStatus(fmt.Sprintf("saved %s but writing the document failed: %v", res.FieldKey, err), true)
		return
	}
	if res.Fallback {
		o.SetStatus(fmt.Sprintf("saved %s as plain text (no longer valid JSON)", res.FieldKey), true)
		return
	}
	o.SetStatus("saved "+res.FieldKey, false)
}

func (o *Overlay) layoutSidebar(gtx C, affs []*scanner.Affordance) D {
	paint.FillShape(gtx.Ops, o.theme.Palette.Background, clip.Rect{Max: gtx.Constraints.Max}.Op())

	return layout.UniformInset(unit.Dp(16)).Layout(gtx, func(gtx C) D {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Rigid(func(gtx C) D {
				title := material.H6(o.theme.Theme, "MLEDIT")
				title.Color = o.theme.Palette.Primary
				title.TextSize = o.theme.Config.FontTitle
				return title.Layout(gtx)
			}),
			layout.Rigid(layout.Spacer{Height: unit.Dp(16)}.Layout),
			layout.Flexed(1, func(gtx C) D {
				if len(affs) == 0 {
					l := material.Body2(o.theme.Theme, "No editable fields or long cells found.")
					l.Color = o.theme.Palette.TextMuted
					return l.Layout(gtx)
				}
				return material.List(o.theme.Theme, &o.list).Layout(gtx, len(affs), func(gtx C, i int) D {
					return layout.Inset{Bottom: o.theme.Config.Spacing}.Layout(gtx, func(gtx C) D {
						return o.layoutAffordance(gtx, affs[i])
					})
				})
			}),
			layout.Rigid(func(gtx C) D {
				o.mu.Lock()
				msg, isErr := o.status, o.statusErr
				o.mu.Unlock()
				if msg == "" {
					return D{}
				}
				l := material.Caption(o.theme.Theme, msg)
				l.TextSize = o.theme.Config.FontCaption
				l.Color = o.theme.Palette.TextMuted
				if isErr {
					l.Color = o.theme.Palette.Warning
				}
				return layout.Inset{Top: o.theme.Config.Spacing}.Layout(gtx, l.Layout)
			}),
		)
	})
}

func (o *Overlay) layoutAffordance(gtx C, a *scanner.Affordance) D {
	gtx.Constraints.Min.X = gtx.Constraints.Max.X

	btn := material.Button(o.theme.Theme, o.button(a.ID), a.Kind.String())
	btn.TextSize = o.theme.Config.FontCaption
	btn.CornerRadius = unit.Dp(4)
	btn.Background = o.theme.Palette.EditButton
	if a.Kind == scanner.KindView {
		btn.Background = o.theme.Palette.ViewButton
	}
	btn.Color = o.theme.Palette.Text

	return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
		layout.Rigid(btn.Layout),
		layout.Rigid(layout.Spacer{Width: o.theme.Config.Spacing}.Layout),
		layout.Flexed(1, func(gtx C) D {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(func(gtx C) D {
					l := material.Body2(o.theme.Theme, a.Key())
					l.Color = o.theme.Palette.Text
					l.MaxLines = 1
					return l.Layout(gtx)
				}),
				layout.Rigid(func(gtx C) D {
					l := material.Caption(o.theme.Theme, surface.Preview(a.Text(), previewWidth))
					l.Color = o.theme.Palette.TextMuted
					l.MaxLines = 1
					return l.Layout(gtx)
				}),
			)
		}),
	)
}

func (o *Overlay) layoutContent(gtx C) D {
	o.mu.Lock()
	v := o.view
	o.mu.Unlock()

	if !v.Visible {
		return o.drawPlaceholder(gtx, "Select Edit or View to open a value")
	}

	return layout.UniformInset(o.theme.Config.Padding).Layout(gtx, func(gtx C) D {
		return layout.Background{}.Layout(gtx,
			func(gtx C) D { return o.fill(gtx, o.theme.Palette.Background, o.theme.Config.CornerRadius) },
			func(gtx C) D {
				return layout.UniformInset(o.theme.Config.Padding).Layout(gtx, func(gtx C) D {
					return o.layoutPanel(gtx, v)
				})
			},
		)
	})
}

func (o *Overlay) layoutPanel(gtx C, v session.View) D {
	gtx.Constraints.Min = gtx.Constraints.Max

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx C) D {
			h := material.H5(o.theme.Theme, v.Title)
			h.Color = o.theme.Palette.TextBright
			h.TextSize = o.theme.Config.FontTitle
			h.Font.Weight = font.SemiBold
			return h.Layout(gtx)
		}),
		layout.Rigid(func(gtx C) D {
			if v.FieldKey == "" {
				return D{}
			}
			l := material.Caption(o.theme.Theme, v.FieldKey+" · "+v.Kind.String())
			l.Color = o.theme.Palette.TextMuted
			return l.Layout(gtx)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(20)}.Layout),
		layout.Flexed(1, func(gtx C) D {
			return o.layoutEditor(gtx, v)
		}),
		layout.Rigid(func(gtx C) D {
			return o.layoutWarnings(gtx, v.Warnings)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(20)}.Layout),
		layout.Rigid(func(gtx C) D {
			return o.layoutButtons(gtx, v)
		}),
	)
}

func (o *Overlay) layoutEditor(gtx C, v session.View) D {
	gtx.Constraints.Min = gtx.Constraints.Max
	bg := o.theme.Palette.Surface
	if v.ReadOnly {
		bg = o.theme.Palette.SurfaceMuted
	}
	border := o.theme.Palette.Secondary
	if gtx.Focused(&o.editor) {
		border = o.theme.Palette.Primary
	}

	return widget.Border{
		Color:        border,
		CornerRadius: o.theme.Config.EditorRadius,
		Width:        unit.Dp(1),
	}.Layout(gtx, func(gtx C) D {
		return layout.Background{}.Layout(gtx,
			func(gtx C) D { return o.fill(gtx, bg, o.theme.Config.EditorRadius) },
			func(gtx C) D {
				return layout.UniformInset(unit.Dp(15)).Layout(gtx, func(gtx C) D {
					gtx.Constraints.Min = gtx.Constraints.Max
					ed := material.Editor(o.theme.Theme, &o.editor, "")
					ed.Font.Typeface = o.theme.Config.MonospaceFace
					ed.TextSize = o.theme.Config.FontEditor
					ed.Color = o.theme.Palette.Text
					ed.SelectionColor = o.theme.Palette.Primary
					ed.SelectionColor.A = 0x60
					return ed.Layout(gtx)
				})
			},
		)
	})
}

func (o *Overlay) layoutWarnings(gtx C, warnings []string) D {
	if len(warnings) == 0 {
		return D{}
	}
	children := make([]layout.FlexChild, 0, len(warnings))
	for _, w := range warnings {
		l := material.Caption(o.theme.Theme, w)
		l.Color = o.theme.Palette.Warning
		l.TextSize = o.theme.Config.FontCaption
		children = append(children, layout.Rigid(func(gtx C) D {
			return layout.Inset{Top: unit.Dp(6)}.Layout(gtx, l.Layout)
		}))
	}
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx, children...)
}

func (o *Overlay) layoutButtons(gtx C, v session.View) D {
	cancel := material.Button(o.theme.Theme, &o.cancelBtn, v.CancelLabel)
	cancel.Background = o.theme.Palette.Secondary
	cancel.Color = o.theme.Palette.Text
	cancel.CornerRadius = unit.Dp(8)

	children := []layout.FlexChild{
		layout.Flexed(1, func(gtx C) D { return D{Size: image.Pt(gtx.Constraints.Min.X, 0)} }),
		layout.Rigid(cancel.Layout),
	}
	if v.ShowSave {
		save := material.Button(o.theme.Theme, &o.saveBtn, v.SaveLabel)
		save.Background = o.theme.Palette.Primary
		save.Color = o.theme.Palette.TextBright
		save.CornerRadius = unit.Dp(8)
		children = append(children,
			layout.Rigid(layout.Spacer{Width: unit.Dp(15)}.Layout),
			layout.Rigid(save.Layout),
		)
	}
	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx, children...)
}

func (o *Overlay) fill(gtx C, col color.NRGBA, radius unit.Dp) D {
	size := gtx.Constraints.Min
	rr := clip.UniformRRect(image.Rectangle{Max: size}, gtx.Dp(radius))
	paint.FillShape(gtx.Ops, col, rr.Op(gtx.Ops))
	return D{Size: size}
}

func (o *Overlay) drawPlaceholder(gtx C, label string) D {
	return layout.UniformInset(o.theme.Config.Padding).Layout(gtx, func(gtx C) D {
		size := gtx.Constraints.Max
		rect := clip.UniformRRect(image.Rect(0, 0, size.X, size.Y), gtx.Dp(o.theme.Config.CornerRadius)).Op(gtx.Ops)
		paint.FillShape(gtx.Ops, o.theme.Palette.Surface, rect)

		return layout.Center.Layout(gtx, func(gtx C) D {
			l := material.Body1(o.theme.Theme, label)
			l.Color = o.theme.Palette.TextMuted
			return l.Layout(gtx)
		})
	})
}

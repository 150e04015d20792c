package ui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"TutorBoard/internal/board"
)

// BoardView shows the controller's frames and forwards pointer input to it.
// The primary button drives the current tool; the secondary and middle
// buttons pan; the wheel zooms around the pointer.
type BoardView struct {
	widget.BaseWidget
	ctrl   *board.Controller
	raster *canvas.Raster

	pressed bool
	panning bool
	last    fyne.Position
}

var (
	_ fyne.Widget       = (*BoardView)(nil)
	_ fyne.Draggable    = (*BoardView)(nil)
	_ fyne.Scrollable   = (*BoardView)(nil)
	_ desktop.Mouseable = (*BoardView)(nil)
	_ desktop.Hoverable = (*BoardView)(nil)
)

func NewBoardView(c *board.Controller) *BoardView {
	v := &BoardView{ctrl: c}
	v.raster = canvas.NewRaster(v.generate)
	v.ExtendBaseWidget(v)
	return v
}

// generate returns the last frame, resizing the controller's surface when
// the widget's pixel size changed.
func (v *BoardView) generate(w, h int) image.Image {
	size := v.Size()
	if size.Width > 0 && size.Height > 0 && w > 0 && h > 0 {
		v.ctrl.OnResize(float64(size.Width), float64(size.Height), float64(w)/float64(size.Width))
	}
	if img := v.ctrl.Image(); img != nil {
		return img
	}
	return image.NewUniform(color.White)
}

func (v *BoardView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}

func (v *BoardView) MinSize() fyne.Size { return fyne.NewSize(300, 300) }

// Refresh redraws the widget from the controller's latest frame.
func (v *BoardView) Refresh() { v.raster.Refresh() }

func (v *BoardView) MouseDown(e *desktop.MouseEvent) {
	v.last = e.Position
	if e.Button == desktop.MouseButtonPrimary {
		v.pressed = true
		v.ctrl.PointerDown(float64(e.Position.X), float64(e.Position.Y))
		return
	}
	v.panning = true
}

func (v *BoardView) MouseUp(e *desktop.MouseEvent) {
	if v.pressed && e.Button == desktop.MouseButtonPrimary {
		v.pressed = false
		v.ctrl.PointerUp(float64(e.Position.X), float64(e.Position.Y))
		return
	}
	v.panning = false
}

func (v *BoardView) Dragged(e *fyne.DragEvent) {
	switch {
	case v.pressed:
		v.ctrl.PointerMove(float64(e.Position.X), float64(e.Position.Y))
	case v.panning:
		v.ctrl.Pan(float64(e.Dragged.DX), float64(e.Dragged.DY))
	}
	v.last = e.Position
}

// DragEnd closes a stroke even when the button was released outside the
// widget.
func (v *BoardView) DragEnd() {
	if v.pressed {
		v.pressed = false
		v.ctrl.PointerUp(float64(v.last.X), float64(v.last.Y))
	}
	v.panning = false
}

func (v *BoardView) MouseIn(*desktop.MouseEvent) {}

func (v *BoardView) MouseMoved(e *desktop.MouseEvent) {
	if !v.pressed {
		v.ctrl.PointerHover(float64(e.Position.X), float64(e.Position.Y))
	}
}

func (v *BoardView) MouseOut() {}

func (v *BoardView) Scrolled(e *fyne.ScrollEvent) {
	switch {
	case e.Scrolled.DY > 0:
		v.ctrl.ZoomBy(float64(e.Position.X), float64(e.Position.Y), board.ZoomStep)
	case e.Scrolled.DY < 0:
		v.ctrl.ZoomBy(float64(e.Position.X), float64(e.Position.Y), 1/board.ZoomStep)
	}
}

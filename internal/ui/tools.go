package ui

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"TutorBoard/internal/board"
	"TutorBoard/internal/state"
)

// palette is the swatch row, as #rrggbb.
var palette = []string{"#000000", "#ef4444", "#22c55e", "#3b82f6", "#facc15", "#a855f7", "#ffffff"}

type colorSwatch struct {
	widget.BaseWidget
	Hex      string
	OnTapped func(hex string)
}

func newColorSwatch(hex string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Hex: hex, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(hexColor(s.Hex))
	rect.SetMinSize(fyne.NewSize(24, 24))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(*fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Hex)
	}
}

func hexColor(hex string) color.Color {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.Black
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Toolbar holds the drawing controls and keeps them in step with the board.
type Toolbar struct {
	ctrl *board.Controller
	win  *Window

	tool     *widget.Select
	size     *widget.Slider
	layer    *widget.Select
	visible  *widget.Check
	locked   *widget.Check
	opacity  *widget.Slider
	blend    *widget.Select
	undo     *widget.ToolbarAction
	redo     *widget.ToolbarAction
	actions  *widget.Toolbar
	layerIDs []string
	syncing  bool
}

func newToolbar(w *Window) *Toolbar {
	c := w.ctrl
	t := &Toolbar{ctrl: c, win: w}

	names := make([]string, len(board.Tools))
	for i, tool := range board.Tools {
		names[i] = string(tool)
	}
	t.tool = widget.NewSelect(names, func(s string) { c.SetTool(board.Tool(s)) })
	t.tool.SetSelected(string(c.Tool()))

	t.size = widget.NewSlider(1, 50)
	t.size.SetValue(c.BrushSize())
	t.size.OnChanged = func(v float64) { c.SetBrushSize(v) }

	t.undo = widget.NewToolbarAction(theme.ContentUndoIcon(), func() { c.Undo() })
	t.redo = widget.NewToolbarAction(theme.ContentRedoIcon(), func() { c.Redo() })
	t.actions = widget.NewToolbar(
		t.undo,
		t.redo,
		widget.NewToolbarAction(theme.DeleteIcon(), func() { c.DeleteSelection() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomInIcon(), func() { w.zoom(board.ZoomStep) }),
		widget.NewToolbarAction(theme.ZoomOutIcon(), func() { w.zoom(1 / board.ZoomStep) }),
		widget.NewToolbarAction(theme.ZoomFitIcon(), c.ResetView),
		widget.NewToolbarAction(theme.GridIcon(), func() { c.ToggleGrid() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.FileImageIcon(), w.insertImage),
		widget.NewToolbarAction(theme.DocumentCreateIcon(), w.insertFormula),
		widget.NewToolbarAction(theme.FolderOpenIcon(), w.open),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), w.export),
	)

	t.layer = widget.NewSelect(nil, func(string) {
		if i := t.layer.SelectedIndex(); !t.syncing && i >= 0 && i < len(t.layerIDs) {
			c.SetActiveLayer(t.layerIDs[i])
		}
	})
	t.visible = widget.NewCheck("Visible", func(on bool) {
		if !t.syncing {
			c.SetLayerVisible(c.ActiveLayer().ID, on)
		}
	})
	t.locked = widget.NewCheck("Locked", func(on bool) {
		if !t.syncing {
			c.SetLayerLocked(c.ActiveLayer().ID, on)
		}
	})
	t.opacity = widget.NewSlider(0, 1)
	t.opacity.Step = 0.05
	t.opacity.OnChanged = func(v float64) {
		if !t.syncing {
			c.SetLayerOpacity(c.ActiveLayer().ID, v)
		}
	}
	modes := []string{string(state.BlendNormal), string(state.BlendMultiply), string(state.BlendScreen), string(state.BlendOverlay)}
	t.blend = widget.NewSelect(modes, func(m string) {
		if !t.syncing {
			c.SetLayerBlendMode(c.ActiveLayer().ID, state.BlendMode(m))
		}
	})

	t.syncLayers()
	t.syncHistory()
	return t
}

func (t *Toolbar) object() fyne.CanvasObject {
	c := t.ctrl
	swatches := container.NewHBox()
	for _, hex := range palette {
		swatches.Add(newColorSwatch(hex, func(h string) { c.SetColor(h) }))
	}
	addLayer := widget.NewButtonWithIcon("", theme.ContentAddIcon(), func() { c.CreateLayer("") })
	removeLayer := widget.NewButtonWithIcon("", theme.ContentRemoveIcon(), func() { c.DeleteLayer(c.ActiveLayer().ID) })

	drawing := container.NewHBox(
		widget.NewLabel("Tool:"),
		t.tool,
		widget.NewSeparator(),
		swatches,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), t.size),
		widget.NewSeparator(),
		t.actions,
		layout.NewSpacer(),
	)
	layers := container.NewHBox(
		widget.NewLabel("Layer:"),
		t.layer,
		addLayer,
		removeLayer,
		t.visible,
		t.locked,
		widget.NewLabel("Opacity:"),
		container.New(layout.NewGridWrapLayout(fyne.NewSize(120, 35)), t.opacity),
		t.blend,
		layout.NewSpacer(),
	)
	return container.NewVBox(drawing, layers)
}

// onEvent keeps the controls current; it runs on the main goroutine.
func (t *Toolbar) onEvent(ev board.Event) {
	switch ev.Kind {
	case board.LayerCreated, board.LayerDeleted, board.LayerChanged, board.ActiveLayerChanged:
		t.syncLayers()
	case board.HistoryChanged:
		t.syncHistory()
	}
}

func (t *Toolbar) syncLayers() {
	t.syncing = true
	defer func() { t.syncing = false }()

	layers := t.ctrl.Layers()
	active := t.ctrl.ActiveLayer()
	t.layerIDs = t.layerIDs[:0]
	names := make([]string, 0, len(layers))
	selected := -1
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		if l.ID == active.ID {
			selected = len(names)
		}
		t.layerIDs = append(t.layerIDs, l.ID)
		names = append(names, fmt.Sprintf("%d. %s", i+1, l.Name))
	}
	t.layer.Options = names
	if selected >= 0 {
		t.layer.SetSelectedIndex(selected)
	} else {
		t.layer.Refresh()
	}
	t.visible.SetChecked(active.Visible)
	t.locked.SetChecked(active.Locked)
	t.opacity.SetValue(active.Opacity)
	t.blend.SetSelected(string(active.BlendMode))
}

func (t *Toolbar) syncHistory() {
	if t.ctrl.CanUndo() {
		t.undo.Enable()
	} else {
		t.undo.Disable()
	}
	if t.ctrl.CanRedo() {
		t.redo.Enable()
	} else {
		t.redo.Disable()
	}
}

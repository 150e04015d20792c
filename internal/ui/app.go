// Package ui is the fyne host for a board controller: the board view, the
// toolbar, file dialogs and a frame scheduler on fyne's main goroutine.
package ui

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/log"

	"TutorBoard/internal/board"
	"TutorBoard/internal/export"
	"TutorBoard/internal/geom"
)

type Options struct {
	Title string
	// ShareLink is shown in the status bar when hosting or joined.
	ShareLink string
	Logger    *log.Logger
}

// Window is one board window.
type Window struct {
	ctrl    *board.Controller
	win     fyne.Window
	view    *BoardView
	toolbar *Toolbar
	status  *widget.Label
	opts    Options
	log     *log.Logger
}

// NewWindow builds a window around c. Frames requested through sched refresh
// the board view.
func NewWindow(a fyne.App, c *board.Controller, sched *FrameScheduler, opts Options) *Window {
	if opts.Title == "" {
		opts.Title = "TutorBoard"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	w := &Window{
		ctrl:   c,
		win:    a.NewWindow(opts.Title),
		view:   NewBoardView(c),
		status: widget.NewLabel(""),
		opts:   opts,
		log:    opts.Logger.WithPrefix("ui"),
	}
	w.toolbar = newToolbar(w)
	sched.AfterFrame(func() {
		w.view.Refresh()
		w.updateStatus()
	})

	c.OnTextRequest(w.askText)
	c.Subscribe(func(ev board.Event) {
		w.toolbar.onEvent(ev)
		w.updateStatus()
	})
	w.shortcuts()
	w.updateStatus()

	w.win.SetContent(container.NewBorder(w.toolbar.object(), w.status, nil, nil, w.view))
	w.win.Resize(fyne.NewSize(1024, 768))
	return w
}

// RunApp shows a window for c and blocks until the app quits.
func RunApp(a fyne.App, c *board.Controller, sched *FrameScheduler, opts Options) {
	NewWindow(a, c, sched, opts).ShowAndRun()
}

func (w *Window) ShowAndRun() { w.win.ShowAndRun() }

// UpdateStatus refreshes the status bar. It runs after every frame and on
// every board event; call it on the main goroutine.
func (w *Window) UpdateStatus() { w.updateStatus() }

func (w *Window) updateStatus() {
	parts := []string{
		"renderer: " + w.ctrl.RendererName(),
		fmt.Sprintf("zoom: %.0f%%", w.ctrl.View().Zoom*100),
	}
	if w.opts.ShareLink != "" {
		parts = append(parts, "share: "+w.opts.ShareLink)
	}
	if n := len(w.ctrl.Peers()); n > 0 {
		parts = append(parts, fmt.Sprintf("peers: %d", n))
	}
	w.status.SetText(strings.Join(parts, "   "))
}

func (w *Window) shortcuts() {
	cv := w.win.Canvas()
	cv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { w.ctrl.Undo() })
	cv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { w.ctrl.Redo() })
	cv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyA, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { w.ctrl.SelectAll() })
	cv.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			w.ctrl.DeleteSelection()
		case fyne.KeyEscape:
			w.ctrl.ClearSelection()
		}
	})
}

// centre is the world point under the middle of the view.
func (w *Window) centre() geom.Point {
	size := w.view.Size()
	return w.ctrl.ToWorld(float64(size.Width)/2, float64(size.Height)/2)
}

func (w *Window) zoom(factor float64) {
	size := w.view.Size()
	w.ctrl.ZoomBy(float64(size.Width)/2, float64(size.Height)/2, factor)
}

func (w *Window) askText(at geom.Point) {
	entry := widget.NewMultiLineEntry()
	dialog.ShowForm("Text", "Add", "Cancel", []*widget.FormItem{widget.NewFormItem("", entry)}, func(ok bool) {
		if ok {
			w.ctrl.AddText(entry.Text, at)
		}
	}, w.win)
}

func (w *Window) insertFormula() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder(`\frac{a}{b}`)
	at := w.centre()
	dialog.ShowForm("Formula", "Add", "Cancel", []*widget.FormItem{widget.NewFormItem("Source", entry)}, func(ok bool) {
		if ok {
			w.ctrl.AddFormula(entry.Text, at)
		}
	}, w.win)
}

func (w *Window) insertImage() {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil || r == nil {
			w.showError(err)
			return
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			w.showError(fmt.Errorf("read %s: %w", r.URI().Name(), err))
			return
		}
		if _, err := w.ctrl.AddImage(dataURL(data), w.centre(), 0, 0); err != nil {
			w.showError(err)
		}
	}, w.win)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}))
	d.Show()
}

// dataURL encodes an image file for an image object's source.
func dataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (w *Window) open() {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil || r == nil {
			w.showError(err)
			return
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err == nil {
			err = w.ctrl.Import(data)
		}
		if err != nil {
			w.showError(fmt.Errorf("open %s: %w", r.URI().Name(), err))
			return
		}
		w.log.Info("opened board", "file", r.URI().Name())
	}, w.win)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	d.Show()
}

// export writes the board in the format named by the chosen file's
// extension.
func (w *Window) export() {
	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			w.showError(err)
			return
		}
		defer wc.Close()
		format, err := export.ParseFormat(strings.TrimPrefix(wc.URI().Extension(), "."))
		if err != nil {
			w.showError(fmt.Errorf("save %s: %w", wc.URI().Name(), err))
			return
		}
		data, err := w.ctrl.ExportAs(format)
		if err == nil {
			_, err = wc.Write(data)
		}
		if err != nil {
			w.showError(fmt.Errorf("save %s: %w", wc.URI().Name(), err))
			return
		}
		w.log.Info("exported board", "file", wc.URI().Name(), "format", format, "bytes", len(data))
	}, w.win)
	d.SetFileName("board.png")
	d.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".svg", ".pdf", ".json"}))
	d.Show()
}

func (w *Window) showError(err error) {
	if err == nil {
		return
	}
	w.log.Error("board action failed", "err", err)
	dialog.ShowError(err, w.win)
}

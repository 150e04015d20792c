// Package export serialises a board to PNG, SVG, PDF or the structured JSON
// document, and decodes that document back. It reads the store directly and
// never goes through the active renderer.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"TutorBoard/internal/geom"
	"TutorBoard/internal/paint"
	"TutorBoard/internal/state"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatSVG  Format = "svg"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

// Formats lists every supported format.
var Formats = []Format{FormatPNG, FormatSVG, FormatJSON, FormatPDF}

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(s), "."))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/json"
}

// Options tune the visual formats. The zero value is usable.
type Options struct {
	Background string
	Grid       bool
	GridSize   float64
	// Padding is added around the content bounds, in world units.
	Padding float64
	// Scale is device pixels per world unit for PNG.
	Scale   float64
	Painter *paint.Painter
	Logger  *log.Logger
}

const (
	defaultPadding = 20.0
	// Empty boards export a blank page of this size.
	emptyWidth  = 800.0
	emptyHeight = 600.0
	maxPixels   = 8192 * 8192
)

func (o Options) withDefaults() Options {
	if _, ok := state.NormalizeColor(o.Background); !ok {
		o.Background = paint.DefaultBackground
	}
	if o.Padding < 0 {
		o.Padding = 0
	} else if o.Padding == 0 {
		o.Padding = defaultPadding
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.GridSize <= 0 {
		o.GridSize = 50
	}
	if o.Painter == nil {
		o.Painter = paint.New()
	}
	if o.Logger == nil {
		o.Logger = log.Default().WithPrefix("export")
	}
	return o
}

// Export encodes the store in the given format. The viewport only matters for
// JSON, which persists it, and for empty boards, which export the visible
// area.
func Export(s *state.Store, vp geom.Viewport, format Format, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	var (
		out []byte
		err error
	)
	switch format {
	case FormatJSON:
		doc := s.Snapshot()
		doc.Transform = vp.View
		if doc.Transform.Zoom <= 0 {
			doc.Transform.Zoom = 1
		}
		out, err = json.MarshalIndent(doc, "", "  ")
	case FormatPNG:
		out, err = encodePNG(s, area(s, vp, opts), opts)
	case FormatSVG:
		out = encodeSVG(s, area(s, vp, opts), opts)
	case FormatPDF:
		out, err = encodePDF(s, area(s, vp, opts), opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}
	opts.Logger.Debug("exported board", "format", format, "objects", s.Len(), "bytes", len(out))
	return out, nil
}

// area is the world rectangle a visual export covers.
func area(s *state.Store, vp geom.Viewport, opts Options) geom.Rect {
	if r, ok := s.ContentBounds(); ok {
		r = r.Inflate(opts.Padding)
		x0, y0 := math.Floor(r.X), math.Floor(r.Y)
		return geom.Rect{X: x0, Y: y0, Width: math.Ceil(r.MaxX()) - x0, Height: math.Ceil(r.MaxY()) - y0}
	}
	if vp.Width > 0 && vp.Height > 0 {
		return vp.VisibleWorld()
	}
	return geom.Rect{Width: emptyWidth, Height: emptyHeight}
}

// visibleLayers returns the layers that appear in visual exports.
func visibleLayers(s *state.Store) []*state.Layer {
	var out []*state.Layer
	for _, l := range s.Layers() {
		if l.Visible && l.Opacity > 0 && l.Len() > 0 {
			out = append(out, l)
		}
	}
	return out
}

// rgb splits a #rrggbb colour into components, black when malformed.
func rgb(hex string) (r, g, b int) {
	c, ok := state.NormalizeColor(hex)
	if !ok {
		return 0, 0, 0
	}
	v, _ := strconv.ParseUint(c[1:], 16, 32)
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

func colorOr(hex, def string) string {
	if c, ok := state.NormalizeColor(hex); ok {
		return c
	}
	return def
}

func strokeAlpha(s *state.Stroke) float64 {
	if s.ToolKind == state.ToolHighlighter {
		return s.Opacity * paint.HighlighterAlpha
	}
	return s.Opacity
}

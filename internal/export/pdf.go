package export

import (
	"bytes"
	"fmt"
	"image/png"
	"math"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"TutorBoard/internal/geom"
	"TutorBoard/internal/paint"
	"TutorBoard/internal/state"
)

// pdfWriter draws world units one-to-one onto PDF points.
type pdfWriter struct {
	pdf    *gofpdf.Fpdf
	origin geom.Point
	layer  *state.Layer
	opts   Options
}

func encodePDF(s *state.Store, r geom.Rect, opts Options) ([]byte, error) {
	p := gofpdf.New("P", "pt", "A4", "")
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddUTF8FontFromBytes("go", "", paint.FontData("regular"))
	p.AddUTF8FontFromBytes("gomono", "", paint.FontData("mono"))
	p.AddPageFormat("P", gofpdf.SizeType{Wd: r.Width, Ht: r.Height})

	w := &pdfWriter{pdf: p, origin: geom.Pt(r.X, r.Y), opts: opts}
	br, bg, bb := rgb(opts.Background)
	p.SetFillColor(br, bg, bb)
	p.Rect(0, 0, r.Width, r.Height, "F")
	if opts.Grid {
		w.grid(r)
	}
	for _, l := range visibleLayers(s) {
		w.layer = l
		for _, o := range l.Objects() {
			w.object(o)
		}
	}
	p.SetAlpha(1, "Normal")

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *pdfWriter) pt(x, y float64) (float64, float64) {
	return x - w.origin.X, y - w.origin.Y
}

func (w *pdfWriter) grid(r geom.Rect) {
	w.pdf.SetDrawColor(0xe5, 0xe7, 0xeb)
	w.pdf.SetLineWidth(1)
	for x := math.Ceil(r.X/w.opts.GridSize) * w.opts.GridSize; x <= r.MaxX(); x += w.opts.GridSize {
		w.pdf.Line(x-r.X, 0, x-r.X, r.Height)
	}
	for y := math.Ceil(r.Y/w.opts.GridSize) * w.opts.GridSize; y <= r.MaxY(); y += w.opts.GridSize {
		w.pdf.Line(0, y-r.Y, r.Width, y-r.Y)
	}
}

// alpha folds object and layer opacity together with the layer's blend mode.
func (w *pdfWriter) alpha(v float64) {
	mode := "Normal"
	switch w.layer.BlendMode {
	case state.BlendMultiply:
		mode = "Multiply"
	case state.BlendScreen:
		mode = "Screen"
	case state.BlendOverlay:
		mode = "Overlay"
	}
	w.pdf.SetAlpha(max(0, min(1, v*w.layer.Opacity)), mode)
}

func (w *pdfWriter) object(o state.Object) {
	switch v := o.(type) {
	case *state.Stroke:
		w.stroke(v)
	case *state.Shape:
		w.shape(v)
	case *state.Text:
		w.text(v.Lines(), v.X, v.Y, v.Width, "go", v.FontSize, v.Color, v.Opacity, v.Align, v.Baseline)
	case *state.Image:
		w.image(v)
	case *state.Formula:
		w.text([]string{v.Source}, v.X, v.Y, v.Width, "gomono", v.FontSize, v.Color, v.Opacity, state.AlignLeft, state.BaselineTop)
	}
}

func (w *pdfWriter) stroke(s *state.Stroke) {
	pts := s.Points
	if len(pts) == 0 || s.BrushSize <= 0 {
		return
	}
	r, g, b := rgb(s.Color)
	w.alpha(strokeAlpha(s))
	if len(pts) == 1 {
		w.pdf.SetFillColor(r, g, b)
		x, y := w.pt(pts[0].X, pts[0].Y)
		w.pdf.Circle(x, y, s.BrushSize/2, "F")
		return
	}
	w.pdf.SetDrawColor(r, g, b)
	w.pdf.SetLineWidth(s.BrushSize)
	w.pdf.SetLineCapStyle("round")
	w.pdf.SetLineJoinStyle("round")
	w.pdf.MoveTo(w.pt(pts[0].X, pts[0].Y))
	for i := 1; i < len(pts)-1; i++ {
		mid := pts[i].Add(pts[i+1]).Mul(0.5)
		cx, cy := w.pt(pts[i].X, pts[i].Y)
		mx, my := w.pt(mid.X, mid.Y)
		w.pdf.CurveTo(cx, cy, mx, my)
	}
	last := pts[len(pts)-1]
	w.pdf.LineTo(w.pt(last.X, last.Y))
	w.pdf.DrawPath("D")
}

func (w *pdfWriter) shape(s *state.Shape) {
	r, g, b := rgb(s.StrokeColor)
	w.alpha(s.Opacity)
	w.pdf.SetDrawColor(r, g, b)
	w.pdf.SetLineWidth(max(s.StrokeWidth, 0.01))
	w.pdf.SetLineCapStyle("round")
	w.pdf.SetLineJoinStyle("miter")

	style := ""
	if s.StrokeWidth > 0 {
		style = "D"
	}
	if fr, fg, fb, ok := fillRGB(s.FillColor); ok {
		w.pdf.SetFillColor(fr, fg, fb)
		style = "F" + style
	}

	switch s.ShapeKind {
	case state.ShapeCircle:
		if style == "" {
			return
		}
		x, y := w.pt(s.CX, s.CY)
		w.pdf.Circle(x, y, s.Radius, style)
	case state.ShapeLine:
		x1, y1 := w.pt(s.X1, s.Y1)
		x2, y2 := w.pt(s.X2, s.Y2)
		w.pdf.Line(x1, y1, x2, y2)
	case state.ShapeArrow:
		width := max(s.StrokeWidth, 1)
		tip := geom.Pt(s.X2, s.Y2)
		left, right := geom.ArrowHead(geom.Pt(s.X1, s.Y1), tip, width)
		base := left.Add(right).Mul(0.5)
		w.pdf.SetLineWidth(width)
		x1, y1 := w.pt(s.X1, s.Y1)
		bx, by := w.pt(base.X, base.Y)
		w.pdf.Line(x1, y1, bx, by)
		w.pdf.SetFillColor(r, g, b)
		head := make([]gofpdf.PointType, 0, 3)
		for _, p := range []geom.Point{tip, left, right} {
			x, y := w.pt(p.X, p.Y)
			head = append(head, gofpdf.PointType{X: x, Y: y})
		}
		w.pdf.Polygon(head, "F")
	default:
		if style == "" {
			return
		}
		x, y := w.pt(s.X, s.Y)
		w.pdf.Rect(x, y, s.Width, s.Height, style)
	}
}

func (w *pdfWriter) text(lines []string, x, y, width float64, family string, size float64, color string, opacity float64, align state.TextAlign, baseline state.TextBaseline) {
	if size <= 0 {
		return
	}
	r, g, b := rgb(color)
	w.alpha(opacity)
	w.pdf.SetTextColor(r, g, b)
	w.pdf.SetFont(family, "", size)
	lh := size * 1.2
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		bx := x
		switch align {
		case state.AlignCenter:
			bx += (width - w.pdf.GetStringWidth(line)) / 2
		case state.AlignRight:
			bx += width - w.pdf.GetStringWidth(line)
		}
		px, py := w.pt(bx, baselineY(y+float64(i)*lh, lh, size, baseline))
		w.pdf.Text(px, py, line)
	}
}

// image re-encodes the decoded bitmap as PNG so every source format embeds
// the same way.
func (w *pdfWriter) image(im *state.Image) {
	img, err := paint.DecodeSource(im.Src)
	if err != nil {
		w.opts.Logger.Debug("pdf: skipping undecodable image", "id", im.ID, "err", err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		w.opts.Logger.Debug("pdf: skipping image", "id", im.ID, "err", err)
		return
	}
	name := fmt.Sprintf("img-%s", im.ID)
	opts := gofpdf.ImageOptions{ImageType: "PNG", AllowNegativePosition: true}
	w.pdf.RegisterImageOptionsReader(name, opts, &buf)

	w.alpha(im.Opacity)
	x, y := w.pt(im.X, im.Y)
	if im.Rotation != 0 {
		c := state.Bounds(im).Center()
		cx, cy := w.pt(c.X, c.Y)
		w.pdf.TransformBegin()
		// PDF angles run counter-clockwise.
		w.pdf.TransformRotate(-im.Rotation*180/math.Pi, cx, cy)
		defer w.pdf.TransformEnd()
	}
	w.pdf.ImageOptions(name, x, y, im.Width, im.Height, false, opts, 0, "")
}

func fillRGB(hex string) (r, g, b int, ok bool) {
	if _, ok := state.NormalizeColor(hex); !ok {
		return 0, 0, 0, false
	}
	r, g, b = rgb(hex)
	return r, g, b, true
}

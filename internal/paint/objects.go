package paint

import (
	"fmt"
	"image"
	"math"
	"unicode/utf8"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"TutorBoard/internal/geom"
	"TutorBoard/internal/state"
)

func (f *frame) object(o state.Object) {
	switch v := o.(type) {
	case *state.Stroke:
		f.stroke(v)
	case *state.Shape:
		f.shape(v)
	case *state.Text:
		f.text(v)
	case *state.Image:
		f.image(v)
	case *state.Formula:
		f.formula(v)
	}
}

func (f *frame) setColor(hex string, alpha float64) {
	c := parseColor(hex, gg.Hex("#000000"))
	f.dc.SetRGBA(c.R, c.G, c.B, c.A*alpha)
}

// stroke draws a freehand line smoothed with quadratic segments through the
// midpoints of consecutive samples.
func (f *frame) stroke(s *state.Stroke) {
	if len(s.Points) == 0 || s.BrushSize <= 0 {
		return
	}
	alpha := s.Opacity
	if s.ToolKind == state.ToolHighlighter {
		alpha *= HighlighterAlpha
	}
	f.setColor(s.Color, alpha)

	pts := s.Points
	if len(pts) == 1 {
		f.dc.DrawCircle(pts[0].X, pts[0].Y, s.BrushSize/2)
		f.check(f.dc.Fill())
		return
	}

	f.dc.SetLineWidth(s.BrushSize)
	f.dc.SetLineCap(gg.LineCapRound)
	f.dc.SetLineJoin(gg.LineJoinRound)
	f.dc.MoveTo(pts[0].X, pts[0].Y)
	if len(pts) == 2 {
		f.dc.LineTo(pts[1].X, pts[1].Y)
	} else {
		for i := 1; i < len(pts)-1; i++ {
			mid := pts[i].Add(pts[i+1]).Mul(0.5)
			f.dc.QuadraticTo(pts[i].X, pts[i].Y, mid.X, mid.Y)
		}
		last := pts[len(pts)-1]
		f.dc.LineTo(last.X, last.Y)
	}
	f.check(f.dc.Stroke())
}

func (f *frame) shape(s *state.Shape) {
	switch s.ShapeKind {
	case state.ShapeCircle:
		f.dc.DrawCircle(s.CX, s.CY, s.Radius)
	case state.ShapeLine:
		f.dc.MoveTo(s.X1, s.Y1)
		f.dc.LineTo(s.X2, s.Y2)
	case state.ShapeArrow:
		f.arrow(s)
		return
	default:
		f.dc.DrawRectangle(s.X, s.Y, s.Width, s.Height)
	}

	closed := s.ShapeKind == state.ShapeRectangle || s.ShapeKind == state.ShapeCircle
	if closed && s.FillColor != "" {
		f.setColor(s.FillColor, s.Opacity)
		f.check(f.dc.FillPreserve())
	}
	if s.StrokeWidth > 0 {
		f.setColor(s.StrokeColor, s.Opacity)
		f.dc.SetLineWidth(s.StrokeWidth)
		f.dc.SetLineCap(gg.LineCapRound)
		f.dc.SetLineJoin(gg.LineJoinMiter)
		f.check(f.dc.Stroke())
	} else {
		f.dc.ClearPath()
	}
}

// arrow draws the shaft and a filled head at (X2, Y2).
func (f *frame) arrow(s *state.Shape) {
	width := max(s.StrokeWidth, 1)
	tip := geom.Pt(s.X2, s.Y2)
	left, right := geom.ArrowHead(geom.Pt(s.X1, s.Y1), tip, width)
	base := left.Add(right).Mul(0.5)

	f.setColor(s.StrokeColor, s.Opacity)
	f.dc.SetLineWidth(width)
	f.dc.SetLineCap(gg.LineCapRound)
	f.dc.MoveTo(s.X1, s.Y1)
	f.dc.LineTo(base.X, base.Y)
	f.check(f.dc.Stroke())

	f.dc.MoveTo(tip.X, tip.Y)
	f.dc.LineTo(left.X, left.Y)
	f.dc.LineTo(right.X, right.Y)
	f.dc.ClosePath()
	f.check(f.dc.Fill())
}

// text is laid out in device space because gg draws glyphs untransformed;
// textLines handles a rotated view separately.
// Each line occupies fontSize*1.2 world units; Baseline places the glyphs
// within that line box and Align within the object's width.
func (f *frame) text(t *state.Text) {
	f.textLines(t.Lines(), t.FontFamily, t.FontSize, t.Color, t.Opacity, t.X, t.Y, t.Width, t.Align, t.Baseline)
}

func (f *frame) textLines(lines []string, family string, size float64, color string, opacity, x, y, width float64, align state.TextAlign, baseline state.TextBaseline) {
	if size <= 0 || opacity <= 0 {
		return
	}
	face, err := f.p.fonts.Face(family, size*f.scale)
	if err != nil {
		f.p.log.Warn("text font", "family", family, "err", err)
		return
	}
	c := parseColor(color, gg.Hex("#000000"))
	if !f.rotated() {
		f.dc.SetRGBA(c.R, c.G, c.B, c.A*opacity)
		drawLines(f.dc, face, f.m.TransformPoint(gg.Pt(x, y)), lines, size*f.scale, width*f.scale, align, baseline)
		return
	}

	// glyphs are always drawn upright, so a rotated view lays the block out
	// unrotated off screen and places it like an image
	if width <= 0 {
		longest := 0
		for _, l := range lines {
			longest = max(longest, utf8.RuneCountInString(l))
		}
		width = float64(longest) * size * 0.6
	}
	height := float64(len(lines)) * size * 1.2
	pw, ph := int(math.Ceil(width*f.scale)), int(math.Ceil(height*f.scale))
	if pw <= 0 || ph <= 0 {
		return
	}
	off := gg.NewContext(pw, ph)
	defer off.Close()
	off.SetRGBA(c.R, c.G, c.B, c.A*opacity)
	drawLines(off, face, gg.Pt(0, 0), lines, size*f.scale, width*f.scale, align, baseline)
	drawPlaced(f.dc, f.m, off.Image(), x, y, width, height, 0, 1)
}

// rotated reports whether the view turns world axes on the surface.
func (f *frame) rotated() bool {
	return math.Abs(f.m.B) > 1e-9 || math.Abs(f.m.D) > 1e-9
}

// drawLines lays out lines from origin in device pixels; size and width are
// already scaled.
func drawLines(dc *gg.Context, face text.Face, origin gg.Point, lines []string, size, width float64, align state.TextAlign, baseline state.TextBaseline) {
	met := face.Metrics()
	lh := size * 1.2
	dc.SetFont(face)
	for i, line := range lines {
		if line == "" {
			continue
		}
		top := origin.Y + float64(i)*lh
		var by float64
		switch baseline {
		case state.BaselineMiddle:
			by = top + lh/2 + (met.Ascent-met.Descent)/2
		case state.BaselineBottom:
			by = top + lh - met.Descent
		case state.BaselineAlphabetic:
			by = top + size
		default:
			by = top + met.Ascent
		}
		bx := origin.X
		switch align {
		case state.AlignCenter:
			bx += (width - face.Advance(line)) / 2
		case state.AlignRight:
			bx += width - face.Advance(line)
		}
		dc.DrawString(line, bx, by)
	}
}

func (f *frame) image(im *state.Image) {
	if im.Opacity <= 0 {
		return
	}
	img, err := f.p.images.Get(im.ID, im.Src)
	if err != nil {
		f.p.log.Debug("image not drawable", "id", im.ID, "err", err)
		f.placeholder(state.Bounds(im))
		return
	}
	drawPlaced(f.dc, f.m, img, im.X, im.Y, im.Width, im.Height, im.Rotation, im.Opacity)
}

// formula uses the formula renderer when one is configured and otherwise
// shows the source in a monospace face.
func (f *frame) formula(fm *state.Formula) {
	if f.p.formulas != nil {
		img, err := f.p.formulaImage(fm)
		if err == nil {
			w, h := fm.Width, fm.Height
			if w <= 0 || h <= 0 {
				b := img.Bounds()
				w, h = float64(b.Dx()), float64(b.Dy())
			}
			drawPlaced(f.dc, f.m, img, fm.X, fm.Y, w, h, 0, fm.Opacity)
			return
		}
		f.p.log.Debug("formula render failed, drawing source", "id", fm.ID, "err", err)
	}
	f.textLines([]string{fm.Source}, "mono", fm.FontSize, fm.Color, fm.Opacity, fm.X, fm.Y, fm.Width, state.AlignLeft, state.BaselineTop)
}

func (p *Painter) formulaImage(fm *state.Formula) (image.Image, error) {
	key := "formula:" + fm.ID
	sig := fmt.Sprintf("%s|%g|%s", fm.Source, fm.FontSize, fm.Color)
	if img, ok := p.images.lookup(key, sig); ok {
		return img, nil
	}
	img, err := p.formulas.RenderFormula(fm.Source, fm.FontSize, fm.Color)
	if err != nil {
		return nil, err
	}
	p.images.put(key, sig, img)
	return img, nil
}

// placeholder marks an undecodable image with a crossed box.
func (f *frame) placeholder(r geom.Rect) {
	f.dc.SetRGBA(0.6, 0.6, 0.6, 1)
	f.dc.SetLineWidth(1 / f.scale)
	f.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	f.dc.MoveTo(r.X, r.Y)
	f.dc.LineTo(r.MaxX(), r.MaxY())
	f.dc.MoveTo(r.MaxX(), r.Y)
	f.dc.LineTo(r.X, r.MaxY())
	f.check(f.dc.Stroke())
}

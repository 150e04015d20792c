package export

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"TutorBoard/internal/geom"
	"TutorBoard/internal/state"
)

// Go font vertical metrics as a fraction of the font size.
const (
	fontAscent  = 0.931
	fontDescent = 0.212
)

func encodeSVG(s *state.Store, r geom.Rect, opts Options) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" width="%s" height="%s">`+"\n",
		num(r.X), num(r.Y), num(r.Width), num(r.Height), num(r.Width), num(r.Height))
	fmt.Fprintf(&buf, `  <rect x="%s" y="%s" width="%s" height="%s" fill="%s"/>`+"\n",
		num(r.X), num(r.Y), num(r.Width), num(r.Height), opts.Background)
	if opts.Grid {
		svgGrid(&buf, r, opts.GridSize)
	}
	for _, l := range visibleLayers(s) {
		fmt.Fprintf(&buf, `  <g id="layer-%s" data-name="%s"`, escapeXML(l.ID), escapeXML(l.Name))
		if l.Opacity < 1 {
			fmt.Fprintf(&buf, ` opacity="%s"`, num(l.Opacity))
		}
		if l.BlendMode != "" && l.BlendMode != state.BlendNormal {
			fmt.Fprintf(&buf, ` style="mix-blend-mode:%s"`, l.BlendMode)
		}
		buf.WriteString(">\n")
		for _, o := range l.Objects() {
			buf.WriteString("    ")
			svgObject(&buf, o)
			buf.WriteString("\n")
		}
		buf.WriteString("  </g>\n")
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func svgGrid(buf *bytes.Buffer, r geom.Rect, size float64) {
	buf.WriteString(`  <g stroke="#e5e7eb" stroke-width="1">` + "\n")
	for x := math.Ceil(r.X/size) * size; x <= r.MaxX(); x += size {
		fmt.Fprintf(buf, `    <line x1="%s" y1="%s" x2="%s" y2="%s"/>`+"\n", num(x), num(r.Y), num(x), num(r.MaxY()))
	}
	for y := math.Ceil(r.Y/size) * size; y <= r.MaxY(); y += size {
		fmt.Fprintf(buf, `    <line x1="%s" y1="%s" x2="%s" y2="%s"/>`+"\n", num(r.X), num(y), num(r.MaxX()), num(y))
	}
	buf.WriteString("  </g>\n")
}

func svgObject(buf *bytes.Buffer, o state.Object) {
	b := o.Base()
	switch v := o.(type) {
	case *state.Stroke:
		svgStroke(buf, v)
	case *state.Shape:
		svgShape(buf, v)
	case *state.Text:
		svgText(buf, b.ID, v.Lines(), v.X, v.Y, v.Width, v.FontFamily, v.FontSize, v.Color, v.Opacity, v.Align, v.Baseline)
	case *state.Image:
		fmt.Fprintf(buf, `<image id="%s" x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="none" href="%s"%s%s/>`,
			escapeXML(b.ID), num(v.X), num(v.Y), num(v.Width), num(v.Height), escapeXML(dataURL(v.Src)),
			rotateAttr(v.Rotation, state.Bounds(v).Center()), opacityAttr("opacity", v.Opacity))
	case *state.Formula:
		svgText(buf, b.ID, []string{v.Source}, v.X, v.Y, v.Width, "monospace", v.FontSize, v.Color, v.Opacity, state.AlignLeft, state.BaselineTop)
	}
}

// svgStroke follows the painter's midpoint smoothing so both outputs trace
// the same curve.
func svgStroke(buf *bytes.Buffer, s *state.Stroke) {
	pts := s.Points
	color := colorOr(s.Color, "#000000")
	alpha := strokeAlpha(s)
	if len(pts) == 1 {
		fmt.Fprintf(buf, `<circle id="%s" cx="%s" cy="%s" r="%s" fill="%s"%s/>`,
			escapeXML(s.ID), num(pts[0].X), num(pts[0].Y), num(s.BrushSize/2), color, opacityAttr("fill-opacity", alpha))
		return
	}
	var d strings.Builder
	fmt.Fprintf(&d, "M%s %s", num(pts[0].X), num(pts[0].Y))
	if len(pts) > 2 {
		for i := 1; i < len(pts)-1; i++ {
			mid := pts[i].Add(pts[i+1]).Mul(0.5)
			fmt.Fprintf(&d, " Q%s %s %s %s", num(pts[i].X), num(pts[i].Y), num(mid.X), num(mid.Y))
		}
	}
	last := pts[len(pts)-1]
	fmt.Fprintf(&d, " L%s %s", num(last.X), num(last.Y))
	fmt.Fprintf(buf, `<path id="%s" d="%s" fill="none" stroke="%s" stroke-width="%s" stroke-linecap="round" stroke-linejoin="round"%s/>`,
		escapeXML(s.ID), d.String(), color, num(s.BrushSize), opacityAttr("stroke-opacity", alpha))
}

func svgShape(buf *bytes.Buffer, s *state.Shape) {
	id := escapeXML(s.ID)
	stroke := colorOr(s.StrokeColor, "#000000")
	fill := "none"
	if c, ok := state.NormalizeColor(s.FillColor); ok {
		fill = c
	}
	paintAttrs := fmt.Sprintf(` fill="%s" stroke="%s" stroke-width="%s"%s`, fill, stroke, num(s.StrokeWidth), opacityAttr("opacity", s.Opacity))
	switch s.ShapeKind {
	case state.ShapeCircle:
		fmt.Fprintf(buf, `<circle id="%s" cx="%s" cy="%s" r="%s"%s/>`, id, num(s.CX), num(s.CY), num(s.Radius), paintAttrs)
	case state.ShapeLine:
		fmt.Fprintf(buf, `<line id="%s" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s" stroke-linecap="round"%s/>`,
			id, num(s.X1), num(s.Y1), num(s.X2), num(s.Y2), stroke, num(s.StrokeWidth), opacityAttr("opacity", s.Opacity))
	case state.ShapeArrow:
		width := max(s.StrokeWidth, 1)
		tip := geom.Pt(s.X2, s.Y2)
		left, right := geom.ArrowHead(geom.Pt(s.X1, s.Y1), tip, width)
		base := left.Add(right).Mul(0.5)
		fmt.Fprintf(buf, `<path id="%s" d="M%s %s L%s %s M%s %s L%s %s L%s %s Z" fill="%s" stroke="%s" stroke-width="%s" stroke-linecap="round"%s/>`,
			id, num(s.X1), num(s.Y1), num(base.X), num(base.Y),
			num(tip.X), num(tip.Y), num(left.X), num(left.Y), num(right.X), num(right.Y),
			stroke, stroke, num(width), opacityAttr("opacity", s.Opacity))
	default:
		fmt.Fprintf(buf, `<rect id="%s" x="%s" y="%s" width="%s" height="%s"%s/>`, id, num(s.X), num(s.Y), num(s.Width), num(s.Height), paintAttrs)
	}
}

func svgText(buf *bytes.Buffer, id string, lines []string, x, y, width float64, family string, size float64, color string, opacity float64, align state.TextAlign, baseline state.TextBaseline) {
	anchor, ax := "start", x
	switch align {
	case state.AlignCenter:
		anchor, ax = "middle", x+width/2
	case state.AlignRight:
		anchor, ax = "end", x+width
	}
	fmt.Fprintf(buf, `<text id="%s" font-family="%s" font-size="%s" fill="%s" text-anchor="%s"%s>`,
		escapeXML(id), escapeXML(family), num(size), colorOr(color, "#000000"), anchor, opacityAttr("opacity", opacity))
	lh := size * 1.2
	for i, line := range lines {
		if line == "" {
			continue
		}
		by := baselineY(y+float64(i)*lh, lh, size, baseline)
		fmt.Fprintf(buf, `<tspan x="%s" y="%s">%s</tspan>`, num(ax), num(by), escapeXML(line))
	}
	buf.WriteString("</text>")
}

// baselineY places a glyph baseline inside the line box starting at top.
func baselineY(top, lh, size float64, b state.TextBaseline) float64 {
	switch b {
	case state.BaselineMiddle:
		return top + lh/2 + (fontAscent-fontDescent)*size/2
	case state.BaselineBottom:
		return top + lh - fontDescent*size
	case state.BaselineAlphabetic:
		return top + size
	}
	return top + fontAscent*size
}

func rotateAttr(rad float64, c geom.Point) string {
	if rad == 0 {
		return ""
	}
	return fmt.Sprintf(` transform="rotate(%s %s %s)"`, num(rad*180/math.Pi), num(c.X), num(c.Y))
}

func opacityAttr(name string, v float64) string {
	if v >= 1 || v <= 0 {
		return ""
	}
	return fmt.Sprintf(` %s="%s"`, name, num(v))
}

// dataURL turns raw base64 into a data URL with a sniffed media type.
func dataURL(src string) string {
	if strings.HasPrefix(src, "data:") {
		return src
	}
	head := src[:min(len(src), 64)]
	raw, _ := base64.StdEncoding.DecodeString(head[:len(head)/4*4])
	return "data:" + http.DetectContentType(raw) + ";base64," + src
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

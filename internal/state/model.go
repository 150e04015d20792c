package state

import (
	"strings"
	"unicode/utf8"

	"TutorBoard/internal/geom"
)

// Kind tags the variant of an Object. It is the "type" string of the wire
// and document formats.
type Kind string

const (
	KindStroke  Kind = "stroke"
	KindShape   Kind = "shape"
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindFormula Kind = "formula"
)

type ToolKind string

const (
	ToolPen         ToolKind = "pen"
	ToolHighlighter ToolKind = "highlighter"
)

type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeLine      ShapeKind = "line"
	ShapeArrow     ShapeKind = "arrow"
)

type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

type TextBaseline string

const (
	BaselineTop        TextBaseline = "top"
	BaselineMiddle     TextBaseline = "middle"
	BaselineAlphabetic TextBaseline = "alphabetic"
	BaselineBottom     TextBaseline = "bottom"
)

// Object is a drawable scene entity. The set of implementations is closed:
// *Stroke, *Shape, *Text, *Image and *Formula.
type Object interface {
	// Base returns the fields every variant shares.
	Base() *ObjectBase
	Kind() Kind
	// Clone returns a deep copy.
	Clone() Object

	translate(dx, dy float64)
}

// ObjectBase holds the fields common to every object variant.
type ObjectBase struct {
	ID        string  `json:"id"`
	LayerID   string  `json:"layerId"`
	CreatedAt int64   `json:"createdAt"` // unix milliseconds
	Opacity   float64 `json:"opacity"`
}

func (b *ObjectBase) Base() *ObjectBase { return b }

// Stroke is a freehand line through an ordered list of world points.
type Stroke struct {
	ObjectBase
	Points    []geom.Point `json:"points"`
	Color     string       `json:"color"`
	BrushSize float64      `json:"brushSize"`
	ToolKind  ToolKind     `json:"toolKind"`
}

func (s *Stroke) Kind() Kind { return KindStroke }

func (s *Stroke) Clone() Object {
	c := *s
	c.Points = append([]geom.Point(nil), s.Points...)
	return &c
}

func (s *Stroke) translate(dx, dy float64) {
	for i := range s.Points {
		s.Points[i].X += dx
		s.Points[i].Y += dy
	}
}

// Shape is a geometric primitive. Which geometry fields apply depends on
// ShapeKind: X/Y/Width/Height for rectangles, CX/CY/Radius for circles and
// X1/Y1/X2/Y2 for lines and arrows.
type Shape struct {
	ObjectBase
	ShapeKind   ShapeKind `json:"shapeKind"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	CX          float64   `json:"cx"`
	CY          float64   `json:"cy"`
	Radius      float64   `json:"radius"`
	X1          float64   `json:"x1"`
	Y1          float64   `json:"y1"`
	X2          float64   `json:"x2"`
	Y2          float64   `json:"y2"`
	FillColor   string    `json:"fillColor,omitempty"`
	StrokeColor string    `json:"strokeColor"`
	StrokeWidth float64   `json:"strokeWidth"`
}

func (s *Shape) Kind() Kind { return KindShape }

func (s *Shape) Clone() Object {
	c := *s
	return &c
}

func (s *Shape) translate(dx, dy float64) {
	switch s.ShapeKind {
	case ShapeCircle:
		s.CX += dx
		s.CY += dy
	case ShapeLine, ShapeArrow:
		s.X1 += dx
		s.Y1 += dy
		s.X2 += dx
		s.Y2 += dy
	default:
		s.X += dx
		s.Y += dy
	}
}

// Text is a block of left-to-right text; lines are separated by '\n'.
type Text struct {
	ObjectBase
	X          float64      `json:"x"`
	Y          float64      `json:"y"`
	Width      float64      `json:"width"`
	Height     float64      `json:"height"`
	Content    string       `json:"content"`
	FontFamily string       `json:"fontFamily"`
	FontSize   float64      `json:"fontSize"`
	Color      string       `json:"color"`
	Align      TextAlign    `json:"align"`
	Baseline   TextBaseline `json:"baseline"`
}

func (t *Text) Kind() Kind { return KindText }

func (t *Text) Clone() Object {
	c := *t
	return &c
}

func (t *Text) translate(dx, dy float64) {
	t.X += dx
	t.Y += dy
}

// Lines splits the content into display lines.
func (t *Text) Lines() []string {
	return strings.Split(t.Content, "\n")
}

// LineHeight is the distance between consecutive baselines.
func (t *Text) LineHeight() float64 {
	return t.FontSize * 1.2
}

// estimateSize fills Width and Height from the content when unset.
func (t *Text) estimateSize() {
	if t.Width > 0 && t.Height > 0 {
		return
	}
	lines := t.Lines()
	longest := 0
	for _, l := range lines {
		longest = max(longest, utf8.RuneCountInString(l))
	}
	if t.Width <= 0 {
		t.Width = float64(longest) * t.FontSize * 0.6
	}
	if t.Height <= 0 {
		t.Height = float64(len(lines)) * t.LineHeight()
	}
}

// Image is a placed bitmap. Src is a data URL or raw base64 of an encoded
// image. Rotation is in radians about the image centre.
type Image struct {
	ObjectBase
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation,omitempty"`
	Src      string  `json:"src"`
}

func (i *Image) Kind() Kind { return KindImage }

func (i *Image) Clone() Object {
	c := *i
	return &c
}

func (i *Image) translate(dx, dy float64) {
	i.X += dx
	i.Y += dy
}

// Formula is a typeset expression. The board stores the source; pixels come
// from an external formula renderer.
type Formula struct {
	ObjectBase
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Source   string  `json:"source"`
	FontSize float64 `json:"fontSize"`
	Color    string  `json:"color"`
}

func (f *Formula) Kind() Kind { return KindFormula }

func (f *Formula) Clone() Object {
	c := *f
	return &c
}

func (f *Formula) translate(dx, dy float64) {
	f.X += dx
	f.Y += dy
}

// Translated returns a copy of o moved by (dx, dy).
func Translated(o Object, dx, dy float64) Object {
	c := o.Clone()
	c.translate(dx, dy)
	return c
}

// Bounds returns the axis-aligned world bounding box of o.
func Bounds(o Object) geom.Rect {
	switch v := o.(type) {
	case *Stroke:
		return geom.BoundsOf(v.Points).Inflate(v.BrushSize / 2)
	case *Shape:
		switch v.ShapeKind {
		case ShapeCircle:
			return geom.Rect{X: v.CX - v.Radius, Y: v.CY - v.Radius, Width: 2 * v.Radius, Height: 2 * v.Radius}
		case ShapeLine, ShapeArrow:
			return geom.RectFromPoints(geom.Pt(v.X1, v.Y1), geom.Pt(v.X2, v.Y2)).Inflate(v.StrokeWidth / 2)
		default:
			return geom.Rect{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height}
		}
	case *Text:
		return geom.Rect{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height}
	case *Image:
		return geom.Rect{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height}
	case *Formula:
		return geom.Rect{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height}
	}
	return geom.Rect{}
}

// NormalizeColor lower-cases a "#rrggbb" colour and reports whether it is
// well formed.
func NormalizeColor(s string) (string, bool) {
	if len(s) != 7 || s[0] != '#' {
		return s, false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return s, false
		}
	}
	return strings.ToLower(s), true
}

// normalizeColors lower-cases well-formed colours and replaces missing or
// broken ones: black for ink, nothing for fills, and nothing for outlines of
// zero width.
func normalizeColors(o Object) {
	ink := func(c *string) {
		if n, ok := NormalizeColor(*c); ok {
			*c = n
		} else {
			*c = "#000000"
		}
	}
	switch v := o.(type) {
	case *Stroke:
		ink(&v.Color)
	case *Text:
		ink(&v.Color)
	case *Formula:
		ink(&v.Color)
	case *Shape:
		if n, ok := NormalizeColor(v.FillColor); ok {
			v.FillColor = n
		} else {
			v.FillColor = ""
		}
		if v.StrokeWidth > 0 {
			ink(&v.StrokeColor)
		} else if n, ok := NormalizeColor(v.StrokeColor); ok {
			v.StrokeColor = n
		} else {
			v.StrokeColor = ""
		}
	}
}

func normalizeOpacity(v float64) float64 {
	if v <= 0 || v > 1 {
		return 1
	}
	return v
}

package export

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TutorBoard/internal/geom"
	"TutorBoard/internal/state"
)

func pngSource(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func sampleStore(t *testing.T) *state.Store {
	t.Helper()
	s := state.NewStore()
	s.AddObject(&state.Stroke{
		Points:    []geom.Point{{X: 10, Y: 10}, {X: 40, Y: 10}, {X: 70, Y: 10}},
		Color:     "#ff0000",
		BrushSize: 3,
		ToolKind:  state.ToolPen,
	})
	s.AddObject(&state.Shape{ShapeKind: state.ShapeRectangle, X: 10, Y: 30, Width: 50, Height: 30, FillColor: "#00ff00", StrokeColor: "#000000", StrokeWidth: 2})
	notes := s.CreateLayer("notes")
	s.SetLayerBlendMode(notes.ID, state.BlendMultiply)
	s.AddObject(&state.Shape{ShapeKind: state.ShapeArrow, X1: 0, Y1: 80, X2: 60, Y2: 80, StrokeColor: "#0000ff", StrokeWidth: 2})
	s.AddObject(&state.Text{X: 80, Y: 20, Content: "a < b\nsecond", FontFamily: "sans", FontSize: 14, Color: "#222222", Align: state.AlignLeft, Baseline: state.BaselineTop})
	s.AddObject(&state.Image{X: 100, Y: 60, Width: 20, Height: 20, Rotation: 0.3, Src: pngSource(t)})
	s.AddObject(&state.Formula{X: 100, Y: 100, Width: 40, Height: 14, Source: `\frac{1}{2}`, FontSize: 12, Color: "#000000"})
	return s
}

func TestJSONRoundTrip(t *testing.T) {
	s := sampleStore(t)
	vp := geom.NewViewport(800, 600).ZoomAt(geom.Pt(100, 100), 2).PanBy(5, -3)

	data, err := Export(s, vp, FormatJSON, Options{})
	require.NoError(t, err)

	doc, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, vp.View, doc.Transform)

	other := state.NewStore()
	require.NoError(t, other.Load(doc))
	want := s.Snapshot()
	got := other.Snapshot()
	assert.Equal(t, want.Layers, got.Layers)
	assert.Equal(t, want.Objects, got.Objects)
	assert.Equal(t, want.ActiveLayerID, got.ActiveLayerID)
}

func TestJSONRoundTripSparseObjects(t *testing.T) {
	s := state.NewStore()
	fill := s.AddObject(&state.Shape{ShapeKind: state.ShapeRectangle, X: 10, Y: 10, Width: 50, Height: 30, FillColor: "#00FF00"}).(*state.Shape)
	ink := s.AddObject(&state.Stroke{Points: []geom.Point{{X: 1, Y: 1}, {X: 9, Y: 9}}, BrushSize: 2}).(*state.Stroke)
	s.AddObject(&state.Image{X: 1, Y: 1, Width: 5, Height: 5})
	s.AddObject(&state.Shape{ShapeKind: state.ShapeLine, X1: 0, Y1: 0, X2: 5, Y2: 5, StrokeWidth: 2})

	assert.Equal(t, "#00ff00", fill.FillColor)
	assert.Empty(t, fill.StrokeColor, "no outline without a width")
	assert.Equal(t, "#000000", ink.Color)

	data, err := Export(s, geom.NewViewport(200, 100), FormatJSON, Options{})
	require.NoError(t, err)
	doc, err := Decode(data)
	require.NoError(t, err)

	other := state.NewStore()
	require.NoError(t, other.Load(doc))
	assert.Equal(t, s.Snapshot().Objects, other.Snapshot().Objects)
}

func TestDecodeNamesTheBadField(t *testing.T) {
	const layers = `"layers":[{"id":"l1","name":"Layer 1","visible":true,"opacity":1,"blendMode":"normal"}]`
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"missing version", `{` + layers + `,"objects":[]}`, "version"},
		{"future version", `{"version":9,` + layers + `,"objects":[]}`, "version"},
		{"no layers", `{"version":1,"layers":[],"objects":[]}`, "layers"},
		{"layer without id", `{"version":1,"layers":[{"name":"x"}],"objects":[]}`, "layers[0].id"},
		{"bad blend", `{"version":1,"layers":[{"id":"l1","blendMode":"dodge"}],"objects":[]}`, "layers[0].blendMode"},
		{"missing objects", `{"version":1,` + layers + `}`, "objects"},
		{"missing points", `{"version":1,` + layers + `,"objects":[
			{"type":"shape","id":"a","layerId":"l1","shapeKind":"circle","cx":1,"cy":1,"radius":2},
			{"type":"text","id":"b","layerId":"l1","x":0,"y":0,"content":"hi","fontSize":12},
			{"type":"stroke","id":"c","layerId":"l1","color":"#000000","brushSize":2}]}`, "objects[2].points"},
		{"bad point", `{"version":1,` + layers + `,"objects":[{"type":"stroke","id":"c","color":"#000000","brushSize":2,"points":[{"x":1}]}]}`, "objects[0].points[0].y"},
		{"bad colour", `{"version":1,` + layers + `,"objects":[{"type":"stroke","id":"c","color":"red","brushSize":2,"points":[{"x":1,"y":1}]}]}`, "objects[0].color"},
		{"unknown type", `{"version":1,` + layers + `,"objects":[{"type":"sticker","id":"s"}]}`, "objects[0].type"},
		{"unknown shape", `{"version":1,` + layers + `,"objects":[{"type":"shape","id":"s","shapeKind":"star"}]}`, "objects[0].shapeKind"},
		{"rectangle without width", `{"version":1,` + layers + `,"objects":[{"type":"shape","id":"s","shapeKind":"rectangle","x":0,"y":0,"height":3}]}`, "objects[0].width"},
		{"image without src", `{"version":1,` + layers + `,"objects":[{"type":"image","id":"i","x":0,"y":0,"width":1,"height":1}]}`, "objects[0].src"},
		{"string zoom", `{"version":1,` + layers + `,"objects":[],"transform":{"zoom":"2"}}`, "transform.zoom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			require.ErrorIs(t, err, ErrMalformed)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestDecodeRejectsDanglingLayerReference(t *testing.T) {
	doc := `{"version":1,"layers":[{"id":"l1"}],"objects":[{"type":"formula","id":"f","layerId":"nope","x":0,"y":0,"source":"x"}]}`
	_, err := Decode([]byte(doc))
	assert.ErrorIs(t, err, ErrMalformed)
	assert.ErrorIs(t, err, state.ErrInvalidDocument)
}

func TestDecodeFillsLayerDefaults(t *testing.T) {
	doc, err := Decode([]byte(`{"version":1,"layers":[{"id":"l1","name":"only"}],"objects":[]}`))
	require.NoError(t, err)
	require.Len(t, doc.Layers, 1)
	assert.True(t, doc.Layers[0].Visible)
	assert.Equal(t, 1.0, doc.Layers[0].Opacity)
	assert.Equal(t, state.BlendNormal, doc.Layers[0].BlendMode)
	assert.Equal(t, geom.DefaultView(), doc.Transform)
}

func TestDecodeSyntaxError(t *testing.T) {
	_, err := Decode([]byte(`{"version":`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestPNGCoversContentBounds(t *testing.T) {
	s := state.NewStore()
	s.AddObject(&state.Stroke{
		Points:    []geom.Point{{X: 100, Y: 100}, {X: 150, Y: 100}, {X: 200, Y: 100}},
		Color:     "#ff0000",
		BrushSize: 3,
	})
	data, err := Export(s, geom.NewViewport(800, 600), FormatPNG, Options{Padding: 10})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	assert.Equal(t, 124, b.Dx())
	assert.Equal(t, 24, b.Dy())

	// Padded bounds start at (88.5, 88.5), floored to 88.
	c := color.NRGBAModel.Convert(img.At(150-88, 100-88)).(color.NRGBA)
	assert.Greater(t, c.R, uint8(200))
	assert.Less(t, c.G, uint8(60))

	corner := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, corner)
}

func TestPNGOfEmptyBoardUsesViewport(t *testing.T) {
	data, err := Export(state.NewStore(), geom.NewViewport(320, 200), FormatPNG, Options{})
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestSVGHasOnePrimitivePerObject(t *testing.T) {
	s := sampleStore(t)
	hidden := s.CreateLayer("hidden")
	s.AddObject(&state.Shape{ShapeKind: state.ShapeCircle, CX: 5, CY: 5, Radius: 3, StrokeColor: "#000000", StrokeWidth: 1})
	s.SetLayerVisible(hidden.ID, false)

	data, err := Export(s, geom.Viewport{}, FormatSVG, Options{})
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg"`))
	for _, o := range s.Objects() {
		want := 1
		if o.Base().LayerID == hidden.ID {
			want = 0
		}
		assert.Equal(t, want, strings.Count(out, `id="`+o.Base().ID+`"`), "object %s", o.Kind())
	}
	assert.Contains(t, out, `stroke-linecap="round"`)
	assert.Contains(t, out, "a &lt; b")
	assert.Contains(t, out, "mix-blend-mode:multiply")
	assert.Contains(t, out, `href="data:image/png;base64,`)
	assert.Contains(t, out, `transform="rotate(`)
	assert.NotContains(t, out, "<circle", "hidden layers are skipped")
}

func TestPDF(t *testing.T) {
	data, err := Export(sampleStore(t), geom.Viewport{}, FormatPDF, Options{Grid: true})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestUnknownFormat(t *testing.T) {
	_, err := Export(state.NewStore(), geom.Viewport{}, Format("tiff"), Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	f, err := ParseFormat(".SVG")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)
	_, err = ParseFormat("gif")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

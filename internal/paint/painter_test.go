package paint

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TutorBoard/internal/geom"
	"TutorBoard/internal/state"
)

func newDC(t *testing.T, w, h int) *gg.Context {
	t.Helper()
	dc := gg.NewContext(w, h)
	dc.SetRasterizerMode(gg.RasterizerAnalytic)
	t.Cleanup(func() { _ = dc.Close() })
	return dc
}

func pixel(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func assertRed(t *testing.T, c color.NRGBA) {
	t.Helper()
	assert.Greater(t, c.R, uint8(230), "red %v", c)
	assert.Less(t, c.G, uint8(30), "green %v", c)
	assert.Less(t, c.B, uint8(30), "blue %v", c)
}

func sceneWith(objs ...state.Object) (Scene, *state.Store) {
	s := state.NewStore()
	for _, o := range objs {
		s.AddObject(o)
	}
	sc := SceneOf(s)
	sc.Viewport = geom.NewViewport(100, 100)
	return sc, s
}

func redStroke() *state.Stroke {
	return &state.Stroke{
		Points:    []geom.Point{{X: 10, Y: 50}, {X: 50, Y: 50}, {X: 90, Y: 50}},
		Color:     "#ff0000",
		BrushSize: 3,
		ToolKind:  state.ToolPen,
	}
}

func pngDataURL(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestPaintBackgroundAndStroke(t *testing.T) {
	dc := newDC(t, 100, 100)
	sc, _ := sceneWith(redStroke())

	require.NoError(t, New().Paint(dc, sc))
	img := dc.Image()

	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, pixel(img, 2, 2))
	assertRed(t, pixel(img, 50, 50))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, pixel(img, 50, 60))
}

func TestPaintFollowsViewport(t *testing.T) {
	dc := newDC(t, 200, 200)
	sc, _ := sceneWith(redStroke())
	sc.Viewport = geom.NewViewport(200, 200).ZoomAt(geom.Pt(0, 0), 2)

	require.NoError(t, New().Paint(dc, sc))
	img := dc.Image()
	assertRed(t, pixel(img, 100, 100))
	assert.Equal(t, uint8(255), pixel(img, 100, 50).G, "original position no longer covered")
}

func TestPaintRespectsDPR(t *testing.T) {
	dc := newDC(t, 200, 200)
	sc, _ := sceneWith(redStroke())
	sc.DPR = 2

	require.NoError(t, New().Paint(dc, sc))
	assertRed(t, pixel(dc.Image(), 100, 100))
}

func TestPaintSkipsHiddenLayers(t *testing.T) {
	dc := newDC(t, 100, 100)
	sc, s := sceneWith(redStroke())
	s.SetLayerVisible(s.ActiveLayer().ID, false)
	sc.Layers = s.Layers()

	require.NoError(t, New().Paint(dc, sc))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, pixel(dc.Image(), 50, 50))
}

func TestPaintHiddenObjectShownAsPreview(t *testing.T) {
	dc := newDC(t, 100, 100)
	st := redStroke()
	sc, _ := sceneWith(st)
	moved := st.Clone().(*state.Stroke)
	for i := range moved.Points {
		moved.Points[i].Y = 20
	}
	sc.Hidden = map[string]bool{st.ID: true}
	sc.Preview = []state.Object{moved}

	require.NoError(t, New().Paint(dc, sc))
	img := dc.Image()
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, pixel(img, 50, 50))
	assertRed(t, pixel(img, 50, 20))
}

func TestPaintLayerOpacity(t *testing.T) {
	dc := newDC(t, 100, 100)
	sc, s := sceneWith(&state.Shape{ShapeKind: state.ShapeRectangle, X: 20, Y: 20, Width: 60, Height: 60, FillColor: "#000000", StrokeColor: "#000000"})
	s.SetLayerOpacity(s.ActiveLayer().ID, 0.5)
	sc.Layers = s.Layers()

	require.NoError(t, New().Paint(dc, sc))
	c := pixel(dc.Image(), 50, 50)
	assert.InDelta(t, 128, int(c.R), 20, "half-transparent black over white is grey: %v", c)
}

func TestPaintImage(t *testing.T) {
	dc := newDC(t, 100, 100)
	sc, _ := sceneWith(&state.Image{X: 10, Y: 10, Width: 40, Height: 40, Src: pngDataURL(t, color.NRGBA{255, 0, 0, 255})})

	require.NoError(t, New().Paint(dc, sc))
	img := dc.Image()
	assertRed(t, pixel(img, 30, 30))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, pixel(img, 70, 70))
}

func TestPaintRotatedImageCentreStaysPut(t *testing.T) {
	dc := newDC(t, 100, 100)
	sc, _ := sceneWith(&state.Image{X: 30, Y: 45, Width: 40, Height: 10, Rotation: 1.5707963, Src: pngDataURL(t, color.NRGBA{255, 0, 0, 255})})

	require.NoError(t, New().Paint(dc, sc))
	img := dc.Image()
	assertRed(t, pixel(img, 50, 50))
	assertRed(t, pixel(img, 50, 35)) // rotated into the vertical
	assert.Equal(t, uint8(255), pixel(img, 35, 50).G, "left end no longer covered")
}

func TestPaintBrokenImageDoesNotFail(t *testing.T) {
	dc := newDC(t, 100, 100)
	sc, _ := sceneWith(&state.Image{X: 10, Y: 10, Width: 40, Height: 40, Src: "data:text/plain,hello"})
	assert.NoError(t, New().Paint(dc, sc))
}

func TestPaintText(t *testing.T) {
	dc := newDC(t, 200, 100)
	sc, _ := sceneWith(&state.Text{X: 10, Y: 10, Content: "Hello", FontFamily: "sans", FontSize: 32, Color: "#000000", Align: state.AlignLeft, Baseline: state.BaselineTop})
	sc.Viewport = geom.NewViewport(200, 100)

	require.NoError(t, New().Paint(dc, sc))
	assert.True(t, anyDark(dc.Image(), image.Rect(10, 10, 120, 50)), "glyphs painted")
}

// darkBounds is the bounding box of dark pixels in img.
func darkBounds(img image.Image) image.Rectangle {
	var r image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if pixel(img, x, y).R < 100 {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func TestPaintTextFollowsViewRotation(t *testing.T) {
	txt := &state.Text{X: 20, Y: 40, Content: "HHHHHH", FontFamily: "sans", FontSize: 16, Color: "#000000", Align: state.AlignLeft, Baseline: state.BaselineTop}

	upright := newDC(t, 100, 100)
	sc, _ := sceneWith(txt.Clone())
	require.NoError(t, New().Paint(upright, sc))
	ub := darkBounds(upright.Image())
	require.False(t, ub.Empty())
	assert.Greater(t, ub.Dx(), ub.Dy(), "upright text is wider than tall")

	turned := newDC(t, 100, 100)
	sc, _ = sceneWith(txt.Clone())
	sc.Viewport.Rotation = math.Pi / 2
	require.NoError(t, New().Paint(turned, sc))
	tb := darkBounds(turned.Image())
	require.False(t, tb.Empty())
	assert.Greater(t, tb.Dy(), tb.Dx(), "a quarter turn stands the line up")
}

type fakeFormulas struct {
	calls int
	err   error
}

func (f *fakeFormulas) RenderFormula(string, float64, string) (image.Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = []uint8{0, 0, 255, 255}[i%4]
	}
	return img, nil
}

func TestPaintFormulaUsesRendererAndCaches(t *testing.T) {
	fr := &fakeFormulas{}
	p := New(WithFormulaRenderer(fr))
	sc, _ := sceneWith(&state.Formula{X: 10, Y: 10, Width: 40, Height: 40, Source: `\frac{a}{b}`, FontSize: 16, Color: "#000000"})

	for range 2 {
		dc := newDC(t, 100, 100)
		require.NoError(t, p.Paint(dc, sc))
		c := pixel(dc.Image(), 30, 30)
		assert.Greater(t, c.B, uint8(230))
		assert.Less(t, c.R, uint8(30))
	}
	assert.Equal(t, 1, fr.calls)
}

func TestPaintFormulaFallsBackToSource(t *testing.T) {
	p := New(WithFormulaRenderer(&fakeFormulas{err: errors.New("no tex")}))
	sc, _ := sceneWith(&state.Formula{X: 10, Y: 10, Width: 80, Height: 30, Source: "x^2+y^2", FontSize: 24, Color: "#000000"})

	dc := newDC(t, 100, 100)
	require.NoError(t, p.Paint(dc, sc))
	assert.True(t, anyDark(dc.Image(), image.Rect(10, 10, 95, 45)))
}

func TestPaintSelectionChrome(t *testing.T) {
	dc := newDC(t, 100, 100)
	sc, s := sceneWith(&state.Shape{ShapeKind: state.ShapeRectangle, X: 30, Y: 30, Width: 40, Height: 40, StrokeColor: "#000000", StrokeWidth: 1})
	s.Select(s.Objects()[0].Base().ID)
	sc = SceneOf(s)
	sc.Viewport = geom.NewViewport(100, 100)

	require.NoError(t, New().Paint(dc, sc))
	// top-left handle sits on the padded corner (26, 26)
	c := pixel(dc.Image(), 26, 22)
	assert.NotEqual(t, color.NRGBA{255, 255, 255, 255}, c)
}

func TestPaintIsIdempotent(t *testing.T) {
	p := New()
	sc, _ := sceneWith(redStroke(), &state.Shape{ShapeKind: state.ShapeCircle, CX: 50, CY: 50, Radius: 20, FillColor: "#00ff00", StrokeColor: "#000000", StrokeWidth: 2})
	sc.Grid = true
	sc.GridSize = 10

	dc := newDC(t, 100, 100)
	require.NoError(t, p.Paint(dc, sc))
	first := dc.Image()
	require.NoError(t, p.Paint(dc, sc))
	assert.Equal(t, first, dc.Image())
}

func TestDecodeSource(t *testing.T) {
	url := pngDataURL(t, color.Black)
	img, err := DecodeSource(url)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	raw := url[len("data:image/png;base64,"):]
	_, err = DecodeSource(raw)
	assert.NoError(t, err, "plain base64")

	_, err = DecodeSource("data:image/png,notbase64")
	assert.ErrorIs(t, err, ErrBadImageSource)
	_, err = DecodeSource("%%%")
	assert.ErrorIs(t, err, ErrBadImageSource)
}

func TestFontsCacheFaces(t *testing.T) {
	f := NewFonts()
	a, err := f.Face("Courier New", 12)
	require.NoError(t, err)
	b, err := f.Face("monospace", 12.1)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = f.Face("sans", 0)
	assert.Error(t, err)
}

func anyDark(img image.Image, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if pixel(img, x, y).R < 100 {
				return true
			}
		}
	}
	return false
}

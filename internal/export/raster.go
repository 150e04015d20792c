package export

import (
	"bytes"
	"math"

	"github.com/gogpu/gg"

	"TutorBoard/internal/geom"
	"TutorBoard/internal/paint"
	"TutorBoard/internal/state"
)

// encodePNG paints the area on a CPU context of its own, so the output does
// not depend on which renderer the board is using.
func encodePNG(s *state.Store, r geom.Rect, opts Options) ([]byte, error) {
	scale := geom.ClampZoom(opts.Scale)
	if px := r.Width * r.Height * scale * scale; px > maxPixels {
		scale = math.Max(geom.MinZoom, scale*math.Sqrt(maxPixels/px))
	}
	w := max(1, int(math.Ceil(r.Width*scale)))
	h := max(1, int(math.Ceil(r.Height*scale)))

	dc := gg.NewContext(w, h)
	defer dc.Close()
	dc.SetRasterizerMode(gg.RasterizerAnalytic)

	sc := paint.SceneOf(s)
	sc.Selection = nil
	sc.Background = opts.Background
	sc.Grid = opts.Grid
	sc.GridSize = opts.GridSize
	sc.Viewport = geom.Viewport{
		View:   geom.View{Zoom: scale, PanX: -r.X * scale, PanY: -r.Y * scale},
		Width:  float64(w),
		Height: float64(h),
	}
	if err := opts.Painter.Paint(dc, sc); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

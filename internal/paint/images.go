package paint

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"
	"sync"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrBadImageSource is returned for image sources that are neither a data
// URL nor plain base64.
var ErrBadImageSource = errors.New("bad image source")

// DecodeSource decodes a data URL ("data:image/png;base64,...") or raw
// base64 of an encoded PNG, JPEG, GIF, WebP or BMP image.
func DecodeSource(src string) (image.Image, error) {
	payload := src
	if strings.HasPrefix(src, "data:") {
		comma := strings.IndexByte(src, ',')
		if comma < 0 || !strings.Contains(src[:comma], ";base64") {
			return nil, fmt.Errorf("%w: data URL is not base64", ErrBadImageSource)
		}
		payload = src[comma+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImageSource, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Images caches decoded bitmaps by key (object id or formula signature).
type Images struct {
	mu      sync.Mutex
	entries map[string]imageEntry
}

type imageEntry struct {
	src string
	img image.Image
	err error
}

func NewImages() *Images {
	return &Images{entries: map[string]imageEntry{}}
}

// Get returns the decoded image for key, decoding src on a miss or when the
// source changed. Decode failures are cached too.
func (c *Images) Get(key, src string) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.src == src {
		return e.img, e.err
	}
	img, err := DecodeSource(src)
	c.entries[key] = imageEntry{src: src, img: img, err: err}
	return img, err
}

// put stores an already decoded image.
func (c *Images) put(key, src string, img image.Image) {
	c.mu.Lock()
	c.entries[key] = imageEntry{src: src, img: img}
	c.mu.Unlock()
}

func (c *Images) lookup(key, src string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.src != src || e.err != nil {
		return nil, false
	}
	return e.img, true
}

// Forget drops every cached entry whose key is not in keep.
func (c *Images) Forget(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if !keep[k] {
			delete(c.entries, k)
		}
	}
}

// drawPlaced draws img into the world box (x, y, w, h) rotated by rot
// radians about the box centre, with m mapping world to device pixels.
// gg's image drawing only scales, so the affine resampling happens here and
// the result is blitted untransformed.
func drawPlaced(dc *gg.Context, m gg.Matrix, img image.Image, x, y, w, h, rot, opacity float64) {
	sb := img.Bounds()
	if sb.Empty() || w <= 0 || h <= 0 || opacity <= 0 {
		return
	}
	cx, cy := x+w/2, y+h/2
	local := gg.Translate(cx, cy).
		Multiply(gg.Rotate(rot)).
		Multiply(gg.Translate(-w/2, -h/2)).
		Multiply(gg.Scale(w/float64(sb.Dx()), h/float64(sb.Dy()))).
		Multiply(gg.Translate(-float64(sb.Min.X), -float64(sb.Min.Y)))
	full := m.Multiply(local)

	// device-space bounds of the placed image, clipped to the surface
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [4]gg.Point{
		gg.Pt(float64(sb.Min.X), float64(sb.Min.Y)),
		gg.Pt(float64(sb.Max.X), float64(sb.Min.Y)),
		gg.Pt(float64(sb.Max.X), float64(sb.Max.Y)),
		gg.Pt(float64(sb.Min.X), float64(sb.Max.Y)),
	} {
		p := full.TransformPoint(c)
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	area := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY))).
		Intersect(image.Rect(0, 0, dc.Width(), dc.Height()))
	if area.Empty() {
		return
	}

	dst := image.NewRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	shifted := gg.Translate(-float64(area.Min.X), -float64(area.Min.Y)).Multiply(full)
	aff := f64.Aff3{shifted.A, shifted.B, shifted.C, shifted.D, shifted.E, shifted.F}
	draw.BiLinear.Transform(dst, aff, img, sb, draw.Over, nil)

	dc.Push()
	dc.Identity()
	dc.DrawImageEx(gg.ImageBufFromImage(dst), gg.DrawImageOptions{
		X:         float64(area.Min.X),
		Y:         float64(area.Min.Y),
		Opacity:   opacity,
		BlendMode: gg.BlendNormal,
	})
	dc.Pop()
}

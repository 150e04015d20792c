package paint

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Fonts maps font family names onto the embedded Go fonts and caches faces
// per size.
type Fonts struct {
	mu      sync.Mutex
	sources map[string]*text.FontSource
	faces   map[faceKey]text.Face
}

type faceKey struct {
	family string
	size   float64
}

func NewFonts() *Fonts {
	return &Fonts{sources: map[string]*text.FontSource{}, faces: map[faceKey]text.Face{}}
}

// family folds a CSS-like family name onto one of the embedded fonts.
func family(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "mono"), strings.Contains(n, "courier"), strings.Contains(n, "code"):
		return "mono"
	case strings.Contains(n, "bold"):
		return "bold"
	case strings.Contains(n, "italic"):
		return "italic"
	}
	return "regular"
}

// FontData returns the TrueType data backing the family name.
func FontData(name string) []byte {
	return fontData(family(name))
}

func fontData(fam string) []byte {
	switch fam {
	case "mono":
		return gomono.TTF
	case "bold":
		return gobold.TTF
	case "italic":
		return goitalic.TTF
	}
	return goregular.TTF
}

// Face returns a face for the family at size pixels. Sizes are rounded to
// half pixels to bound the cache.
func (f *Fonts) Face(name string, size float64) (text.Face, error) {
	if size <= 0 || math.IsNaN(size) {
		return nil, fmt.Errorf("font size %v", size)
	}
	fam := family(name)
	key := faceKey{fam, math.Round(size*2) / 2}

	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	src, ok := f.sources[fam]
	if !ok {
		var err error
		src, err = text.NewFontSource(fontData(fam))
		if err != nil {
			return nil, fmt.Errorf("load %s font: %w", fam, err)
		}
		f.sources[fam] = src
	}
	face := src.Face(key.size)
	f.faces[key] = face
	return face, nil
}

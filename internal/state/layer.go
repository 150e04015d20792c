package state

import "sort"

// BlendMode is how a layer composites onto the layers below it.
type BlendMode string

const (
	BlendNormal   BlendMode = "normal"
	BlendMultiply BlendMode = "multiply"
	BlendScreen   BlendMode = "screen"
	BlendOverlay  BlendMode = "overlay"
)

// ValidBlendMode reports whether m is one of the supported modes.
func ValidBlendMode(m BlendMode) bool {
	switch m {
	case BlendNormal, BlendMultiply, BlendScreen, BlendOverlay:
		return true
	}
	return false
}

// LayerInfo is the serialisable description of a layer without its objects.
type LayerInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Visible   bool      `json:"visible"`
	Locked    bool      `json:"locked"`
	Opacity   float64   `json:"opacity"`
	BlendMode BlendMode `json:"blendMode"`
	Order     int       `json:"order"`
}

// Layer is a z-ordered container of objects.
type Layer struct {
	LayerInfo

	seq     uint64
	objects *orderedMap[string, Object]
}

func newLayer(info LayerInfo, seq uint64) *Layer {
	if !ValidBlendMode(info.BlendMode) {
		info.BlendMode = BlendNormal
	}
	if info.Opacity < 0 || info.Opacity > 1 {
		info.Opacity = 1
	}
	return &Layer{LayerInfo: info, seq: seq, objects: newOrderedMap[string, Object]()}
}

// Objects returns the layer's objects in insertion order.
func (l *Layer) Objects() []Object { return l.objects.Values() }

func (l *Layer) Len() int { return l.objects.Len() }

func (l *Layer) Has(id string) bool {
	_, ok := l.objects.Get(id)
	return ok
}

// sortLayers orders layers bottom to top: by Order, then creation.
func sortLayers(ls []*Layer) {
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].Order != ls[j].Order {
			return ls[i].Order < ls[j].Order
		}
		return ls[i].seq < ls[j].seq
	})
}

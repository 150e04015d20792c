package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"TutorBoard/internal/geom"
	"TutorBoard/internal/state"
)

// ErrMalformed is wrapped by every Decode failure.
var ErrMalformed = errors.New("malformed document")

// FieldError names the first field that made a document unusable.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrMalformed, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrMalformed }

func fieldErr(field, reason string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(reason, args...)}
}

type rawObject map[string]json.RawMessage

type rawDocument struct {
	Version       json.RawMessage `json:"version"`
	Layers        []rawObject     `json:"layers"`
	Objects       []rawObject     `json:"objects"`
	Transform     rawObject       `json:"transform"`
	ActiveLayerID string          `json:"activeLayerId"`
}

// required lists the fields each object type must carry besides id.
var required = map[state.Kind][]string{
	state.KindStroke:  {"points", "color", "brushSize"},
	state.KindText:    {"x", "y", "content", "fontSize"},
	state.KindImage:   {"x", "y", "width", "height", "src"},
	state.KindFormula: {"x", "y", "source"},
}

var shapeFields = map[state.ShapeKind][]string{
	state.ShapeRectangle: {"x", "y", "width", "height"},
	state.ShapeCircle:    {"cx", "cy", "radius"},
	state.ShapeLine:      {"x1", "y1", "x2", "y2"},
	state.ShapeArrow:     {"x1", "y1", "x2", "y2"},
}

// Decode parses a structured document. The whole payload is rejected on the
// first missing or invalid required field, which the returned *FieldError
// names, so a failed import never applies a partial scene.
func Decode(data []byte) (state.Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return state.Document{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := raw.check(); err != nil {
		return state.Document{}, err
	}

	var doc state.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return state.Document{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	for i := range doc.Layers {
		l := &doc.Layers[i]
		if _, set := raw.Layers[i]["visible"]; !set {
			l.Visible = true
		}
		if _, set := raw.Layers[i]["opacity"]; !set {
			l.Opacity = 1
		}
		if l.BlendMode == "" {
			l.BlendMode = state.BlendNormal
		}
	}
	if raw.Transform == nil || doc.Transform.Zoom <= 0 {
		doc.Transform = geom.DefaultView()
	}
	doc.Transform.Zoom = geom.ClampZoom(doc.Transform.Zoom)
	if err := doc.Validate(); err != nil {
		return state.Document{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return doc, nil
}

func (d rawDocument) check() error {
	var version int
	if d.Version == nil {
		return fieldErr("version", "is required")
	}
	if err := json.Unmarshal(d.Version, &version); err != nil || version < 1 {
		return fieldErr("version", "must be a positive integer")
	}
	if version > state.DocumentVersion {
		return fieldErr("version", "%d is newer than supported %d", version, state.DocumentVersion)
	}
	if len(d.Layers) == 0 {
		return fieldErr("layers", "must list at least one layer")
	}
	for i, l := range d.Layers {
		path := fmt.Sprintf("layers[%d]", i)
		if err := l.str(path, "id", true); err != nil {
			return err
		}
		if err := l.number(path, "opacity", false); err != nil {
			return err
		}
		if m, ok := l.text("blendMode"); ok && !state.ValidBlendMode(state.BlendMode(m)) {
			return fieldErr(path+".blendMode", "unknown mode %q", m)
		}
	}
	if d.Objects == nil {
		return fieldErr("objects", "is required")
	}
	for i, o := range d.Objects {
		if err := o.checkObject(fmt.Sprintf("objects[%d]", i)); err != nil {
			return err
		}
	}
	if d.Transform != nil {
		for _, k := range []string{"zoom", "panX", "panY", "rotation"} {
			if err := d.Transform.number("transform", k, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o rawObject) checkObject(path string) error {
	if o == nil {
		return fieldErr(path, "is null")
	}
	kind, ok := o.text("type")
	if !ok {
		return fieldErr(path+".type", "is required")
	}
	if _, err := state.NewObject(state.Kind(kind)); err != nil {
		return fieldErr(path+".type", "unknown type %q", kind)
	}
	if err := o.str(path, "id", true); err != nil {
		return err
	}

	fields := required[state.Kind(kind)]
	if state.Kind(kind) == state.KindShape {
		sk, _ := o.text("shapeKind")
		var known bool
		if fields, known = shapeFields[state.ShapeKind(sk)]; !known {
			return fieldErr(path+".shapeKind", "must be rectangle, circle, line or arrow")
		}
	}
	for _, f := range fields {
		var err error
		switch f {
		case "points":
			err = o.points(path)
		case "content", "source", "src":
			err = o.str(path, f, false)
		case "color":
			err = o.color(path, f)
		default:
			err = o.number(path, f, true)
		}
		if err != nil {
			return err
		}
	}
	// optional colours may be empty: no outline or no fill
	for _, f := range []string{"strokeColor", "fillColor"} {
		if s, set := o.text(f); set && s == "" {
			continue
		}
		if _, set := o[f]; set {
			if err := o.color(path, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o rawObject) text(key string) (string, bool) {
	var s string
	if v, ok := o[key]; !ok || json.Unmarshal(v, &s) != nil {
		return "", false
	}
	return s, true
}

func (o rawObject) str(path, key string, nonEmpty bool) error {
	s, ok := o.text(key)
	if !ok {
		return fieldErr(path+"."+key, "must be a string")
	}
	if nonEmpty && s == "" {
		return fieldErr(path+"."+key, "must not be empty")
	}
	return nil
}

func (o rawObject) number(path, key string, need bool) error {
	v, ok := o[key]
	if !ok {
		if need {
			return fieldErr(path+"."+key, "is required")
		}
		return nil
	}
	var f float64
	if bytes.Equal(v, []byte("null")) || json.Unmarshal(v, &f) != nil {
		return fieldErr(path+"."+key, "must be a number")
	}
	return nil
}

func (o rawObject) color(path, key string) error {
	s, _ := o.text(key)
	if _, ok := state.NormalizeColor(s); !ok {
		return fieldErr(path+"."+key, "must be a #rrggbb colour")
	}
	return nil
}

func (o rawObject) points(path string) error {
	v, ok := o["points"]
	if !ok {
		return fieldErr(path+".points", "is required")
	}
	var pts []rawObject
	if err := json.Unmarshal(v, &pts); err != nil {
		return fieldErr(path+".points", "must be an array of points")
	}
	if len(pts) == 0 {
		return fieldErr(path+".points", "must not be empty")
	}
	for i, p := range pts {
		pp := fmt.Sprintf("%s.points[%d]", path, i)
		if p == nil {
			return fieldErr(pp, "is null")
		}
		for _, k := range []string{"x", "y"} {
			if err := p.number(pp, k, true); err != nil {
				return err
			}
		}
	}
	return nil
}

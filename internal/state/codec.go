package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a serialised object has an unrecognised
// "type" tag.
var ErrUnknownKind = errors.New("unknown object type")

// MarshalObject encodes o with its "type" tag alongside the variant fields.
func MarshalObject(o Object) ([]byte, error) {
	switch v := o.(type) {
	case *Stroke:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Stroke
		}{KindStroke, v})
	case *Shape:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Shape
		}{KindShape, v})
	case *Text:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Text
		}{KindText, v})
	case *Image:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Image
		}{KindImage, v})
	case *Formula:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Formula
		}{KindFormula, v})
	}
	return nil, fmt.Errorf("marshal %T: %w", o, ErrUnknownKind)
}

// NewObject returns a zero value of the variant named by k.
func NewObject(k Kind) (Object, error) {
	switch k {
	case KindStroke:
		return &Stroke{}, nil
	case KindShape:
		return &Shape{}, nil
	case KindText:
		return &Text{}, nil
	case KindImage:
		return &Image{}, nil
	case KindFormula:
		return &Formula{}, nil
	}
	return nil, fmt.Errorf("%q: %w", k, ErrUnknownKind)
}

// UnmarshalObject decodes a tagged object.
func UnmarshalObject(data []byte) (Object, error) {
	var tag struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	o, err := NewObject(tag.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, o); err != nil {
		return nil, fmt.Errorf("decode %s: %w", tag.Type, err)
	}
	return o, nil
}

// ObjectList is a slice of objects with a tagged JSON encoding.
type ObjectList []Object

func (l ObjectList) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(l))
	for i, o := range l {
		b, err := MarshalObject(o)
		if err != nil {
			return nil, fmt.Errorf("objects[%d]: %w", i, err)
		}
		raw = append(raw, b)
	}
	return json.Marshal(raw)
}

func (l *ObjectList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ObjectList, 0, len(raw))
	for i, r := range raw {
		o, err := UnmarshalObject(r)
		if err != nil {
			return fmt.Errorf("objects[%d]: %w", i, err)
		}
		out = append(out, o)
	}
	*l = out
	return nil
}

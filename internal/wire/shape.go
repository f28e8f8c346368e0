package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultSphereRadius is the radius of the default shape.
const DefaultSphereRadius = 0.01

// Shape is a sum type over Sphere, Cube and Line. It is sealed: consumers
// switch on the concrete type.
//
// On the wire a shape is an object with a single member named after the
// variant: {"Sphere":0.4}, {"Cube":[x,y,z]}, {"Line":[x,y,z]}.
type Shape interface {
	isShape()
}

// Sphere is centred on the object's position.
type Sphere struct {
	Radius float64
}

// Cube is a box with the given extents along x, y and z.
type Cube struct {
	X, Y, Z float64
}

// Line runs from the object's position to End.
type Line struct {
	End Point3
}

func (Sphere) isShape() {}
func (Cube) isShape()   {}
func (Line) isShape()   {}

// DefaultShape returns the shape used when a publisher does not choose one.
func DefaultShape() Shape { return Sphere{Radius: DefaultSphereRadius} }

// ShapeName returns the variant name used on the wire.
func ShapeName(s Shape) string {
	switch s.(type) {
	case Sphere:
		return "Sphere"
	case Cube:
		return "Cube"
	case Line:
		return "Line"
	default:
		return "None"
	}
}

func marshalShape(s Shape) (json.RawMessage, error) {
	var v any
	switch s := s.(type) {
	case Sphere:
		v = map[string]float64{"Sphere": s.Radius}
	case Cube:
		v = map[string][3]float64{"Cube": {s.X, s.Y, s.Z}}
	case Line:
		v = map[string]Point3{"Line": s.End}
	case nil:
		return nil, errors.New("shape is nil")
	default:
		return nil, fmt.Errorf("unknown shape %T", s)
	}
	return json.Marshal(v)
}

func unmarshalShape(data []byte) (Shape, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("decoding shape: %w", err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("shape must hold exactly one variant, got %d", len(tagged))
	}
	for tag, raw := range tagged {
		if isNull(raw) {
			return nil, fmt.Errorf("shape %s is null", tag)
		}
		switch tag {
		case "Sphere":
			var r float64
			if err := json.Unmarshal(raw, &r); err != nil {
				return nil, fmt.Errorf("decoding sphere: %w", err)
			}
			return Sphere{Radius: r}, nil
		case "Cube":
			var d Point3
			if err := json.Unmarshal(raw, &d); err != nil {
				return nil, fmt.Errorf("decoding cube: %w", err)
			}
			return Cube{X: d[0], Y: d[1], Z: d[2]}, nil
		case "Line":
			var end Point3
			if err := json.Unmarshal(raw, &end); err != nil {
				return nil, fmt.Errorf("decoding line: %w", err)
			}
			return Line{End: end}, nil
		default:
			return nil, fmt.Errorf("unknown shape %q", tag)
		}
	}
	panic("unreachable")
}

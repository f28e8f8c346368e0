package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Point2 is an (x, y) pair, encoded as a two element array.
type Point2 [2]float64

// Point3 is an (x, y, z) triple, encoded as a three element array.
type Point3 [3]float64

// Quaternion is a rotation in (x, y, z, w) order.
type Quaternion [4]float64

// IdentityRotation is the rotation applied when a publisher sets none.
var IdentityRotation = Quaternion{0, 0, 0, 1}

func (p *Point2) UnmarshalJSON(data []byte) error { return decodeFixed(data, p[:], "point2") }

func (p *Point3) UnmarshalJSON(data []byte) error { return decodeFixed(data, p[:], "point3") }

func (q *Quaternion) UnmarshalJSON(data []byte) error {
	return decodeFixed(data, q[:], "quaternion")
}

func decodeFixed(data []byte, dst []float64, name string) error {
	var vals []float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	if vals == nil {
		return errors.New(name + " is null")
	}
	if len(vals) != len(dst) {
		return fmt.Errorf("%s: want %d components, got %d", name, len(dst), len(vals))
	}
	copy(dst, vals)
	return nil
}

// Seconds converts a wire timeout in seconds to a duration. Values too
// large for a Duration saturate at the maximum; negative and NaN timeouts
// become zero.
func Seconds(s float64) time.Duration {
	if math.IsNaN(s) || s <= 0 {
		return 0
	}
	d := s * float64(time.Second)
	if d >= float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return time.Duration(d)
}

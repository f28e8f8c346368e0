package wire

import (
	"fmt"
	"math"
)

// Command is a control signal unrelated to pose state: a 2D origin, a
// heading in radians (-Pi..Pi) and a length. IDs increase monotonically per
// sender.
type Command struct {
	ID     uint32  `json:"id"`
	Point  Point2  `json:"point"`
	Angle  float64 `json:"angle"`
	Length float64 `json:"length"`
}

func NewCommand(id uint32, point Point2, angle, length float64) Command {
	return Command{ID: id, Point: point, Angle: angle, Length: length}
}

// CommandFromDrag builds the command for a drag on the ground plane from
// origin to target: the command starts at origin, points at target and is
// as long as the drag.
func CommandFromDrag(id uint32, origin, target Point3) Command {
	dx := target[0] - origin[0]
	dy := target[1] - origin[1]
	dz := target[2] - origin[2]
	return Command{
		ID:     id,
		Point:  Point2{origin[0], origin[1]},
		Angle:  math.Atan2(dy, dx),
		Length: math.Sqrt(dx*dx + dy*dy + dz*dz),
	}
}

type commandPlain Command

func (c *Command) UnmarshalJSON(data []byte) error {
	if err := checkFields(data, []string{"id", "point", "angle", "length"}); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	var plain commandPlain
	if err := strictDecode(data, &plain); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	*c = Command(plain)
	return nil
}

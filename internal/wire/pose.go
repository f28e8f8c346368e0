package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTimeout is the number of seconds an object or cloud stays alive
// on a subscriber without being restated.
const DefaultTimeout = 5.0

// ObjectPose is the full state of one named object. Each upsert carries
// every attribute; subscribers overwrite rather than merge.
type ObjectPose struct {
	ID       string
	Position Point3
	Rotation Quaternion
	Timeout  float64
	Shape    Shape
	Color    Color
}

// NewObjectPose returns an object at pos with the default timeout, shape,
// color and rotation.
func NewObjectPose(id string, pos Point3) *ObjectPose {
	return &ObjectPose{
		ID:       id,
		Position: pos,
		Rotation: IdentityRotation,
		Timeout:  DefaultTimeout,
		Shape:    DefaultShape(),
		Color:    DefaultColor,
	}
}

func (o *ObjectPose) WithShape(s Shape) *ObjectPose {
	o.Shape = s
	return o
}

func (o *ObjectPose) WithColor(c Color) *ObjectPose {
	o.Color = c
	return o
}

// WithRotation sets the orientation quaternion in (x, y, z, w) order.
func (o *ObjectPose) WithRotation(q Quaternion) *ObjectPose {
	o.Rotation = q
	return o
}

// WithTimeout sets the timeout in seconds.
func (o *ObjectPose) WithTimeout(seconds float64) *ObjectPose {
	o.Timeout = seconds
	return o
}

// TimeoutDuration returns Timeout as a duration.
func (o ObjectPose) TimeoutDuration() time.Duration { return Seconds(o.Timeout) }

type objectPoseJSON struct {
	ID       string          `json:"id"`
	Pose     Point3          `json:"pose"`
	Rotation Quaternion      `json:"rotation"`
	Timeout  float64         `json:"timeout"`
	Shape    json.RawMessage `json:"shape"`
	Color    Color           `json:"color"`
}

var objectPoseFields = []string{"id", "pose", "rotation", "timeout", "shape", "color"}

func (o ObjectPose) MarshalJSON() ([]byte, error) {
	shape, err := marshalShape(o.Shape)
	if err != nil {
		return nil, fmt.Errorf("object %q: %w", o.ID, err)
	}
	return json.Marshal(objectPoseJSON{
		ID:       o.ID,
		Pose:     o.Position,
		Rotation: o.Rotation,
		Timeout:  o.Timeout,
		Shape:    shape,
		Color:    o.Color,
	})
}

func (o *ObjectPose) UnmarshalJSON(data []byte) error {
	if err := checkFields(data, objectPoseFields); err != nil {
		return fmt.Errorf("object pose: %w", err)
	}
	var raw objectPoseJSON
	if err := strictDecode(data, &raw); err != nil {
		return fmt.Errorf("object pose: %w", err)
	}
	shape, err := unmarshalShape(raw.Shape)
	if err != nil {
		return fmt.Errorf("object %q: %w", raw.ID, err)
	}
	*o = ObjectPose{
		ID:       raw.ID,
		Position: raw.Pose,
		Rotation: raw.Rotation,
		Timeout:  raw.Timeout,
		Shape:    shape,
		Color:    raw.Color,
	}
	return nil
}

// PoseUpdate is one batch of upserts and deletions, sent atomically in a
// single datagram. Subscribers apply Objects in order, then Delete.
type PoseUpdate struct {
	Objects []*ObjectPose `json:"objects"`
	Delete  []string      `json:"delete"`
}

// NewPoseUpdate returns an empty batch.
func NewPoseUpdate() *PoseUpdate {
	return &PoseUpdate{Objects: []*ObjectPose{}, Delete: []string{}}
}

// Add appends an object with default attributes and returns it so the
// caller can chain overrides before the batch is published.
//
//	u := wire.NewPoseUpdate()
//	u.Add("arm", wire.Point3{0, 0, 1}).WithShape(wire.Cube{X: 0.3, Y: 0.01, Z: 0.01}).WithColor(wire.Cyan)
func (u *PoseUpdate) Add(id string, pos Point3) *ObjectPose {
	o := NewObjectPose(id, pos)
	u.Objects = append(u.Objects, o)
	return o
}

// AddObject appends an already built object.
func (u *PoseUpdate) AddObject(o *ObjectPose) {
	u.Objects = append(u.Objects, o)
}

// Remove schedules id for deletion on every subscriber.
func (u *PoseUpdate) Remove(id string) {
	u.Delete = append(u.Delete, id)
}

// Empty reports whether the batch carries nothing.
func (u *PoseUpdate) Empty() bool {
	return len(u.Objects) == 0 && len(u.Delete) == 0
}

type poseUpdatePlain PoseUpdate

func (u PoseUpdate) MarshalJSON() ([]byte, error) {
	for i, o := range u.Objects {
		if o == nil {
			return nil, fmt.Errorf("pose update: nil object at index %d", i)
		}
	}
	if u.Objects == nil {
		u.Objects = []*ObjectPose{}
	}
	if u.Delete == nil {
		u.Delete = []string{}
	}
	return json.Marshal(poseUpdatePlain(u))
}

func (u *PoseUpdate) UnmarshalJSON(data []byte) error {
	if err := checkFields(data, []string{"objects", "delete"}); err != nil {
		return fmt.Errorf("pose update: %w", err)
	}
	var plain poseUpdatePlain
	if err := strictDecode(data, &plain); err != nil {
		return fmt.Errorf("pose update: %w", err)
	}
	for i, o := range plain.Objects {
		if o == nil {
			return fmt.Errorf("pose update: null object at index %d", i)
		}
	}
	*u = PoseUpdate(plain)
	return nil
}

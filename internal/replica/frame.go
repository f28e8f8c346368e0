package replica

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"posecast/internal/wire"
)

// Frame is a rigid transform: rotate, then translate by Origin.
type Frame struct {
	Origin   wire.Point3     `json:"origin"`
	Rotation wire.Quaternion `json:"rotation"`
}

// DefaultFrame anchors clouds whose parent is absent: the origin with no
// rotation.
var DefaultFrame = Frame{Rotation: wire.IdentityRotation}

// Apply maps a point in the frame's XY plane to world coordinates.
func (f Frame) Apply(p wire.Point2) wire.Point3 {
	v := rotation(f.Rotation).Rotate(r3.Vec{X: p[0], Y: p[1]})
	v = r3.Add(v, r3.Vec{X: f.Origin[0], Y: f.Origin[1], Z: f.Origin[2]})
	return wire.Point3{v.X, v.Y, v.Z}
}

// rotation converts an (x, y, z, w) quaternion to a unit rotation. Publishers
// are not required to normalise; a zero or non-finite quaternion is treated
// as the identity.
func rotation(q wire.Quaternion) r3.Rotation {
	n := quat.Number{Real: q[3], Imag: q[0], Jmag: q[1], Kmag: q[2]}
	abs := quat.Abs(n)
	if abs == 0 || math.IsNaN(abs) || math.IsInf(abs, 0) {
		return r3.Rotation{Real: 1}
	}
	return r3.Rotation(quat.Scale(1/abs, n))
}

// FrameOf returns the frame a cloud's points are expressed in at the
// moment of the call: its parent's current pose when the parent is live,
// DefaultFrame otherwise.
func (t *Table) FrameOf(pc wire.PointCloud) Frame {
	parent, ok := pc.ParentFrame()
	if !ok {
		return DefaultFrame
	}
	obj, ok := t.Object(parent)
	if !ok {
		return DefaultFrame
	}
	return Frame{Origin: obj.Pose.Position, Rotation: obj.Pose.Rotation}
}

// AnchoredPoints returns the live cloud's points in world coordinates,
// recomputed from the parent's pose on every call.
func (t *Table) AnchoredPoints(cloudID string) ([]wire.Point3, bool) {
	c, ok := t.Cloud(cloudID)
	if !ok {
		return nil, false
	}
	return anchor(c.Snapshot, t.FrameOf(c.Snapshot)), true
}

func anchor(pc wire.PointCloud, f Frame) []wire.Point3 {
	out := make([]wire.Point3, len(pc.Points))
	for i, p := range pc.Points {
		out[i] = f.Apply(p)
	}
	return out
}

package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// PointCloud is a full snapshot of a named set of 2D points. A snapshot
// replaces any earlier one with the same ID; points are never diffed.
//
// When ParentFrameID names an object, the points are offsets in that
// object's frame, resolved by the subscriber at read time.
type PointCloud struct {
	ID            string   `json:"id"`
	ParentFrameID *string  `json:"parent_frame_id"`
	Points        []Point2 `json:"points"`
	Timeout       float64  `json:"timeout"`
	Color         Color    `json:"color"`
}

// NewPointCloud returns a cloud with the default timeout and color and no
// parent frame.
func NewPointCloud(id string, points []Point2) *PointCloud {
	return &PointCloud{
		ID:      id,
		Points:  points,
		Timeout: DefaultTimeout,
		Color:   DefaultColor,
	}
}

func (pc *PointCloud) WithColor(c Color) *PointCloud {
	pc.Color = c
	return pc
}

// WithTimeout sets the timeout in seconds.
func (pc *PointCloud) WithTimeout(seconds float64) *PointCloud {
	pc.Timeout = seconds
	return pc
}

// WithParentFrame anchors the cloud to the object named id.
func (pc *PointCloud) WithParentFrame(id string) *PointCloud {
	pc.ParentFrameID = &id
	return pc
}

// ParentFrame returns the parent object id, if any.
func (pc PointCloud) ParentFrame() (string, bool) {
	if pc.ParentFrameID == nil {
		return "", false
	}
	return *pc.ParentFrameID, true
}

// TimeoutDuration returns Timeout as a duration.
func (pc PointCloud) TimeoutDuration() time.Duration { return Seconds(pc.Timeout) }

type pointCloudPlain PointCloud

func (pc PointCloud) MarshalJSON() ([]byte, error) {
	if pc.Points == nil {
		pc.Points = []Point2{}
	}
	return json.Marshal(pointCloudPlain(pc))
}

func (pc *PointCloud) UnmarshalJSON(data []byte) error {
	if err := checkFields(data, []string{"id", "points", "timeout", "color"}, "parent_frame_id"); err != nil {
		return fmt.Errorf("point cloud: %w", err)
	}
	var plain pointCloudPlain
	if err := strictDecode(data, &plain); err != nil {
		return fmt.Errorf("point cloud: %w", err)
	}
	*pc = PointCloud(plain)
	return nil
}

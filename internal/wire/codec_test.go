package wire

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoseUpdate_WireFormat(t *testing.T) {
	u := NewPoseUpdate()
	u.Add("a", Point3{0, 0, 1}).
		WithShape(Cube{X: 0.3, Y: 0.01, Z: 0.01}).
		WithColor(Cyan)
	u.Remove("b")

	data, err := Marshal(u)
	require.NoError(t, err)

	want := `{"objects":[{"id":"a","pose":[0,0,1],"rotation":[0,0,0,1],"timeout":5,` +
		`"shape":{"Cube":[0.3,0.01,0.01]},"color":"Cyan"}],"delete":["b"]}`
	assert.Equal(t, want, string(data))
}

func TestPoseUpdate_EmptyBatchWritesAllFields(t *testing.T) {
	data, err := Marshal(PoseUpdate{})
	require.NoError(t, err)
	assert.Equal(t, `{"objects":[],"delete":[]}`, string(data))
}

func TestPoseUpdate_DecodeEveryShape(t *testing.T) {
	payload := `{"objects":[
		{"id":"s","pose":[1,2,3],"rotation":[0,0,0,1],"timeout":1.5,"shape":{"Sphere":0.4},"color":"Red"},
		{"id":"c","pose":[0,0,0],"rotation":[1,0,0,0],"timeout":5,"shape":{"Cube":[0.3,0.01,0.02]},"color":"Magenta"},
		{"id":"l","pose":[0,0,0],"rotation":[0,0,0,1],"timeout":5,"shape":{"Line":[4,5,6]},"color":"Yellow"}
	],"delete":["gone"]}`

	var u PoseUpdate
	require.NoError(t, Unmarshal([]byte(payload), &u))
	require.Len(t, u.Objects, 3)

	assert.Equal(t, ObjectPose{
		ID: "s", Position: Point3{1, 2, 3}, Rotation: IdentityRotation,
		Timeout: 1.5, Shape: Sphere{Radius: 0.4}, Color: Red,
	}, *u.Objects[0])
	assert.Equal(t, Cube{X: 0.3, Y: 0.01, Z: 0.02}, u.Objects[1].Shape)
	assert.Equal(t, Quaternion{1, 0, 0, 0}, u.Objects[1].Rotation)
	assert.Equal(t, Line{End: Point3{4, 5, 6}}, u.Objects[2].Shape)
	assert.Equal(t, []string{"gone"}, u.Delete)
}

func TestPoseUpdate_RoundTripKeepsShapes(t *testing.T) {
	u := NewPoseUpdate()
	u.Add("line", Point3{1, 1, 1}).WithShape(Line{End: Point3{2, 2, 2}}).WithTimeout(0.25)
	u.Add("ball", Point3{}).WithRotation(Quaternion{0, 0.7071, 0, 0.7071})

	data, err := Marshal(u)
	require.NoError(t, err)

	var got PoseUpdate
	require.NoError(t, Unmarshal(data, &got))
	require.Len(t, got.Objects, 2)
	assert.Equal(t, *u.Objects[0], *got.Objects[0])
	assert.Equal(t, *u.Objects[1], *got.Objects[1])
}

func TestUnmarshal_RejectsOtherMessageKinds(t *testing.T) {
	cmd, err := Marshal(NewCommand(7, Point2{1, 2}, 0.5, 3))
	require.NoError(t, err)

	var u PoseUpdate
	err = Unmarshal(cmd, &u)
	assert.True(t, errors.Is(err, ErrMalformedPayload), "command decoded as pose update: %v", err)

	poses, err := Marshal(NewPoseUpdate())
	require.NoError(t, err)

	var c Command
	err = Unmarshal(poses, &c)
	assert.ErrorIs(t, err, ErrMalformedPayload)

	var pc PointCloud
	err = Unmarshal(cmd, &pc)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestUnmarshal_Malformed(t *testing.T) {
	cases := map[string]string{
		"invalid utf8":      "\xff\xfe{}",
		"not json":          `objects`,
		"null":              `null`,
		"missing delete":    `{"objects":[]}`,
		"unknown field":     `{"objects":[],"delete":[],"client_id":"x"}`,
		"null object":       `{"objects":[null],"delete":[]}`,
		"null shape":        `{"objects":[{"id":"a","pose":[0,0,0],"rotation":[0,0,0,1],"timeout":5,"shape":null,"color":"Red"}],"delete":[]}`,
		"unknown shape":     `{"objects":[{"id":"a","pose":[0,0,0],"rotation":[0,0,0,1],"timeout":5,"shape":{"Cone":1},"color":"Red"}],"delete":[]}`,
		"two shapes":        `{"objects":[{"id":"a","pose":[0,0,0],"rotation":[0,0,0,1],"timeout":5,"shape":{"Sphere":1,"Cube":[1,1,1]},"color":"Red"}],"delete":[]}`,
		"unknown color":     `{"objects":[{"id":"a","pose":[0,0,0],"rotation":[0,0,0,1],"timeout":5,"shape":{"Sphere":1},"color":"Teal"}],"delete":[]}`,
		"short position":    `{"objects":[{"id":"a","pose":[0,0],"rotation":[0,0,0,1],"timeout":5,"shape":{"Sphere":1},"color":"Red"}],"delete":[]}`,
		"missing rotation":  `{"objects":[{"id":"a","pose":[0,0,0],"timeout":5,"shape":{"Sphere":1},"color":"Red"}],"delete":[]}`,
		"trailing data":     `{"objects":[],"delete":[]} {}`,
		"truncated payload": `{"objects":[{"id":"a","pose":[0,0`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			var u PoseUpdate
			err := Unmarshal([]byte(payload), &u)
			if !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("expected ErrMalformedPayload, got %v", err)
			}
		})
	}
}

func TestPointCloud_ParentFrame(t *testing.T) {
	pc := NewPointCloud("cloud", []Point2{{1, 0}, {0, 1}}).
		WithColor(Cyan).
		WithParentFrame("rotated_object")

	data, err := Marshal(pc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"cloud","parent_frame_id":"rotated_object","points":[[1,0],[0,1]],"timeout":5,"color":"Cyan"}`, string(data))

	var got PointCloud
	require.NoError(t, Unmarshal(data, &got))
	parent, ok := got.ParentFrame()
	require.True(t, ok)
	assert.Equal(t, "rotated_object", parent)
	assert.Equal(t, pc.Points, got.Points)
}

func TestPointCloud_NullParentIsAllowedButMustBePresent(t *testing.T) {
	var pc PointCloud
	require.NoError(t, Unmarshal([]byte(`{"id":"c","parent_frame_id":null,"points":[],"timeout":2,"color":"Blue"}`), &pc))
	_, ok := pc.ParentFrame()
	assert.False(t, ok)

	err := Unmarshal([]byte(`{"id":"c","points":[],"timeout":2,"color":"Blue"}`), &pc)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestPointCloud_NilPointsEncodeAsEmptyArray(t *testing.T) {
	data, err := Marshal(NewPointCloud("c", nil))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"points":[]`)
	assert.Contains(t, string(data), `"parent_frame_id":null`)
}

func TestNewObjectPose_Defaults(t *testing.T) {
	o := NewObjectPose("x", Point3{1, 2, 3})

	if o.Timeout != DefaultTimeout {
		t.Errorf("Timeout: got %v, want %v", o.Timeout, DefaultTimeout)
	}
	if o.Color != Red {
		t.Errorf("Color: got %v, want Red", o.Color)
	}
	if o.Shape != (Sphere{Radius: DefaultSphereRadius}) {
		t.Errorf("Shape: got %#v, want default sphere", o.Shape)
	}
	if o.Rotation != IdentityRotation {
		t.Errorf("Rotation: got %v, want identity", o.Rotation)
	}
	if o.TimeoutDuration().Seconds() != 5 {
		t.Errorf("TimeoutDuration: got %v, want 5s", o.TimeoutDuration())
	}
}

func TestMarshal_NilShapeFails(t *testing.T) {
	u := NewPoseUpdate()
	u.AddObject(&ObjectPose{ID: "broken"})
	_, err := Marshal(u)
	assert.Error(t, err)
}

func TestCommandFromDrag(t *testing.T) {
	c := CommandFromDrag(3, Point3{1, 1, 0}, Point3{1, 2, 0})

	assert.Equal(t, uint32(3), c.ID)
	assert.Equal(t, Point2{1, 1}, c.Point)
	assert.InDelta(t, math.Pi/2, c.Angle, 1e-9)
	assert.InDelta(t, 1.0, c.Length, 1e-9)
}

func TestCommand_RoundTrip(t *testing.T) {
	data, err := Marshal(NewCommand(42, Point2{0.5, -0.5}, -1.2, 2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":42,"point":[0.5,-0.5],"angle":-1.2,"length":2}`, string(data))

	var c Command
	require.NoError(t, Unmarshal(data, &c))
	assert.Equal(t, NewCommand(42, Point2{0.5, -0.5}, -1.2, 2), c)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("magenta")
	require.NoError(t, err)
	assert.Equal(t, Magenta, c)

	_, err = ParseColor("teal")
	assert.Error(t, err)

	r, g, b := Cyan.RGB()
	assert.Equal(t, [3]float64{0, 1, 1}, [3]float64{r, g, b})
	assert.Len(t, Colors(), 8)
}

func TestSeconds_Range(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, Seconds(1.5))
	assert.Equal(t, time.Duration(0), Seconds(0))
	assert.Equal(t, time.Duration(0), Seconds(-3))
	assert.Equal(t, time.Duration(0), Seconds(math.NaN()))
	assert.Equal(t, time.Duration(math.MaxInt64), Seconds(1e10))
	assert.Equal(t, time.Duration(math.MaxInt64), Seconds(math.Inf(1)))
	assert.Positive(t, Seconds(9.2e9))
}

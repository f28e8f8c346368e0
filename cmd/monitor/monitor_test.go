package monitor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"posecast/internal/replica"
	"posecast/internal/wire"
)

type testViewer struct {
	*viewer
	now    time.Time
	poses  chan wire.PoseUpdate
	clouds chan wire.PointCloud
	out    *bytes.Buffer
}

func newTestViewer() *testViewer {
	tv := &testViewer{
		now:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		poses:  make(chan wire.PoseUpdate, 8),
		clouds: make(chan wire.PointCloud, 8),
		out:    &bytes.Buffer{},
	}
	sc := newScene(zerolog.Nop())
	tv.viewer = &viewer{
		table: replica.New(
			replica.WithBinder(sc),
			replica.WithClock(func() time.Time { return tv.now }),
		),
		scene:    sc,
		holder:   &replica.SnapshotHolder{},
		poses:    tv.poses,
		clouds:   tv.clouds,
		commands: make(chan wire.Command),
		out:      tv.out,
		log:      zerolog.Nop(),
	}
	return tv
}

func (tv *testViewer) advance(d time.Duration) {
	tv.now = tv.now.Add(d)
	tv.tick(tv.now)
}

func TestViewer_DrainsSweepsAndSnapshots(t *testing.T) {
	tv := newTestViewer()

	u := wire.NewPoseUpdate()
	u.Add("a", wire.Point3{0, 0, 0}).WithTimeout(1)
	tv.poses <- *u
	tv.clouds <- *wire.NewPointCloud("scan", []wire.Point2{{1, 0}}).WithParentFrame("a").WithTimeout(10)
	tv.advance(0)

	snap := tv.holder.Load()
	if len(snap.Objects) != 1 || len(snap.Clouds) != 1 {
		t.Fatalf("expected 1 object and 1 cloud, got %d and %d", len(snap.Objects), len(snap.Clouds))
	}
	if tv.scene.Len() != 1 {
		t.Errorf("expected 1 scene node, got %d", tv.scene.Len())
	}
	if !strings.Contains(tv.out.String(), "a: Red [0.00 0.00 0.00]") {
		t.Errorf("summary not rendered: %q", tv.out.String())
	}

	tv.advance(1500 * time.Millisecond)
	snap = tv.holder.Load()
	if len(snap.Objects) != 0 {
		t.Errorf("expected a to expire, got %+v", snap.Objects)
	}
	if tv.scene.Len() != 0 || tv.scene.released != 1 {
		t.Errorf("expected node to be released once, len=%d released=%d", tv.scene.Len(), tv.scene.released)
	}
	if len(snap.Clouds) != 1 || snap.Clouds[0].Frame != replica.DefaultFrame {
		t.Errorf("cloud should fall back to the default frame once its parent expired: %+v", snap.Clouds)
	}
}

func TestViewer_RendersOnlyOnChange(t *testing.T) {
	tv := newTestViewer()

	u := wire.NewPoseUpdate()
	u.Add("a", wire.Point3{1, 2, 3})
	tv.poses <- *u
	tv.advance(0)
	first := tv.out.Len()

	tv.advance(10 * time.Millisecond)
	if tv.out.Len() != first {
		t.Error("unchanged table should not be redrawn")
	}

	moved := wire.NewPoseUpdate()
	moved.Add("a", wire.Point3{4, 5, 6})
	tv.poses <- *moved
	tv.advance(10 * time.Millisecond)
	if !strings.Contains(tv.out.String(), "[4.00 5.00 6.00]") {
		t.Errorf("moved object not redrawn: %q", tv.out.String())
	}
}

func TestScene_ShapeChangeReattaches(t *testing.T) {
	tv := newTestViewer()

	u := wire.NewPoseUpdate()
	u.Add("a", wire.Point3{})
	tv.poses <- *u
	tv.advance(0)

	u = wire.NewPoseUpdate()
	u.Add("a", wire.Point3{}).WithShape(wire.Cube{X: 1, Y: 1, Z: 1})
	tv.poses <- *u
	tv.advance(0)

	if tv.scene.attached != 2 || tv.scene.released != 1 {
		t.Errorf("expected 2 attaches and 1 release, got %d and %d", tv.scene.attached, tv.scene.released)
	}
	if got := tv.scene.nodes["a"].shape; got != "Cube(1, 1, 1)" {
		t.Errorf("node shape: got %q", got)
	}
}

func TestFit(t *testing.T) {
	if got := fit("abcdef", 0); got != "abcdef" {
		t.Errorf("zero width: got %q", got)
	}
	if got := fit("abcdef", 4); got != "abc…" {
		t.Errorf("truncated: got %q", got)
	}
	if got := fit("abc", 4); got != "abc" {
		t.Errorf("short line: got %q", got)
	}
}

func TestRun_SocketDirFailsBeforeBinding(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "posecast.toml")
	cfg := fmt.Sprintf("[log]\nlevel = \"error\"\n\n[monitor]\nrpc_socket = %q\n",
		filepath.Join(blocker, "sub", "posecast.sock"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	err := Run(cfgPath)
	if err == nil {
		t.Fatal("expected an error for an unusable socket directory")
	}
	if !strings.Contains(err.Error(), "creating socket directory") {
		t.Errorf("socket setup must fail before any group is bound, got: %v", err)
	}
}

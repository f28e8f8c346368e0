package hostload

import (
	"testing"
	"time"

	"posecast/internal/sysinfo"
	"posecast/internal/wire"
)

func TestSlot_StableAndBounded(t *testing.T) {
	a := slot("alpha")
	if a != slot("alpha") {
		t.Error("slot must be stable for a hostname")
	}
	for _, h := range []string{"alpha", "beta", "gamma", ""} {
		if s := slot(h); s < 0 || s >= 0.5*slots {
			t.Errorf("slot(%q) = %v out of range", h, s)
		}
	}
}

func TestBatch(t *testing.T) {
	load := &sysinfo.Load{Hostname: "alpha", CPUPercent: 50, MemPercent: 90}
	u := batch(load, time.Second)

	if len(u.Objects) != 1 {
		t.Fatalf("expected one object, got %d", len(u.Objects))
	}
	o := u.Objects[0]
	if o.ID != "load/alpha" {
		t.Errorf("ID: got %s", o.ID)
	}
	cube, ok := o.Shape.(wire.Cube)
	if !ok {
		t.Fatalf("expected a cube, got %s", wire.ShapeName(o.Shape))
	}
	if cube.Z != load.CubeLength() {
		t.Errorf("cube height: got %v, want %v", cube.Z, load.CubeLength())
	}
	if o.Position[2] != cube.Z/2 {
		t.Errorf("cube should rest on the floor: z=%v height=%v", o.Position[2], cube.Z)
	}
	if o.Color != wire.Red {
		t.Errorf("high memory should be red, got %v", o.Color)
	}
	if o.Timeout != 3 {
		t.Errorf("timeout: got %v, want 3", o.Timeout)
	}
}

package replica

import (
	"sync"
	"time"

	"posecast/internal/wire"
)

// AnchoredCloud is a cloud together with the frame it was resolved in and
// its points in world coordinates.
type AnchoredCloud struct {
	Cloud  Cloud         `json:"cloud"`
	Frame  Frame         `json:"frame"`
	Points []wire.Point3 `json:"points"`
}

// Snapshot is a copy of the live entries at one instant, safe to hand to
// other goroutines.
type Snapshot struct {
	Taken   time.Time       `json:"taken"`
	Objects []Object        `json:"objects"`
	Clouds  []AnchoredCloud `json:"clouds"`
}

// Snapshot copies the live entries, resolving each cloud against its
// parent's current pose.
func (t *Table) Snapshot() Snapshot {
	s := Snapshot{
		Taken:   t.now(),
		Objects: t.Objects(),
	}
	clouds := t.Clouds()
	s.Clouds = make([]AnchoredCloud, 0, len(clouds))
	for _, c := range clouds {
		f := t.FrameOf(c.Snapshot)
		s.Clouds = append(s.Clouds, AnchoredCloud{Cloud: c, Frame: f, Points: anchor(c.Snapshot, f)})
	}
	return s
}

// SnapshotHolder hands the owner loop's latest snapshot to readers on
// other goroutines.
type SnapshotHolder struct {
	mu   sync.RWMutex
	snap Snapshot
}

// Store replaces the held snapshot.
func (h *SnapshotHolder) Store(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snap = s
}

// Load returns the most recently stored snapshot.
func (h *SnapshotHolder) Load() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

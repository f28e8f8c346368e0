// Package replica reconstructs published object and point-cloud state from
// a lossy, unordered stream of pose batches and cloud snapshots.
//
// A Table is owned by a single goroutine: the loop that drains subscribers,
// sweeps and renders. Readers on other goroutines use a SnapshotHolder.
package replica

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"posecast/internal/metrics"
	"posecast/internal/wire"
)

// Object is the last known state of one object.
type Object struct {
	Pose        wire.ObjectPose `json:"pose"`
	LastTouched time.Time       `json:"last_touched"`
}

// ID returns the object id.
func (o Object) ID() string { return o.Pose.ID }

// Timeout returns the object's own timeout.
func (o Object) Timeout() time.Duration { return o.Pose.TimeoutDuration() }

// Expired reports whether the object has gone longer than its timeout
// without a refresh.
func (o Object) Expired(now time.Time) bool {
	return now.Sub(o.LastTouched) > o.Timeout()
}

// Cloud is the last snapshot of one point cloud.
type Cloud struct {
	Snapshot    wire.PointCloud `json:"snapshot"`
	LastTouched time.Time       `json:"last_touched"`
}

// ID returns the cloud identifier.
func (c Cloud) ID() string { return c.Snapshot.ID }

// Timeout returns the cloud's timeout as a duration.
func (c Cloud) Timeout() time.Duration { return c.Snapshot.TimeoutDuration() }

// Expired reports whether the cloud has outlived its timeout at now.
func (c Cloud) Expired(now time.Time) bool {
	return now.Sub(c.LastTouched) > c.Timeout()
}

// Binder is implemented by consumers that hang their own resources (a
// scene node, a GPU buffer) off each object. Attach is called when an
// object appears, Update when it is refreshed with an unchanged shape, and
// Release when it is deleted or expires. A shape change is one Release of
// the old state followed by one Attach of the new state.
type Binder interface {
	Attach(obj Object)
	Update(obj Object)
	Release(obj Object)
}

type nopBinder struct{}

func (nopBinder) Attach(Object)  {}
func (nopBinder) Update(Object)  {}
func (nopBinder) Release(Object) {}

// Option configures a Table.
type Option func(*Table)

// WithBinder routes resource lifecycle events to b.
func WithBinder(b Binder) Option {
	return func(t *Table) { t.binder = b }
}

// WithClock replaces time.Now as the source of last-touched timestamps and
// of "now" for read accessors.
func WithClock(now func() time.Time) Option {
	return func(t *Table) { t.now = now }
}

// WithMetrics records sweeps, deletions and live counts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Table) { t.metrics = m }
}

// WithLogger sets the logger for table events.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Table) { t.log = log }
}

// Table holds the live objects and clouds. It is not safe for concurrent
// use.
type Table struct {
	objects map[string]*Object
	clouds  map[string]*Cloud

	binder  Binder
	now     func() time.Time
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New returns an empty table.
func New(opts ...Option) *Table {
	t := &Table{
		objects: make(map[string]*Object),
		clouds:  make(map[string]*Cloud),
		binder:  nopBinder{},
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ApplyUpdate folds one batch into the table: every upsert in order, then
// every deletion. Upserts overwrite all attributes (last received wins).
// Deletions remove the object at once whatever its remaining timeout.
func (t *Table) ApplyUpdate(u wire.PoseUpdate) {
	now := t.now()
	for _, pose := range u.Objects {
		if pose == nil {
			continue
		}
		t.upsert(*pose, now)
	}
	for _, id := range u.Delete {
		t.delete(id)
	}
}

func (t *Table) upsert(pose wire.ObjectPose, now time.Time) {
	obj, ok := t.objects[pose.ID]
	if !ok {
		obj = &Object{Pose: pose, LastTouched: now}
		t.objects[pose.ID] = obj
		t.binder.Attach(*obj)

		t.log.Debug().
			Str("id", pose.ID).
			Str("shape", wire.ShapeName(pose.Shape)).
			Str("color", pose.Color.String()).
			Msg("Object added")
		return
	}

	old := *obj
	obj.Pose = pose
	obj.LastTouched = now

	if old.Pose.Shape != pose.Shape {
		t.binder.Release(old)
		t.binder.Attach(*obj)

		t.log.Debug().
			Str("id", pose.ID).
			Str("from", wire.ShapeName(old.Pose.Shape)).
			Str("to", wire.ShapeName(pose.Shape)).
			Msg("Object shape changed")
		return
	}
	t.binder.Update(*obj)
}

func (t *Table) delete(id string) {
	obj, ok := t.objects[id]
	if !ok {
		return
	}
	delete(t.objects, id)
	t.binder.Release(*obj)
	t.metrics.Deleted()

	t.log.Debug().Str("id", id).Msg("Object deleted")
}

// ApplyCloud replaces any earlier snapshot with the same id.
func (t *Table) ApplyCloud(pc wire.PointCloud) {
	t.clouds[pc.ID] = &Cloud{Snapshot: pc, LastTouched: t.now()}
}

// Sweep removes every object and cloud older than its own timeout at now
// and returns how many entries were removed. Nothing else is touched.
func (t *Table) Sweep(now time.Time) int {
	objects := 0
	for id, obj := range t.objects {
		if !obj.Expired(now) {
			continue
		}
		delete(t.objects, id)
		t.binder.Release(*obj)
		objects++

		t.log.Debug().
			Str("id", id).
			Time("last_touched", obj.LastTouched).
			Msg("Object expired")
	}

	clouds := 0
	for id, c := range t.clouds {
		if c.Expired(now) {
			delete(t.clouds, id)
			clouds++
		}
	}

	t.metrics.Expired("object", objects)
	t.metrics.Expired("cloud", clouds)
	t.metrics.Live("object", len(t.objects))
	t.metrics.Live("cloud", len(t.clouds))
	return objects + clouds
}

// Object returns the object with id if it is live.
func (t *Table) Object(id string) (Object, bool) {
	obj, ok := t.objects[id]
	if !ok || obj.Expired(t.now()) {
		return Object{}, false
	}
	return *obj, true
}

// Objects returns every live object sorted by id.
func (t *Table) Objects() []Object {
	now := t.now()
	out := make([]Object, 0, len(t.objects))
	for _, obj := range t.objects {
		if !obj.Expired(now) {
			out = append(out, *obj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Cloud returns the cloud with id if it is live.
func (t *Table) Cloud(id string) (Cloud, bool) {
	c, ok := t.clouds[id]
	if !ok || c.Expired(t.now()) {
		return Cloud{}, false
	}
	return *c, true
}

// Clouds returns every live cloud sorted by id.
func (t *Table) Clouds() []Cloud {
	now := t.now()
	out := make([]Cloud, 0, len(t.clouds))
	for _, c := range t.clouds {
		if !c.Expired(now) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Summary renders one line per live object and cloud, the text overlay a
// viewer shows next to the scene.
func (t *Table) Summary() string {
	var b strings.Builder
	for _, obj := range t.Objects() {
		p := obj.Pose.Position
		fmt.Fprintf(&b, "%s: %s [%.2f %.2f %.2f]", obj.ID(), obj.Pose.Color, p[0], p[1], p[2])
		if line, ok := obj.Pose.Shape.(wire.Line); ok {
			fmt.Fprintf(&b, " -> [%.2f %.2f %.2f]", line.End[0], line.End[1], line.End[2])
		}
		b.WriteByte('\n')
	}
	for _, c := range t.Clouds() {
		parent, ok := c.Snapshot.ParentFrame()
		if !ok {
			parent = "N/A"
		}
		fmt.Fprintf(&b, "%s: %s len %d\n", c.ID(), parent, len(c.Snapshot.Points))
	}
	return b.String()
}

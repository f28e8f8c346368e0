package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posecast/internal/metrics"
	"posecast/internal/replica"
	"posecast/internal/wire"
)

func testServer(t *testing.T) (*Server, *metrics.Metrics) {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl := replica.New(replica.WithClock(func() time.Time { return now }))

	u := wire.NewPoseUpdate()
	u.Add("robot", wire.Point3{1, 0, 0}).WithColor(wire.Blue)
	tbl.ApplyUpdate(*u)
	tbl.ApplyCloud(*wire.NewPointCloud("scan", []wire.Point2{{1, 0}}).WithParentFrame("robot"))

	h := &replica.SnapshotHolder{}
	h.Store(tbl.Snapshot())

	m := metrics.New()
	return New(":0", h, m, zerolog.Nop()), m
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_Health(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s.Routes(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRoutes_Objects(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s.Routes(), "/api/objects")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var objects []struct {
		Pose json.RawMessage `json:"pose"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &objects))
	require.Len(t, objects, 1)

	var pose wire.ObjectPose
	require.NoError(t, wire.Unmarshal(objects[0].Pose, &pose))
	assert.Equal(t, "robot", pose.ID)
	assert.Equal(t, wire.Blue, pose.Color)
}

func TestRoutes_ObjectByID(t *testing.T) {
	s, _ := testServer(t)
	h := s.Routes()

	rec := get(t, h, "/api/objects/robot")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"robot"`)

	rec = get(t, h, "/api/objects/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_CloudsAreAnchored(t *testing.T) {
	s, _ := testServer(t)
	h := s.Routes()

	rec := get(t, h, "/api/clouds/scan")
	require.Equal(t, http.StatusOK, rec.Code)

	var cloud struct {
		Points [][3]float64 `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cloud))
	require.Len(t, cloud.Points, 1)
	assert.InDelta(t, 2.0, cloud.Points[0][0], 1e-9)

	rec = get(t, h, "/api/clouds/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_Snapshot(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s.Routes(), "/api/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap struct {
		Objects []json.RawMessage `json:"objects"`
		Clouds  []json.RawMessage `json:"clouds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Objects, 1)
	assert.Len(t, snap.Clouds, 1)
}

func TestRoutes_Metrics(t *testing.T) {
	s, m := testServer(t)
	m.Published("pose")

	rec := get(t, s.Routes(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `posecast_published_total{kind="pose"} 1`), rec.Body.String())
}

func TestRoutes_NoMetrics(t *testing.T) {
	s := New(":0", &replica.SnapshotHolder{}, nil, zerolog.Nop())
	rec := get(t, s.Routes(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

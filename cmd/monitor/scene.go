package monitor

import (
	"github.com/rs/zerolog"

	"posecast/internal/replica"
	"posecast/internal/rpc"
)

// node is the per-object resource the monitor keeps. A graphical viewer
// would hold a mesh here; the terminal viewer only needs the description.
type node struct {
	shape string
	color string
}

// scene is the replica.Binder for the terminal viewer.
type scene struct {
	nodes map[string]node
	log   zerolog.Logger

	attached int
	released int
}

func newScene(log zerolog.Logger) *scene {
	return &scene{nodes: make(map[string]node), log: log}
}

func (s *scene) Attach(obj replica.Object) {
	if _, ok := s.nodes[obj.ID()]; ok {
		s.log.Warn().Str("id", obj.ID()).Msg("Node attached twice")
	}
	s.nodes[obj.ID()] = node{
		shape: rpc.DescribeShape(obj.Pose.Shape),
		color: obj.Pose.Color.String(),
	}
	s.attached++
}

func (s *scene) Update(obj replica.Object) {
	n, ok := s.nodes[obj.ID()]
	if !ok {
		s.log.Warn().Str("id", obj.ID()).Msg("Update for unknown node")
		return
	}
	n.color = obj.Pose.Color.String()
	s.nodes[obj.ID()] = n
}

func (s *scene) Release(obj replica.Object) {
	if _, ok := s.nodes[obj.ID()]; !ok {
		s.log.Warn().Str("id", obj.ID()).Msg("Release for unknown node")
	}
	delete(s.nodes, obj.ID())
	s.released++
}

func (s *scene) Len() int { return len(s.nodes) }

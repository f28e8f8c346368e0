// Package rpc provides Unix socket IPC between the posecast monitor and the
// list CLI.
package rpc

import (
	"errors"
	"fmt"
	"net"
	netrpc "net/rpc"
	"os"
	"time"

	"github.com/rs/zerolog"

	"posecast/internal/replica"
	"posecast/internal/wire"
)

// SnapshotSource yields the monitor's latest replica snapshot.
// *replica.SnapshotHolder satisfies it.
type SnapshotSource interface {
	Load() replica.Snapshot
}

// ObjectInfo is the flattened view of one live object.
type ObjectInfo struct {
	ID       string
	Position [3]float64
	Rotation [4]float64
	Shape    string
	Color    string
	Age      time.Duration
	Timeout  time.Duration
}

// CloudInfo is the flattened view of one live point cloud.
type CloudInfo struct {
	ID          string
	ParentFrame string
	Points      int
	Color       string
	Age         time.Duration
	Timeout     time.Duration
}

// ListObjectsArgs is the request for ListObjects.
type ListObjectsArgs struct{}

// ListObjectsReply is the response for ListObjects.
type ListObjectsReply struct {
	Taken   time.Time
	Objects []ObjectInfo
}

// ListCloudsArgs is the request for ListClouds.
type ListCloudsArgs struct{}

// ListCloudsReply is the response for ListClouds.
type ListCloudsReply struct {
	Taken  time.Time
	Clouds []CloudInfo
}

// Service is the RPC service exposed by the monitor.
type Service struct {
	source SnapshotSource
	log    zerolog.Logger
}

// ListObjects returns every live object in the latest snapshot.
func (s *Service) ListObjects(args *ListObjectsArgs, reply *ListObjectsReply) error {
	snap := s.source.Load()
	reply.Taken = snap.Taken
	reply.Objects = make([]ObjectInfo, 0, len(snap.Objects))
	for _, obj := range snap.Objects {
		reply.Objects = append(reply.Objects, ObjectInfo{
			ID:       obj.ID(),
			Position: obj.Pose.Position,
			Rotation: obj.Pose.Rotation,
			Shape:    DescribeShape(obj.Pose.Shape),
			Color:    obj.Pose.Color.String(),
			Age:      snap.Taken.Sub(obj.LastTouched),
			Timeout:  obj.Timeout(),
		})
	}
	return nil
}

// ListClouds returns every live point cloud in the latest snapshot.
func (s *Service) ListClouds(args *ListCloudsArgs, reply *ListCloudsReply) error {
	snap := s.source.Load()
	reply.Taken = snap.Taken
	reply.Clouds = make([]CloudInfo, 0, len(snap.Clouds))
	for _, ac := range snap.Clouds {
		c := ac.Cloud
		parent, _ := c.Snapshot.ParentFrame()
		reply.Clouds = append(reply.Clouds, CloudInfo{
			ID:          c.ID(),
			ParentFrame: parent,
			Points:      len(c.Snapshot.Points),
			Color:       c.Snapshot.Color.String(),
			Age:         snap.Taken.Sub(c.LastTouched),
			Timeout:     c.Timeout(),
		})
	}
	return nil
}

// DescribeShape renders a shape with its parameters, e.g. "Cube(1, 2, 3)".
func DescribeShape(s wire.Shape) string {
	switch v := s.(type) {
	case wire.Sphere:
		return fmt.Sprintf("Sphere(%g)", v.Radius)
	case wire.Cube:
		return fmt.Sprintf("Cube(%g, %g, %g)", v.X, v.Y, v.Z)
	case wire.Line:
		return fmt.Sprintf("Line(%g, %g, %g)", v.End[0], v.End[1], v.End[2])
	default:
		return wire.ShapeName(s)
	}
}

// Server is a running RPC listener.
type Server struct {
	listener net.Listener
	path     string
	log      zerolog.Logger
}

// StartServer starts the Unix socket RPC server.
func StartServer(socketPath string, source SnapshotSource, log zerolog.Logger) (*Server, error) {
	service := &Service{source: source, log: log}

	server := netrpc.NewServer()
	if err := server.Register(service); err != nil {
		return nil, fmt.Errorf("registering RPC service: %w", err)
	}

	// Remove existing socket file if present
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", socketPath, err)
	}

	// Set socket permissions
	if err := os.Chmod(socketPath, 0660); err != nil {
		log.Warn().Err(err).Msg("Failed to set socket permissions")
	}

	log.Info().Str("socket", socketPath).Msg("RPC server started")

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Error().Err(err).Msg("RPC accept error")
				continue
			}
			go server.ServeConn(conn)
		}
	}()

	return &Server{listener: listener, path: socketPath, log: log}, nil
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	err := s.listener.Close()
	os.Remove(s.path)
	return err
}

// Client is a client for the posecast RPC service.
type Client struct {
	client *netrpc.Client
}

// NewClient dials the Unix socket and returns an RPC client.
func NewClient(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to RPC socket %s: %w", socketPath, err)
	}
	return &Client{client: netrpc.NewClient(conn)}, nil
}

// Close closes the RPC client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// ListObjects fetches the monitor's live objects.
func (c *Client) ListObjects() ([]ObjectInfo, error) {
	args := &ListObjectsArgs{}
	reply := &ListObjectsReply{}
	if err := c.client.Call("Service.ListObjects", args, reply); err != nil {
		return nil, err
	}
	return reply.Objects, nil
}

// ListClouds fetches the monitor's live point clouds.
func (c *Client) ListClouds() ([]CloudInfo, error) {
	args := &ListCloudsArgs{}
	reply := &ListCloudsReply{}
	if err := c.client.Call("Service.ListClouds", args, reply); err != nil {
		return nil, err
	}
	return reply.Clouds, nil
}

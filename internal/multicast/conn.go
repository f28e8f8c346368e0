// Package multicast moves whole messages over an IPv4 multicast group,
// one JSON message per UDP datagram.
package multicast

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"

	"posecast/internal/wire"
)

// MaxDatagramSize is the receive buffer size. Larger datagrams are
// truncated by the kernel and then fail to decode.
const MaxDatagramSize = 65000

var (
	// ErrNotMulticast is returned by Bind when the endpoint address is not
	// in 224.0.0.0/4.
	ErrNotMulticast = errors.New("address is not in the IPv4 multicast range")

	// ErrMalformedPayload is returned by Receive when a datagram does not
	// decode as the requested type.
	ErrMalformedPayload = wire.ErrMalformedPayload
)

// Conn is a socket joined to one multicast group. Send and Write may be
// called concurrently; Receive and ReadRaw must be called from a single
// goroutine.
type Conn struct {
	conn  *net.UDPConn
	group *net.UDPAddr
	buf   []byte
	log   zerolog.Logger
}

// ParseEndpoint parses "a.b.c.d:port" and checks the address is multicast.
func ParseEndpoint(s string) (netip.AddrPort, error) {
	ep, err := netip.ParseAddrPort(s)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("parsing endpoint %q: %w", s, err)
	}
	if err := checkMulticast(ep); err != nil {
		return netip.AddrPort{}, err
	}
	return ep, nil
}

func checkMulticast(ep netip.AddrPort) error {
	addr := ep.Addr().Unmap()
	if !addr.Is4() || !addr.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrNotMulticast, ep)
	}
	return nil
}

// Bind opens a UDP socket on the wildcard address at the endpoint's port,
// with address reuse, joins the group on all multicast interfaces and
// enables loopback so a publisher and a subscriber on one host see each
// other. Reads have no deadline.
func Bind(ep netip.AddrPort, log zerolog.Logger) (*Conn, error) {
	if err := checkMulticast(ep); err != nil {
		return nil, err
	}
	group := net.UDPAddrFromAddrPort(netip.AddrPortFrom(ep.Addr().Unmap(), ep.Port()))

	lc := net.ListenConfig{Control: reuseAddr}
	pconn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", ep.Port()))
	if err != nil {
		return nil, fmt.Errorf("listening on UDP port %d: %w", ep.Port(), err)
	}
	conn := pconn.(*net.UDPConn)

	pc := ipv4.NewPacketConn(conn)
	joined, err := joinAll(pc, group, log)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("joining multicast group %s: %w", group.IP, err)
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling multicast loopback: %w", err)
	}
	if err := conn.SetReadBuffer(MaxDatagramSize * 4); err != nil {
		log.Warn().Err(err).Msg("Failed to set read buffer")
	}

	log.Debug().
		Str("endpoint", ep.String()).
		Int("interfaces", joined).
		Msg("Multicast group joined")

	return &Conn{
		conn:  conn,
		group: group,
		buf:   make([]byte, MaxDatagramSize),
		log:   log,
	}, nil
}

// joinAll joins group on every up, multicast-capable interface. If none
// accepts the join it falls back to the system default interface.
func joinAll(pc *ipv4.PacketConn, group *net.UDPAddr, log zerolog.Logger) (int, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list interfaces, using default")
	}

	joined := 0
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := pc.JoinGroup(iface, group); err != nil {
			log.Debug().Err(err).Str("interface", iface.Name).Msg("Join skipped")
			continue
		}
		joined++
	}
	if joined > 0 {
		return joined, nil
	}
	if err := pc.JoinGroup(nil, group); err != nil {
		return 0, err
	}
	return 1, nil
}

// Endpoint returns the group address and port.
func (c *Conn) Endpoint() netip.AddrPort {
	return c.group.AddrPort()
}

// Send encodes v and writes it to the group as one datagram.
func (c *Conn) Send(v any) error {
	payload, err := wire.Marshal(v)
	if err != nil {
		return err
	}
	return c.Write(payload)
}

// Write sends an already encoded message to the group.
func (c *Conn) Write(payload []byte) error {
	if _, err := c.conn.WriteToUDP(payload, c.group); err != nil {
		return fmt.Errorf("writing %d bytes to %s: %w", len(payload), c.group, err)
	}
	c.log.Trace().
		Str("target", c.group.String()).
		Int("bytes", len(payload)).
		Msg("Datagram sent")
	return nil
}

// Receive blocks until a datagram arrives and decodes it into v. Decode
// failures wrap ErrMalformedPayload.
func (c *Conn) Receive(v any) error {
	n, err := c.read()
	if err != nil {
		return err
	}
	return wire.Unmarshal(c.buf[:n], v)
}

// ReadRaw blocks until a datagram arrives and returns a copy of it.
func (c *Conn) ReadRaw() ([]byte, error) {
	n, err := c.read()
	if err != nil {
		return nil, err
	}
	packet := make([]byte, n)
	copy(packet, c.buf[:n])
	return packet, nil
}

func (c *Conn) read() (int, error) {
	n, src, err := c.conn.ReadFromUDP(c.buf)
	if err != nil {
		return 0, fmt.Errorf("reading from %s: %w", c.group, err)
	}
	c.log.Trace().
		Str("src", src.String()).
		Int("bytes", n).
		Msg("Datagram received")
	return n, nil
}

// Close leaves the group and closes the socket. A blocked Receive returns
// an error wrapping net.ErrClosed.
func (c *Conn) Close() error {
	return c.conn.Close()
}

package multicast

import (
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"posecast/internal/wire"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// bindOrSkip binds a test group, skipping when the host has no multicast
// route (containers, CI sandboxes).
func bindOrSkip(t *testing.T, ep string) *Conn {
	t.Helper()
	c, err := Bind(netip.MustParseAddrPort(ep), testLogger())
	if err != nil {
		t.Skipf("multicast unavailable: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// receiveWithin runs fn on a goroutine and skips the test when nothing
// arrives in time; multicast loopback is not routed everywhere.
func receiveWithin(t *testing.T, c *Conn, d time.Duration, fn func() error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		c.Close()
		<-done
		t.Skip("no loopback datagram received; multicast loopback not routed on this host")
		return nil
	}
}

func TestBind_NotMulticast(t *testing.T) {
	_, err := Bind(netip.MustParseAddrPort("10.0.0.5:7072"), testLogger())
	if !errors.Is(err, ErrNotMulticast) {
		t.Fatalf("expected ErrNotMulticast, got %v", err)
	}
}

func TestBind_RejectsIPv6Multicast(t *testing.T) {
	_, err := Bind(netip.MustParseAddrPort("[ff02::1]:7072"), testLogger())
	if !errors.Is(err, ErrNotMulticast) {
		t.Fatalf("expected ErrNotMulticast, got %v", err)
	}
}

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint("239.0.0.22:7072")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ep.Port() != 7072 {
		t.Errorf("Port: got %d, want 7072", ep.Port())
	}

	if _, err := ParseEndpoint("192.168.1.10:7072"); !errors.Is(err, ErrNotMulticast) {
		t.Errorf("expected ErrNotMulticast for unicast address, got %v", err)
	}
	if _, err := ParseEndpoint("239.0.0.22"); err == nil {
		t.Error("expected error for missing port")
	}
}

func TestConn_LoopbackRoundTrip(t *testing.T) {
	c := bindOrSkip(t, "239.0.0.22:47072")

	u := wire.NewPoseUpdate()
	u.Add("a", wire.Point3{0, 0, 1}).WithColor(wire.Green)
	u.Remove("b")

	if err := c.Send(u); err != nil {
		t.Skipf("multicast send unavailable: %v", err)
	}

	var got wire.PoseUpdate
	if err := receiveWithin(t, c, 2*time.Second, func() error { return c.Receive(&got) }); err != nil {
		t.Fatalf("receive failed: %v", err)
	}

	if len(got.Objects) != 1 || got.Objects[0].ID != "a" {
		t.Fatalf("Objects: got %+v, want one object a", got.Objects)
	}
	if got.Objects[0].Color != wire.Green {
		t.Errorf("Color: got %v, want Green", got.Objects[0].Color)
	}
	if len(got.Delete) != 1 || got.Delete[0] != "b" {
		t.Errorf("Delete: got %v, want [b]", got.Delete)
	}
}

func TestConn_MalformedDatagramDoesNotPoisonStream(t *testing.T) {
	c := bindOrSkip(t, "239.0.0.22:47073")

	if err := c.Write([]byte(`{"id":1,"point":[0,0],"angle":0,"length":1}`)); err != nil {
		t.Skipf("multicast send unavailable: %v", err)
	}
	if err := c.Send(wire.NewPoseUpdate()); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	var u wire.PoseUpdate
	err := receiveWithin(t, c, 2*time.Second, func() error { return c.Receive(&u) })
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for command on pose group, got %v", err)
	}

	err = receiveWithin(t, c, 2*time.Second, func() error { return c.Receive(&u) })
	if err != nil {
		t.Fatalf("expected the following datagram to decode, got %v", err)
	}
}

func TestConn_ReadRaw(t *testing.T) {
	c := bindOrSkip(t, "239.0.0.22:47074")

	payload := []byte(`{"objects":[],"delete":["x"]}`)
	if err := c.Write(payload); err != nil {
		t.Skipf("multicast send unavailable: %v", err)
	}

	var raw []byte
	err := receiveWithin(t, c, 2*time.Second, func() error {
		var err error
		raw, err = c.ReadRaw()
		return err
	})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(raw) != string(payload) {
		t.Errorf("ReadRaw: got %s, want %s", raw, payload)
	}
}

func TestConn_CloseUnblocksReceive(t *testing.T) {
	c := bindOrSkip(t, "239.0.0.22:47075")

	done := make(chan error, 1)
	go func() {
		var u wire.PoseUpdate
		done <- c.Receive(&u)
	}()

	time.Sleep(50 * time.Millisecond)
	c.Close()

	select {
	case err := <-done:
		if !errors.Is(err, net.ErrClosed) {
			t.Errorf("expected net.ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not return after Close")
	}
}

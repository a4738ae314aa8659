package link

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestSession() (*Session, *FakeTransport) {
	ft := NewFakeTransport()
	return NewSession(ft, zap.NewNop()), ft
}

func TestHeader(t *testing.T) {
	if h := Header(PortAutoNav, 0); h != 0xD0 {
		t.Errorf("autonav header = 0x%02x, want 0xD0", h)
	}
	if h := Header(PortCommander, 0); h != 0x30 {
		t.Errorf("commander header = 0x%02x, want 0x30", h)
	}
	if h := Header(PortGenericCommander, 1); h != 0x71 {
		t.Errorf("generic ch1 header = 0x%02x, want 0x71", h)
	}
}

func TestConnectSuccess(t *testing.T) {
	s, ft := newTestSession()
	if err := s.Connect(time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !s.IsHealthy() || s.State() != Connected {
		t.Errorf("state = %v, healthy = %v", s.State(), s.IsHealthy())
	}
	if s.LastVerified().IsZero() {
		t.Error("LastVerified not set")
	}
	if !ft.Opened() {
		t.Error("transport not open after connect")
	}
}

func TestConnectCapturesNavStatus(t *testing.T) {
	s, ft := newTestSession()
	ft.ProbeReply = []byte{0xD0, 0x02, 0xB0, 0x04}
	if err := s.Connect(time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	st, ok := s.LastStatus()
	if !ok || st.State != 2 || st.AltMm != 1200 {
		t.Errorf("LastStatus = %+v, %v", st, ok)
	}
}

func TestConnectUnresponsive(t *testing.T) {
	s, ft := newTestSession()
	ft.ProbeErr = errors.New("timeout waiting for reply")
	err := s.Connect(time.Second)
	if !errors.Is(err, ErrUnresponsive) {
		t.Fatalf("err = %v, want ErrUnresponsive", err)
	}
	if s.State() != Disconnected {
		t.Errorf("state = %v, want Disconnected", s.State())
	}
	if ft.Opened() {
		t.Error("transport left half-open after failed probe")
	}
}

func TestConnectTransportFailure(t *testing.T) {
	s, ft := newTestSession()
	ft.OpenErr = errors.New("no route to host")
	err := s.Connect(time.Second)
	if !errors.Is(err, ErrTransportFailure) {
		t.Fatalf("err = %v, want ErrTransportFailure", err)
	}
	if s.State() != Disconnected {
		t.Errorf("state = %v, want Disconnected", s.State())
	}
}

func TestConnectWhileConnected(t *testing.T) {
	s, _ := newTestSession()
	if err := s.Connect(time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Connect(time.Second); err == nil {
		t.Error("second Connect should fail")
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	s, ft := newTestSession()
	s.Disconnect() // never connected
	if err := s.Connect(time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s.Disconnect()
	s.Disconnect()
	if s.State() != Disconnected || ft.Opened() {
		t.Errorf("state = %v, opened = %v", s.State(), ft.Opened())
	}
}

func TestSendGatedOnHealth(t *testing.T) {
	s, ft := newTestSession()
	s.Send(PortAutoNav, 0, []byte{0x00})
	if len(ft.Frames()) != 0 {
		t.Fatal("send before connect must drop")
	}
	if err := s.Connect(time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s.Send(PortAutoNav, 0, []byte{0x05, 0xB0, 0x04})
	frames := ft.Frames()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	want := []byte{0xD0, 0x05, 0xB0, 0x04}
	if !bytes.Equal(frames[0], want) {
		t.Errorf("frame = % x, want % x", frames[0], want)
	}

	s.Disconnect()
	s.Send(PortAutoNav, 0, []byte{0x00})
	if len(ft.Frames()) != 1 {
		t.Error("send after disconnect must drop")
	}
}

func TestSendFailureMarksFailed(t *testing.T) {
	s, ft := newTestSession()
	downCh := make(chan struct{}, 1)
	s.OnDown(func() { downCh <- struct{}{} })
	if err := s.Connect(time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ft.SendErr = errors.New("network unreachable")
	s.Send(PortAutoNav, 0, []byte{0x00})
	if s.State() != Failed || s.IsHealthy() {
		t.Errorf("state = %v, want Failed", s.State())
	}
	select {
	case <-downCh:
	case <-time.After(2 * time.Second):
		t.Fatal("down callback never fired")
	}
}

func TestDisconnectRunsDownHandlerWhileLive(t *testing.T) {
	s, ft := newTestSession()
	s.OnDown(func() {
		// wind-down traffic sent from the handler must still go out
		s.Send(PortGenericCommander, 0, []byte{0x00})
	})
	if err := s.Connect(time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s.Disconnect()
	frames := ft.Frames()
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{0x70, 0x00}) {
		t.Errorf("frames = % x, want the motor-stop", frames)
	}
}

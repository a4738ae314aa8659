package link

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"GroundLink/internal/autonav"
)

// State is the session lifecycle state.
type State int

// Session states. Transitions move forward through Connecting to Connected;
// Disconnected and Failed are reachable from anywhere.
const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session owns the connection lifecycle to one drone. It gates every send on
// link health: the protocol has no acknowledgement or retry, so a packet
// sent while the link is down is simply dropped and logged. One controller
// owns exactly one Session.
type Session struct {
	mu           sync.Mutex
	tr           Transport
	state        State
	closing      bool
	lastVerified time.Time
	status       *autonav.Status
	onDown       func()
	logger       *zap.Logger
}

// NewSession wraps a transport in an unconnected session.
func NewSession(tr Transport, logger *zap.Logger) *Session {
	return &Session{tr: tr, logger: logger}
}

// OnDown registers fn to run whenever the session leaves Connected. During
// an explicit Disconnect it runs before the transport closes, so final
// wind-down packets still go out; after a detected transport failure it runs
// on its own goroutine with the link already gone.
func (s *Session) OnDown(fn func()) {
	s.mu.Lock()
	s.onDown = fn
	s.mu.Unlock()
}

// Connect opens the transport and verifies the drone is actually responding,
// waiting up to timeout for the liveness probe to come back. On any failure
// the transport is closed and the session returns to Disconnected before the
// error is returned.
func (s *Session) Connect(timeout time.Duration) error {
	s.mu.Lock()
	switch s.state {
	case Connected:
		s.mu.Unlock()
		return errors.New("already connected")
	case Connecting:
		s.mu.Unlock()
		return errors.New("connection attempt already in progress")
	}
	s.state = Connecting
	s.mu.Unlock()

	if err := s.tr.Open(); err != nil {
		s.setState(Disconnected)
		return fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}

	reply, err := s.tr.Probe(timeout)
	if err != nil {
		if cerr := s.tr.Close(); cerr != nil {
			s.logger.Warn("closing transport after failed probe", zap.Error(cerr))
		}
		s.setState(Disconnected)
		return fmt.Errorf("%w: %v", ErrUnresponsive, err)
	}

	s.mu.Lock()
	s.state = Connected
	s.lastVerified = time.Now()
	s.status = nil
	// the firmware often answers the probe with its AutoNav status frame
	if len(reply) > 1 && reply[0] == Header(PortAutoNav, 0) {
		if st, derr := autonav.DecodeStatus(reply[1:]); derr == nil {
			s.status = &st
		}
	}
	s.mu.Unlock()

	s.logger.Info("drone link up", zap.String("endpoint", s.tr.String()))
	return nil
}

// Disconnect tears the session down. It is idempotent and never fails
// observably: close errors are logged, not propagated.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == Disconnected || s.closing {
		s.mu.Unlock()
		return
	}
	s.closing = true
	wasConnected := s.state == Connected
	onDown := s.onDown
	s.mu.Unlock()

	// Run the down handler while the link is still usable: the manual loop's
	// motor-stop must reach the drone before the socket closes.
	if wasConnected && onDown != nil {
		onDown()
	}

	s.mu.Lock()
	s.state = Disconnected
	s.closing = false
	if err := s.tr.Close(); err != nil {
		s.logger.Warn("closing transport", zap.Error(err))
	}
	s.mu.Unlock()
	s.logger.Info("drone link closed")
}

// IsHealthy reports whether commands would currently be sent.
func (s *Session) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Connected
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastVerified returns when the liveness probe last succeeded; zero if the
// session has never connected.
func (s *Session) LastVerified() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastVerified
}

// LastStatus returns the AutoNav status frame captured during the connect
// handshake, if the firmware sent one.
func (s *Session) LastStatus() (autonav.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == nil {
		return autonav.Status{}, false
	}
	return *s.status, true
}

// Endpoint describes the transport endpoint.
func (s *Session) Endpoint() string {
	return s.tr.String()
}

// Send encodes a CRTP packet and forwards it if the session is healthy;
// otherwise the packet is logged and dropped. Sending is fire-and-forget: a
// lost packet has no effect until the next one, and at 100 Hz retrying a
// stale setpoint would be worse than dropping it.
func (s *Session) Send(port, channel uint8, payload []byte) {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		s.logger.Debug("dropping packet, link not connected", zap.Uint8("crtp_port", port))
		return
	}
	tr := s.tr
	s.mu.Unlock()

	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, Header(port, channel))
	frame = append(frame, payload...)
	if err := tr.Send(frame); err != nil {
		s.logger.Warn("send failed, marking link down", zap.Error(err))
		s.markFailed()
	}
}

// markFailed moves a Connected session to Failed after a transport error and
// fires the down handler asynchronously. Asynchronously because the failure
// is usually detected inside a manual-loop tick, and the handler stops that
// same loop synchronously.
func (s *Session) markFailed() {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return
	}
	s.state = Failed
	if err := s.tr.Close(); err != nil {
		s.logger.Warn("closing transport", zap.Error(err))
	}
	onDown := s.onDown
	s.mu.Unlock()

	if onDown != nil {
		go onDown()
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

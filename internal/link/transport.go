// Package link owns the connection to the drone: the transport
// implementations (UDP, serial, in-memory fake) and the Session state
// machine that gates when packets may be sent.
package link

import (
	"errors"
	"time"
)

// CRTP ports used by the ground station. Every packet on the wire is a
// single header byte (port in the high nibble, channel in the low two bits)
// followed by the payload.
const (
	PortCommander        = 0x03 // legacy roll/pitch/yawrate/thrust setpoints
	PortGenericCommander = 0x07 // typed setpoints; only the stop type is used here
	PortAutoNav          = 0x0D // AutoNav commands (CRTP_PORT_PLATFORM)
)

// nullHeader is the CRTP null packet header used as the liveness probe
// during connect; the firmware answers any packet it receives on the link.
const nullHeader = 0xFF

// Header packs a CRTP port and channel into the leading packet byte.
func Header(port, channel uint8) byte {
	return port<<4 | channel&0x03
}

// Connect errors.
var (
	ErrTransportFailure = errors.New("transport failure")
	ErrUnresponsive     = errors.New("drone not responding")
	ErrNotConnected     = errors.New("not connected to drone")
)

// Transport is an opaque packet channel to the drone. Implementations make
// no delivery guarantee; Send is best-effort and unacknowledged.
type Transport interface {
	Open() error
	Close() error
	Send(p []byte) error
	// Probe performs the liveness handshake used only during connect: it
	// sends a null packet and blocks until the peer answers, the timeout
	// expires, or the transport fails. The peer's raw reply is returned.
	Probe(timeout time.Duration) ([]byte, error)
	// String describes the endpoint for logging and status reports.
	String() string
}

package link

import (
	"fmt"
	"time"

	"github.com/dgryski/go-cobs"
	serial "go.bug.st/serial"
)

// frameDelim terminates every COBS-encoded frame on the wire.
const frameDelim = 0x00

// encodeFrame COBS-encodes one packet and appends the delimiter. The encoded
// body is delimiter-free, so the stream can always be re-framed.
func encodeFrame(p []byte) []byte {
	return append(cobs.Encode(p), frameDelim)
}

// deframer re-assembles delimited frames from a byte stream, tolerating
// frames split across reads and empty frames between delimiters.
type deframer struct {
	frame []byte
}

// feed consumes one read's worth of stream bytes. It returns the first
// complete decoded packet, or nil when the chunk ends mid-frame.
func (d *deframer) feed(chunk []byte) ([]byte, error) {
	for _, b := range chunk {
		if b != frameDelim {
			d.frame = append(d.frame, b)
			continue
		}
		if len(d.frame) == 0 {
			continue // empty frame between delimiters
		}
		decoded, err := cobs.Decode(d.frame)
		d.frame = nil
		if err != nil {
			return nil, fmt.Errorf("frame decode: %w", err)
		}
		return decoded, nil
	}
	return nil, nil
}

// SerialTransport talks to the drone through a serial radio bridge. Packets
// are COBS-encoded and zero-delimited so the byte stream can be re-framed.
type SerialTransport struct {
	dev  string
	baud int
	port serial.Port
}

// NewSerialTransport creates an unopened serial transport.
func NewSerialTransport(dev string, baud int) *SerialTransport {
	return &SerialTransport{dev: dev, baud: baud}
}

// Open opens the serial device.
func (t *SerialTransport) Open() error {
	p, err := serial.Open(t.dev, &serial.Mode{BaudRate: t.baud})
	if err != nil {
		return fmt.Errorf("open serial %s: %w", t.dev, err)
	}
	t.port = p
	return nil
}

// Close closes the serial device if open.
func (t *SerialTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// Send writes one COBS-framed packet.
func (t *SerialTransport) Send(p []byte) error {
	if t.port == nil {
		return fmt.Errorf("send on closed serial transport")
	}
	if _, err := t.port.Write(encodeFrame(p)); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// Probe sends a null packet and reads frames until one arrives or the
// timeout expires.
func (t *SerialTransport) Probe(timeout time.Duration) ([]byte, error) {
	if t.port == nil {
		return nil, fmt.Errorf("probe on closed serial transport")
	}
	if err := t.Send([]byte{nullHeader}); err != nil {
		return nil, err
	}
	if err := t.port.SetReadTimeout(100 * time.Millisecond); err != nil {
		return nil, fmt.Errorf("serial read timeout: %w", err)
	}
	deadline := time.Now().Add(timeout)
	var d deframer
	buf := make([]byte, 64)
	for time.Now().Before(deadline) {
		n, err := t.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("serial read: %w", err)
		}
		decoded, err := d.feed(buf[:n])
		if err != nil {
			return nil, fmt.Errorf("serial %w", err)
		}
		if decoded != nil {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("no response within %v", timeout)
}

func (t *SerialTransport) String() string {
	return fmt.Sprintf("serial://%s@%d", t.dev, t.baud)
}

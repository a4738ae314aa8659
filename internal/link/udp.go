package link

import (
	"fmt"
	"net"
	"time"
)

// UDPTransport talks to the drone over Wi-Fi UDP (ESP32 AP mode,
// 192.168.4.1:2390 by default).
type UDPTransport struct {
	host string
	port int
	conn *net.UDPConn
}

// NewUDPTransport creates an unopened UDP transport for host:port.
func NewUDPTransport(host string, port int) *UDPTransport {
	return &UDPTransport{host: host, port: port}
}

// Open resolves and dials the drone address.
func (t *UDPTransport) Open() error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", t.host, t.port))
	if err != nil {
		return fmt.Errorf("resolve %s:%d: %w", t.host, t.port, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("dial %s:%d: %w", t.host, t.port, err)
	}
	t.conn = conn
	return nil
}

// Close closes the socket if open.
func (t *UDPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Send writes one datagram.
func (t *UDPTransport) Send(p []byte) error {
	if t.conn == nil {
		return fmt.Errorf("send on closed udp transport")
	}
	if _, err := t.conn.Write(p); err != nil {
		return fmt.Errorf("udp write: %w", err)
	}
	return nil
}

// Probe sends a null packet and waits up to timeout for any datagram back.
func (t *UDPTransport) Probe(timeout time.Duration) ([]byte, error) {
	if t.conn == nil {
		return nil, fmt.Errorf("probe on closed udp transport")
	}
	if _, err := t.conn.Write([]byte{nullHeader}); err != nil {
		return nil, fmt.Errorf("udp probe write: %w", err)
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("udp probe deadline: %w", err)
	}
	buf := make([]byte, 64)
	n, err := t.conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("no response within %v: %w", timeout, err)
	}
	// clear the deadline so later reads, if any, are not poisoned
	_ = t.conn.SetReadDeadline(time.Time{})
	return buf[:n], nil
}

func (t *UDPTransport) String() string {
	return fmt.Sprintf("udp://%s:%d", t.host, t.port)
}

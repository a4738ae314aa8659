package link

import (
	"sync"
	"time"
)

// FakeTransport is an in-memory Transport that records every sent packet.
// It backs the test suites and the -transport=fake mode used to exercise the
// controller without a drone on the bench.
type FakeTransport struct {
	mu     sync.Mutex
	opened bool
	frames [][]byte

	// Failure injection and canned probe reply, all optional.
	OpenErr    error
	SendErr    error
	ProbeErr   error
	ProbeReply []byte
}

// NewFakeTransport returns a fake whose probe succeeds with an empty reply.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{ProbeReply: []byte{nullHeader}}
}

// Open implements Transport.
func (t *FakeTransport) Open() error {
	if t.OpenErr != nil {
		return t.OpenErr
	}
	t.mu.Lock()
	t.opened = true
	t.mu.Unlock()
	return nil
}

// Close implements Transport.
func (t *FakeTransport) Close() error {
	t.mu.Lock()
	t.opened = false
	t.mu.Unlock()
	return nil
}

// Send records the packet.
func (t *FakeTransport) Send(p []byte) error {
	t.mu.Lock()
	if t.SendErr != nil {
		err := t.SendErr
		t.mu.Unlock()
		return err
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	t.frames = append(t.frames, cp)
	t.mu.Unlock()
	return nil
}

// FailSends makes every subsequent Send fail with err. Unlike assigning
// SendErr directly, it is safe while another goroutine is sending.
func (t *FakeTransport) FailSends(err error) {
	t.mu.Lock()
	t.SendErr = err
	t.mu.Unlock()
}

// Probe returns the canned reply without waiting.
func (t *FakeTransport) Probe(time.Duration) ([]byte, error) {
	if t.ProbeErr != nil {
		return nil, t.ProbeErr
	}
	return t.ProbeReply, nil
}

// Frames returns a copy of everything sent so far.
func (t *FakeTransport) Frames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.frames))
	copy(out, t.frames)
	return out
}

// Reset discards recorded frames.
func (t *FakeTransport) Reset() {
	t.mu.Lock()
	t.frames = nil
	t.mu.Unlock()
}

// Opened reports whether the fake is currently open.
func (t *FakeTransport) Opened() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opened
}

func (t *FakeTransport) String() string { return "fake" }

package autonav

import (
	"encoding/binary"
	"fmt"
)

// Status is the small frame the firmware sends back on the AutoNav port
// after handling a command: current state machine state and the latest
// down-ranger altitude, if any.
type Status struct {
	State uint8
	AltMm uint16
}

// DecodeStatus parses a status frame payload.
func DecodeStatus(b []byte) (Status, error) {
	if len(b) < 3 {
		return Status{}, fmt.Errorf("%w: status needs 3 bytes, got %d", ErrTruncatedPayload, len(b))
	}
	return Status{State: b[0], AltMm: binary.LittleEndian.Uint16(b[1:3])}, nil
}

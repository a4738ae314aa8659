// Package autonav implements the AutoNav command codec: the one-byte opcode
// plus little-endian payload format understood by the drone firmware on CRTP
// port 0x0D channel 0.
package autonav

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Command codes, matching the firmware's autonav_cmd_t. Code 5 is overloaded:
// the firmware uses it both for the pentagon shape (no payload) and for
// set-altitude (2-byte payload) and tells them apart only by packet length.
// The overload is part of the deployed wire format and is kept as-is here.
const (
	codeStop        = 0x00
	codeSetAltitude = 0x05
	codeOverrideOn  = 0x0A
	codeOverrideOff = 0x0B
)

// Decode errors.
var (
	ErrUnknownCode      = errors.New("unknown command code")
	ErrTruncatedPayload = errors.New("truncated command payload")
	// ErrAmbiguousCode is returned for a bare code 5: a zero-length packet
	// cannot be told apart from a pentagon shape command or a set-altitude
	// command that lost its payload.
	ErrAmbiguousCode = errors.New("ambiguous command code 5")
)

// Altitude limits accepted by callers building SetAltitude commands. The
// codec itself encodes any uint16; validation happens before construction.
const (
	MinAltitudeMm = 100
	MaxAltitudeMm = 3000
)

// Shape identifies one of the flight patterns the firmware can fly.
type Shape uint8

// Firmware shape IDs double as command codes 1..5.
const (
	Square Shape = iota + 1
	Rectangle
	Oval
	Triangle
	Pentagon
)

// Valid reports whether s is one of the five firmware shapes.
func (s Shape) Valid() bool {
	return s >= Square && s <= Pentagon
}

func (s Shape) String() string {
	switch s {
	case Square:
		return "square"
	case Rectangle:
		return "rectangle"
	case Oval:
		return "oval"
	case Triangle:
		return "triangle"
	case Pentagon:
		return "pentagon"
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// ParseShape maps a wire/UI shape name to its Shape.
func ParseShape(name string) (Shape, error) {
	for s := Square; s <= Pentagon; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown shape %q", name)
}

// Command is a single AutoNav instruction for the drone.
type Command interface {
	// Bytes returns the wire encoding: opcode followed by the payload.
	Bytes() []byte
}

// Stop halts autonomous flight immediately.
type Stop struct{}

// Bytes implements Command.
func (Stop) Bytes() []byte { return []byte{codeStop} }

// FlyShape starts autonomous flight of the given pattern.
type FlyShape struct {
	Shape Shape
}

// Bytes implements Command.
func (c FlyShape) Bytes() []byte { return []byte{byte(c.Shape)} }

// SetAltitude sets the autonomous target altitude in millimeters.
type SetAltitude struct {
	Mm uint16
}

// Bytes implements Command.
func (c SetAltitude) Bytes() []byte {
	b := make([]byte, 3)
	b[0] = codeSetAltitude
	binary.LittleEndian.PutUint16(b[1:], c.Mm)
	return b
}

// Override toggles manual override: Enable pauses autonomous flight and
// hands motor setpoints to the ground station.
type Override struct {
	Enable bool
}

// Bytes implements Command.
func (c Override) Bytes() []byte {
	if c.Enable {
		return []byte{codeOverrideOn}
	}
	return []byte{codeOverrideOff}
}

// Decode parses a wire packet back into a Command. The ground station only
// sends commands; decoding exists for testing and for tools that inspect
// captured traffic. Trailing bytes after a complete command are ignored,
// mirroring the firmware parser.
func Decode(b []byte) (Command, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty packet", ErrTruncatedPayload)
	}
	code := b[0]
	switch {
	case code == codeStop:
		return Stop{}, nil
	case code >= byte(Square) && code < codeSetAltitude:
		return FlyShape{Shape: Shape(code)}, nil
	case code == codeSetAltitude:
		switch {
		case len(b) == 1:
			return nil, ErrAmbiguousCode
		case len(b) < 3:
			return nil, fmt.Errorf("%w: set-altitude needs 2 payload bytes, got %d", ErrTruncatedPayload, len(b)-1)
		default:
			return SetAltitude{Mm: binary.LittleEndian.Uint16(b[1:3])}, nil
		}
	case code == codeOverrideOn:
		return Override{Enable: true}, nil
	case code == codeOverrideOff:
		return Override{Enable: false}, nil
	}
	return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownCode, code)
}

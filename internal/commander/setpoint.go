// Package commander builds the motor setpoint packets sent while manual
// override is active. The layout matches the Crazyflie-style commander the
// ESP-Drone firmware runs: legacy attitude setpoints on CRTP port 0x03 and
// the generic commander stop on port 0x07.
package commander

import (
	"encoding/binary"
	"math"
)

// Safe ranges for a clamped setpoint.
const (
	MaxAngleDeg    = 30.0  // |roll|, |pitch|
	MaxYawRateDegS = 200.0 // |yawrate|
)

// Setpoint is an instantaneous attitude/thrust demand. It must be refreshed
// continuously (every 10 ms) or the drone cuts motors on its own.
type Setpoint struct {
	Roll    float32 // degrees, positive = right
	Pitch   float32 // degrees, positive = forward
	Yawrate float32 // degrees/second, positive = clockwise
	Thrust  uint16
}

func clampf(v, lo, hi float32) float32 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// Clamp saturates each field to its safe range independently. Thrust already
// spans the full uint16 range the firmware accepts, so it passes through.
func (s Setpoint) Clamp() Setpoint {
	s.Roll = clampf(s.Roll, -MaxAngleDeg, MaxAngleDeg)
	s.Pitch = clampf(s.Pitch, -MaxAngleDeg, MaxAngleDeg)
	s.Yawrate = clampf(s.Yawrate, -MaxYawRateDegS, MaxYawRateDegS)
	return s
}

// Bytes returns the 14-byte legacy setpoint payload: roll, pitch and yawrate
// as little-endian float32 followed by thrust as little-endian uint16.
func (s Setpoint) Bytes() []byte {
	b := make([]byte, 14)
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(s.Roll))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(s.Pitch))
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(s.Yawrate))
	binary.LittleEndian.PutUint16(b[12:14], s.Thrust)
	return b
}

// StopBytes returns the generic-commander stop payload. This is the
// firmware's "cut motors now" packet, distinct from a zero-thrust setpoint
// which keeps the stabilizer armed.
func StopBytes() []byte {
	return []byte{0x00}
}

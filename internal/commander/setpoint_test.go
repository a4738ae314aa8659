package commander

import (
	"bytes"
	"testing"
)

func TestClampRanges(t *testing.T) {
	cases := []struct {
		name string
		in   Setpoint
		want Setpoint
	}{
		{"in range", Setpoint{Roll: 15, Pitch: -15, Yawrate: 100, Thrust: 32000}, Setpoint{Roll: 15, Pitch: -15, Yawrate: 100, Thrust: 32000}},
		{"roll high", Setpoint{Roll: 99}, Setpoint{Roll: 30}},
		{"roll low", Setpoint{Roll: -99}, Setpoint{Roll: -30}},
		{"pitch high", Setpoint{Pitch: 31}, Setpoint{Pitch: 30}},
		{"pitch low", Setpoint{Pitch: -31}, Setpoint{Pitch: -30}},
		{"yawrate high", Setpoint{Yawrate: 999}, Setpoint{Yawrate: 200}},
		{"yawrate low", Setpoint{Yawrate: -999}, Setpoint{Yawrate: -200}},
		{"all out", Setpoint{Roll: 1000, Pitch: -1000, Yawrate: 500, Thrust: 65535}, Setpoint{Roll: 30, Pitch: -30, Yawrate: 200, Thrust: 65535}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Clamp(); got != tc.want {
				t.Errorf("Clamp(%+v) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestClampIdempotent(t *testing.T) {
	inputs := []Setpoint{
		{},
		{Roll: 12.5, Pitch: -3, Yawrate: 42, Thrust: 40000},
		{Roll: 300, Pitch: -300, Yawrate: 3000, Thrust: 1},
		{Roll: -30, Pitch: 30, Yawrate: -200, Thrust: 65535},
	}
	for _, in := range inputs {
		once := in.Clamp()
		if twice := once.Clamp(); twice != once {
			t.Errorf("clamp not idempotent for %+v: %+v != %+v", in, twice, once)
		}
		if once.Roll < -MaxAngleDeg || once.Roll > MaxAngleDeg ||
			once.Pitch < -MaxAngleDeg || once.Pitch > MaxAngleDeg ||
			once.Yawrate < -MaxYawRateDegS || once.Yawrate > MaxYawRateDegS {
			t.Errorf("clamp result out of range: %+v", once)
		}
	}
}

func TestSetpointBytes(t *testing.T) {
	sp := Setpoint{Roll: 15, Pitch: -15, Yawrate: 100, Thrust: 32000}
	want := []byte{
		0x00, 0x00, 0x70, 0x41, // 15.0
		0x00, 0x00, 0x70, 0xC1, // -15.0
		0x00, 0x00, 0xC8, 0x42, // 100.0
		0x00, 0x7D, // 32000
	}
	if got := sp.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("Bytes() = % x, want % x", got, want)
	}
}

func TestZeroSetpointBytes(t *testing.T) {
	if got := (Setpoint{}).Bytes(); !bytes.Equal(got, make([]byte, 14)) {
		t.Errorf("zero setpoint = % x", got)
	}
}

func TestStopBytes(t *testing.T) {
	if got := StopBytes(); !bytes.Equal(got, []byte{0x00}) {
		t.Errorf("StopBytes() = % x", got)
	}
}

// Package manual implements the fixed-rate manual control loop: while
// active it samples the pressed-input set every 10 ms, derives a clamped
// setpoint and pushes it through the link session. The drone fails safe if
// setpoints stop arriving, so the loop must keep publishing or shut down
// explicitly with a motor-stop.
package manual

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"GroundLink/internal/autonav"
	"GroundLink/internal/commander"
	"GroundLink/internal/link"
	"GroundLink/internal/model"
)

// ErrActive is returned by Begin while the loop is already running.
var ErrActive = errors.New("manual control already active")

// Input is one of the symbolic pilot inputs the loop samples.
type Input uint8

// Pilot inputs. Opposing pairs cancel when held together.
const (
	Forward Input = iota
	Backward
	Left
	Right
	YawLeft
	YawRight
	ThrustUp
	ThrustDown
	Reset
)

var inputNames = map[string]Input{
	"forward":     Forward,
	"backward":    Backward,
	"left":        Left,
	"right":       Right,
	"yaw_left":    YawLeft,
	"yaw_right":   YawRight,
	"thrust_up":   ThrustUp,
	"thrust_down": ThrustDown,
	"reset":       Reset,
}

// ParseInput maps a wire input name to its Input symbol.
func ParseInput(name string) (Input, error) {
	in, ok := inputNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown input %q", name)
	}
	return in, nil
}

// Params tunes the loop. Values come from the manual section of the config.
type Params struct {
	HoverThrust  uint16
	ThrustStep   uint16
	MaxAngle     float32
	MaxYawRate   float32
	TickInterval time.Duration
}

// ParamsFromConfig builds loop parameters from a validated config.
func ParamsFromConfig(cfg *model.Config) Params {
	return Params{
		HoverThrust:  uint16(cfg.Manual.HoverThrust),
		ThrustStep:   uint16(cfg.Manual.ThrustStep),
		MaxAngle:     cfg.Manual.MaxAngleDeg,
		MaxYawRate:   cfg.Manual.MaxYawRateDegS,
		TickInterval: cfg.TickInterval(),
	}
}

// Loop is the manual control state machine: Idle until Begin, Running until
// End. At most one tick is in flight at a time and End cancels the pending
// tick synchronously.
type Loop struct {
	session *link.Session
	params  Params
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	pressed map[Input]bool
	thrust  uint16
	stop    chan struct{}
	done    chan struct{}
}

// NewLoop creates an idle loop bound to a session.
func NewLoop(session *link.Session, params Params, logger *zap.Logger) *Loop {
	return &Loop{session: session, params: params, logger: logger}
}

// Running reports whether the loop is currently publishing setpoints.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Thrust returns the current stepped thrust value (hover baseline when idle).
func (l *Loop) Thrust() uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return l.params.HoverThrust
	}
	return l.thrust
}

// KeyDown records a pressed input. Ignored while idle.
func (l *Loop) KeyDown(in Input) {
	l.mu.Lock()
	if l.running {
		l.pressed[in] = true
	}
	l.mu.Unlock()
}

// KeyUp records a released input. Ignored while idle.
func (l *Loop) KeyUp(in Input) {
	l.mu.Lock()
	if l.running {
		delete(l.pressed, in)
	}
	l.mu.Unlock()
}

// Begin switches the drone into manual override and starts the setpoint
// ticker. Valid only from Idle with a healthy session; on success the first
// tick fires immediately.
func (l *Loop) Begin() error {
	if !l.session.IsHealthy() {
		return link.ErrNotConnected
	}
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrActive
	}
	l.running = true
	l.pressed = make(map[Input]bool)
	l.thrust = l.params.HoverThrust
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	stop, done := l.stop, l.done
	l.mu.Unlock()

	l.session.Send(link.PortAutoNav, 0, autonav.Override{Enable: true}.Bytes())
	l.logger.Info("manual control started", zap.Uint16("hover_thrust", l.params.HoverThrust))

	go l.run(stop, done)
	return nil
}

// End stops the ticker, cuts the motors and returns control authority to
// autonomous flight. Valid from Running; a no-op otherwise. No tick fires
// after End returns.
func (l *Loop) End() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.pressed = nil
	stop, done := l.stop, l.done
	l.mu.Unlock()

	close(stop)
	<-done

	// Motor-stop first: authority handover must never leave the props
	// spinning on a stale setpoint.
	l.session.Send(link.PortGenericCommander, 0, commander.StopBytes())
	l.session.Send(link.PortAutoNav, 0, autonav.Override{Enable: false}.Bytes())
	l.logger.Info("manual control ended")
}

func (l *Loop) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.params.TickInterval)
	defer ticker.Stop()

	l.tick()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// a late tick just runs late; ticks are never coalesced into
			// a burst of stale setpoints
			l.tick()
		}
	}
}

// tick samples the pressed-input set, updates thrust and publishes one
// clamped setpoint.
func (l *Loop) tick() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	sp := l.derive()
	l.mu.Unlock()

	l.session.Send(link.PortCommander, 0, sp.Clamp().Bytes())
}

// derive computes the setpoint for the current input state. Caller holds mu.
func (l *Loop) derive() commander.Setpoint {
	var sp commander.Setpoint

	// opposing keys held together cancel to zero on that axis
	if l.pressed[Left] && !l.pressed[Right] {
		sp.Roll = -l.params.MaxAngle
	}
	if l.pressed[Right] && !l.pressed[Left] {
		sp.Roll = l.params.MaxAngle
	}
	if l.pressed[Forward] && !l.pressed[Backward] {
		sp.Pitch = l.params.MaxAngle
	}
	if l.pressed[Backward] && !l.pressed[Forward] {
		sp.Pitch = -l.params.MaxAngle
	}
	if l.pressed[YawLeft] && !l.pressed[YawRight] {
		sp.Yawrate = -l.params.MaxYawRate
	}
	if l.pressed[YawRight] && !l.pressed[YawLeft] {
		sp.Yawrate = l.params.MaxYawRate
	}

	// thrust integrates while held, pinned to the manual band
	if l.pressed[ThrustUp] && !l.pressed[ThrustDown] {
		t := int(l.thrust) + int(l.params.ThrustStep)
		if t > model.ManualThrustMax {
			t = model.ManualThrustMax
		}
		l.thrust = uint16(t)
	}
	if l.pressed[ThrustDown] && !l.pressed[ThrustUp] {
		t := int(l.thrust) - int(l.params.ThrustStep)
		if t < model.ManualThrustMin {
			t = model.ManualThrustMin
		}
		l.thrust = uint16(t)
	}

	if l.pressed[Reset] {
		sp.Roll, sp.Pitch, sp.Yawrate = 0, 0, 0
		l.thrust = l.params.HoverThrust
	}

	sp.Thrust = l.thrust
	return sp
}

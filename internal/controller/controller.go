// Package controller composes the link session, the manual control loop and
// intent validation into the facade the gateway (or any other front end)
// drives. Every externally supplied value is validated here before a
// command is built; invalid input never reaches the codec or the wire.
package controller

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"GroundLink/internal/autonav"
	"GroundLink/internal/link"
	"GroundLink/internal/manual"
	"GroundLink/internal/model"
)

// Validation errors surfaced to callers before any network effect.
var (
	ErrOutOfRange          = errors.New("value out of range")
	ErrInvalidShape        = errors.New("unknown flight shape")
	ErrManualControlActive = errors.New("manual control active")
	// Link sentinels re-exported so callers only need one error set.
	ErrNotConnected     = link.ErrNotConnected
	ErrTransportFailure = link.ErrTransportFailure
	ErrUnresponsive     = link.ErrUnresponsive
)

// Controller is the facade over one drone session. One instance manages
// exactly one vehicle.
type Controller struct {
	cfg     *model.Config
	session *link.Session
	loop    *manual.Loop
	logger  *zap.Logger
}

// New wires a controller around the given transport.
func New(cfg *model.Config, tr link.Transport, logger *zap.Logger) *Controller {
	session := link.NewSession(tr, logger.Named("link"))
	c := &Controller{
		cfg:     cfg,
		session: session,
		loop:    manual.NewLoop(session, manual.ParamsFromConfig(cfg), logger.Named("manual")),
		logger:  logger,
	}
	session.OnDown(c.handleLinkDown)
	return c
}

// handleLinkDown forces manual control off whenever the session leaves
// Connected. Disconnection always wins over manual flight.
func (c *Controller) handleLinkDown() {
	if c.loop.Running() {
		c.logger.Warn("link went down during manual control, forcing manual off")
		c.loop.End()
	}
}

// Connect brings the drone link up, verifying liveness within the
// configured timeout.
func (c *Controller) Connect() error {
	return c.session.Connect(c.cfg.ConnectTimeout())
}

// Disconnect winds down manual control if active, then closes the link.
// Idempotent.
func (c *Controller) Disconnect() {
	c.session.Disconnect()
}

// Connected reports link health.
func (c *Controller) Connected() bool {
	return c.session.IsHealthy()
}

// Fly starts autonomous flight of a shape. Rejected while manual control is
// running: pattern flight and direct setpoints must never overlap.
func (c *Controller) Fly(shape autonav.Shape) error {
	if !shape.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidShape, shape)
	}
	if c.loop.Running() {
		return fmt.Errorf("%w: stop manual control before flying a pattern", ErrManualControlActive)
	}
	if !c.session.IsHealthy() {
		return ErrNotConnected
	}
	c.logger.Info("starting pattern flight", zap.Stringer("shape", shape))
	c.session.Send(link.PortAutoNav, 0, autonav.FlyShape{Shape: shape}.Bytes())
	return nil
}

// Stop sends the emergency stop. Allowed in any mode, including during
// manual control.
func (c *Controller) Stop() error {
	if !c.session.IsHealthy() {
		return ErrNotConnected
	}
	c.logger.Warn("sending emergency stop")
	c.session.Send(link.PortAutoNav, 0, autonav.Stop{}.Bytes())
	return nil
}

// SetAltitude sets the autonomous target altitude in millimeters, range
// [100,3000].
func (c *Controller) SetAltitude(mm int) error {
	if mm < autonav.MinAltitudeMm || mm > autonav.MaxAltitudeMm {
		return fmt.Errorf("%w: altitude %dmm outside [%d,%d]", ErrOutOfRange, mm, autonav.MinAltitudeMm, autonav.MaxAltitudeMm)
	}
	if !c.session.IsHealthy() {
		return ErrNotConnected
	}
	c.logger.Info("setting target altitude", zap.Int("altitude_mm", mm))
	c.session.Send(link.PortAutoNav, 0, autonav.SetAltitude{Mm: uint16(mm)}.Bytes())
	return nil
}

// SetOverride toggles the manual override flag without starting the control
// loop. BeginManual/EndManual manage the flag themselves; this exists for
// front ends that drive their own setpoint source.
func (c *Controller) SetOverride(enable bool) error {
	if c.loop.Running() {
		return fmt.Errorf("%w: override is managed by the control loop", ErrManualControlActive)
	}
	if !c.session.IsHealthy() {
		return ErrNotConnected
	}
	c.session.Send(link.PortAutoNav, 0, autonav.Override{Enable: enable}.Bytes())
	return nil
}

// BeginManual enters keyboard manual control.
func (c *Controller) BeginManual() error {
	if err := c.loop.Begin(); err != nil {
		if errors.Is(err, manual.ErrActive) {
			return fmt.Errorf("%w: already running", ErrManualControlActive)
		}
		return err
	}
	return nil
}

// EndManual leaves manual control, cutting motors first. No-op when idle.
func (c *Controller) EndManual() {
	c.loop.End()
}

// ManualActive reports whether the control loop is running.
func (c *Controller) ManualActive() bool {
	return c.loop.Running()
}

// KeyDown forwards a key-down event to the control loop.
func (c *Controller) KeyDown(in manual.Input) {
	c.loop.KeyDown(in)
}

// KeyUp forwards a key-up event to the control loop.
func (c *Controller) KeyUp(in manual.Input) {
	c.loop.KeyUp(in)
}

// Status snapshots the controller for the gateway.
func (c *Controller) Status() model.Status {
	st := model.Status{
		LinkState:    c.session.State().String(),
		Endpoint:     c.session.Endpoint(),
		ManualActive: c.loop.Running(),
		Thrust:       c.loop.Thrust(),
	}
	if nav, ok := c.session.LastStatus(); ok {
		st.NavState = nav.State
		st.NavAltMm = nav.AltMm
	}
	return st
}

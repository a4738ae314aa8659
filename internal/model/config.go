// Package model defines shared configuration structures and the JSON
// messages exchanged with intent gateway clients.
package model

import (
	"fmt"
	"time"
)

// Config represents the root structure loaded from config.yml.
type Config struct {
	Link    LinkConfig    `yaml:"link"`
	Manual  ManualConfig  `yaml:"manual"`
	Gateway GatewayConfig `yaml:"gateway"`
}

// LinkConfig describes how to reach the drone.
type LinkConfig struct {
	Host             string `yaml:"host" env:"GROUNDLINK_DRONE_HOST"` // drone IP (ESP32 AP mode default 192.168.4.1)
	Port             int    `yaml:"port" env:"GROUNDLINK_DRONE_PORT"`
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
	SerialDevice     string `yaml:"serial_device" env:"GROUNDLINK_SERIAL"` // only used with the serial transport
	SerialBaud       int    `yaml:"serial_baud"`
}

// ManualConfig tunes the 100 Hz manual control loop.
type ManualConfig struct {
	HoverThrust    int     `yaml:"hover_thrust"`      // approximate hover thrust
	ThrustStep     int     `yaml:"thrust_step"`       // thrust adjustment per tick while a thrust key is held
	MaxAngleDeg    float32 `yaml:"max_angle_deg"`     // commanded roll/pitch while a key is held
	MaxYawRateDegS float32 `yaml:"max_yawrate_deg_s"` // commanded yaw rate while a key is held
	TickIntervalMs int     `yaml:"tick_interval_ms"`
}

// GatewayConfig defines the HTTP/websocket intent gateway.
type GatewayConfig struct {
	Addr string `yaml:"addr" env:"GROUNDLINK_BIND"`
}

// Manual loop limits. Thrust is kept well inside the raw uint16 range so the
// stepped value never idles at motor cut-off or full power.
const (
	ManualThrustMin = 10001
	ManualThrustMax = 60000
)

// ApplyDefaults fills absent fields with the stock ESP-Drone values.
func (c *Config) ApplyDefaults() {
	if c.Link.Host == "" {
		c.Link.Host = "192.168.4.1"
	}
	if c.Link.Port == 0 {
		c.Link.Port = 2390
	}
	if c.Link.ConnectTimeoutMs == 0 {
		c.Link.ConnectTimeoutMs = 5000
	}
	if c.Link.SerialBaud == 0 {
		c.Link.SerialBaud = 115200
	}
	if c.Manual.HoverThrust == 0 {
		c.Manual.HoverThrust = 32000
	}
	if c.Manual.ThrustStep == 0 {
		c.Manual.ThrustStep = 2000
	}
	if c.Manual.MaxAngleDeg == 0 {
		c.Manual.MaxAngleDeg = 15.0
	}
	if c.Manual.MaxYawRateDegS == 0 {
		c.Manual.MaxYawRateDegS = 100.0
	}
	if c.Manual.TickIntervalMs == 0 {
		c.Manual.TickIntervalMs = 10
	}
	if c.Gateway.Addr == "" {
		c.Gateway.Addr = ":8090"
	}
}

// Validate rejects manual-control tuning that falls outside the setpoint
// ranges the drone accepts.
func (c *Config) Validate() error {
	if c.Manual.HoverThrust < ManualThrustMin || c.Manual.HoverThrust > ManualThrustMax {
		return fmt.Errorf("manual.hover_thrust %d outside [%d,%d]", c.Manual.HoverThrust, ManualThrustMin, ManualThrustMax)
	}
	if c.Manual.ThrustStep <= 0 || c.Manual.ThrustStep > ManualThrustMax-ManualThrustMin {
		return fmt.Errorf("manual.thrust_step %d outside [1,%d]", c.Manual.ThrustStep, ManualThrustMax-ManualThrustMin)
	}
	if c.Manual.MaxAngleDeg <= 0 || c.Manual.MaxAngleDeg > 30 {
		return fmt.Errorf("manual.max_angle_deg %.1f outside (0,30]", c.Manual.MaxAngleDeg)
	}
	if c.Manual.MaxYawRateDegS <= 0 || c.Manual.MaxYawRateDegS > 200 {
		return fmt.Errorf("manual.max_yawrate_deg_s %.1f outside (0,200]", c.Manual.MaxYawRateDegS)
	}
	if c.Manual.TickIntervalMs <= 0 {
		return fmt.Errorf("manual.tick_interval_ms must be positive, got %d", c.Manual.TickIntervalMs)
	}
	if c.Link.Port <= 0 || c.Link.Port > 65535 {
		return fmt.Errorf("link.port %d outside [1,65535]", c.Link.Port)
	}
	return nil
}

// ConnectTimeout returns the configured connect timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Link.ConnectTimeoutMs) * time.Millisecond
}

// TickInterval returns the manual loop period as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Manual.TickIntervalMs) * time.Millisecond
}

package controller

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Link.Host != "192.168.4.1" || cfg.Link.Port != 2390 {
		t.Errorf("link defaults = %+v", cfg.Link)
	}
	if cfg.Manual.HoverThrust != 32000 || cfg.Manual.TickIntervalMs != 10 {
		t.Errorf("manual defaults = %+v", cfg.Manual)
	}
	if cfg.Gateway.Addr != ":8090" {
		t.Errorf("gateway default = %+v", cfg.Gateway)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
link:
  host: 10.1.2.3
  port: 3000
manual:
  hover_thrust: 30000
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Link.Host != "10.1.2.3" || cfg.Link.Port != 3000 {
		t.Errorf("link = %+v", cfg.Link)
	}
	if cfg.Manual.HoverThrust != 30000 {
		t.Errorf("hover thrust = %d", cfg.Manual.HoverThrust)
	}
	// absent fields still default
	if cfg.Manual.ThrustStep != 2000 {
		t.Errorf("thrust step = %d", cfg.Manual.ThrustStep)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("GROUNDLINK_DRONE_HOST", "172.16.0.9")
	t.Setenv("GROUNDLINK_BIND", ":9999")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Link.Host != "172.16.0.9" {
		t.Errorf("host = %s", cfg.Link.Host)
	}
	if cfg.Gateway.Addr != ":9999" {
		t.Errorf("gateway addr = %s", cfg.Gateway.Addr)
	}
}

func TestLoadConfigRejectsBadTuning(t *testing.T) {
	cases := []struct {
		name, body string
	}{
		{"hover thrust below band", "manual:\n  hover_thrust: 5\n"},
		{"hover thrust above band", "manual:\n  hover_thrust: 65000\n"},
		{"thrust step beyond band", "manual:\n  thrust_step: 70000\n"},
		{"angle beyond clamp", "manual:\n  max_angle_deg: 45\n"},
		{"yawrate beyond clamp", "manual:\n  max_yawrate_deg_s: 500\n"},
		{"negative tick", "manual:\n  tick_interval_ms: -1\n"},
		{"bad port", "link:\n  port: 70000\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rover_config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.MotorCount != 4 {
		t.Errorf("motor count = %d, want 4", cfg.MotorCount)
	}
	if cfg.WatchdogTimeout != 1.0 {
		t.Errorf("watchdog timeout = %g, want 1.0", cfg.WatchdogTimeout)
	}
	if cfg.AttitudeRate != 50.0 || cfg.BatteryRate != 1.0 {
		t.Errorf("rates = %g/%g, want 50/1", cfg.AttitudeRate, cfg.BatteryRate)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9000"
watchdog_timeout: 0.5
battery_rate: 2.0
mqtt_broker: "tcp://localhost:1883"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("listen_addr = %q, want :9000", cfg.ListenAddr)
	}
	if cfg.WatchdogTimeout != 0.5 {
		t.Errorf("watchdog_timeout = %g, want 0.5", cfg.WatchdogTimeout)
	}
	if cfg.BatteryRate != 2.0 {
		t.Errorf("battery_rate = %g, want 2.0", cfg.BatteryRate)
	}
	// Untouched keys keep their defaults.
	if cfg.MotorCount != 4 {
		t.Errorf("motor_count = %d, want default 4", cfg.MotorCount)
	}
	if cfg.ServoDefaultPulse != 1500 {
		t.Errorf("servo_default_pulse = %d, want default 1500", cfg.ServoDefaultPulse)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{"zero watchdog", "watchdog_timeout: 0", "watchdog_timeout"},
		{"negative rate", "attitude_rate: -1", "attitude_rate"},
		{"oversized max speed", "max_motor_speed: 2.0", "max_motor_speed"},
		{"empty servo range", "servo_min_pulse: 2500\nservo_max_pulse: 500", "servo pulse range"},
		{"default pulse outside range", "servo_default_pulse: 9000", "servo_default_pulse"},
		{"not yaml", "{{{", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("Load error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestWatchdogDuration(t *testing.T) {
	cfg := Default()
	cfg.WatchdogTimeout = 0.25
	if got := cfg.WatchdogDuration().Milliseconds(); got != 250 {
		t.Errorf("WatchdogDuration() = %dms, want 250ms", got)
	}
}

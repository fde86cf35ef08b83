// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all server configuration values.
type Config struct {
	// Network
	ListenAddr string `yaml:"listen_addr"`

	// Motors
	MotorCount    int     `yaml:"motor_count"`
	MaxMotorSpeed float64 `yaml:"max_motor_speed"`

	// Watchdog: seconds without an accepted motion command before the
	// motors are forced to a stop.
	WatchdogTimeout float64 `yaml:"watchdog_timeout"`

	// Telemetry rates (Hz)
	AttitudeRate      float64 `yaml:"attitude_rate"`
	EncoderRate       float64 `yaml:"encoder_rate"`
	BatteryRate       float64 `yaml:"battery_rate"`
	SystemMetricsRate float64 `yaml:"system_metrics_rate"`

	// Servos
	ServoCount        int `yaml:"servo_count"`
	ServoMinPulse     int `yaml:"servo_min_pulse"`
	ServoMaxPulse     int `yaml:"servo_max_pulse"`
	ServoDefaultPulse int `yaml:"servo_default_pulse"`

	// Attitude sensor (MPU9250 over SPI)
	IMUSPIDevice string `yaml:"imu_spi_device"`
	IMUCSPin     string `yaml:"imu_cs_pin"`

	// MQTT telemetry bridge. An empty broker disables the bridge.
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTClientID string `yaml:"mqtt_client_id"`
	MQTTTopic    string `yaml:"mqtt_topic"`
}

// Default returns the configuration used when no file overrides a value.
// The rates and safety limits match the rover's tested envelope.
func Default() *Config {
	return &Config{
		ListenAddr:        ":8000",
		MotorCount:        4,
		MaxMotorSpeed:     1.0,
		WatchdogTimeout:   1.0,
		AttitudeRate:      50.0,
		EncoderRate:       50.0,
		BatteryRate:       1.0,
		SystemMetricsRate: 1.0,
		ServoCount:        8,
		ServoMinPulse:     500,
		ServoMaxPulse:     2500,
		ServoDefaultPulse: 1500,
		IMUSPIDevice:      "/dev/spidev0.0",
		IMUCSPin:          "18",
		MQTTClientID:      "rover-telemetry-bridge",
		MQTTTopic:         "rover/telemetry",
	}
}

// Load reads the configuration file and merges it over the defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that all values are inside their safe ranges.
func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.MotorCount < 1 {
		return fmt.Errorf("motor_count must be at least 1, got %d", c.MotorCount)
	}
	if c.MaxMotorSpeed <= 0 || c.MaxMotorSpeed > 1.0 {
		return fmt.Errorf("max_motor_speed must be in (0, 1.0], got %g", c.MaxMotorSpeed)
	}
	if c.WatchdogTimeout <= 0 {
		return fmt.Errorf("watchdog_timeout must be positive, got %g", c.WatchdogTimeout)
	}
	for name, rate := range map[string]float64{
		"attitude_rate":       c.AttitudeRate,
		"encoder_rate":        c.EncoderRate,
		"battery_rate":        c.BatteryRate,
		"system_metrics_rate": c.SystemMetricsRate,
	} {
		if rate <= 0 {
			return fmt.Errorf("%s must be positive, got %g", name, rate)
		}
	}
	if c.ServoCount < 0 {
		return fmt.Errorf("servo_count must not be negative, got %d", c.ServoCount)
	}
	if c.ServoMinPulse >= c.ServoMaxPulse {
		return fmt.Errorf("servo pulse range [%d, %d] is empty", c.ServoMinPulse, c.ServoMaxPulse)
	}
	if c.ServoDefaultPulse < c.ServoMinPulse || c.ServoDefaultPulse > c.ServoMaxPulse {
		return fmt.Errorf("servo_default_pulse %d outside [%d, %d]",
			c.ServoDefaultPulse, c.ServoMinPulse, c.ServoMaxPulse)
	}
	return nil
}

// WatchdogDuration returns the watchdog timeout as a time.Duration.
func (c *Config) WatchdogDuration() time.Duration {
	return time.Duration(c.WatchdogTimeout * float64(time.Second))
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot access it directly.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock for initialization,
//     read lock for Get() allows multiple concurrent readers.
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// InitGlobal initializes the global configuration from file. A missing file is
// not an error: the defaults cover a stock BeagleBone Blue.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
			globalConfig = Default()
			return
		}
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

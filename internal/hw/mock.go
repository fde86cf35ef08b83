// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hw

import (
	"fmt"
	"math"
	"sync"
	"time"
)

var _ Interface = (*Mock)(nil)

// Mock implements Interface without hardware. It records every call so tests
// can assert on the exact driver traffic, and generates smooth changing sensor
// values so a dev server produces plausible telemetry.
type Mock struct {
	maxSpeed   float64
	minPulse   int
	maxPulse   int
	motorCount int

	start time.Time

	mu          sync.Mutex
	Motors      map[int]float64
	Servos      map[int]int
	SetCalls    []string // "set 1 0.500", "brake 2", "free 3"
	ServoWrites []string // "servo 3 1500"
	encoderBase map[int]int

	// Failure injection for tests.
	FailSetMotor map[int]bool
	FailEncoder  bool
	FailBattery  bool
	FailAttitude bool
	Closed       bool
}

// NewMock builds a mock sized for the given motor/servo limits.
func NewMock(motorCount int, maxSpeed float64, minPulse, maxPulse int) *Mock {
	return &Mock{
		maxSpeed:     maxSpeed,
		minPulse:     minPulse,
		maxPulse:     maxPulse,
		motorCount:   motorCount,
		start:        time.Now(),
		Motors:       make(map[int]float64),
		Servos:       make(map[int]int),
		encoderBase:  make(map[int]int),
		FailSetMotor: make(map[int]bool),
	}
}

func (m *Mock) SetMotor(id int, speed float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || id > m.motorCount {
		return false
	}
	if m.FailSetMotor[id] {
		return false
	}
	speed = clampSpeed(speed, m.maxSpeed)
	m.Motors[id] = speed
	m.SetCalls = append(m.SetCalls, fmt.Sprintf("set %d %.3f", id, speed))
	return true
}

func (m *Mock) BrakeMotor(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || id > m.motorCount {
		return false
	}
	m.Motors[id] = 0
	m.SetCalls = append(m.SetCalls, fmt.Sprintf("brake %d", id))
	return true
}

func (m *Mock) FreeSpinMotor(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || id > m.motorCount {
		return false
	}
	m.Motors[id] = 0
	m.SetCalls = append(m.SetCalls, fmt.Sprintf("free %d", id))
	return true
}

func (m *Mock) ReadEncoder(id int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailEncoder || id < 1 || id > m.motorCount {
		return 0, false
	}
	// Counts advance with elapsed time scaled by the last commanded speed.
	elapsed := time.Since(m.start).Seconds()
	return m.encoderBase[id] + int(elapsed*1000*m.Motors[id]), true
}

func (m *Mock) ReadBatteryVoltage() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailBattery {
		return 0, false
	}
	// A 3S pack sagging very slowly.
	return 12.6 - time.Since(m.start).Seconds()/3600.0, true
}

func (m *Mock) SetServo(channel, pulseUS int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel < 1 {
		return false
	}
	if pulseUS < m.minPulse {
		pulseUS = m.minPulse
	}
	if pulseUS > m.maxPulse {
		pulseUS = m.maxPulse
	}
	m.Servos[channel] = pulseUS
	m.ServoWrites = append(m.ServoWrites, fmt.Sprintf("servo %d %d", channel, pulseUS))
	return true
}

func (m *Mock) ReadAttitude() (Attitude, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAttitude {
		return Attitude{}, fmt.Errorf("mock attitude read failure")
	}
	elapsed := time.Since(m.start).Seconds()
	return Attitude{
		Accel:   Vector3{X: 0.2 * math.Sin(elapsed), Y: 0.2 * math.Cos(elapsed*0.7), Z: 9.81},
		Gyro:    Vector3{X: 2 * math.Sin(elapsed*1.3), Y: 2 * math.Cos(elapsed), Z: 0.5},
		Mag:     Vector3{X: 20 + math.Sin(elapsed), Y: -5, Z: 42},
		Temp:    32.5,
		Heading: math.Mod(elapsed*10, 360),
	}, nil
}

func (m *Mock) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
}

// Speeds returns a copy of the current motor duties.
func (m *Mock) Speeds() map[int]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]float64, len(m.Motors))
	for id, s := range m.Motors {
		out[id] = s
	}
	return out
}

// Calls returns a copy of the recorded driver traffic.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.SetCalls...)
}

// ServoLog returns a copy of the recorded servo pulse writes.
func (m *Mock) ServoLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ServoWrites...)
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motion owns the rover's motor state. Every speed change from any
// connection, and the watchdog's forced stop, is serialized through one
// Controller so the non-reentrant motor driver is never entered concurrently.
package motion

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/rover_computer/internal/config"
	"github.com/relabs-tech/rover_computer/internal/hw"
)

var (
	// ErrInvalidMotor rejects a motor id outside [1, motor_count].
	ErrInvalidMotor = errors.New("invalid motor id")

	// ErrEmergencyStop rejects motion commands while the emergency stop is
	// active.
	ErrEmergencyStop = errors.New("emergency stop active")

	// ErrHardware reports a driver call that returned non-success.
	ErrHardware = errors.New("hardware call failed")
)

// Controller arbitrates all motor commands and runs the safety watchdog.
type Controller struct {
	board      hw.Interface
	motorCount int
	maxSpeed   float64
	timeout    time.Duration

	// now is replaced in tests to drive the watchdog with a simulated clock.
	now func() time.Time

	mu          sync.Mutex
	speeds      map[int]float64
	estopped    bool
	lastCommand time.Time
}

// NewController creates the arbiter with every motor at rest.
func NewController(board hw.Interface, cfg *config.Config) *Controller {
	speeds := make(map[int]float64, cfg.MotorCount)
	for id := 1; id <= cfg.MotorCount; id++ {
		speeds[id] = 0
	}
	return &Controller{
		board:       board,
		motorCount:  cfg.MotorCount,
		maxSpeed:    cfg.MaxMotorSpeed,
		timeout:     cfg.WatchdogDuration(),
		now:         time.Now,
		speeds:      speeds,
		lastCommand: time.Now(),
	}
}

func (c *Controller) clamp(speed float64) float64 {
	if speed > c.maxSpeed {
		return c.maxSpeed
	}
	if speed < -c.maxSpeed {
		return -c.maxSpeed
	}
	return speed
}

// SetMotor drives a single motor. The logical speed is updated before the
// driver call and kept even if the call fails; see SetAll for why.
func (c *Controller) SetMotor(id int, speed float64) error {
	if id < 1 || id > c.motorCount {
		return fmt.Errorf("motor %d: %w", id, ErrInvalidMotor)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.estopped {
		return ErrEmergencyStop
	}

	speed = c.clamp(speed)
	c.lastCommand = c.now()
	c.speeds[id] = speed
	if !c.board.SetMotor(id, speed) {
		return fmt.Errorf("motor %d: %w", id, ErrHardware)
	}
	return nil
}

// SetAll applies a batch of speeds. Unknown motor ids are skipped. Each motor
// is attempted independently; a failing write does not stop the rest, and the
// first failure is reported after the whole batch has been tried.
//
// On a hardware failure the logical speed stays at the requested value rather
// than rolling back. The watchdog then treats the wheel as possibly moving
// and forces a stop after the timeout, which fails safe; rolling back could
// mask a wheel that did start turning before the driver errored.
func (c *Controller) SetAll(speeds map[int]float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.estopped {
		log.Println("WARNING: emergency stop active, ignoring motor command")
		return ErrEmergencyStop
	}

	c.lastCommand = c.now()

	var firstErr error
	for id, speed := range speeds {
		if id < 1 || id > c.motorCount {
			continue
		}
		speed = c.clamp(speed)
		c.speeds[id] = speed
		if !c.board.SetMotor(id, speed) {
			log.Printf("failed to set motor %d to %.3f", id, speed)
			if firstErr == nil {
				firstErr = fmt.Errorf("motor %d: %w", id, ErrHardware)
			}
		}
	}
	return firstErr
}

// StopAll zeroes every motor. Always allowed, including under emergency stop.
func (c *Controller) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := 1; id <= c.motorCount; id++ {
		c.speeds[id] = 0
		if !c.board.SetMotor(id, 0) {
			log.Printf("WARNING: motor %d did not acknowledge stop", id)
		}
	}
	log.Println("all motors stopped")
}

// EmergencyStop latches the safety state and actively brakes every motor.
// Unlike StopAll's zero-speed command, braking resists external motion.
func (c *Controller) EmergencyStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.estopped = true
	for id := 1; id <= c.motorCount; id++ {
		c.speeds[id] = 0
		if !c.board.BrakeMotor(id) {
			log.Printf("WARNING: motor %d did not acknowledge brake", id)
		}
	}
	log.Println("EMERGENCY STOP ACTIVATED")
}

// ResetEmergencyStop returns to normal operation. The command clock is
// refreshed so a stale elapsed time cannot re-trigger the watchdog on the
// next tick. Safe to call when already in the normal state.
func (c *Controller) ResetEmergencyStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.estopped = false
	c.lastCommand = c.now()
	log.Println("emergency stop reset")
}

// EmergencyStopped reports whether the emergency stop is latched.
func (c *Controller) EmergencyStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.estopped
}

// Snapshot returns a copy of the current speeds and the safety state, taken
// under the same lock the writers use.
func (c *Controller) Snapshot() (map[int]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	speeds := make(map[int]float64, len(c.speeds))
	for id, s := range c.speeds {
		speeds[id] = s
	}
	return speeds, c.estopped
}

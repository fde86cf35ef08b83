// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package hw is the driver boundary for the rover's actuators and sensors:
// four DC motors with quadrature encoders, the battery ADC, up to eight
// servos, and the attitude sensor.
package hw

// Interface is the contract the control core consumes. Implementations are
// synchronous and non-reentrant per device class; the motion controller
// serializes all motor access behind its own lock, so implementations do not
// need one of their own.
//
// Motor and servo setters report success as a bool, matching the underlying
// driver's zero/nonzero return convention. Sensor reads report availability
// explicitly so a transient failure can be skipped rather than propagated.
type Interface interface {
	// SetMotor drives a motor at a duty in [-max, +max]. Implementations
	// clamp out-of-range values before touching the hardware.
	SetMotor(id int, speed float64) bool

	// BrakeMotor shorts the motor windings so the wheel actively resists
	// motion. Used by the emergency stop.
	BrakeMotor(id int) bool

	// FreeSpinMotor lets the motor coast with no drive applied.
	FreeSpinMotor(id int) bool

	// ReadEncoder returns the current encoder count, or ok=false if the
	// channel could not be read.
	ReadEncoder(id int) (count int, ok bool)

	// ReadBatteryVoltage returns the pack voltage in volts, or ok=false if
	// the ADC is unavailable.
	ReadBatteryVoltage() (volts float64, ok bool)

	// SetServo sends a pulse width in microseconds to a servo channel.
	// Implementations clamp the pulse to the configured safe range.
	SetServo(channel, pulseUS int) bool

	// ReadAttitude samples the attitude sensor.
	ReadAttitude() (Attitude, error)

	// Close powers the hardware down: motors first, then the ADC, then the
	// attitude sensor, then any driver-global teardown.
	Close()
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hw

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/relabs-tech/rover_computer/internal/config"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// Per-motor H-bridge wiring. The PWM pin carries the duty, the two direction
// pins select forward/reverse/brake. Pin names follow the gpioreg registry.
type motorPins struct {
	pwm string
	inA string
	inB string
}

var motorWiring = map[int]motorPins{
	1: {pwm: "GPIO12", inA: "GPIO5", inB: "GPIO6"},
	2: {pwm: "GPIO13", inA: "GPIO16", inB: "GPIO26"},
	3: {pwm: "GPIO18", inA: "GPIO20", inB: "GPIO21"},
	4: {pwm: "GPIO19", inA: "GPIO23", inB: "GPIO24"},
}

// Servo channels share one 50 Hz period; the pulse width is expressed as a
// duty fraction of that period.
const servoPeriodUS = 20000

var servoWiring = map[int]string{
	1: "GPIO4", 2: "GPIO17", 3: "GPIO27", 4: "GPIO22",
	5: "GPIO10", 6: "GPIO9", 7: "GPIO11", 8: "GPIO7",
}

// Encoder counts are exposed by the eQEP units through sysfs; there is no
// periph driver for the AM335x eQEP block.
var encoderPaths = map[int]string{
	1: "/sys/devices/platform/ocp/48300000.epwmss/48300180.eqep/position",
	2: "/sys/devices/platform/ocp/48302000.epwmss/48302180.eqep/position",
	3: "/sys/devices/platform/ocp/48304000.epwmss/48304180.eqep/position",
	4: "/sys/devices/platform/ocp/pru_encoder/position",
}

// Battery pack voltage sits behind an 11:1 divider on ADC channel 6.
const (
	batteryADCPath     = "/sys/bus/iio/devices/iio:device0/in_voltage6_raw"
	batteryADCScale    = 1.8 / 4095.0
	batteryDividerGain = 11.0
)

type motor struct {
	pwm gpio.PinIO
	inA gpio.PinIO
	inB gpio.PinIO
}

var _ Interface = (*Board)(nil)

// Board is the periph.io implementation of Interface for the rover's SBC.
type Board struct {
	cfg    *config.Config
	motors map[int]*motor
	servos map[int]gpio.PinIO

	imu      *mpu9250.MPU9250
	imuReady bool
}

// NewBoard acquires every peripheral the rover uses. Failure to bring up the
// motor bridges is fatal to the caller; the attitude sensor and battery ADC
// degrade to "unavailable" like the rest of the sensor plane.
func NewBoard(cfg *config.Config) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	b := &Board{
		cfg:    cfg,
		motors: make(map[int]*motor, cfg.MotorCount),
		servos: make(map[int]gpio.PinIO, cfg.ServoCount),
	}

	for id := 1; id <= cfg.MotorCount; id++ {
		pins, found := motorWiring[id]
		if !found {
			return nil, fmt.Errorf("motor %d: no wiring table entry", id)
		}
		m := &motor{
			pwm: gpioreg.ByName(pins.pwm),
			inA: gpioreg.ByName(pins.inA),
			inB: gpioreg.ByName(pins.inB),
		}
		if m.pwm == nil || m.inA == nil || m.inB == nil {
			return nil, fmt.Errorf("motor %d: pins %v not found", id, pins)
		}
		if err := m.inA.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("motor %d: direction pin setup: %w", id, err)
		}
		if err := m.inB.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("motor %d: direction pin setup: %w", id, err)
		}
		b.motors[id] = m
	}
	log.Printf("motor bridges initialized (%d motors)", cfg.MotorCount)

	for ch := 1; ch <= cfg.ServoCount; ch++ {
		name, found := servoWiring[ch]
		if !found {
			continue
		}
		if pin := gpioreg.ByName(name); pin != nil {
			b.servos[ch] = pin
		} else {
			log.Printf("WARNING: servo channel %d pin %q not found", ch, name)
		}
	}

	if err := b.initIMU(); err != nil {
		log.Printf("WARNING: attitude sensor unavailable: %v", err)
	}
	return b, nil
}

// initIMU brings up the MPU9250 over SPI. The driver exposes only the
// accel/gyro die; mag and heading stay zero until the AK8963 bypass lands in
// the upstream driver.
func (b *Board) initIMU() error {
	cs := gpioreg.ByName(b.cfg.IMUCSPin)
	if cs == nil {
		return fmt.Errorf("CS pin %q not found", b.cfg.IMUCSPin)
	}

	tr, err := mpu9250.NewSpiTransport(b.cfg.IMUSPIDevice, cs)
	if err != nil {
		return fmt.Errorf("SPI transport (%s): %w", b.cfg.IMUSPIDevice, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return fmt.Errorf("device creation: %w", err)
	}
	if err := imu.Init(); err != nil {
		return fmt.Errorf("initialization: %w", err)
	}
	if err := imu.Calibrate(); err != nil {
		log.Printf("WARNING: attitude sensor calibration failed: %v", err)
	}

	b.imu = imu
	b.imuReady = true
	log.Println("attitude sensor initialized")
	return nil
}

// Raw-to-unit conversions at the default full-scale ranges (±2g, ±250°/s).
const (
	accelScale = 2.0 / 32768.0 * 9.80665 // m/s^2 per LSB
	gyroScale  = 250.0 / 32768.0         // deg/s per LSB
)

func clampSpeed(speed, max float64) float64 {
	if speed > max {
		return max
	}
	if speed < -max {
		return -max
	}
	return speed
}

// SetMotor drives one H-bridge. The sign selects direction, the magnitude the
// PWM duty.
func (b *Board) SetMotor(id int, speed float64) bool {
	m, found := b.motors[id]
	if !found {
		return false
	}
	speed = clampSpeed(speed, b.cfg.MaxMotorSpeed)

	var a, bLevel gpio.Level
	switch {
	case speed > 0:
		a, bLevel = gpio.High, gpio.Low
	case speed < 0:
		a, bLevel = gpio.Low, gpio.High
	default:
		a, bLevel = gpio.Low, gpio.Low
	}
	if err := m.inA.Out(a); err != nil {
		log.Printf("motor %d: direction pin write: %v", id, err)
		return false
	}
	if err := m.inB.Out(bLevel); err != nil {
		log.Printf("motor %d: direction pin write: %v", id, err)
		return false
	}

	duty := gpio.Duty(math.Abs(speed) * float64(gpio.DutyMax))
	if err := m.pwm.PWM(duty, 25*physic.KiloHertz); err != nil {
		log.Printf("motor %d: pwm write: %v", id, err)
		return false
	}
	return true
}

// BrakeMotor shorts both bridge legs low side so the windings resist motion.
func (b *Board) BrakeMotor(id int) bool {
	m, found := b.motors[id]
	if !found {
		return false
	}
	if err := m.pwm.PWM(gpio.DutyMax, 25*physic.KiloHertz); err != nil {
		log.Printf("motor %d: brake pwm: %v", id, err)
		return false
	}
	if err := m.inA.Out(gpio.Low); err != nil {
		return false
	}
	if err := m.inB.Out(gpio.Low); err != nil {
		return false
	}
	return true
}

// FreeSpinMotor releases the bridge entirely; the wheel coasts.
func (b *Board) FreeSpinMotor(id int) bool {
	m, found := b.motors[id]
	if !found {
		return false
	}
	if err := m.pwm.PWM(0, 25*physic.KiloHertz); err != nil {
		log.Printf("motor %d: free spin pwm: %v", id, err)
		return false
	}
	if err := m.inA.Out(gpio.Low); err != nil {
		return false
	}
	if err := m.inB.Out(gpio.Low); err != nil {
		return false
	}
	return true
}

// ReadEncoder reads the eQEP position register through sysfs.
func (b *Board) ReadEncoder(id int) (int, bool) {
	path, found := encoderPaths[id]
	if !found {
		return 0, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Printf("encoder %d: bad position value %q: %v", id, strings.TrimSpace(string(data)), err)
		return 0, false
	}
	return count, true
}

// ReadBatteryVoltage samples the pack voltage through the ADC divider.
func (b *Board) ReadBatteryVoltage() (float64, bool) {
	data, err := os.ReadFile(batteryADCPath)
	if err != nil {
		return 0, false
	}
	raw, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	volts := float64(raw) * batteryADCScale * batteryDividerGain
	if volts <= 0 {
		return 0, false
	}
	return volts, true
}

// SetServo sends a pulse width to a servo channel, clamped to the configured
// safe range.
func (b *Board) SetServo(channel, pulseUS int) bool {
	pin, found := b.servos[channel]
	if !found {
		return false
	}
	if pulseUS < b.cfg.ServoMinPulse {
		pulseUS = b.cfg.ServoMinPulse
	}
	if pulseUS > b.cfg.ServoMaxPulse {
		pulseUS = b.cfg.ServoMaxPulse
	}
	duty := gpio.Duty(float64(pulseUS) / servoPeriodUS * float64(gpio.DutyMax))
	if err := pin.PWM(duty, 50*physic.Hertz); err != nil {
		log.Printf("servo %d: pwm write: %v", channel, err)
		return false
	}
	return true
}

// ReadAttitude samples the IMU. Only the accel/gyro fields are populated;
// see initIMU for why mag, heading, and temp stay zero here.
func (b *Board) ReadAttitude() (Attitude, error) {
	if !b.imuReady {
		return Attitude{}, fmt.Errorf("attitude sensor not initialized")
	}

	ax, err := b.imu.GetAccelerationX()
	if err != nil {
		return Attitude{}, fmt.Errorf("accel X: %w", err)
	}
	ay, err := b.imu.GetAccelerationY()
	if err != nil {
		return Attitude{}, fmt.Errorf("accel Y: %w", err)
	}
	az, err := b.imu.GetAccelerationZ()
	if err != nil {
		return Attitude{}, fmt.Errorf("accel Z: %w", err)
	}
	gx, err := b.imu.GetRotationX()
	if err != nil {
		return Attitude{}, fmt.Errorf("gyro X: %w", err)
	}
	gy, err := b.imu.GetRotationY()
	if err != nil {
		return Attitude{}, fmt.Errorf("gyro Y: %w", err)
	}
	gz, err := b.imu.GetRotationZ()
	if err != nil {
		return Attitude{}, fmt.Errorf("gyro Z: %w", err)
	}

	return Attitude{
		Accel: Vector3{
			X: float64(ax) * accelScale,
			Y: float64(ay) * accelScale,
			Z: float64(az) * accelScale,
		},
		Gyro: Vector3{
			X: float64(gx) * gyroScale,
			Y: float64(gy) * gyroScale,
			Z: float64(gz) * gyroScale,
		},
	}, nil
}

// Close powers the hardware down in the required order: motors, ADC,
// attitude sensor, then the driver globals (periph has no global teardown).
func (b *Board) Close() {
	for id := range b.motors {
		if !b.FreeSpinMotor(id) {
			log.Printf("WARNING: motor %d did not release cleanly", id)
		}
	}
	log.Println("motors released")
	// The sysfs ADC needs no teardown.
	if b.imuReady {
		b.imuReady = false
		log.Println("attitude sensor released")
	}
}

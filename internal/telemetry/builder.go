// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry assembles merged sensor frames for streaming clients.
// Each sensor domain has its own sample rate; one Builder tracks when each
// domain was last polled so heterogeneous cadences share a single connection.
package telemetry

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/rover_computer/internal/config"
	"github.com/relabs-tech/rover_computer/internal/hw"
	"github.com/relabs-tech/rover_computer/internal/motion"
	"github.com/relabs-tech/rover_computer/internal/sysmetrics"
)

// Builder produces frames with rate-gated domain payloads. Not safe for
// concurrent use; every telemetry connection owns its own Builder.
type Builder struct {
	board      hw.Interface
	ctrl       *motion.Controller
	metrics    *sysmetrics.Sampler
	motorCount int

	attitudeInterval time.Duration
	encoderInterval  time.Duration
	batteryInterval  time.Duration
	systemInterval   time.Duration

	lastAttitude time.Time
	lastEncoder  time.Time
	lastBattery  time.Time
	lastSystem   time.Time
}

func hzToInterval(rate float64) time.Duration {
	return time.Duration(float64(time.Second) / rate)
}

// NewBuilder creates a builder whose domains are all immediately due.
func NewBuilder(board hw.Interface, ctrl *motion.Controller, metrics *sysmetrics.Sampler, cfg *config.Config) *Builder {
	return &Builder{
		board:            board,
		ctrl:             ctrl,
		metrics:          metrics,
		motorCount:       cfg.MotorCount,
		attitudeInterval: hzToInterval(cfg.AttitudeRate),
		encoderInterval:  hzToInterval(cfg.EncoderRate),
		batteryInterval:  hzToInterval(cfg.BatteryRate),
		systemInterval:   hzToInterval(cfg.SystemMetricsRate),
	}
}

// Granularity is the sleep between ticks: half the fastest domain interval,
// so no domain is polled late by more than half its own interval.
func (b *Builder) Granularity() time.Duration {
	fastest := b.attitudeInterval
	if b.encoderInterval < fastest {
		fastest = b.encoderInterval
	}
	return fastest / 2
}

// Next assembles the frame for one tick. A domain whose poll fails is logged
// and omitted from this frame; the remaining domains are unaffected. Motor
// status is present in every frame.
func (b *Builder) Next(now time.Time) Frame {
	frame := Frame{Timestamp: float64(now.UnixNano()) / float64(time.Second)}

	if now.Sub(b.lastAttitude) >= b.attitudeInterval {
		if att, err := b.board.ReadAttitude(); err != nil {
			log.Printf("attitude poll error: %v", err)
		} else {
			frame.IMU = &att
		}
		b.lastAttitude = now
	}

	if now.Sub(b.lastEncoder) >= b.encoderInterval {
		counts := make(map[string]int, b.motorCount)
		for id := 1; id <= b.motorCount; id++ {
			if count, ok := b.board.ReadEncoder(id); ok {
				counts[fmt.Sprintf("encoder_%d", id)] = count
			}
		}
		frame.Encoders = counts
		b.lastEncoder = now
	}

	if now.Sub(b.lastBattery) >= b.batteryInterval {
		if volts, ok := b.board.ReadBatteryVoltage(); ok {
			frame.Battery = &Battery{Voltage: volts}
		}
		b.lastBattery = now
	}

	if now.Sub(b.lastSystem) >= b.systemInterval {
		snapshot := b.metrics.Snapshot()
		frame.System = &snapshot
		b.lastSystem = now
	}

	speeds, estopped := b.ctrl.Snapshot()
	frame.Motors = MotorStatus{
		Speeds:        motorKeys(speeds),
		EmergencyStop: estopped,
	}
	return frame
}

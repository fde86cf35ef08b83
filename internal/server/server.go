// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package server exposes the rover's control and telemetry surface over
// WebSockets plus a small REST status surface.
package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/rover_computer/internal/config"
	"github.com/relabs-tech/rover_computer/internal/hw"
	"github.com/relabs-tech/rover_computer/internal/motion"
	"github.com/relabs-tech/rover_computer/internal/sysmetrics"
)

// Server bundles the shared state every connection handler needs.
type Server struct {
	cfg      *config.Config
	board    hw.Interface
	ctrl     *motion.Controller
	metrics  *sysmetrics.Sampler
	registry *Registry
	upgrader websocket.Upgrader

	// Servo writes bypass the motion controller, so connection handlers
	// serialize them here; the hardware is non-reentrant per device class.
	servoMu sync.Mutex
}

// New wires the handlers to the controller and hardware.
func New(cfg *config.Config, board hw.Interface, ctrl *motion.Controller, metrics *sysmetrics.Sampler) *Server {
	return &Server{
		cfg:      cfg,
		board:    board,
		ctrl:     ctrl,
		metrics:  metrics,
		registry: NewRegistry(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // clients connect from the operator's LAN
			},
		},
	}
}

// Registry exposes the connection registry for diagnostics.
func (s *Server) Registry() *Registry {
	return s.registry
}

// setServos applies a batch of pulse widths as one unit, so two clients
// driving servos concurrently cannot interleave channel writes.
func (s *Server) setServos(pulses map[int]int) bool {
	s.servoMu.Lock()
	defer s.servoMu.Unlock()
	success := true
	for ch, pulse := range pulses {
		if !s.board.SetServo(ch, pulse) {
			log.Printf("servo %d: pulse %d rejected", ch, pulse)
			success = false
		}
	}
	return success
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws/control", s.handleControl)
	mux.HandleFunc("/ws/telemetry", s.handleTelemetry)

	// Single-domain streams kept for older dashboards.
	mux.HandleFunc("/ws/motors", s.handleLegacyMotors)
	mux.HandleFunc("/ws/imu", s.handleLegacyIMU)
	mux.HandleFunc("/ws/encoder", s.handleLegacyEncoders)
	mux.HandleFunc("/ws/battery", s.handleLegacyBattery)
	mux.HandleFunc("/ws/system_metrics", s.handleLegacySystemMetrics)
	mux.HandleFunc("/ws/servo", s.handleLegacyServo)

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/emergency_stop", s.handleEmergencyStop)
	mux.HandleFunc("/reset_emergency_stop", s.handleResetEmergencyStop)

	return mux
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/rover_computer/internal/kinematics"
	"github.com/relabs-tech/rover_computer/internal/motion"
)

type pongResponse struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
}

type motorResponse struct {
	Type    string             `json:"type"`
	Success bool               `json:"success"`
	Speeds  map[string]float64 `json:"speeds"`
}

type mecanumResponse struct {
	Type        string             `json:"type"`
	Success     bool               `json:"success"`
	Input       mecanumInput       `json:"input"`
	WheelSpeeds map[string]float64 `json:"wheel_speeds"`
}

type mecanumInput struct {
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	Omega float64 `json:"omega"`
}

type ackResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
}

type errorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// handleControl runs the command loop for one control connection. Whatever
// ends the loop, normal close or transport fault, the motors are stopped
// before the connection's resources are released.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("control: websocket upgrade error: %v", err)
		return
	}
	s.registry.Add(conn)
	defer func() {
		log.Println("control client gone, stopping motors for safety")
		s.ctrl.StopAll()
		s.registry.Remove(conn)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("control: read error: %v", err)
			}
			return
		}

		cmd, err := DecodeCommand(data, s.cfg.MotorCount, s.cfg.ServoCount)
		if err != nil {
			// Malformed input gets a structured reply, never a dropped
			// connection.
			s.reply(conn, errorResponse{Type: "error", Message: err.Error()})
			continue
		}
		s.dispatch(conn, cmd)
	}
}

func (s *Server) reply(conn *websocket.Conn, v any) {
	if err := conn.WriteJSON(v); err != nil {
		log.Printf("control: write error: %v", err)
	}
}

func (s *Server) dispatch(conn *websocket.Conn, cmd Command) {
	switch cmd.Kind {
	case KindPing:
		s.reply(conn, pongResponse{
			Type:      "pong",
			Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		})

	case KindSetMotors:
		err := s.ctrl.SetAll(cmd.Speeds)
		s.reply(conn, motorResponse{
			Type:    "motor_response",
			Success: err == nil,
			Speeds:  s.currentSpeeds(),
		})

	case KindMecanum:
		log.Printf("mecanum command: vx=%.3f vy=%.3f omega=%.3f", cmd.VX, cmd.VY, cmd.Omega)
		wheels := kinematics.WheelSpeeds(cmd.VX, cmd.VY, cmd.Omega)
		err := s.ctrl.SetAll(wheels)
		if err != nil && !errors.Is(err, motion.ErrEmergencyStop) {
			log.Printf("mecanum command: %v", err)
		}
		s.reply(conn, mecanumResponse{
			Type:        "mecanum_response",
			Success:     err == nil,
			Input:       mecanumInput{VX: cmd.VX, VY: cmd.VY, Omega: cmd.Omega},
			WheelSpeeds: stringKeys(wheels),
		})

	case KindServo:
		s.reply(conn, ackResponse{Type: "servo_response", Success: s.setServos(cmd.Pulses)})

	case KindStop:
		s.ctrl.StopAll()
		s.reply(conn, ackResponse{Type: "stop_response", Success: true})

	case KindEmergencyStop:
		s.ctrl.EmergencyStop()
		s.reply(conn, ackResponse{Type: "emergency_stop_response", Success: true})

	case KindResetEmergencyStop:
		s.ctrl.ResetEmergencyStop()
		s.reply(conn, ackResponse{Type: "reset_emergency_stop_response", Success: true})

	default:
		s.reply(conn, errorResponse{
			Type:    "error",
			Message: "Unknown command type: " + cmd.RawType,
		})
	}
}

func (s *Server) currentSpeeds() map[string]float64 {
	speeds, _ := s.ctrl.Snapshot()
	return stringKeys(speeds)
}

func stringKeys(speeds map[int]float64) map[string]float64 {
	out := make(map[string]float64, len(speeds))
	for id, v := range speeds {
		out[strconv.Itoa(id)] = v
	}
	return out
}

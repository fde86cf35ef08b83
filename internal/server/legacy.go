package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Legacy single-purpose endpoints predate the consolidated control/telemetry
// sockets. Old dashboards still use them, so they stay wired to the same
// controller and hardware paths.

func (s *Server) legacyUpgrade(name string, w http.ResponseWriter, r *http.Request) *websocket.Conn {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("%s: websocket upgrade error: %v", name, err)
		return nil
	}
	s.registry.Add(conn)
	return conn
}

// handleLegacyMotors accepts bare {"motor_1": f, ...} maps. Like the main
// control socket, a disconnect stops the motors.
func (s *Server) handleLegacyMotors(w http.ResponseWriter, r *http.Request) {
	conn := s.legacyUpgrade("motors", w, r)
	if conn == nil {
		return
	}
	defer func() {
		s.ctrl.StopAll()
		s.registry.Remove(conn)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			s.reply(conn, errorResponse{Type: "error", Message: "malformed message"})
			continue
		}
		speeds := make(map[int]float64, s.cfg.MotorCount)
		for id := 1; id <= s.cfg.MotorCount; id++ {
			speeds[id] = numField(raw, fmt.Sprintf("motor_%d", id))
		}
		err = s.ctrl.SetAll(speeds)
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.reply(conn, struct {
			Status string             `json:"status"`
			Speeds map[string]float64 `json:"speeds"`
		}{Status: status, Speeds: s.currentSpeeds()})
	}
}

// streamLoop writes the payload from poll at the given rate until the client
// goes away. A reader goroutine watches for the close handshake, so a dead
// client is noticed even while the polled sensor is down and nothing is being
// written.
func (s *Server) streamLoop(conn *websocket.Conn, rate float64, poll func() (any, bool)) {
	defer func() {
		s.registry.Remove(conn)
		conn.Close()
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := time.Duration(float64(time.Second) / rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			payload, ok := poll()
			if !ok {
				continue
			}
			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleLegacyIMU(w http.ResponseWriter, r *http.Request) {
	conn := s.legacyUpgrade("imu", w, r)
	if conn == nil {
		return
	}
	s.streamLoop(conn, s.cfg.AttitudeRate, func() (any, bool) {
		att, err := s.board.ReadAttitude()
		if err != nil {
			log.Printf("imu: read error: %v", err)
			return nil, false
		}
		return att, true
	})
}

func (s *Server) handleLegacyEncoders(w http.ResponseWriter, r *http.Request) {
	conn := s.legacyUpgrade("encoder", w, r)
	if conn == nil {
		return
	}
	s.streamLoop(conn, s.cfg.EncoderRate, func() (any, bool) {
		counts := make(map[string]int, s.cfg.MotorCount)
		for id := 1; id <= s.cfg.MotorCount; id++ {
			if count, ok := s.board.ReadEncoder(id); ok {
				counts[fmt.Sprintf("encoder_%d", id)] = count
			}
		}
		return counts, true
	})
}

func (s *Server) handleLegacyBattery(w http.ResponseWriter, r *http.Request) {
	conn := s.legacyUpgrade("battery", w, r)
	if conn == nil {
		return
	}
	s.streamLoop(conn, s.cfg.BatteryRate, func() (any, bool) {
		volts, ok := s.board.ReadBatteryVoltage()
		if !ok {
			return nil, false
		}
		return map[string]float64{"voltage": volts}, true
	})
}

func (s *Server) handleLegacySystemMetrics(w http.ResponseWriter, r *http.Request) {
	conn := s.legacyUpgrade("system_metrics", w, r)
	if conn == nil {
		return
	}
	s.streamLoop(conn, s.cfg.SystemMetricsRate, func() (any, bool) {
		return s.metrics.Snapshot(), true
	})
}

// handleLegacyServo drives every channel on each message, substituting the
// default pulse for channels the message omits.
func (s *Server) handleLegacyServo(w http.ResponseWriter, r *http.Request) {
	conn := s.legacyUpgrade("servo", w, r)
	if conn == nil {
		return
	}
	defer func() {
		s.registry.Remove(conn)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			s.reply(conn, errorResponse{Type: "error", Message: "malformed message"})
			continue
		}
		pulses := make(map[int]int, s.cfg.ServoCount)
		for ch := 1; ch <= s.cfg.ServoCount; ch++ {
			pulses[ch] = s.cfg.ServoDefaultPulse
			if v, present := raw[fmt.Sprintf("servo_%d", ch)]; present {
				if f, isNum := v.(float64); isNum {
					pulses[ch] = int(f)
				}
			}
		}
		s.setServos(pulses)
		s.reply(conn, map[string]string{"status": "ok"})
	}
}

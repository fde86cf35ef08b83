package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/relabs-tech/rover_computer/internal/telemetry"
)

// handleTelemetry streams merged sensor frames to one client until it
// disconnects. Telemetry disconnects need no compensating action.
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("telemetry: websocket upgrade error: %v", err)
		return
	}
	s.registry.Add(conn)
	defer func() {
		s.registry.Remove(conn)
		conn.Close()
	}()

	builder := telemetry.NewBuilder(s.board, s.ctrl, s.metrics, s.cfg)
	streamer := telemetry.NewStreamer(builder)

	err = streamer.Run(r.Context(), func(frame telemetry.Frame) error {
		return conn.WriteJSON(frame)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("telemetry stream ended: %v", err)
	}
}

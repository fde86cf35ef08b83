package server

import (
	"encoding/json"
	"log"
	"net/http"
)

type healthResponse struct {
	Status        string `json:"status"`
	Connections   int    `json:"connections"`
	EmergencyStop bool   `json:"emergency_stop"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:        "ok",
		Connections:   s.registry.Count(),
		EmergencyStop: s.ctrl.EmergencyStopped(),
	})
}

func (s *Server) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.ctrl.EmergencyStop()
	writeJSON(w, map[string]string{"status": "emergency_stop_activated"})
}

func (s *Server) handleResetEmergencyStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.ctrl.ResetEmergencyStop()
	writeJSON(w, map[string]string{"status": "emergency_stop_reset"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// roverctl is the operator CLI for the rover control server.
package main

import (
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var serverAddr string

var rootCmd = &cobra.Command{
	Use:   "roverctl",
	Short: "Drive and inspect a rover_computer server",
	Long: `roverctl talks to a running rover control server over its WebSocket
control and telemetry endpoints. It can ping the server, send drive
commands, stop the rover, manage the emergency stop, and watch the
telemetry stream.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "localhost:8000",
		"host:port of the rover control server")
	log.SetFlags(0)
}

func dial(path string) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: serverAddr, Path: path}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", u.String(), err)
	}
	return conn, nil
}

// roundTrip sends one control message and returns the decoded reply.
func roundTrip(msg map[string]any) (map[string]any, error) {
	conn, err := dial("/ws/control")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.WriteJSON(msg); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	var reply map[string]any
	if err := conn.ReadJSON(&reply); err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pingCount int

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure round-trip time to the control endpoint",
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	conn, err := dial("/ws/control")
	if err != nil {
		return err
	}
	defer conn.Close()

	for i := 1; i <= pingCount; i++ {
		start := time.Now()
		if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		var reply map[string]any
		if err := conn.ReadJSON(&reply); err != nil {
			return fmt.Errorf("read reply: %w", err)
		}
		if reply["type"] != "pong" {
			return fmt.Errorf("unexpected reply type %v", reply["type"])
		}
		fmt.Printf("pong %d/%d rtt=%s\n", i, pingCount, time.Since(start).Round(time.Microsecond))
	}
	return nil
}

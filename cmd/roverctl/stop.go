package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop all motors",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendSimple("stop", "stop_response")
	},
}

var estopCmd = &cobra.Command{
	Use:   "estop",
	Short: "Trigger the emergency stop (brakes all motors)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendSimple("emergency_stop", "emergency_stop_response")
	},
}

var resetEstopCmd = &cobra.Command{
	Use:   "reset-estop",
	Short: "Clear the emergency stop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendSimple("reset_emergency_stop", "reset_emergency_stop_response")
	},
}

func init() {
	rootCmd.AddCommand(stopCmd, estopCmd, resetEstopCmd)
}

func sendSimple(msgType, wantReply string) error {
	reply, err := roundTrip(map[string]any{"type": msgType})
	if err != nil {
		return err
	}
	if reply["type"] != wantReply || reply["success"] != true {
		return fmt.Errorf("unexpected reply: %v", reply)
	}
	fmt.Println("ok")
	return nil
}

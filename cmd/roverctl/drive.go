package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	driveVX       float64
	driveVY       float64
	driveOmega    float64
	driveDuration time.Duration
)

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Send a mecanum velocity intent for a fixed duration",
	Long: `Send a mecanum velocity intent, repeated fast enough to keep the
server's watchdog fed, then stop. The server converts the intent into
per-wheel speeds and reports them back.`,
	RunE: runDrive,
}

func init() {
	rootCmd.AddCommand(driveCmd)
	driveCmd.Flags().Float64Var(&driveVX, "vx", 0, "forward demand (-1 to 1)")
	driveCmd.Flags().Float64Var(&driveVY, "vy", 0, "strafe demand (-1 to 1)")
	driveCmd.Flags().Float64Var(&driveOmega, "omega", 0, "rotation demand (-1 to 1)")
	driveCmd.Flags().DurationVar(&driveDuration, "duration", 2*time.Second, "how long to drive")
}

func runDrive(cmd *cobra.Command, args []string) error {
	conn, err := dial("/ws/control")
	if err != nil {
		return err
	}
	defer conn.Close()

	msg := map[string]any{"type": "mecanum", "vx": driveVX, "vy": driveVY, "omega": driveOmega}
	deadline := time.Now().Add(driveDuration)
	first := true

	// Re-send at 5 Hz so the watchdog never fires mid-drive.
	for time.Now().Before(deadline) {
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		var reply map[string]any
		if err := conn.ReadJSON(&reply); err != nil {
			return fmt.Errorf("read reply: %w", err)
		}
		if first {
			first = false
			if reply["success"] != true {
				return fmt.Errorf("command rejected: %v", reply)
			}
			fmt.Printf("wheel speeds: %v\n", reply["wheel_speeds"])
		}
		time.Sleep(200 * time.Millisecond)
	}

	if err := conn.WriteJSON(map[string]any{"type": "stop"}); err != nil {
		return fmt.Errorf("send stop: %w", err)
	}
	var reply map[string]any
	if err := conn.ReadJSON(&reply); err != nil {
		return fmt.Errorf("read stop reply: %w", err)
	}
	fmt.Println("stopped")
	return nil
}

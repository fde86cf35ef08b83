package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/rover_computer/internal/telemetry"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the telemetry stream",
	Long: `Connect to the telemetry endpoint and print one line per frame.
Slow domains (battery, host metrics) appear only on the ticks where the
server sampled them.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	conn, err := dial("/ws/telemetry")
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		var frame telemetry.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("stream ended: %w", err)
		}

		var parts []string
		parts = append(parts, fmt.Sprintf("motors=%s estop=%t",
			formatSpeeds(frame.Motors.Speeds), frame.Motors.EmergencyStop))
		if frame.IMU != nil {
			parts = append(parts, fmt.Sprintf("heading=%.1f accel=(%.2f %.2f %.2f)",
				frame.IMU.Heading, frame.IMU.Accel.X, frame.IMU.Accel.Y, frame.IMU.Accel.Z))
		}
		if frame.Battery != nil {
			parts = append(parts, fmt.Sprintf("battery=%.2fV", frame.Battery.Voltage))
		}
		if frame.System != nil {
			parts = append(parts, fmt.Sprintf("cpu=%.1f%% mem=%s/%s",
				frame.System.CPUUsage,
				humanize.IBytes(frame.System.Memory.Used),
				humanize.IBytes(frame.System.Memory.Total)))
		}
		fmt.Println(strings.Join(parts, " | "))
	}
}

func formatSpeeds(speeds map[string]float64) string {
	ids := make([]string, 0, len(speeds))
	for id := range speeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	vals := make([]string, 0, len(ids))
	for _, id := range ids {
		vals = append(vals, fmt.Sprintf("%.2f", speeds[id]))
	}
	return "[" + strings.Join(vals, " ") + "]"
}

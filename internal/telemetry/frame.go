package telemetry

import (
	"strconv"

	"github.com/relabs-tech/rover_computer/internal/hw"
	"github.com/relabs-tech/rover_computer/internal/sysmetrics"
)

// Battery is the battery telemetry payload.
type Battery struct {
	Voltage float64 `json:"voltage"`
}

// MotorStatus is included in every frame regardless of sensor rates.
type MotorStatus struct {
	Speeds        map[string]float64 `json:"speeds"`
	EmergencyStop bool               `json:"emergency_stop"`
}

// Frame is one merged telemetry snapshot. Pointer fields appear only on ticks
// where their domain was due and its poll succeeded.
type Frame struct {
	Timestamp float64             `json:"timestamp"`
	IMU       *hw.Attitude        `json:"imu,omitempty"`
	Encoders  map[string]int      `json:"encoders,omitempty"`
	Battery   *Battery            `json:"battery,omitempty"`
	System    *sysmetrics.Metrics `json:"system,omitempty"`
	Motors    MotorStatus         `json:"motors"`
}

// motorKeys converts the controller's integer-keyed speed map to the wire
// form, where JSON object keys are strings.
func motorKeys(speeds map[int]float64) map[string]float64 {
	out := make(map[string]float64, len(speeds))
	for id, s := range speeds {
		out[strconv.Itoa(id)] = s
	}
	return out
}

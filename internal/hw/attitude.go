package hw

// Vector3 is a three-axis sensor reading.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Attitude is a single sample from the attitude sensor. It is the boundary
// record handed across the driver interface; callers never see the sensor's
// raw register layout.
type Attitude struct {
	Accel   Vector3 `json:"accel"`           // m/s^2
	Gyro    Vector3 `json:"gyro"`            // degrees/s
	Mag     Vector3 `json:"mag"`             // uT
	Temp    float64 `json:"temp"`            // Celsius
	Heading float64 `json:"compass_heading"` // degrees
}

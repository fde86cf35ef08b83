// Package kinematics maps a planar velocity demand onto the four wheels of a
// rectangular mecanum chassis.
package kinematics

import "math"

// Motor assignment, top view:
//
//	FL [1] \  / [2] FR
//	RL [4] /  \ [3] RR
const (
	FrontLeft  = 1
	FrontRight = 2
	RearRight  = 3
	RearLeft   = 4
)

// WheelSpeeds converts a velocity intent into per-wheel speeds.
//
//	vx    forward demand    (-1 to 1, positive = forward)
//	vy    strafe demand     (-1 to 1, positive = right)
//	omega rotation demand   (-1 to 1, positive = clockwise)
//
// If any mixed speed exceeds 1.0 in magnitude, all four are divided by the
// largest magnitude so direction is preserved while staying inside the
// drivable range.
func WheelSpeeds(vx, vy, omega float64) map[int]float64 {
	speeds := map[int]float64{
		FrontLeft:  vx + vy + omega,
		FrontRight: vx - vy - omega,
		RearRight:  vx + vy - omega,
		RearLeft:   vx - vy + omega,
	}

	max := 0.0
	for _, s := range speeds {
		if a := math.Abs(s); a > max {
			max = a
		}
	}
	if max > 1.0 {
		for id := range speeds {
			speeds[id] /= max
		}
	}
	return speeds
}

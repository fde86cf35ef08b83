// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package server

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the decoded command variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindPing
	KindSetMotors
	KindMecanum
	KindServo
	KindStop
	KindEmergencyStop
	KindResetEmergencyStop
)

// Command is the closed set of inbound control messages, decoded once at the
// connection boundary. Only the fields for the decoded Kind are populated;
// an unrecognized type tag yields KindUnknown with RawType set.
type Command struct {
	Kind Kind

	// KindSetMotors
	Speeds map[int]float64

	// KindMecanum
	VX, VY, Omega float64

	// KindServo
	Pulses map[int]int

	// KindUnknown
	RawType string
}

// DecodeCommand parses one wire message. A JSON-level failure is an error;
// an unknown type tag is not, it decodes to KindUnknown so the handler can
// answer with a structured error reply.
func DecodeCommand(data []byte, motorCount, servoCount int) (Command, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Command{}, fmt.Errorf("malformed message: %w", err)
	}

	msgType, _ := raw["type"].(string)
	switch msgType {
	case "ping":
		return Command{Kind: KindPing}, nil

	case "motor":
		speeds := make(map[int]float64, motorCount)
		for id := 1; id <= motorCount; id++ {
			speeds[id] = numField(raw, fmt.Sprintf("motor_%d", id))
		}
		return Command{Kind: KindSetMotors, Speeds: speeds}, nil

	case "mecanum":
		return Command{
			Kind:  KindMecanum,
			VX:    numField(raw, "vx"),
			VY:    numField(raw, "vy"),
			Omega: numField(raw, "omega"),
		}, nil

	case "servo":
		pulses := make(map[int]int)
		for ch := 1; ch <= servoCount; ch++ {
			if v, present := raw[fmt.Sprintf("servo_%d", ch)]; present {
				if pulse, isNum := v.(float64); isNum {
					pulses[ch] = int(pulse)
				}
			}
		}
		return Command{Kind: KindServo, Pulses: pulses}, nil

	case "stop":
		return Command{Kind: KindStop}, nil

	case "emergency_stop":
		return Command{Kind: KindEmergencyStop}, nil

	case "reset_emergency_stop":
		return Command{Kind: KindResetEmergencyStop}, nil

	default:
		return Command{Kind: KindUnknown, RawType: msgType}, nil
	}
}

// numField reads a JSON number field, treating absent or non-numeric values
// as zero demand.
func numField(raw map[string]any, key string) float64 {
	if v, present := raw[key]; present {
		if f, isNum := v.(float64); isNum {
			return f
		}
	}
	return 0
}

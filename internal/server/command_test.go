package server

import (
	"testing"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Kind
		wantErr bool
	}{
		{name: "ping", data: `{"type":"ping"}`, want: KindPing},
		{name: "motor", data: `{"type":"motor","motor_1":0.5,"motor_2":-0.5}`, want: KindSetMotors},
		{name: "mecanum", data: `{"type":"mecanum","vx":1,"vy":0,"omega":0.2}`, want: KindMecanum},
		{name: "servo", data: `{"type":"servo","servo_1":1500}`, want: KindServo},
		{name: "stop", data: `{"type":"stop"}`, want: KindStop},
		{name: "emergency stop", data: `{"type":"emergency_stop"}`, want: KindEmergencyStop},
		{name: "reset", data: `{"type":"reset_emergency_stop"}`, want: KindResetEmergencyStop},
		{name: "unknown tag", data: `{"type":"fly"}`, want: KindUnknown},
		{name: "missing tag", data: `{"motor_1":1}`, want: KindUnknown},
		{name: "non-string tag", data: `{"type":42}`, want: KindUnknown},
		{name: "malformed json", data: `{"type":`, wantErr: true},
		{name: "not an object", data: `[1,2,3]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tt.data), 4, 8)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodeCommand(%q) error = nil, want error", tt.data)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeCommand(%q) error = %v", tt.data, err)
			}
			if cmd.Kind != tt.want {
				t.Errorf("Kind = %d, want %d", cmd.Kind, tt.want)
			}
		})
	}
}

func TestDecodeMotorDefaultsMissingChannels(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"motor","motor_1":0.5}`), 4, 8)
	if err != nil {
		t.Fatalf("DecodeCommand error = %v", err)
	}
	if len(cmd.Speeds) != 4 {
		t.Fatalf("got %d speed entries, want 4", len(cmd.Speeds))
	}
	if cmd.Speeds[1] != 0.5 {
		t.Errorf("motor 1 = %g, want 0.5", cmd.Speeds[1])
	}
	for _, id := range []int{2, 3, 4} {
		if cmd.Speeds[id] != 0 {
			t.Errorf("motor %d = %g, want 0 default", id, cmd.Speeds[id])
		}
	}
}

func TestDecodeMecanumFields(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"mecanum","vx":0.5,"vy":-0.25,"omega":0.75}`), 4, 8)
	if err != nil {
		t.Fatalf("DecodeCommand error = %v", err)
	}
	if cmd.VX != 0.5 || cmd.VY != -0.25 || cmd.Omega != 0.75 {
		t.Errorf("got (%g, %g, %g), want (0.5, -0.25, 0.75)", cmd.VX, cmd.VY, cmd.Omega)
	}
}

func TestDecodeServoOnlySuppliedChannels(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"servo","servo_2":1200,"servo_7":1800}`), 4, 8)
	if err != nil {
		t.Fatalf("DecodeCommand error = %v", err)
	}
	if len(cmd.Pulses) != 2 {
		t.Fatalf("got %d pulses, want 2: %v", len(cmd.Pulses), cmd.Pulses)
	}
	if cmd.Pulses[2] != 1200 || cmd.Pulses[7] != 1800 {
		t.Errorf("pulses = %v, want {2:1200 7:1800}", cmd.Pulses)
	}
}

func TestDecodeUnknownPreservesRawType(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"teleport"}`), 4, 8)
	if err != nil {
		t.Fatalf("DecodeCommand error = %v", err)
	}
	if cmd.RawType != "teleport" {
		t.Errorf("RawType = %q, want %q", cmd.RawType, "teleport")
	}
}

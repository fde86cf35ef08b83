package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/rover_computer/internal/config"
	"github.com/relabs-tech/rover_computer/internal/hw"
	"github.com/relabs-tech/rover_computer/internal/motion"
	"github.com/relabs-tech/rover_computer/internal/sysmetrics"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server, *hw.Mock) {
	t.Helper()
	cfg := config.Default()
	mock := hw.NewMock(cfg.MotorCount, cfg.MaxMotorSpeed, cfg.ServoMinPulse, cfg.ServoMaxPulse)
	ctrl := motion.NewController(mock, cfg)
	s := New(cfg, mock, ctrl, sysmetrics.NewSampler())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, s, mock
}

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	return conn
}

func sendRecv(t *testing.T, conn *websocket.Conn, msg string) map[string]any {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply map[string]any
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	return reply
}

func TestControlPing(t *testing.T) {
	ts, _, _ := newTestServer(t)
	conn := dialWS(t, ts, "/ws/control")
	defer conn.Close()

	reply := sendRecv(t, conn, `{"type":"ping"}`)
	if reply["type"] != "pong" {
		t.Errorf("reply type = %v, want pong", reply["type"])
	}
	if _, present := reply["timestamp"]; !present {
		t.Error("pong missing timestamp")
	}
}

func TestControlMotorCommand(t *testing.T) {
	ts, _, mock := newTestServer(t)
	conn := dialWS(t, ts, "/ws/control")
	defer conn.Close()

	reply := sendRecv(t, conn, `{"type":"motor","motor_1":0.5,"motor_2":-0.5,"motor_3":0.5,"motor_4":-0.5}`)
	if reply["type"] != "motor_response" {
		t.Fatalf("reply type = %v, want motor_response", reply["type"])
	}
	if reply["success"] != true {
		t.Errorf("success = %v, want true", reply["success"])
	}
	speeds := reply["speeds"].(map[string]any)
	if speeds["1"] != 0.5 || speeds["2"] != -0.5 {
		t.Errorf("echoed speeds = %v", speeds)
	}
	if got := mock.Speeds()[1]; got != 0.5 {
		t.Errorf("hardware motor 1 = %g, want 0.5", got)
	}
}

func TestControlMecanumCommand(t *testing.T) {
	ts, _, mock := newTestServer(t)
	conn := dialWS(t, ts, "/ws/control")
	defer conn.Close()

	reply := sendRecv(t, conn, `{"type":"mecanum","vx":1,"vy":0,"omega":0}`)
	if reply["type"] != "mecanum_response" || reply["success"] != true {
		t.Fatalf("unexpected reply: %v", reply)
	}
	wheels := reply["wheel_speeds"].(map[string]any)
	for _, id := range []string{"1", "2", "3", "4"} {
		if wheels[id] != 1.0 {
			t.Errorf("wheel %s = %v, want 1", id, wheels[id])
		}
	}
	for id, speed := range mock.Speeds() {
		if speed != 1.0 {
			t.Errorf("hardware motor %d = %g, want 1", id, speed)
		}
	}
}

func TestControlUnknownAndMalformed(t *testing.T) {
	ts, _, _ := newTestServer(t)
	conn := dialWS(t, ts, "/ws/control")
	defer conn.Close()

	reply := sendRecv(t, conn, `{"type":"fly"}`)
	if reply["type"] != "error" {
		t.Errorf("reply type = %v, want error", reply["type"])
	}
	if msg, _ := reply["message"].(string); !strings.Contains(msg, "Unknown command type: fly") {
		t.Errorf("message = %q", msg)
	}

	// Malformed JSON: structured error, connection stays usable.
	reply = sendRecv(t, conn, `{"type":`)
	if reply["type"] != "error" {
		t.Errorf("reply type = %v, want error", reply["type"])
	}
	reply = sendRecv(t, conn, `{"type":"ping"}`)
	if reply["type"] != "pong" {
		t.Errorf("connection unusable after malformed message: %v", reply)
	}
}

func TestControlEmergencyStopFlow(t *testing.T) {
	ts, _, _ := newTestServer(t)
	conn := dialWS(t, ts, "/ws/control")
	defer conn.Close()

	if reply := sendRecv(t, conn, `{"type":"emergency_stop"}`); reply["success"] != true {
		t.Fatalf("estop reply: %v", reply)
	}

	reply := sendRecv(t, conn, `{"type":"motor","motor_1":0.5}`)
	if reply["success"] != false {
		t.Errorf("motor command under estop success = %v, want false", reply["success"])
	}

	if reply := sendRecv(t, conn, `{"type":"reset_emergency_stop"}`); reply["success"] != true {
		t.Fatalf("reset reply: %v", reply)
	}
	reply = sendRecv(t, conn, `{"type":"motor","motor_1":0.5}`)
	if reply["success"] != true {
		t.Errorf("motor command after reset success = %v, want true", reply["success"])
	}
}

func TestControlDisconnectStopsMotors(t *testing.T) {
	ts, s, mock := newTestServer(t)
	conn := dialWS(t, ts, "/ws/control")

	reply := sendRecv(t, conn, `{"type":"motor","motor_1":0.8,"motor_2":0.8}`)
	if reply["success"] != true {
		t.Fatalf("motor reply: %v", reply)
	}

	// Abrupt close with a command outstanding: the handler must stop the
	// motors and release the connection.
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Registry().Count() == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if s.Registry().Count() != 0 {
		t.Fatal("connection never released")
	}
	for id, speed := range mock.Speeds() {
		if speed != 0 {
			t.Errorf("motor %d = %g after disconnect, want 0", id, speed)
		}
	}
}

func TestLegacyStreamReleasesConnWhenSensorDown(t *testing.T) {
	ts, s, mock := newTestServer(t)
	mock.FailAttitude = true

	conn := dialWS(t, ts, "/ws/imu")
	// A few ticks with nothing to write, then the client goes away. The
	// handler must still notice and release the connection.
	time.Sleep(50 * time.Millisecond)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Registry().Count() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("connection still registered (%d) after client close", s.Registry().Count())
}

func TestServoBatchesDoNotInterleave(t *testing.T) {
	_, s, mock := newTestServer(t)

	const channels = 8
	const rounds = 50
	batch := func(pulse int) map[int]int {
		pulses := make(map[int]int, channels)
		for ch := 1; ch <= channels; ch++ {
			pulses[ch] = pulse
		}
		return pulses
	}

	// Two clients hammering the servos concurrently must not interleave
	// channel writes from different batches on the hardware.
	var wg sync.WaitGroup
	for _, pulse := range []int{1000, 2000} {
		wg.Add(1)
		go func(pulse int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				s.setServos(batch(pulse))
			}
		}(pulse)
	}
	wg.Wait()

	writes := mock.ServoLog()
	if len(writes) != 2*rounds*channels {
		t.Fatalf("recorded %d servo writes, want %d", len(writes), 2*rounds*channels)
	}
	for i := 0; i < len(writes); i += channels {
		want := strings.Fields(writes[i])[2]
		for j := i + 1; j < i+channels; j++ {
			if got := strings.Fields(writes[j])[2]; got != want {
				t.Fatalf("write %d has pulse %s inside a pulse-%s batch", j, got, want)
			}
		}
	}
}

func TestControlServoCommand(t *testing.T) {
	ts, _, mock := newTestServer(t)
	conn := dialWS(t, ts, "/ws/control")
	defer conn.Close()

	reply := sendRecv(t, conn, `{"type":"servo","servo_2":1200}`)
	if reply["type"] != "servo_response" || reply["success"] != true {
		t.Fatalf("unexpected reply: %v", reply)
	}
	if writes := mock.ServoLog(); len(writes) != 1 || writes[0] != "servo 2 1200" {
		t.Errorf("servo writes = %v, want [servo 2 1200]", writes)
	}
}

func TestTelemetryStream(t *testing.T) {
	ts, _, _ := newTestServer(t)
	conn := dialWS(t, ts, "/ws/telemetry")
	defer conn.Close()

	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	for _, key := range []string{"timestamp", "imu", "encoders", "battery", "system", "motors"} {
		if _, present := frame[key]; !present {
			t.Errorf("first frame missing %q", key)
		}
	}
	motors := frame["motors"].(map[string]any)
	if motors["emergency_stop"] != false {
		t.Errorf("emergency_stop = %v, want false", motors["emergency_stop"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
	if health.Connections != 0 {
		t.Errorf("connections = %d, want 0", health.Connections)
	}
}

func TestEmergencyStopEndpoints(t *testing.T) {
	ts, s, _ := newTestServer(t)

	if resp, err := http.Get(ts.URL + "/emergency_stop"); err != nil {
		t.Fatalf("GET: %v", err)
	} else if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /emergency_stop status = %d, want 405", resp.StatusCode)
	}

	resp, err := http.Post(ts.URL+"/emergency_stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if !s.ctrl.EmergencyStopped() {
		t.Fatal("emergency stop not latched after POST")
	}

	resp, err = http.Post(ts.URL+"/reset_emergency_stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if s.ctrl.EmergencyStopped() {
		t.Error("emergency stop still latched after reset")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, b := &websocket.Conn{}, &websocket.Conn{}

	r.Add(a)
	r.Add(b)
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
	r.Remove(a)
	r.Remove(a) // removing twice is a no-op
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
	r.Remove(b)
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

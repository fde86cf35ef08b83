package telemetry

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/rover_computer/internal/config"
)

// Bridge republishes telemetry frames to an MQTT broker so off-board
// consumers get the same stream without holding a WebSocket to the rover.
// Frames are retained so a late subscriber immediately sees the latest state.
type Bridge struct {
	client mqtt.Client
	topic  string
}

// NewBridge connects to the configured broker.
func NewBridge(cfg *config.Config) (*Bridge, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect: %w", token.Error())
	}
	log.Printf("telemetry bridge connected to %s", cfg.MQTTBroker)
	return &Bridge{client: client, topic: cfg.MQTTTopic}, nil
}

// Publish sends one frame. Publish errors are logged, not returned; a broker
// hiccup must not stall the scheduler.
func (b *Bridge) Publish(frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("frame marshal: %w", err)
	}
	if token := b.client.Publish(b.topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("MQTT publish error: %v", token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}

package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/pkg/mqttconn"
)

// TopicProbe is the per-topic outcome of a test-connection run.
type TopicProbe struct {
	Topic     string `json:"topic"`
	Received  bool   `json:"received"`
	ValidJSON bool   `json:"valid_json"`
}

// TestConnection subscribes transiently to the given topics and reports,
// within the window, which produced any message and which produced
// parseable JSON. Diagnostics only; the session never touches the registry.
func (m *Manager) TestConnection(ctx context.Context, b model.Broker, topics []string, window time.Duration) ([]TopicProbe, error) {
	if b.Protocol != model.ProtocolMQTT {
		return nil, fmt.Errorf("test-connection is only supported for MQTT brokers, got %s", b.Protocol)
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics to probe")
	}

	var mu sync.Mutex
	results := make(map[string]*TopicProbe, len(topics))
	for _, t := range topics {
		results[t] = &TopicProbe{Topic: t}
	}

	onConnect := func(client mqtt.Client) {
		for _, topic := range topics {
			topic := topic
			client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
				mu.Lock()
				defer mu.Unlock()
				p := results[topic]
				p.Received = true
				var parsed any
				if err := json.Unmarshal(msg.Payload(), &parsed); err == nil {
					p.ValidJSON = true
				}
			})
		}
	}

	opts := mqttconn.NewOptions(mqttconn.Config{
		Host:     b.Host,
		Port:     b.Port,
		Username: b.Username,
		Password: b.Password,
		ClientID: "agrotech-probe-" + uuid.NewString()[:8],
		UseTLS:   b.UseTLS,
	}, onConnect)

	client, err := mqttconn.Connect(opts, window)
	if err != nil {
		return nil, fmt.Errorf("probe broker %s: %w", b.ID, err)
	}
	defer mqttconn.Disconnect(client)

	select {
	case <-ctx.Done():
	case <-time.After(window):
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]TopicProbe, 0, len(topics))
	for _, t := range topics {
		out = append(out, *results[t])
	}
	return out, nil
}

package connection

import (
	"context"
	"fmt"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/pkg/metrics"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/pkg/mqttconn"
)

// mqttAdapter keeps one long-lived session per broker. The subscription set
// is the union of all topics declared across the broker's zone-groups plus
// any individually configured sensor topics not already covered; paho's
// auto-reconnect brings the session back and the OnConnect handler
// re-subscribes everything.
type mqttAdapter struct {
	broker model.Broker
	sink   MessageSink
	opts   Options

	mu     sync.Mutex
	topics map[string]bool
	client mqtt.Client
}

func newMQTTAdapter(broker model.Broker, topics []string, sink MessageSink, opts Options) *mqttAdapter {
	set := make(map[string]bool, len(topics))
	for _, t := range topics {
		if t != "" {
			set[t] = true
		}
	}
	return &mqttAdapter{broker: broker, sink: sink, opts: opts, topics: set}
}

func (a *mqttAdapter) Connect(_ context.Context) error {
	cfg := mqttconn.Config{
		Host:     a.broker.Host,
		Port:     a.broker.Port,
		Username: a.broker.Username,
		Password: a.broker.Password,
		ClientID: "agrotech-ingest-" + a.broker.ID,
		UseTLS:   a.broker.UseTLS,
	}
	opts := mqttconn.NewOptions(cfg, a.onConnect)
	client, err := mqttconn.Connect(opts, a.opts.MQTTConnectTimeout)
	if err != nil {
		return fmt.Errorf("broker %s: %w", a.broker.ID, err)
	}
	a.mu.Lock()
	a.client = client
	a.mu.Unlock()
	return nil
}

// onConnect runs on every connect and reconnect.
func (a *mqttAdapter) onConnect(client mqtt.Client) {
	a.mu.Lock()
	topics := make([]string, 0, len(a.topics))
	for t := range a.topics {
		topics = append(topics, t)
	}
	a.mu.Unlock()

	for _, topic := range topics {
		if token := client.Subscribe(topic, a.opts.QoS, a.forward); token.Wait() && token.Error() != nil {
			log.Printf("mqtt: broker %s subscribe %s: %v", a.broker.ID, topic, token.Error())
			continue
		}
		log.Printf("mqtt: broker %s subscribed to %s", a.broker.ID, topic)
	}
}

func (a *mqttAdapter) forward(_ mqtt.Client, msg mqtt.Message) {
	metrics.MessagesReceived.WithLabelValues("mqtt").Inc()
	a.sink.HandleMessage(msg.Topic(), msg.Payload())
}

func (a *mqttAdapter) Disconnect() {
	a.mu.Lock()
	client := a.client
	a.client = nil
	a.mu.Unlock()
	mqttconn.Disconnect(client)
}

func (a *mqttAdapter) Publish(topic string, payload []byte) error {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil || !client.IsConnected() {
		return ErrNoHandle
	}
	token := client.Publish(topic, a.opts.QoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (a *mqttAdapter) Subscribe(topic string) error {
	a.mu.Lock()
	a.topics[topic] = true
	client := a.client
	a.mu.Unlock()
	if client == nil || !client.IsConnected() {
		return nil // picked up by the next reconnect
	}
	if token := client.Subscribe(topic, a.opts.QoS, a.forward); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

func (a *mqttAdapter) Unsubscribe(topic string) error {
	a.mu.Lock()
	delete(a.topics, topic)
	client := a.client
	a.mu.Unlock()
	if client == nil || !client.IsConnected() {
		return nil
	}
	if token := client.Unsubscribe(topic); token.Wait() && token.Error() != nil {
		return fmt.Errorf("unsubscribe %s: %w", topic, token.Error())
	}
	return nil
}

package entities

import (
	"fmt"
	"strings"
)

// TopicSpec is one declared topic in a zone-group. Explicit threshold
// overrides, when present, win over device-class defaults at provisioning.
type TopicSpec struct {
	Topic string   `json:"topic"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// ZoneGroup binds one broker to one field zone and carries the topic list
// relevant to that zone. Topics are not required to be unique system-wide:
// several zone-groups may declare overlapping topics.
type ZoneGroup struct {
	ID           string      `json:"id"`
	BrokerID     string      `json:"broker_id"`
	ZoneID       string      `json:"zone_id"`
	Topics       []TopicSpec `json:"topics"`
	PortOverride int         `json:"port_override,omitempty"`
	TestTopic    string      `json:"test_topic,omitempty"`
}

// TopicNames returns the declared topic strings in declaration order.
func (g ZoneGroup) TopicNames() []string {
	out := make([]string, 0, len(g.Topics))
	for _, t := range g.Topics {
		if s := strings.TrimSpace(t.Topic); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SyntheticTopic is the topic the polling and socket adapters stamp on every
// frame they forward, so readings resolve back to this zone-group's sensors.
func (g ZoneGroup) SyntheticTopic() string {
	return fmt.Sprintf("zonegroup/%s", g.ID)
}

func hostPort(host string, port int) string {
	return fmt.Sprintf("%s:%d", strings.TrimSpace(host), port)
}

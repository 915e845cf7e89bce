package entities

// Protocol identifies the transport family a broker speaks.
type Protocol string

const (
	ProtocolMQTT      Protocol = "MQTT"
	ProtocolHTTP      Protocol = "HTTP"
	ProtocolWebSocket Protocol = "WEBSOCKET"
)

// Broker is an upstream connectivity endpoint. It owns zero or more
// zone-groups; its administrative state gates every connection to it.
type Broker struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Protocol Protocol `json:"protocol"`
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	UseTLS   bool     `json:"use_tls,omitempty"`
	Enabled  bool     `json:"enabled"`
}

// Address renders host:port, honoring an optional per-zone-group port override.
func (b Broker) Address(portOverride int) string {
	port := b.Port
	if portOverride > 0 {
		port = portOverride
	}
	return hostPort(b.Host, port)
}

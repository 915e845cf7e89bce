// Package connection owns the live broker connections: one adapter per
// transport family, an injected registry with one handle per broker id, and
// the transient test-connection probe.
package connection

import (
	"context"
	"errors"
	"time"
)

// MessageSink receives every normalized (topic, payload) an adapter pulls
// off the wire. The sensor resolver implements it.
type MessageSink interface {
	HandleMessage(topic string, payload []byte)
}

// Adapter is the contract all three transports share. The rest of the
// pipeline depends on this, never on the transport detail.
type Adapter interface {
	Connect(ctx context.Context) error
	Disconnect()
	Publish(topic string, payload []byte) error
	Subscribe(topic string) error
	Unsubscribe(topic string) error
}

// Options are the transport tunables owned by the process config.
type Options struct {
	PollingPeriod        time.Duration
	SocketKeepalive      time.Duration
	SocketReconnectDelay time.Duration
	MQTTConnectTimeout   time.Duration
	QoS                  byte
}

// ErrNoHandle is returned when a publish or subscribe targets a broker with
// no connected handle. Callers must treat publication as best-effort.
var ErrNoHandle = errors.New("connection: no connected handle for broker")

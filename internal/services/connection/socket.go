package connection

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/pkg/metrics"
)

const socketWriteWait = 10 * time.Second

// subscribeFrame is the single subscription-request frame sent after open
// when a zone-group declares more than one topic; the first topic is already
// part of the connection path.
type subscribeFrame struct {
	Tipo   string   `json:"tipo"`
	Topics []string `json:"topics"`
}

// socketAdapter opens one streaming socket per zone-group. Each socket runs
// its own read loop and keepalive probe; a closed socket schedules a
// reconnect after a fixed delay as long as the adapter has not been torn
// down (i.e. the broker is still administratively enabled).
type socketAdapter struct {
	broker model.Broker
	groups []model.ZoneGroup
	sink   MessageSink
	opts   Options

	mu     sync.Mutex
	conns  map[string]*websocket.Conn // group id -> live conn
	closed bool
}

func newSocketAdapter(broker model.Broker, groups []model.ZoneGroup, sink MessageSink, opts Options) *socketAdapter {
	return &socketAdapter{
		broker: broker,
		groups: groups,
		sink:   sink,
		opts:   opts,
		conns:  make(map[string]*websocket.Conn),
	}
}

// Connect opens one socket per zone-group. A group whose endpoint is down
// is not fatal: its reconnect timer keeps trying until Disconnect, and the
// groups that did open must stay owned by a registered handle.
func (a *socketAdapter) Connect(_ context.Context) error {
	for _, g := range a.groups {
		if len(g.TopicNames()) == 0 {
			log.Printf("socket: broker %s group %s has no topics, skipping", a.broker.ID, g.ID)
			continue
		}
		if err := a.openGroup(g); err != nil {
			log.Printf("socket: broker %s group %s: %v, retrying in %s",
				a.broker.ID, g.ID, err, a.opts.SocketReconnectDelay)
			a.scheduleReconnect(g)
		}
	}
	return nil
}

func (a *socketAdapter) openGroup(g model.ZoneGroup) error {
	topics := g.TopicNames()
	url := a.endpoint(g, topics[0])

	dialer := *websocket.DefaultDialer
	if a.broker.UseTLS {
		dialer.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}

	if len(topics) > 1 {
		frame, _ := json.Marshal(subscribeFrame{Tipo: "SUBSCRIBE", Topics: topics[1:]})
		conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			conn.Close()
			return fmt.Errorf("subscription frame: %w", err)
		}
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		conn.Close()
		return nil
	}
	a.conns[g.ID] = conn
	a.mu.Unlock()

	go a.readLoop(g, conn)
	go a.keepalive(g, conn)
	log.Printf("socket: broker %s group %s connected to %s", a.broker.ID, g.ID, url)
	return nil
}

func (a *socketAdapter) readLoop(g model.ZoneGroup, conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			a.mu.Lock()
			closed := a.closed
			if a.conns[g.ID] == conn {
				delete(a.conns, g.ID)
			}
			a.mu.Unlock()
			if !closed {
				log.Printf("socket: group %s read: %v, reconnecting in %s", g.ID, err, a.opts.SocketReconnectDelay)
				a.scheduleReconnect(g)
			}
			return
		}
		metrics.MessagesReceived.WithLabelValues("socket").Inc()
		a.sink.HandleMessage(g.SyntheticTopic(), data)
	}
}

func (a *socketAdapter) keepalive(g model.ZoneGroup, conn *websocket.Conn) {
	ticker := time.NewTicker(a.opts.SocketKeepalive)
	defer ticker.Stop()
	for range ticker.C {
		a.mu.Lock()
		current := a.conns[g.ID] == conn
		a.mu.Unlock()
		if !current {
			return
		}
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
			conn.Close() // the read loop notices and reconnects
			return
		}
	}
}

func (a *socketAdapter) scheduleReconnect(g model.ZoneGroup) {
	time.AfterFunc(a.opts.SocketReconnectDelay, func() {
		a.mu.Lock()
		closed := a.closed
		a.mu.Unlock()
		if closed {
			return
		}
		if err := a.openGroup(g); err != nil {
			log.Printf("socket: group %s reconnect: %v", g.ID, err)
			a.scheduleReconnect(g)
		}
	})
}

func (a *socketAdapter) endpoint(g model.ZoneGroup, topic string) string {
	scheme := "ws"
	if a.broker.UseTLS {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, a.broker.Address(g.PortOverride), strings.TrimLeft(topic, "/"))
}

func (a *socketAdapter) Disconnect() {
	a.mu.Lock()
	a.closed = true
	conns := a.conns
	a.conns = make(map[string]*websocket.Conn)
	a.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

// Publish writes a text frame on the socket of the group declaring the
// topic, falling back to any live socket.
func (a *socketAdapter) Publish(topic string, payload []byte) error {
	conn := a.connFor(topic)
	if conn == nil {
		return ErrNoHandle
	}
	conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}
	return nil
}

func (a *socketAdapter) connFor(topic string) *websocket.Conn {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, g := range a.groups {
		for _, t := range g.TopicNames() {
			if t == topic {
				if c, ok := a.conns[g.ID]; ok {
					return c
				}
			}
		}
	}
	for _, c := range a.conns {
		return c
	}
	return nil
}

// Subscriptions are fixed at open time for streaming sockets.
func (a *socketAdapter) Subscribe(string) error   { return nil }
func (a *socketAdapter) Unsubscribe(string) error { return nil }

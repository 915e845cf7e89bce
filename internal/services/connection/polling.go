package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/pkg/metrics"
)

// pollAdapter reads telemetry over periodic HTTP. Each zone-group owns its
// own timer and circuit breaker: one slow endpoint never blocks another.
// Malformed responses are dropped silently; that is expected noise.
type pollAdapter struct {
	broker model.Broker
	groups []model.ZoneGroup
	sink   MessageSink
	period time.Duration
	client *http.Client

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newPollAdapter(broker model.Broker, groups []model.ZoneGroup, sink MessageSink, opts Options) *pollAdapter {
	transport := &http.Transport{}
	if broker.UseTLS {
		transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &pollAdapter{
		broker: broker,
		groups: groups,
		sink:   sink,
		period: opts.PollingPeriod,
		client: &http.Client{Timeout: 10 * time.Second, Transport: transport},
	}
}

// Connect starts the per-group timers. Their lifetime is owned by
// Disconnect, not by the caller's context.
func (a *pollAdapter) Connect(_ context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	for _, g := range a.groups {
		topics := g.TopicNames()
		if len(topics) == 0 {
			log.Printf("poll: broker %s group %s has no topics, skipping", a.broker.ID, g.ID)
			continue
		}
		breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "poll-" + g.ID,
			Timeout: 2 * a.period,
		})
		a.wg.Add(1)
		go a.pollLoop(runCtx, g, topics[0], breaker)
	}
	return nil
}

func (a *pollAdapter) pollLoop(ctx context.Context, g model.ZoneGroup, topic string, breaker *gobreaker.CircuitBreaker) {
	defer a.wg.Done()
	url := a.endpoint(g, topic)
	ticker := time.NewTicker(a.period)
	defer ticker.Stop()
	log.Printf("poll: broker %s group %s polling %s every %s", a.broker.ID, g.ID, url, a.period)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			body, err := breaker.Execute(func() (interface{}, error) {
				return a.fetch(ctx, url)
			})
			if err != nil {
				log.Printf("poll: group %s: %v", g.ID, err)
				continue
			}
			raw := body.([]byte)
			var parsed any
			if err := json.Unmarshal(raw, &parsed); err != nil {
				continue // malformed response, drop silently
			}
			metrics.MessagesReceived.WithLabelValues("http").Inc()
			a.sink.HandleMessage(g.SyntheticTopic(), raw)
		}
	}
}

func (a *pollAdapter) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if a.broker.Username != "" {
		req.SetBasicAuth(a.broker.Username, a.broker.Password)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// endpoint joins the broker base address with the group's first configured
// topic, treated as a relative path.
func (a *pollAdapter) endpoint(g model.ZoneGroup, topic string) string {
	scheme := "http"
	if a.broker.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, a.broker.Address(g.PortOverride), strings.TrimLeft(topic, "/"))
}

func (a *pollAdapter) Disconnect() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}

// Publish sends the payload as an HTTP POST to the broker base plus topic
// path, the transport's only send primitive.
func (a *pollAdapter) Publish(topic string, payload []byte) error {
	scheme := "http"
	if a.broker.UseTLS {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s/%s", scheme, a.broker.Address(0), strings.TrimLeft(topic, "/"))
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.broker.Username != "" {
		req.SetBasicAuth(a.broker.Username, a.broker.Password)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// Polling endpoints have no subscription concept.
func (a *pollAdapter) Subscribe(string) error   { return nil }
func (a *pollAdapter) Unsubscribe(string) error { return nil }

// Package mqttconn builds paho MQTT clients with the connection policy every
// caller shares: exponential-backoff initial connect, automatic reconnect,
// optional TLS and credentials.
package mqttconn

import (
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string
	UseTLS   bool
}

// NewOptions renders client options for the given endpoint. onConnect runs
// on every (re)connect; subscribers use it to re-subscribe.
func NewOptions(cfg Config, onConnect mqtt.OnConnectHandler) *mqtt.ClientOptions {
	scheme := "tcp"
	if cfg.UseTLS {
		scheme = "ssl"
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port))
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	if onConnect != nil {
		opts.SetOnConnectHandler(onConnect)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt: connection to %s lost: %v", cfg.Host, err)
	})
	return opts
}

// Connect dials with exponential backoff. Once established, paho's own
// auto-reconnect takes over.
func Connect(opts *mqtt.ClientOptions, maxElapsed time.Duration) (mqtt.Client, error) {
	if maxElapsed <= 0 {
		maxElapsed = 10 * time.Second
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("mqtt: connect failed: %v", token.Error())
			return token.Error()
		}
		return nil
	}, bo)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect after retries: %w", err)
	}
	return client, nil
}

// Disconnect closes the client, waiting briefly for in-flight work.
func Disconnect(client mqtt.Client) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
}

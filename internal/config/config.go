// Package config loads process configuration from an optional YAML file with
// environment-variable overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
)

// Duration parses "30s" style values out of YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	HTTPPort int                  `yaml:"http_port"`
	Influx   storage.InfluxConfig `yaml:"influx"`

	Watchdog struct {
		SweepInterval     Duration `yaml:"sweep_interval"`
		InactivityTimeout Duration `yaml:"inactivity_timeout"`
	} `yaml:"watchdog"`

	Polling struct {
		Period Duration `yaml:"period"`
	} `yaml:"polling"`

	Socket struct {
		Keepalive      Duration `yaml:"keepalive"`
		ReconnectDelay Duration `yaml:"reconnect_delay"`
	} `yaml:"socket"`

	MQTT struct {
		ConnectTimeout Duration `yaml:"connect_timeout"`
		QoS            int      `yaml:"qos"`
	} `yaml:"mqtt"`

	Automation struct {
		CommandTopic string `yaml:"command_topic"`
	} `yaml:"automation"`

	Probe struct {
		Window Duration `yaml:"window"`
	} `yaml:"probe"`
}

// Load reads the YAML file at path (skipped when empty or missing), then
// applies env overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.Influx.URL = envStr("INFLUX_URL", cfg.Influx.URL)
	cfg.Influx.Token = envStr("INFLUX_TOKEN", cfg.Influx.Token)
	cfg.Influx.Org = envStr("INFLUX_ORG", cfg.Influx.Org)
	cfg.Influx.Bucket = envStr("INFLUX_BUCKET", cfg.Influx.Bucket)

	cfg.Watchdog.SweepInterval = envDur("WATCHDOG_SWEEP_INTERVAL", cfg.Watchdog.SweepInterval)
	cfg.Watchdog.InactivityTimeout = envDur("WATCHDOG_INACTIVITY_TIMEOUT", cfg.Watchdog.InactivityTimeout)
	cfg.Polling.Period = envDur("POLLING_PERIOD", cfg.Polling.Period)
	cfg.Socket.Keepalive = envDur("SOCKET_KEEPALIVE", cfg.Socket.Keepalive)
	cfg.Socket.ReconnectDelay = envDur("SOCKET_RECONNECT_DELAY", cfg.Socket.ReconnectDelay)
	cfg.Automation.CommandTopic = envStr("AUTOMATION_COMMAND_TOPIC", cfg.Automation.CommandTopic)

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.Influx.URL == "" {
		c.Influx.URL = "http://localhost:8086"
	}
	if c.Influx.Org == "" {
		c.Influx.Org = "agrotech"
	}
	if c.Influx.Bucket == "" {
		c.Influx.Bucket = "readings"
	}
	if c.Watchdog.SweepInterval <= 0 {
		c.Watchdog.SweepInterval = Duration(30 * time.Second)
	}
	if c.Watchdog.InactivityTimeout <= 0 {
		c.Watchdog.InactivityTimeout = Duration(2 * time.Minute)
	}
	if c.Polling.Period <= 0 {
		c.Polling.Period = Duration(30 * time.Second)
	}
	if c.Socket.Keepalive <= 0 {
		c.Socket.Keepalive = Duration(30 * time.Second)
	}
	if c.Socket.ReconnectDelay <= 0 {
		c.Socket.ReconnectDelay = Duration(10 * time.Second)
	}
	if c.MQTT.ConnectTimeout <= 0 {
		c.MQTT.ConnectTimeout = Duration(10 * time.Second)
	}
	if c.Probe.Window <= 0 {
		c.Probe.Window = Duration(5 * time.Second)
	}
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def Duration) Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return Duration(d)
		}
	}
	return def
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model/entities"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8086", cfg.Influx.URL)
	assert.Equal(t, "agrotech", cfg.Influx.Org)
	assert.Equal(t, "readings", cfg.Influx.Bucket)
	assert.Equal(t, 30*time.Second, cfg.Watchdog.SweepInterval.Std())
	assert.Equal(t, 2*time.Minute, cfg.Watchdog.InactivityTimeout.Std())
	assert.Equal(t, 30*time.Second, cfg.Polling.Period.Std())
	assert.Equal(t, 10*time.Second, cfg.Socket.ReconnectDelay.Std())
	assert.Equal(t, 5*time.Second, cfg.Probe.Window.Std())
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_port: 9090
watchdog:
  sweep_interval: 15s
  inactivity_timeout: 1m
polling:
  period: 45s
automation:
  command_topic: finca/bomba
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 15*time.Second, cfg.Watchdog.SweepInterval.Std())
	assert.Equal(t, time.Minute, cfg.Watchdog.InactivityTimeout.Std())
	assert.Equal(t, 45*time.Second, cfg.Polling.Period.Std())
	assert.Equal(t, "finca/bomba", cfg.Automation.CommandTopic)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 9090\n"), 0o600))
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("WATCHDOG_SWEEP_INTERVAL", "20s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTPPort)
	assert.Equal(t, 20*time.Second, cfg.Watchdog.SweepInterval.Std())
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watchdog:\n  sweep_interval: pronto\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
zones:
  - id: zona1
    name: Invernadero Norte
sub_zones:
  - id: sz1
    zone_id: zona1
    telemetry: true
brokers:
  - id: b1
    protocol: MQTT
    host: broker.local
    port: 1883
    enabled: true
zone_groups:
  - id: g1
    broker_id: b1
    zone_id: zona1
    test_topic: finca/test
    topics:
      - topic: finca/temperatura
        min: 5
        max: 40
      - topic: finca/humedad_suelo
`), 0o600))

	boot, err := LoadBootstrap(path)
	require.NoError(t, err)

	require.Len(t, boot.Zones, 1)
	assert.Equal(t, "Invernadero Norte", boot.Zones[0].Name)
	require.Len(t, boot.SubZones, 1)
	assert.True(t, boot.SubZones[0].Telemetry)
	require.Len(t, boot.Brokers, 1)
	assert.Equal(t, entities.ProtocolMQTT, boot.Brokers[0].Protocol)
	require.Len(t, boot.Groups, 1)
	g := boot.Groups[0]
	assert.Equal(t, "finca/test", g.TestTopic)
	require.Len(t, g.Topics, 2)
	require.NotNil(t, g.Topics[0].Min)
	assert.Equal(t, 5.0, *g.Topics[0].Min)
	assert.Nil(t, g.Topics[1].Min)
}

func TestLoadBootstrap_MissingFile(t *testing.T) {
	boot, err := LoadBootstrap(filepath.Join(t.TempDir(), "no-such.yaml"))
	require.NoError(t, err)
	assert.Empty(t, boot.Brokers)
}

package storage

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model/entities"
)

// InfluxConfig carries the InfluxDB connection settings.
type InfluxConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// InfluxReadings writes readings through the non-blocking write API and
// tracks the age of the last write error for /healthz and /readyz.
type InfluxReadings struct {
	writeAPI    api.WriteAPI
	measurement string

	mu      sync.RWMutex
	lastErr time.Time
}

func NewInfluxReadings(client influxdb2.Client, cfg InfluxConfig) (*InfluxReadings, error) {
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = "sensor_reading"
	}
	w := &InfluxReadings{
		writeAPI:    client.WriteAPI(cfg.Org, cfg.Bucket),
		measurement: measurement,
		lastErr:     time.Now().Add(-24 * time.Hour),
	}
	go func() {
		for err := range w.writeAPI.Errors() {
			if err != nil {
				w.mu.Lock()
				w.lastErr = time.Now()
				w.mu.Unlock()
				log.Printf("influx: write error: %v", err)
			}
		}
	}()
	return w, nil
}

// Append writes one reading point. Failures surface asynchronously on the
// error channel; delivery is at-most-once and never retried here.
func (w *InfluxReadings) Append(_ context.Context, r entities.Reading) error {
	tags := map[string]string{
		"sensor_id":      r.SensorID,
		"classification": string(r.Classification),
	}
	if r.Unit != "" {
		tags["unit"] = r.Unit
	}
	fields := map[string]interface{}{
		"value": r.Value,
	}
	point := influxdb2.NewPoint(w.measurement, tags, fields, r.Timestamp)
	w.writeAPI.WritePoint(point)
	return nil
}

// LastErrorAge returns how long the write path has been error-free.
func (w *InfluxReadings) LastErrorAge() time.Duration {
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

// Flush drains buffered points, used on shutdown.
func (w *InfluxReadings) Flush() { w.writeAPI.Flush() }

var _ ReadingStore = (*InfluxReadings)(nil)

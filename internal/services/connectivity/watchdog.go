package connectivity

import (
	"context"
	"log"
	"time"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/pkg/metrics"
)

// Watchdog periodically flips stale sensors to Disconnected. The inactivity
// timeout must be strictly greater than the sweep interval; sensors that
// have never spoken (null timestamp) are skipped until first contact.
type Watchdog struct {
	sensors  storage.SensorStore
	machine  *Machine
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

func NewWatchdog(sensors storage.SensorStore, machine *Machine, interval, timeout time.Duration) *Watchdog {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= interval {
		timeout = 2 * interval
	}
	return &Watchdog{
		sensors:  sensors,
		machine:  machine,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Run blocks until the context is cancelled, sweeping on a fixed interval.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	log.Printf("watchdog: sweeping every %s, inactivity timeout %s", w.interval, w.timeout)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one pass. One sensor's failure never aborts the rest.
func (w *Watchdog) Sweep() {
	now := w.now()
	for _, s := range w.sensors.All() {
		if !s.Sweepable() {
			continue
		}
		if !s.Stale(now, w.timeout) {
			continue
		}
		if s.State == model.StateDisconnected {
			continue // already flagged, nothing to do
		}
		if err := w.machine.MarkDisconnected(s.ID, false, now); err != nil {
			log.Printf("watchdog: sensor %s: %v", s.ID, err)
			continue
		}
		metrics.WatchdogDisconnects.Inc()
		log.Printf("watchdog: sensor %s (%s) silent for > %s, marked disconnected", s.ID, s.Topic, w.timeout)
	}
}

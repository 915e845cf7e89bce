package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/config"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/services/admin"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/services/automation"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/services/connection"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/services/connectivity"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/services/ingest"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/services/provisioning"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
)

// sinkRelay breaks the construction cycle between the connection manager
// (which needs a sink) and the resolver (which needs the manager through
// the automation engine). Set once during wiring, before any connect.
type sinkRelay struct{ target connection.MessageSink }

func (r *sinkRelay) HandleMessage(topic string, payload []byte) {
	if r.target != nil {
		r.target.HandleMessage(topic, payload)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(envStr("CONFIG_FILE", "config.yaml"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// === Stores ===
	mem := storage.NewMemory()
	brokers := mem.Brokers()
	groups := mem.Groups()

	var readings storage.ReadingStore
	var influxReadings *storage.InfluxReadings
	if cfg.Influx.Token != "" {
		client := influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token)
		defer client.Close()
		influxReadings, err = storage.NewInfluxReadings(client, cfg.Influx)
		if err != nil {
			log.Fatalf("influx: %v", err)
		}
		readings = influxReadings
	} else {
		log.Printf("ingest: no influx token, keeping readings in memory")
		readings = storage.NewMemoryReadings(10000)
	}

	// === Pipeline ===
	relay := &sinkRelay{}
	manager := connection.NewManager(relay, brokers, groups, mem, connection.Options{
		PollingPeriod:        cfg.Polling.Period.Std(),
		SocketKeepalive:      cfg.Socket.Keepalive.Std(),
		SocketReconnectDelay: cfg.Socket.ReconnectDelay.Std(),
		MQTTConnectTimeout:   cfg.MQTT.ConnectTimeout.Std(),
		QoS:                  byte(cfg.MQTT.QoS),
	})
	machine := connectivity.NewMachine(mem)
	engine := automation.NewEngine(manager, groups, cfg.Automation.CommandTopic)
	resolver := ingest.NewResolver(mem, groups, mem, readings, machine, engine)
	relay.target = resolver

	provisioner := provisioning.NewService(mem, groups)
	adminSvc := admin.NewService(brokers, groups, mem, mem, manager, provisioner, machine, cfg.Probe.Window.Std())

	// === Bootstrap inventory ===
	boot, err := config.LoadBootstrap(envStr("BOOTSTRAP_FILE", "bootstrap.yaml"))
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	for _, z := range boot.Zones {
		if err := mem.SaveZone(z); err != nil {
			log.Fatalf("bootstrap zone %s: %v", z.ID, err)
		}
	}
	for _, sz := range boot.SubZones {
		if err := mem.SaveSubZone(sz); err != nil {
			log.Fatalf("bootstrap sub-zone %s: %v", sz.ID, err)
		}
	}
	for _, b := range boot.Brokers {
		if err := adminSvc.CreateBroker(ctx, b); err != nil {
			log.Fatalf("bootstrap broker %s: %v", b.ID, err)
		}
	}
	for _, g := range boot.Groups {
		if err := adminSvc.CreateZoneGroup(ctx, g); err != nil {
			log.Fatalf("bootstrap group %s: %v", g.ID, err)
		}
	}

	// === Watchdog ===
	watchdog := connectivity.NewWatchdog(mem, machine, cfg.Watchdog.SweepInterval.Std(), cfg.Watchdog.InactivityTimeout.Std())
	go watchdog.Run(ctx)

	// === HTTP ===
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		type status struct {
			Status         string  `json:"status"`
			InfluxErrAgeS  float64 `json:"influx_error_age_sec"`
			BrokersTracked int     `json:"brokers"`
		}
		st := status{Status: "ok", BrokersTracked: len(brokers.All())}
		if influxReadings != nil {
			st.InfluxErrAgeS = influxReadings.LastErrorAge().Seconds()
			if influxReadings.LastErrorAge() < 30*time.Second {
				st.Status = "degraded"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ready := influxReadings == nil || influxReadings.LastErrorAge() > 2*time.Second
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ready": ready})
	})

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("ingest: HTTP listening on :%d", cfg.HTTPPort)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("ingest: shutting down...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = hs.Shutdown(shCtx)

	manager.Shutdown()
	if influxReadings != nil {
		influxReadings.Flush()
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Package storage is the boundary to the relational CRUD layer, which lives
// outside this subsystem. The ingestion pipeline only needs atomic single-row
// updates, expressed here as narrow interfaces; the in-memory implementation
// backs tests and standalone deployments, readings go to InfluxDB.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model/entities"
)

var ErrNotFound = errors.New("storage: not found")

// SensorStore holds sensor records. UpdateState and Touch must be atomic per
// row: they are the only writes raced by the watchdog and live messages.
type SensorStore interface {
	Save(s entities.Sensor) error
	Get(id string) (entities.Sensor, error)
	Delete(id string) error
	All() []entities.Sensor
	FindByTopic(topic string) []entities.Sensor
	FindByZone(zoneID string) []entities.Sensor
	FindByTopicInZone(zoneID, topic string) (entities.Sensor, bool)
	UpdateState(id string, state entities.SensorState) error
	Touch(id string, t time.Time) error
}

// BrokerStore holds broker endpoint records.
type BrokerStore interface {
	Save(b entities.Broker) error
	Get(id string) (entities.Broker, error)
	Delete(id string) error
	All() []entities.Broker
}

// ZoneGroupStore holds broker↔zone bindings.
type ZoneGroupStore interface {
	Save(g entities.ZoneGroup) error
	Get(id string) (entities.ZoneGroup, error)
	Delete(id string) error
	FindByBroker(brokerID string) []entities.ZoneGroup
	FindByZone(zoneID string) []entities.ZoneGroup
}

// ZoneStore resolves zones and sub-zones for the resolver's authorization
// gate. Zone/sub-zone CRUD itself belongs to the excluded layer.
type ZoneStore interface {
	SaveZone(z entities.Zone) error
	GetZone(id string) (entities.Zone, error)
	SaveSubZone(sz entities.SubZone) error
	GetSubZone(id string) (entities.SubZone, error)
}

// ReadingStore persists immutable readings. Append-only by contract.
type ReadingStore interface {
	Append(ctx context.Context, r entities.Reading) error
}

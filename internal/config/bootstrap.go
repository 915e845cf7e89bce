package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model/entities"
)

// Bootstrap is the declarative startup inventory: zones, brokers and
// zone-groups fed through the administrative operations before the process
// starts listening. In deployments with the full CRUD layer the file is
// simply absent.
type Bootstrap struct {
	Zones    []entities.Zone
	SubZones []entities.SubZone
	Brokers  []entities.Broker
	Groups   []entities.ZoneGroup
}

type bootstrapFile struct {
	Zones []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"zones"`
	SubZones []struct {
		ID        string `yaml:"id"`
		ZoneID    string `yaml:"zone_id"`
		Name      string `yaml:"name"`
		Telemetry bool   `yaml:"telemetry"`
	} `yaml:"sub_zones"`
	Brokers []struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Protocol string `yaml:"protocol"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		UseTLS   bool   `yaml:"use_tls"`
		Enabled  bool   `yaml:"enabled"`
	} `yaml:"brokers"`
	Groups []struct {
		ID           string `yaml:"id"`
		BrokerID     string `yaml:"broker_id"`
		ZoneID       string `yaml:"zone_id"`
		PortOverride int    `yaml:"port_override"`
		TestTopic    string `yaml:"test_topic"`
		Topics       []struct {
			Topic string   `yaml:"topic"`
			Min   *float64 `yaml:"min"`
			Max   *float64 `yaml:"max"`
		} `yaml:"topics"`
	} `yaml:"zone_groups"`
}

// LoadBootstrap reads the inventory file. A missing file is not an error.
func LoadBootstrap(path string) (*Bootstrap, error) {
	if path == "" {
		return &Bootstrap{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Bootstrap{}, nil
		}
		return nil, fmt.Errorf("read bootstrap %s: %w", path, err)
	}
	var f bootstrapFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse bootstrap %s: %w", path, err)
	}

	out := &Bootstrap{}
	for _, z := range f.Zones {
		out.Zones = append(out.Zones, entities.Zone{ID: z.ID, Name: z.Name})
	}
	for _, sz := range f.SubZones {
		out.SubZones = append(out.SubZones, entities.SubZone{
			ID: sz.ID, ZoneID: sz.ZoneID, Name: sz.Name, Telemetry: sz.Telemetry,
		})
	}
	for _, b := range f.Brokers {
		out.Brokers = append(out.Brokers, entities.Broker{
			ID: b.ID, Name: b.Name, Protocol: entities.Protocol(b.Protocol),
			Host: b.Host, Port: b.Port, Username: b.Username, Password: b.Password,
			UseTLS: b.UseTLS, Enabled: b.Enabled,
		})
	}
	for _, g := range f.Groups {
		group := entities.ZoneGroup{
			ID: g.ID, BrokerID: g.BrokerID, ZoneID: g.ZoneID,
			PortOverride: g.PortOverride, TestTopic: g.TestTopic,
		}
		for _, t := range g.Topics {
			group.Topics = append(group.Topics, entities.TopicSpec{Topic: t.Topic, Min: t.Min, Max: t.Max})
		}
		out.Groups = append(out.Groups, group)
	}
	return out, nil
}

package entities

import "strings"

// DeviceClass describes one known family of field devices. The same fixed
// dictionary backs name-based payload matching in the decoder and default
// naming/thresholds in auto-provisioning. Order matters: first match wins,
// so soil moisture must precede plain humidity ("humedad_suelo" contains
// "humedad").
type DeviceClass struct {
	Key         string
	Matchers    []string // substrings matched against topic or display name
	Fields      []string // well-known payload field names, tried in order
	Unit        string
	Divisor     float64 // unit-scaling divisor applied to raw values (0 = none)
	DefaultName string
	DefaultMin  float64
	DefaultMax  float64
}

const (
	ClassSoilMoisture = "soil_moisture"
	ClassTemperature  = "temperature"
	ClassHumidity     = "humidity"
	ClassLight        = "light"
	ClassPump         = "pump"
)

var DeviceClasses = []DeviceClass{
	{
		Key:         ClassSoilMoisture,
		Matchers:    []string{"humedad_suelo", "humedadsuelo", "suelo", "soil", "moisture"},
		Fields:      []string{"humedadSuelo", "humedad_suelo", "soil_moisture", "moisture", "HumedadSuelo"},
		Unit:        "%",
		DefaultName: "Sensor de Humedad del Suelo",
		DefaultMin:  30,
		DefaultMax:  70,
	},
	{
		Key:         ClassTemperature,
		Matchers:    []string{"temperatura", "temperature", "temp"},
		Fields:      []string{"Temperatura", "temperatura", "temperature", "temp"},
		Unit:        "°C",
		DefaultName: "Sensor de Temperatura",
		DefaultMin:  10,
		DefaultMax:  35,
	},
	{
		Key:         ClassHumidity,
		Matchers:    []string{"humedad", "humidity", "hum"},
		Fields:      []string{"Humedad", "humedad", "humidity", "hum"},
		Unit:        "%",
		DefaultName: "Sensor de Humedad",
		DefaultMin:  30,
		DefaultMax:  80,
	},
	{
		Key:         ClassLight,
		Matchers:    []string{"luz", "light", "lux"},
		Fields:      []string{"Luz", "luz", "light", "lux"},
		Unit:        "lx",
		Divisor:     100,
		DefaultName: "Sensor de Luz",
		DefaultMin:  0,
		DefaultMax:  1000,
	},
	{
		Key:         ClassPump,
		Matchers:    []string{"bomba", "pump", "riego", "irrigation", "valvula"},
		Fields:      []string{"bomba", "pump", "estadoBomba"},
		Unit:        "",
		DefaultName: "Bomba de Riego",
		DefaultMin:  0,
		DefaultMax:  1,
	},
}

// MatchClass finds the first device class whose matcher appears in s
// (case-insensitive). Returns nil when nothing matches.
func MatchClass(s string) *DeviceClass {
	low := strings.ToLower(s)
	for i := range DeviceClasses {
		for _, m := range DeviceClasses[i].Matchers {
			if strings.Contains(low, m) {
				return &DeviceClasses[i]
			}
		}
	}
	return nil
}

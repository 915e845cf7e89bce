// Package ingest resolves inbound (topic, payload) messages to sensor
// records and decodes connectivity signals and numeric values out of them.
// The decoder is stateless and transport-agnostic: adapters hand it raw
// bytes, it never sees a connection.
package ingest

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
)

// Payload is one inbound message body, classified as a structured JSON
// object or a bare scalar (number or short status string).
type Payload struct {
	structured map[string]any
	scalar     string
	isObject   bool
}

// ParsePayload classifies raw bytes. Anything that is not a JSON object is
// kept verbatim as a scalar, quotes stripped.
func ParsePayload(raw []byte) Payload {
	trimmed := strings.TrimSpace(string(raw))
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil && strings.HasPrefix(trimmed, "{") {
		return Payload{structured: obj, isObject: true}
	}
	return Payload{scalar: strings.Trim(trimmed, `"`)}
}

// Signal is the connectivity verdict extracted from a payload.
type Signal int

const (
	SignalNone Signal = iota
	SignalConnected
	SignalDisconnected
)

// Well-known connectivity field names scanned when a sensor has no explicit
// connectivity configuration.
var connectivityFields = []string{
	"estado", "state", "status", "conectado", "connected", "online", "conexion",
}

var falseTokens = map[string]bool{
	"0": true, "false": true, "off": true, "offline": true,
	"desconectado": true, "disconnected": true, "down": true, "null": true, "": true,
}

var trueTokens = map[string]bool{
	"1": true, "true": true, "on": true, "online": true,
	"conectado": true, "connected": true, "up": true, "ok": true, "active": true,
}

// scalar tokens that by themselves mean the device reported a failure
var scalarDisconnectTokens = map[string]bool{
	"offline": true, "disconnected": true, "desconectado": true,
	"null": true, "error": true, "down": true,
}

var scalarConnectTokens = map[string]bool{
	"online": true, "connected": true, "conectado": true, "ok": true, "up": true,
}

// ConnectivitySignal applies the sensor's explicit connectivity config when
// present, otherwise the well-known field scan. An empty or null structured
// payload always flags disconnection.
func (p Payload) ConnectivitySignal(cfg *model.ConnectivityConfig) Signal {
	if p.isObject {
		if len(p.structured) == 0 {
			return SignalDisconnected
		}
		if cfg != nil && cfg.Field != "" {
			v, present := p.structured[cfg.Field]
			if !present {
				if cfg.Mandatory {
					return SignalDisconnected
				}
				return SignalNone
			}
			tok := tokenOf(v)
			for _, d := range cfg.DisconnectedValues {
				if strings.EqualFold(tok, d) {
					return SignalDisconnected
				}
			}
			for _, c := range cfg.ConnectedValues {
				if strings.EqualFold(tok, c) {
					return SignalConnected
				}
			}
			return SignalNone
		}
		for _, f := range connectivityFields {
			v, present := lookupFold(p.structured, f)
			if !present {
				continue
			}
			tok := strings.ToLower(tokenOf(v))
			if falseTokens[tok] {
				return SignalDisconnected
			}
			if trueTokens[tok] {
				return SignalConnected
			}
		}
		return SignalNone
	}

	tok := strings.ToLower(p.scalar)
	if scalarDisconnectTokens[tok] {
		return SignalDisconnected
	}
	if scalarConnectTokens[tok] {
		return SignalConnected
	}
	return SignalNone
}

// HasErrorToken reports whether the payload carries an explicit error or
// disconnection marker. Used after a failed value extraction to tell a dead
// device apart from a merely unparseable message.
func (p Payload) HasErrorToken() bool {
	if p.isObject {
		if v, ok := lookupFold(p.structured, "error"); ok {
			tok := strings.ToLower(tokenOf(v))
			return tok != "" && tok != "false" && tok != "0"
		}
		return false
	}
	return scalarDisconnectTokens[strings.ToLower(p.scalar)]
}

// Value is a decoded measurement with its derived unit.
type Value struct {
	V    float64
	Unit string
}

// Generic measurement keys tried when the sensor declares no payload key.
var genericValueKeys = []string{"valor", "value", "dato", "data", "lectura", "reading", "medida"}

// extractRule is one (predicate, extractor) entry. Rules run in order,
// first match wins.
type extractRule struct {
	name  string
	apply func(s model.Sensor, p Payload) (Value, bool)
}

var extractRules = []extractRule{
	{"explicit-key", extractExplicitKey},
	{"sensor-key", extractSensorKey},
	{"generic-key", extractGenericKey},
	{"class-name", extractByClassName},
	{"sensor-marker", extractSensorMarker},
	{"first-numeric", extractFirstNumeric},
}

// ExtractValue resolves a numeric value for the sensor out of the payload.
// Scalar payloads are parsed directly as numbers; structured payloads go
// through the rule table.
func ExtractValue(s model.Sensor, p Payload) (Value, bool) {
	if !p.isObject {
		if f, ok := parseNumber(p.scalar); ok {
			return Value{V: f, Unit: classUnit(s.Name)}, true
		}
		return Value{}, false
	}
	for _, r := range extractRules {
		if v, ok := r.apply(s, p); ok {
			return v, true
		}
	}
	return Value{}, false
}

func extractExplicitKey(s model.Sensor, p Payload) (Value, bool) {
	if s.PayloadKey == "" {
		return Value{}, false
	}
	if v, ok := p.structured[s.PayloadKey]; ok {
		if f, ok := asFloat(v); ok {
			return Value{V: f, Unit: classUnit(s.Name)}, true
		}
	}
	return Value{}, false
}

func extractSensorKey(s model.Sensor, p Payload) (Value, bool) {
	if s.SensorKey == "" {
		return Value{}, false
	}
	if v, ok := lookupFold(p.structured, s.SensorKey); ok {
		if f, ok := asFloat(v); ok {
			return Value{V: f, Unit: classUnit(s.Name)}, true
		}
	}
	return Value{}, false
}

func extractGenericKey(s model.Sensor, p Payload) (Value, bool) {
	for _, k := range genericValueKeys {
		if v, ok := lookupFold(p.structured, k); ok {
			if f, ok := asFloat(v); ok {
				return Value{V: f, Unit: classUnit(s.Name)}, true
			}
		}
	}
	return Value{}, false
}

func extractByClassName(s model.Sensor, p Payload) (Value, bool) {
	class := model.MatchClass(s.Name)
	if class == nil {
		return Value{}, false
	}
	for _, field := range class.Fields {
		if v, ok := p.structured[field]; ok {
			if f, ok := asFloat(v); ok {
				if class.Divisor > 0 {
					f /= class.Divisor
				}
				return Value{V: f, Unit: class.Unit}, true
			}
		}
	}
	return Value{}, false
}

// extractSensorMarker searches for any field whose name contains "sensor".
// When the display name suggests a humidity-class reading it prefers a
// candidate inside the plausible percentage range.
func extractSensorMarker(s model.Sensor, p Payload) (Value, bool) {
	type cand struct {
		key string
		val float64
	}
	var cands []cand
	for _, k := range sortedKeys(p.structured) {
		if !strings.Contains(strings.ToLower(k), "sensor") {
			continue
		}
		if f, ok := asFloat(p.structured[k]); ok {
			cands = append(cands, cand{k, f})
		}
	}
	if len(cands) == 0 {
		return Value{}, false
	}
	unit := classUnit(s.Name)
	if class := model.MatchClass(s.Name); class != nil &&
		(class.Key == model.ClassHumidity || class.Key == model.ClassSoilMoisture) {
		for _, c := range cands {
			if c.val >= 0 && c.val <= 100 {
				return Value{V: c.val, Unit: unit}, true
			}
		}
	}
	return Value{V: cands[0].val, Unit: unit}, true
}

func extractFirstNumeric(s model.Sensor, p Payload) (Value, bool) {
	for _, k := range sortedKeys(p.structured) {
		if f, ok := asFloat(p.structured[k]); ok {
			return Value{V: f, Unit: classUnit(s.Name)}, true
		}
	}
	return Value{}, false
}

// ---- helpers ----

func classUnit(name string) string {
	if class := model.MatchClass(name); class != nil {
		return class.Unit
	}
	return ""
}

// lookupFold finds a map entry by case-insensitive key.
func lookupFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// sortedKeys gives a deterministic field order; "first numeric field" would
// otherwise depend on map iteration.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// asFloat coerces numbers and numeric-looking strings. Booleans are not
// measurements.
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return parseNumber(t)
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// tokenOf renders any JSON value as a comparable token.
func tokenOf(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

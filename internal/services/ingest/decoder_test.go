package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
)

func TestParsePayload_Classification(t *testing.T) {
	assert.True(t, ParsePayload([]byte(`{"temp": 21.5}`)).isObject)
	assert.False(t, ParsePayload([]byte(`21.5`)).isObject)
	assert.False(t, ParsePayload([]byte(`"offline"`)).isObject)
	assert.False(t, ParsePayload([]byte(`null`)).isObject)
}

func TestConnectivitySignal_ExplicitConfig(t *testing.T) {
	cfg := &model.ConnectivityConfig{
		Field:              "link",
		ConnectedValues:    []string{"up", "1"},
		DisconnectedValues: []string{"down", "0"},
		Mandatory:          true,
	}

	assert.Equal(t, SignalDisconnected, ParsePayload([]byte(`{"link":"down"}`)).ConnectivitySignal(cfg))
	assert.Equal(t, SignalDisconnected, ParsePayload([]byte(`{"link":0}`)).ConnectivitySignal(cfg))
	assert.Equal(t, SignalConnected, ParsePayload([]byte(`{"link":"UP"}`)).ConnectivitySignal(cfg))
	// field absent and mandatory
	assert.Equal(t, SignalDisconnected, ParsePayload([]byte(`{"otro":1}`)).ConnectivitySignal(cfg))

	optional := &model.ConnectivityConfig{Field: "link", DisconnectedValues: []string{"down"}}
	assert.Equal(t, SignalNone, ParsePayload([]byte(`{"otro":1}`)).ConnectivitySignal(optional))
}

func TestConnectivitySignal_WellKnownFields(t *testing.T) {
	assert.Equal(t, SignalDisconnected, ParsePayload([]byte(`{"estado": 0}`)).ConnectivitySignal(nil))
	assert.Equal(t, SignalDisconnected, ParsePayload([]byte(`{"status": "offline"}`)).ConnectivitySignal(nil))
	assert.Equal(t, SignalConnected, ParsePayload([]byte(`{"estado": 1}`)).ConnectivitySignal(nil))
	assert.Equal(t, SignalConnected, ParsePayload([]byte(`{"connected": true}`)).ConnectivitySignal(nil))
	assert.Equal(t, SignalNone, ParsePayload([]byte(`{"Temperatura": 30}`)).ConnectivitySignal(nil))
}

func TestConnectivitySignal_EmptyPayload(t *testing.T) {
	assert.Equal(t, SignalDisconnected, ParsePayload([]byte(`{}`)).ConnectivitySignal(nil))
	assert.Equal(t, SignalDisconnected, ParsePayload([]byte(`null`)).ConnectivitySignal(nil))
}

func TestConnectivitySignal_ScalarTokens(t *testing.T) {
	assert.Equal(t, SignalDisconnected, ParsePayload([]byte(`offline`)).ConnectivitySignal(nil))
	assert.Equal(t, SignalDisconnected, ParsePayload([]byte(`"Disconnected"`)).ConnectivitySignal(nil))
	assert.Equal(t, SignalConnected, ParsePayload([]byte(`online`)).ConnectivitySignal(nil))
	assert.Equal(t, SignalNone, ParsePayload([]byte(`21.5`)).ConnectivitySignal(nil))
}

func TestExtractValue_ExplicitKey(t *testing.T) {
	s := model.Sensor{Name: "Sensor de Temperatura", PayloadKey: "temp"}
	v, ok := ExtractValue(s, ParsePayload([]byte(`{"temp": 21.5}`)))
	require.True(t, ok)
	assert.Equal(t, 21.5, v.V)
	assert.Equal(t, "°C", v.Unit)
}

func TestExtractValue_NameBasedMatching(t *testing.T) {
	s := model.Sensor{Name: "Sensor de Temperatura"}
	v, ok := ExtractValue(s, ParsePayload([]byte(`{"Temperatura": 30}`)))
	require.True(t, ok)
	assert.Equal(t, 30.0, v.V)
	assert.Equal(t, "°C", v.Unit)
}

func TestExtractValue_GenericKeys(t *testing.T) {
	s := model.Sensor{Name: "cualquiera"}
	v, ok := ExtractValue(s, ParsePayload([]byte(`{"valor": "12.5"}`)))
	require.True(t, ok)
	assert.Equal(t, 12.5, v.V)
}

func TestExtractValue_LightDivisor(t *testing.T) {
	s := model.Sensor{Name: "Sensor de Luz"}
	v, ok := ExtractValue(s, ParsePayload([]byte(`{"luz": 45000}`)))
	require.True(t, ok)
	assert.Equal(t, 450.0, v.V)
	assert.Equal(t, "lx", v.Unit)
}

func TestExtractValue_SensorMarkerPrefersPercentageForHumidity(t *testing.T) {
	s := model.Sensor{Name: "Sensor de Humedad"}
	v, ok := ExtractValue(s, ParsePayload([]byte(`{"sensor_raw": 1023, "sensor_pct": 55}`)))
	require.True(t, ok)
	assert.Equal(t, 55.0, v.V)
}

func TestExtractValue_FirstNumericFallback(t *testing.T) {
	s := model.Sensor{Name: "misc"}
	v, ok := ExtractValue(s, ParsePayload([]byte(`{"b": "texto", "a": 7}`)))
	require.True(t, ok)
	assert.Equal(t, 7.0, v.V)
}

func TestExtractValue_Scalar(t *testing.T) {
	s := model.Sensor{Name: "Sensor de Humedad del Suelo"}
	v, ok := ExtractValue(s, ParsePayload([]byte(`42`)))
	require.True(t, ok)
	assert.Equal(t, 42.0, v.V)
	assert.Equal(t, "%", v.Unit)
}

func TestExtractValue_NoValue(t *testing.T) {
	s := model.Sensor{Name: "misc"}
	_, ok := ExtractValue(s, ParsePayload([]byte(`{"nota": "sin datos"}`)))
	assert.False(t, ok)

	_, ok = ExtractValue(s, ParsePayload([]byte(`no-numerico`)))
	assert.False(t, ok)
}

func TestHasErrorToken(t *testing.T) {
	assert.True(t, ParsePayload([]byte(`error`)).HasErrorToken())
	assert.True(t, ParsePayload([]byte(`{"error": "timeout"}`)).HasErrorToken())
	assert.False(t, ParsePayload([]byte(`{"error": false}`)).HasErrorToken())
	assert.False(t, ParsePayload([]byte(`{"Temperatura": 30}`)).HasErrorToken())
	assert.False(t, ParsePayload([]byte(`21.5`)).HasErrorToken())
}

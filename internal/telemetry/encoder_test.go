package telemetry

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/room-sensor/internal/provisioning"
)

var (
	testTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	tempSensor = provisioning.Sensor{
		ID:       "sensor-temp",
		DataType: provisioning.DataTypeTemperature,
		SpaceID:  "space-1",
		Type:     "Classic",
	}
	lightSensor  = provisioning.Sensor{ID: "sensor-light", DataType: provisioning.DataTypeLight, SpaceID: "space-1"}
	motionSensor = provisioning.Sensor{ID: "sensor-motion", DataType: provisioning.DataTypeMotion, SpaceID: "space-1"}
)

const (
	hubID   = "room-42"
	connStr = "HostName=hub.example.net;DeviceId=room-42;SharedAccessKey=abc"
)

var timestampRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)

func newTestEncoder() *Encoder {
	return NewEncoder(FixedClock(testTime))
}

func decode(t *testing.T, data []byte) Payload {
	t.Helper()
	var p Payload
	require.NoError(t, json.Unmarshal(data, &p))
	return p
}

func TestTemperatureSuppressesUnchanged(t *testing.T) {
	e := newTestEncoder()

	data, ok, err := e.Temperature(tempSensor, hubID, connStr, 21.5, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "21.5", decode(t, data).SensorReading)

	data, ok, err = e.Temperature(tempSensor, hubID, connStr, 21.5, false)
	require.NoError(t, err)
	assert.False(t, ok, "same value must be suppressed")
	assert.Nil(t, data)

	_, ok, err = e.Temperature(tempSensor, hubID, connStr, 21.5, true)
	require.NoError(t, err)
	assert.True(t, ok, "force bypasses the equality check")
}

func TestShouldEmitTemperature(t *testing.T) {
	l := NewLastSent(21.5)
	assert.False(t, l.ShouldEmit(21.5, false))
	assert.True(t, l.ShouldEmit(21.5, true))
	assert.True(t, l.ShouldEmit(21.6, false))
	assert.Equal(t, 21.6, l.Value())
}

func TestChangedDoesNotCommit(t *testing.T) {
	l := NewLastSent(-1)
	assert.True(t, l.Changed(10))
	assert.True(t, l.Changed(10))
	assert.Equal(t, -1, l.Value())
}

func TestInitialSentinels(t *testing.T) {
	e := newTestEncoder()

	// An unoccupied room is not reported until it changes
	_, ok, err := e.Motion(motionSensor, hubID, connStr, false, false)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = e.Light(lightSensor, hubID, connStr, 0, false)
	assert.True(t, ok, "first light reading differs from the -1 sentinel")

	_, ok, _ = e.Temperature(tempSensor, hubID, connStr, 0, false)
	assert.True(t, ok, "first temperature differs from the -1000 sentinel")
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"temperature", FormatTemperature(21.5), "21.5"},
		{"temperature rounds", FormatTemperature(21.46), "21.5"},
		{"temperature negative", FormatTemperature(-3.5), "-3.5"},
		{"light", FormatLight(4321), "43.21"},
		{"light zero", FormatLight(0), "0.00"},
		{"light full", FormatLight(10000), "100.00"},
		{"occupied", FormatOccupancy(true), "True"},
		{"vacant", FormatOccupancy(false), "False"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestLightAndMotionPayloads(t *testing.T) {
	e := newTestEncoder()

	data, ok, err := e.Light(lightSensor, hubID, connStr, 4321, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "43.21", decode(t, data).SensorReading)

	data, ok, err = e.Motion(motionSensor, hubID, connStr, true, false)
	require.NoError(t, err)
	require.True(t, ok)
	p := decode(t, data)
	assert.Equal(t, "True", p.SensorReading)
	assert.Equal(t, "Motion", p.SensorDataType)
}

func TestPayloadRoundTrip(t *testing.T) {
	data, err := Encode("21.5", tempSensor, hubID, connStr, testTime)
	require.NoError(t, err)

	p := decode(t, data)
	assert.Equal(t, "21.5", p.SensorReading)
	assert.Equal(t, "sensor-temp", p.SensorID)
	assert.Equal(t, "Classic", p.SensorType)
	assert.Equal(t, "Temperature", p.SensorDataType)
	assert.Equal(t, "space-1", p.SpaceID)
	assert.Equal(t, hubID, p.IoTHubDeviceID)
	assert.Equal(t, connStr, p.ConnectionString)
	assert.Equal(t, "2026-03-14T09:26:53Z", p.EventTimestamp)
	assert.Regexp(t, timestampRE, p.EventTimestamp)
}

func TestPayloadFieldSet(t *testing.T) {
	data, err := Encode("1", tempSensor, hubID, connStr, testTime)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	want := []string{
		"SensorReading", "SensorId", "SensorType", "SensorDataType",
		"SpaceId", "IoTHubDeviceId", "EventTimestamp", "ConnectionString",
	}
	assert.Len(t, fields, len(want))
	for _, k := range want {
		assert.Contains(t, fields, k)
	}
}

func TestTimestampIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	data, err := Encode("1", tempSensor, hubID, connStr, time.Date(2026, 3, 14, 11, 26, 53, 999, loc))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14T09:26:53Z", decode(t, data).EventTimestamp)
}

func TestPayloadIsIndentedAndUnescaped(t *testing.T) {
	data, err := Encode("1", tempSensor, hubID, connStr, testTime)
	require.NoError(t, err)
	s := string(data)
	assert.True(t, strings.HasPrefix(s, "{\n    \"SensorReading\": \"1\""), s)
	assert.False(t, strings.HasSuffix(s, "\n"))
	assert.Contains(t, s, "SharedAccessKey=abc")
}

func TestPayloadTooLarge(t *testing.T) {
	long := strings.Repeat("x", 2*MaxPayloadSize)
	data, err := Encode("1", tempSensor, hubID, long, testTime)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPayloadTooLarge))

	var tooLarge *PayloadTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Greater(t, tooLarge.Size, MaxPayloadSize)
	assert.Equal(t, MaxPayloadSize, tooLarge.Limit)
	assert.Len(t, data, MaxPayloadSize)
}

func TestPayloadTooLargeStillCommitsLastSent(t *testing.T) {
	e := newTestEncoder()
	long := strings.Repeat("x", 2*MaxPayloadSize)

	data, ok, err := e.Temperature(tempSensor, hubID, long, 30, false)
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Len(t, data, MaxPayloadSize)
	assert.Equal(t, 30.0, e.Temperatures.Value())
}

func TestEmptyIdentityFields(t *testing.T) {
	data, err := Encode("21.5", provisioning.Sensor{}, "", "", testTime)
	require.NoError(t, err)
	p := decode(t, data)
	assert.Empty(t, p.SensorID)
	assert.Empty(t, p.IoTHubDeviceID)
}

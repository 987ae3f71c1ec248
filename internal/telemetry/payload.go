// Package telemetry decides when a sensor reading is worth sending and
// encodes it into the ingestion payload.
package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sweeney/room-sensor/internal/provisioning"
)

// MaxPayloadSize is the upper bound on a serialized payload, in bytes.
const MaxPayloadSize = 1024

// TimestampFormat is the EventTimestamp layout (UTC, second precision).
const TimestampFormat = "2006-01-02T15:04:05Z"

// ErrPayloadTooLarge is matched by errors returned when a payload had to be truncated.
var ErrPayloadTooLarge = errors.New("telemetry: payload too large")

// PayloadTooLargeError reports a payload that exceeded MaxPayloadSize.
type PayloadTooLargeError struct {
	Size  int
	Limit int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("telemetry: payload is %d bytes, limit %d", e.Size, e.Limit)
}

func (e *PayloadTooLargeError) Is(target error) bool { return target == ErrPayloadTooLarge }

// Payload is the telemetry message sent to the ingestion endpoint.
type Payload struct {
	SensorReading    string `json:"SensorReading"`
	SensorID         string `json:"SensorId"`
	SensorType       string `json:"SensorType"`
	SensorDataType   string `json:"SensorDataType"`
	SpaceID          string `json:"SpaceId"`
	IoTHubDeviceID   string `json:"IoTHubDeviceId"`
	EventTimestamp   string `json:"EventTimestamp"`
	ConnectionString string `json:"ConnectionString"`
}

// Encode serializes a reading for sensor. If the result exceeds
// MaxPayloadSize it is truncated and returned with a *PayloadTooLargeError.
func Encode(reading string, sensor provisioning.Sensor, hubDeviceID, connectionString string, now time.Time) ([]byte, error) {
	p := Payload{
		SensorReading:    reading,
		SensorID:         sensor.ID,
		SensorType:       sensor.Type,
		SensorDataType:   string(sensor.DataType),
		SpaceID:          sensor.SpaceID,
		IoTHubDeviceID:   hubDeviceID,
		EventTimestamp:   now.UTC().Format(TimestampFormat),
		ConnectionString: connectionString,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	if len(data) > MaxPayloadSize {
		return data[:MaxPayloadSize], &PayloadTooLargeError{Size: len(data), Limit: MaxPayloadSize}
	}
	return data, nil
}

// FormatTemperature formats degrees Celsius with one decimal digit.
func FormatTemperature(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// FormatLight formats a raw light value (percent x 100) as a percentage with
// two decimal digits.
func FormatLight(raw int) string {
	return strconv.FormatFloat(float64(raw)/100, 'f', 2, 64)
}

// FormatOccupancy formats the occupancy flag as "True" or "False".
func FormatOccupancy(occupied bool) string {
	if occupied {
		return "True"
	}
	return "False"
}

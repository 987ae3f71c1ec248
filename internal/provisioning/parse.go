package provisioning

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnexpectedCardinality means the response did not hold exactly one device.
	ErrUnexpectedCardinality = errors.New("provisioning: expected exactly one device")
	// ErrMalformedSensorList means the device's sensors array is missing or malformed.
	ErrMalformedSensorList = errors.New("provisioning: missing or malformed sensor list")
	// ErrMalformedDevice means the device entry is not a JSON object.
	ErrMalformedDevice = errors.New("provisioning: malformed device entry")
	// ErrInvalidJSON means the response body is not valid JSON.
	ErrInvalidJSON = errors.New("provisioning: invalid JSON")
)

// ParseError describes why a provisioning response was rejected.
// Kind is one of the Err* sentinels above.
type ParseError struct {
	Kind   error
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

func (e *ParseError) Unwrap() error { return e.Kind }

func parseErr(kind error, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// object is a decoded JSON object whose values are decoded lazily.
type object map[string]json.RawMessage

// Parse decodes a provisioning response: a JSON array holding exactly one
// device object. Missing scalar fields are left empty; the sensors array is
// required.
func Parse(body []byte) (*Device, error) {
	if !json.Valid(body) {
		return nil, parseErr(ErrInvalidJSON, "%d byte body", len(body))
	}

	// A non-array root counts as zero devices.
	var devices []json.RawMessage
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, parseErr(ErrUnexpectedCardinality, "root is not an array: %v", err)
	}
	if len(devices) != 1 {
		return nil, parseErr(ErrUnexpectedCardinality, "got %d", len(devices))
	}

	var dev object
	if err := json.Unmarshal(devices[0], &dev); err != nil || dev == nil {
		return nil, parseErr(ErrMalformedDevice, "device is not an object")
	}

	out := &Device{
		ID:               dev.str("id"),
		ConnectionString: dev.str("connectionString"),
		FriendlyName:     dev.str("friendlyName"),
		DeviceType:       dev.str("deviceType"),
		DeviceSubtype:    dev.str("deviceSubtype"),
		HardwareID:       dev.str("hardwareId"),
		SpaceID:          dev.str("spaceId"),
		Status:           dev.str("status"),
	}

	raw, ok := dev["sensors"]
	if !ok {
		return nil, parseErr(ErrMalformedSensorList, "sensors missing")
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		return nil, parseErr(ErrMalformedSensorList, "sensors is not an array")
	}

	out.Sensors = make([]Sensor, 0, len(entries))
	for i, e := range entries {
		var s object
		if err := json.Unmarshal(e, &s); err != nil || s == nil {
			return nil, parseErr(ErrMalformedSensorList, "sensor %d is not an object", i)
		}
		out.Sensors = append(out.Sensors, Sensor{
			ID:           s.str("id"),
			DataType:     DataType(s.str("dataType")),
			DataUnitType: s.str("dataUnitType"),
			DeviceID:     s.str("deviceId"),
			PollRate:     s.truncInt("pollRate"),
			PortType:     s.str("portType"),
			SpaceID:      s.str("spaceId"),
			Type:         s.str("type"),
		})
	}

	return out, nil
}

// str returns the string at key, or "" if absent or not a string.
func (o object) str(key string) string {
	raw, ok := o[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// truncInt returns the number at key truncated toward zero and clamped to
// the int32 range, or 0 if absent or not a number.
func (o object) truncInt(key string) int {
	raw, ok := o[key]
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	f = math.Trunc(f)
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

// Package provisioning maps a node's hardware ID to its cloud device and
// sensor metadata via the provisioning service.
package provisioning

// DataType identifies the kind of measurement a sensor reports.
type DataType string

const (
	DataTypeTemperature DataType = "Temperature"
	DataTypeLight       DataType = "Light"
	DataTypeMotion      DataType = "Motion"
)

// Sensor is a provisioned sensor attached to a device.
type Sensor struct {
	ID           string
	DataType     DataType
	DataUnitType string
	DeviceID     string
	PollRate     int // seconds
	PortType     string
	SpaceID      string
	Type         string
}

// Device is the single device record this node manages.
// Sensors keeps the order of the provisioning response.
type Device struct {
	ID               string
	ConnectionString string
	FriendlyName     string
	DeviceType       string
	DeviceSubtype    string
	HardwareID       string
	SpaceID          string
	Status           string
	Sensors          []Sensor
}

// SensorByType returns the first sensor with the given data type.
func (d *Device) SensorByType(t DataType) (Sensor, bool) {
	if d == nil {
		return Sensor{}, false
	}
	for _, s := range d.Sensors {
		if s.DataType == t {
			return s, true
		}
	}
	return Sensor{}, false
}

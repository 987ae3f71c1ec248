package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/room-sensor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Occupied      bool            `json:"occupied"`
	Phase         string          `json:"phase"`
	Ready         bool            `json:"ready"`
	Provisioned   bool            `json:"provisioned"`
	Identity      *IdentityJSON   `json:"identity,omitempty"`
	Baseline      AxesJSON        `json:"baseline"`
	Readings      *ReadingsJSON   `json:"readings,omitempty"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	Transport     TransportStatus `json:"transport"`
	Counts        CountsJSON      `json:"telemetry_counts"`
	LastError     string          `json:"last_error,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// IdentityJSON is the JSON representation of the provisioned identity.
type IdentityJSON struct {
	HubDeviceID string `json:"hub_device_id"`
	DeviceID    string `json:"device_id"`
	SpaceID     string `json:"space_id"`
	Sensors     int    `json:"sensors"`
}

// AxesJSON is a magnetometer reading.
type AxesJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// ReadingsJSON is the JSON representation of the latest readings.
type ReadingsJSON struct {
	Temperature float64  `json:"temperature_c"`
	LightPct    float64  `json:"light_pct"`
	Mag         AxesJSON `json:"magnetometer"`
	Timestamp   string   `json:"timestamp"`
}

// TransportStatus reports telemetry transport state.
type TransportStatus struct {
	Type        string `json:"type"`
	Destination string `json:"destination"`
	Connected   bool   `json:"connected"`
}

// CountsJSON is the JSON representation of telemetry counts.
type CountsJSON struct {
	Temperature   int `json:"temperature"`
	Light         int `json:"light"`
	Motion        int `json:"motion"`
	Suppressed    int `json:"suppressed"`
	SendErrors    int `json:"send_errors"`
	TooLarge      int `json:"too_large"`
	ManualToggles int `json:"manual_toggles"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	HardwareID  string `json:"hardware_id"`
	HTTPAddr    string `json:"http_addr"`
}

func axes(a logic.Axes) AxesJSON {
	return AxesJSON{X: a.X, Y: a.Y, Z: a.Z}
}

func buildInner(snap Snapshot) StatusInner {
	phase := string(snap.Phase)
	if phase == "" {
		phase = "UNKNOWN"
	}

	inner := StatusInner{
		Occupied:      snap.Occupied,
		Phase:         phase,
		Ready:         snap.Phase == logic.PhaseArmed,
		Provisioned:   snap.Provisioned,
		Baseline:      axes(snap.Baseline),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Transport: TransportStatus{
			Type:        snap.Config.Transport,
			Destination: snap.Config.Destination,
			Connected:   snap.TransportConnected,
		},
		Counts: CountsJSON{
			Temperature:   snap.Counts.Sent["temperature"],
			Light:         snap.Counts.Sent["light"],
			Motion:        snap.Counts.Sent["motion"],
			Suppressed:    snap.Counts.Suppressed,
			SendErrors:    snap.Counts.SendErrors,
			TooLarge:      snap.Counts.TooLarge,
			ManualToggles: snap.Counts.ManualToggles,
		},
		LastError: snap.LastError,
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			HardwareID:  snap.Config.HardwareID,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}

	if snap.Provisioned {
		inner.Identity = &IdentityJSON{
			HubDeviceID: snap.Identity.HubDeviceID,
			DeviceID:    snap.Identity.DeviceID,
			SpaceID:     snap.Identity.SpaceID,
			Sensors:     snap.Identity.Sensors,
		}
	}
	if r := snap.Readings; r != nil {
		inner.Readings = &ReadingsJSON{
			Temperature: r.Temperature,
			LightPct:    float64(r.Light) / 100,
			Mag:         axes(r.Mag),
			Timestamp:   r.At.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

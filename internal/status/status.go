// Package status provides a thread-safe status tracker for the room-sensor
// daemon. It is written by the sampling loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/room-sensor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	HardwareID  string
	Transport   string // "http" or "mqtt"
	Destination string // telemetry URI or MQTT topic
	HTTPAddr    string
}

// Identity is the provisioned cloud identity of the node.
type Identity struct {
	HubDeviceID string
	DeviceID    string
	SpaceID     string
	Sensors     int
}

// Readings holds the most recent raw sensor values.
type Readings struct {
	Temperature float64
	Light       int
	Mag         logic.Axes
	At          time.Time
}

// Counts tracks telemetry outcomes since startup.
type Counts struct {
	Sent          map[string]int
	Suppressed    int
	SendErrors    int
	TooLarge      int
	ManualToggles int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Occupied           bool
	Phase              logic.Phase
	Baseline           logic.Axes
	Provisioned        bool
	Identity           Identity
	Readings           *Readings
	Counts             Counts
	StartTime          time.Time
	Now                time.Time
	TransportConnected bool
	LastError          string
	Config             Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Phase:     logic.PhaseCalibrating,
			StartTime: startTime,
			Config:    cfg,
			Counts:    Counts{Sent: map[string]int{}},
		},
	}
}

// UpdateDetector sets occupancy and calibration state.
// Called from runLoop on every tick.
func (t *Tracker) UpdateDetector(occupied bool, phase logic.Phase, baseline logic.Axes) {
	t.mu.Lock()
	t.snap.Occupied = occupied
	t.snap.Phase = phase
	t.snap.Baseline = baseline
	t.mu.Unlock()
}

// UpdateReadings records the latest raw sensor values.
func (t *Tracker) UpdateReadings(r Readings) {
	t.mu.Lock()
	t.snap.Readings = &r
	t.mu.Unlock()
}

// SetIdentity marks the node provisioned.
func (t *Tracker) SetIdentity(id Identity) {
	t.mu.Lock()
	t.snap.Provisioned = true
	t.snap.Identity = id
	t.mu.Unlock()
}

// RecordSent counts a payload handed to the transport.
func (t *Tracker) RecordSent(metric string) {
	t.mu.Lock()
	t.snap.Counts.Sent[metric]++
	t.mu.Unlock()
}

// RecordSuppressed counts a reading that matched the last sent value.
func (t *Tracker) RecordSuppressed() {
	t.mu.Lock()
	t.snap.Counts.Suppressed++
	t.mu.Unlock()
}

// RecordSendError counts a failed send and keeps its message.
func (t *Tracker) RecordSendError(err error) {
	t.mu.Lock()
	t.snap.Counts.SendErrors++
	t.snap.LastError = err.Error()
	t.mu.Unlock()
}

// RecordTooLarge counts a payload dropped for size.
func (t *Tracker) RecordTooLarge() {
	t.mu.Lock()
	t.snap.Counts.TooLarge++
	t.mu.Unlock()
}

// RecordManualToggle counts a button press.
func (t *Tracker) RecordManualToggle() {
	t.mu.Lock()
	t.snap.Counts.ManualToggles++
	t.mu.Unlock()
}

// SetTransportConnected sets the transport connection status.
func (t *Tracker) SetTransportConnected(connected bool) {
	t.mu.Lock()
	t.snap.TransportConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Counts.Sent = make(map[string]int, len(t.snap.Counts.Sent))
	for k, v := range t.snap.Counts.Sent {
		s.Counts.Sent[k] = v
	}
	if t.snap.Readings != nil {
		r := *t.snap.Readings
		s.Readings = &r
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

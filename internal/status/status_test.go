package status

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/room-sensor/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 1000, HardwareID: "AA:BB", Transport: "http", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 1000 {
		t.Errorf("Config.PollMs: got %d, want 1000", snap.Config.PollMs)
	}
	if snap.Phase != logic.PhaseCalibrating {
		t.Errorf("Phase: got %q, want CALIBRATING", snap.Phase)
	}
	if snap.Provisioned {
		t.Error("expected Provisioned=false initially")
	}
	if snap.Readings != nil {
		t.Error("expected no readings initially")
	}
	if snap.TransportConnected {
		t.Error("expected TransportConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	base := logic.Axes{X: 1, Y: 2, Z: 3}

	tr.UpdateDetector(true, logic.PhaseArmed, base)
	tr.UpdateReadings(Readings{Temperature: 21.5, Light: 4321, Mag: base})
	tr.SetIdentity(Identity{HubDeviceID: "room-42", SpaceID: "space-1", Sensors: 3})

	snap := tr.Snapshot()
	if !snap.Occupied {
		t.Error("expected Occupied=true")
	}
	if snap.Phase != logic.PhaseArmed {
		t.Errorf("Phase: got %q, want ARMED", snap.Phase)
	}
	if snap.Baseline != base {
		t.Errorf("Baseline: got %v, want %v", snap.Baseline, base)
	}
	if snap.Readings == nil || snap.Readings.Light != 4321 {
		t.Errorf("Readings: got %+v", snap.Readings)
	}
	if !snap.Provisioned || snap.Identity.HubDeviceID != "room-42" {
		t.Errorf("Identity: got %+v, provisioned=%v", snap.Identity, snap.Provisioned)
	}
}

func TestRecordCounts(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.RecordSent("temperature")
	tr.RecordSent("temperature")
	tr.RecordSent("motion")
	tr.RecordSuppressed()
	tr.RecordTooLarge()
	tr.RecordManualToggle()
	tr.RecordSendError(errors.New("connection refused"))

	c := tr.Snapshot().Counts
	if c.Sent["temperature"] != 2 || c.Sent["motion"] != 1 || c.Sent["light"] != 0 {
		t.Errorf("Sent: got %v", c.Sent)
	}
	if c.Suppressed != 1 || c.TooLarge != 1 || c.ManualToggles != 1 || c.SendErrors != 1 {
		t.Errorf("Counts: got %+v", c)
	}
	if tr.Snapshot().LastError != "connection refused" {
		t.Errorf("LastError: got %q", tr.Snapshot().LastError)
	}
}

func TestSetTransportConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetTransportConnected(true)
	if !tr.Snapshot().TransportConnected {
		t.Error("expected TransportConnected=true")
	}

	tr.SetTransportConnected(false)
	if tr.Snapshot().TransportConnected {
		t.Error("expected TransportConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.UpdateDetector(true, logic.PhaseArmed, logic.Axes{})
	tr.UpdateReadings(Readings{Temperature: 20})
	tr.RecordSent("light")

	snap1 := tr.Snapshot()

	tr.UpdateDetector(false, logic.PhaseArmed, logic.Axes{})
	tr.UpdateReadings(Readings{Temperature: 25})
	tr.RecordSent("light")

	// snap1 should still reflect old state
	if !snap1.Occupied {
		t.Error("snapshot should be a copy; Occupied was modified")
	}
	if snap1.Readings.Temperature != 20 {
		t.Error("snapshot should be a copy; Readings was modified")
	}
	if snap1.Counts.Sent["light"] != 1 {
		t.Error("snapshot should be a copy; Counts.Sent was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Occupied:    true,
		Phase:       logic.PhaseArmed,
		Baseline:    logic.Axes{X: -120, Y: 340, Z: -560},
		Provisioned: true,
		Identity:    Identity{HubDeviceID: "room-42", DeviceID: "dev-1", SpaceID: "space-1", Sensors: 3},
		Readings: &Readings{
			Temperature: 21.5,
			Light:       4321,
			Mag:         logic.Axes{X: -118, Y: 341, Z: -559},
			At:          start.Add(14 * time.Minute),
		},
		Counts:             Counts{Sent: map[string]int{"temperature": 5, "light": 2, "motion": 1}, Suppressed: 9},
		StartTime:          start,
		Now:                start.Add(15 * time.Minute),
		TransportConnected: true,
		Config:             Config{PollMs: 1000, HeartbeatMs: 300000, Transport: "mqtt", Destination: "room-sensor/telemetry"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if !s.Occupied {
		t.Error("expected Occupied=true")
	}
	if s.Phase != "ARMED" || !s.Ready {
		t.Errorf("Phase: got %q ready=%v, want ARMED ready", s.Phase, s.Ready)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if s.Identity == nil || s.Identity.HubDeviceID != "room-42" {
		t.Errorf("Identity: got %+v", s.Identity)
	}
	if s.Readings == nil || s.Readings.LightPct != 43.21 {
		t.Errorf("Readings: got %+v", s.Readings)
	}
	if s.Baseline.Z != -560 {
		t.Errorf("Baseline.Z: got %d, want -560", s.Baseline.Z)
	}
	if !s.Transport.Connected || s.Transport.Type != "mqtt" {
		t.Errorf("Transport: got %+v", s.Transport)
	}
	if s.Counts.Temperature != 5 || s.Counts.Motion != 1 || s.Counts.Suppressed != 9 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.LastError != "" {
		t.Errorf("expected empty LastError, got %q", s.LastError)
	}
}

func TestFormatJSONUnprovisioned(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if raw["status"]["phase"] != "UNKNOWN" {
		t.Errorf("phase: got %v, want UNKNOWN", raw["status"]["phase"])
	}
	if _, ok := raw["status"]["identity"]; ok {
		t.Error("identity should be omitted when unprovisioned")
	}
	if _, ok := raw["status"]["readings"]; ok {
		t.Error("readings should be omitted before the first sample")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.UpdateDetector(i%2 == 0, logic.PhaseArmed, logic.Axes{X: i})
			tr.UpdateReadings(Readings{Light: i})
			tr.RecordSent("light")
			tr.SetTransportConnected(i%2 == 0)
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}

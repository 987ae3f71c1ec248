package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sweeney/room-sensor/internal/logic"
	"github.com/sweeney/room-sensor/internal/metrics"
	"github.com/sweeney/room-sensor/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:      1000,
		HeartbeatMs: 300000,
		HardwareID:  "AA:BB:CC:DD:EE:FF",
		Transport:   "http",
		Destination: "http://ingest.example.net/telemetry",
		HTTPAddr:    ":8080",
	}
	tr := status.NewTracker(start, cfg)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := New(":0", tr, reg, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, m
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.UpdateDetector(true, logic.PhaseArmed, logic.Axes{X: 1, Y: 2, Z: 3})
	tr.SetIdentity(status.Identity{HubDeviceID: "room-42", SpaceID: "space-1", Sensors: 3})
	tr.SetTransportConnected(true)
	tr.RecordSent("temperature")

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if !sj.Status.Occupied {
		t.Error("expected Occupied=true")
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if sj.Status.Identity == nil || sj.Status.Identity.HubDeviceID != "room-42" {
		t.Errorf("Identity: got %+v", sj.Status.Identity)
	}
	if !sj.Status.Transport.Connected {
		t.Error("expected Transport.Connected=true")
	}
	if sj.Status.Transport.Destination != "http://ingest.example.net/telemetry" {
		t.Errorf("Transport.Destination: got %q", sj.Status.Transport.Destination)
	}
	if sj.Status.Counts.Temperature != 1 {
		t.Errorf("Counts.Temperature: got %d, want 1", sj.Status.Counts.Temperature)
	}
	if sj.Status.Config.HardwareID != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("Config.HardwareID: got %q", sj.Status.Config.HardwareID)
	}
}

func TestJSONBeforeCalibration(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Phase != "CALIBRATING" {
		t.Errorf("Phase: got %q, want CALIBRATING", sj.Status.Phase)
	}
	if sj.Status.Ready {
		t.Error("expected Ready=false before calibration")
	}
	if sj.Status.Provisioned {
		t.Error("expected Provisioned=false")
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.UpdateDetector(true, logic.PhaseArmed, logic.Axes{})
	tr.UpdateReadings(status.Readings{Temperature: 21.5, Light: 4321})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"OCCUPIED", "21.5", "43.21%", "pending"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, m := newTestServer(t)
	m.TelemetrySent.WithLabelValues("motion").Inc()
	metrics.SetBool(m.Occupied, true)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`room_sensor_telemetry_sent_total{metric="motion"} 1`,
		"room_sensor_occupied 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Occupied {
		t.Error("expected Occupied=false initially")
	}

	tr.UpdateDetector(true, logic.PhaseArmed, logic.Axes{})
	tr.RecordManualToggle()

	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Occupied {
		t.Error("expected Occupied=true after update")
	}
	if sj2.Status.Counts.ManualToggles != 1 {
		t.Errorf("Counts.ManualToggles: got %d, want 1", sj2.Status.Counts.ManualToggles)
	}
}

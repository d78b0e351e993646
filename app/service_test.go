package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/binfleet/config"
	"github.com/kilianp07/binfleet/core/factory"
	"github.com/kilianp07/binfleet/core/model"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Server.Address = "127.0.0.1:0"
	cfg.DecisionLog.Backend = "jsonl"
	cfg.DecisionLog.Path = filepath.Join(t.TempDir(), "decisions.jsonl")
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	return cfg
}

func TestServiceHandler(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	require.NoError(t, svc.Roster.Load(
		[]model.Driver{{ID: "d1", Position: model.GeoPoint{Lat: 1, Lon: 1}, Status: model.DriverActive, Rating: 4, VehicleCapacityKg: 100}},
		[]model.Order{{ID: "o1", Position: model.GeoPoint{Lat: 1.01, Lon: 1}, EstimatedWeightKg: 10, Priority: model.PriorityLow}},
		nil,
	))
	h := svc.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/assignments", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/decisions?subject_id=o1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"kind":"assignment"`)
}

func TestServiceRunStops(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "influx"}}
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Log.Level = "loud"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestServiceJobsAndDemand(t *testing.T) {
	cfg := testConfig(t)
	cfg.Demand.Backend = "memory"
	cfg.Jobs.AssignInterval = 10 * time.Millisecond
	cfg.Jobs.DemandInterval = time.Hour
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	assert.Equal(t, 2, svc.Jobs().Len())

	require.NoError(t, svc.Roster.Load(
		[]model.Driver{{ID: "d1", Position: model.GeoPoint{Lat: 1, Lon: 1}, Status: model.DriverActive, Rating: 4, VehicleCapacityKg: 100}},
		[]model.Order{{ID: "o1", Position: model.GeoPoint{Lat: 1.01, Lon: 1}, EstimatedWeightKg: 10, Priority: model.PriorityLow}},
		nil,
	))
	require.NoError(t, svc.RecordDemand(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	assert.Eventually(t, func() bool {
		st, ok := svc.Roster.Order("o1")
		return ok && st.DriverID == "d1"
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestServiceWithoutDemandStore(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	assert.Equal(t, 0, svc.Jobs().Len())
	assert.NoError(t, svc.RecordDemand(context.Background()))
}

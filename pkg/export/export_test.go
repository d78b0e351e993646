package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/binfleet/core/dispatch"
	"github.com/kilianp07/binfleet/core/model"
)

func TestWriteAssignmentsCSV(t *testing.T) {
	var buf bytes.Buffer
	out := dispatch.AssignmentOutcome{
		Assignments: []model.AssignmentResult{{OrderID: "o1", DriverID: "d1", Score: 199.71, EstimatedDistanceKm: 3.7, EstimatedTimeMinutes: 11.1}},
		Unassigned:  []string{"o2"},
	}
	require.NoError(t, WriteCSV(&buf, out))
	want := "order_id,driver_id,score,distance_km,time_minutes\n" +
		"o1,d1,199.71,3.7,11.1\n" +
		"o2,,,,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteRouteCSV(t *testing.T) {
	var buf bytes.Buffer
	r := model.OptimizedRoute{
		DriverID:  "d1",
		Stops:     []model.Stop{{LocationID: "a", Position: model.GeoPoint{Lat: 1.5, Lon: 2}, WeightKg: 10}},
		Unvisited: []string{"b"},
	}
	require.NoError(t, WriteCSV(&buf, dispatch.RouteOutcome{Route: r}))
	want := "driver_id,sequence,location_id,lat,lon,weight_kg\n" +
		"d1,1,a,1.5,2,10\n" +
		"d1,,b,,,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteAlertsCSV(t *testing.T) {
	var buf bytes.Buffer
	due := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	alerts := []model.MaintenanceAlert{
		{VehicleID: "v1", Severity: model.SeverityOverdue, Trigger: model.TriggerMileage, Fraction: 1.1, DueAtMileageKm: 50000},
		{VehicleID: "v2", Severity: model.SeverityUpcoming, Trigger: model.TriggerTime, Fraction: 0.9, DueAtDate: due},
	}
	require.NoError(t, WriteCSV(&buf, dispatch.MaintenanceOutcome{Alerts: alerts}))
	want := "vehicle_id,severity,trigger,fraction,due_at_mileage_km,due_at_date\n" +
		"v1,overdue,mileage,1.1,50000,\n" +
		"v2,upcoming,time,0.9,,2025-07-01T00:00:00Z\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVUnknown(t *testing.T) {
	assert.Error(t, WriteCSV(&bytes.Buffer{}, dispatch.QuoteOutcome{}))
}

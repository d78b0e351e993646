// Package export writes decision outputs as CSV for spreadsheets and
// back-office imports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/binfleet/core/dispatch"
	"github.com/kilianp07/binfleet/core/model"
)

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteAssignmentsCSV writes one row per order, with an empty driver for
// unassigned orders.
func WriteAssignmentsCSV(w io.Writer, out dispatch.AssignmentOutcome) error {
	rows := make([][]string, 0, len(out.Assignments)+len(out.Unassigned))
	for _, a := range out.Assignments {
		rows = append(rows, []string{a.OrderID, a.DriverID, ff(a.Score), ff(a.EstimatedDistanceKm), ff(a.EstimatedTimeMinutes)})
	}
	for _, id := range out.Unassigned {
		rows = append(rows, []string{id, "", "", "", ""})
	}
	return writeAll(w, []string{"order_id", "driver_id", "score", "distance_km", "time_minutes"}, rows)
}

// WriteRouteCSV writes the stops in visiting order followed by the
// unvisited ones with an empty sequence number.
func WriteRouteCSV(w io.Writer, r model.OptimizedRoute) error {
	rows := make([][]string, 0, len(r.Stops)+len(r.Unvisited))
	for i, s := range r.Stops {
		rows = append(rows, []string{r.DriverID, strconv.Itoa(i + 1), s.LocationID, ff(s.Position.Lat), ff(s.Position.Lon), ff(s.WeightKg)})
	}
	for _, id := range r.Unvisited {
		rows = append(rows, []string{r.DriverID, "", id, "", "", ""})
	}
	return writeAll(w, []string{"driver_id", "sequence", "location_id", "lat", "lon", "weight_kg"}, rows)
}

// WriteAlertsCSV writes one row per maintenance alert.
func WriteAlertsCSV(w io.Writer, alerts []model.MaintenanceAlert) error {
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		due := ""
		if !a.DueAtDate.IsZero() {
			due = a.DueAtDate.Format(time.RFC3339)
		}
		mileage := ""
		if a.DueAtMileageKm > 0 {
			mileage = ff(a.DueAtMileageKm)
		}
		rows = append(rows, []string{a.VehicleID, string(a.Severity), string(a.Trigger), ff(a.Fraction), mileage, due})
	}
	return writeAll(w, []string{"vehicle_id", "severity", "trigger", "fraction", "due_at_mileage_km", "due_at_date"}, rows)
}

// WriteCSV dispatches on the outcome type.
func WriteCSV(w io.Writer, v any) error {
	switch out := v.(type) {
	case dispatch.AssignmentOutcome:
		return WriteAssignmentsCSV(w, out)
	case dispatch.RouteOutcome:
		return WriteRouteCSV(w, out.Route)
	case dispatch.MaintenanceOutcome:
		return WriteAlertsCSV(w, out.Alerts)
	default:
		return fmt.Errorf("export: no CSV layout for %T", v)
	}
}

package model

import (
	"errors"
	"testing"
	"time"
)

func TestVehicleDueDates(t *testing.T) {
	last := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	v := Vehicle{ID: "v1", MileageKm: 12000, LastMaintenanceDate: last, LastMaintenanceMileageKm: 10000, MileageIntervalKm: 5000, TimeIntervalMonths: 6}
	if got := v.MileageDueKm(); got != 15000 {
		t.Fatalf("expected 15000 got %v", got)
	}
	// AddDate normalises 31 July.
	if got := v.DateDue(); !got.Equal(time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due date %v", got)
	}
	if !v.HasMileageHistory() || !v.HasTimeHistory() {
		t.Fatal("expected both dimensions")
	}
}

func TestVehicleMissingHistory(t *testing.T) {
	v := Vehicle{ID: "v1", MileageKm: 100}
	if v.HasMileageHistory() || v.HasTimeHistory() {
		t.Fatal("expected no usable dimension")
	}
	if err := v.Validate(); err != nil {
		t.Fatalf("missing history must validate: %v", err)
	}
}

func TestVehicleValidate(t *testing.T) {
	cases := []struct {
		name string
		v    Vehicle
		want error
	}{
		{"missing id", Vehicle{}, ErrMissingID},
		{"negative mileage", Vehicle{ID: "v", MileageKm: -1}, ErrInvalidMileage},
		{"negative interval", Vehicle{ID: "v", MileageIntervalKm: -5}, ErrInvalidInterval},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.v.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, err)
			}
		})
	}
}

func TestSeverityRank(t *testing.T) {
	if !(SeverityOverdue.Rank() > SeverityDue.Rank() && SeverityDue.Rank() > SeverityUpcoming.Rank()) {
		t.Fatal("severity ranks out of order")
	}
	if Severity("x").Rank() != 0 {
		t.Fatal("unknown severity should rank 0")
	}
}

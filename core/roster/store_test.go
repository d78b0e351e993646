package roster

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/binfleet/core/model"
	"github.com/kilianp07/binfleet/core/spatial"
)

var london = model.GeoPoint{Lat: 51.5074, Lon: -0.1278}

func seed(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.Load(
		[]model.Driver{
			{ID: "d1", Position: london, Status: model.DriverActive, Rating: 4, VehicleCapacityKg: 300, Expertise: []model.WasteType{model.WasteGarden}},
			{ID: "d2", Position: london, Status: model.DriverOffline, Rating: 4, VehicleCapacityKg: 300},
		},
		[]model.Order{
			{ID: "o1", Position: london, EstimatedWeightKg: 200, Priority: model.PriorityHigh},
			{ID: "o2", Position: london, EstimatedWeightKg: 150, Priority: model.PriorityLow},
			{ID: "o3", Position: model.GeoPoint{Lat: 48.85, Lon: 2.35}, EstimatedWeightKg: 50, Priority: model.PriorityLow},
		},
		[]model.Vehicle{{ID: "v1", MileageKm: 100}},
	))
	return s
}

func TestCommitApplies(t *testing.T) {
	s := seed(t)
	s.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	c, err := s.Commit([]model.AssignmentResult{{DriverID: "d1", OrderID: "o1"}})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Len(t, c.Applied, 1)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), c.At)

	d, ok := s.Driver("d1")
	require.True(t, ok)
	assert.Equal(t, 200.0, d.CurrentLoadKg)

	st, ok := s.Order("o1")
	require.True(t, ok)
	assert.False(t, st.Pending())
	assert.Equal(t, c.ID, st.CommitID)

	assert.Equal(t, []model.Order{{ID: "o1", Position: london, EstimatedWeightKg: 200, Priority: model.PriorityHigh}}, s.OrdersFor("d1"))
	assert.Len(t, s.Pending(), 2)
}

func TestCommitIsAllOrNothing(t *testing.T) {
	s := seed(t)
	before := s.Snapshot()
	_, err := s.Commit([]model.AssignmentResult{{DriverID: "d1", OrderID: "o1"}, {DriverID: "d1", OrderID: "o2"}})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, before, s.Snapshot())
}

func TestCommitRejections(t *testing.T) {
	s := seed(t)
	cases := map[string]struct {
		in   []model.AssignmentResult
		want error
	}{
		"unknown order":  {[]model.AssignmentResult{{DriverID: "d1", OrderID: "nope"}}, ErrUnknownOrder},
		"unknown driver": {[]model.AssignmentResult{{DriverID: "dx", OrderID: "o1"}}, ErrUnknownDriver},
		"offline driver": {[]model.AssignmentResult{{DriverID: "d2", OrderID: "o1"}}, ErrDriverUnavailable},
		"duplicate":      {[]model.AssignmentResult{{DriverID: "d1", OrderID: "o3"}, {DriverID: "d1", OrderID: "o3"}}, ErrOrderNotPending},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Commit(tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := s.Commit([]model.AssignmentResult{{DriverID: "d1", OrderID: "o3"}})
	require.NoError(t, err)
	_, err = s.Commit([]model.AssignmentResult{{DriverID: "d1", OrderID: "o3"}})
	assert.ErrorIs(t, err, ErrOrderNotPending)
}

func TestConcurrentStaleCommits(t *testing.T) {
	s := seed(t)
	require.NoError(t, s.UpsertOrder(model.Order{ID: "o4", Position: london, EstimatedWeightKg: 200, Priority: model.PriorityMedium}))

	// Both batches were computed from the same snapshot; only one may land.
	batches := [][]model.AssignmentResult{
		{{DriverID: "d1", OrderID: "o1"}},
		{{DriverID: "d1", OrderID: "o4"}},
	}
	errs := make([]error, len(batches))
	var wg sync.WaitGroup
	for i, b := range batches {
		wg.Add(1)
		go func(i int, b []model.AssignmentResult) {
			defer wg.Done()
			_, errs[i] = s.Commit(b)
		}(i, b)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrCapacityExceeded)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	d, _ := s.Driver("d1")
	assert.LessOrEqual(t, d.CurrentLoadKg, d.VehicleCapacityKg)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := seed(t)
	snap := s.Snapshot()
	require.Len(t, snap.Drivers, 2)
	snap.Drivers[0].Expertise[0] = model.WasteHazardous
	snap.Drivers[0].CurrentLoadKg = 999
	d, _ := s.Driver("d1")
	assert.Equal(t, []model.WasteType{model.WasteGarden}, d.Expertise)
	assert.Zero(t, d.CurrentLoadKg)
	assert.Equal(t, []string{"o1", "o2", "o3"}, orderIDs(snap.Orders))
}

func TestComplete(t *testing.T) {
	s := seed(t)
	_, err := s.Commit([]model.AssignmentResult{{DriverID: "d1", OrderID: "o1"}})
	require.NoError(t, err)
	require.NoError(t, s.Complete("o1"))
	d, _ := s.Driver("d1")
	assert.Zero(t, d.CurrentLoadKg)
	_, ok := s.Order("o1")
	assert.False(t, ok)
	assert.ErrorIs(t, s.Complete("o1"), ErrUnknownOrder)
}

func TestUpserts(t *testing.T) {
	s := seed(t)
	v0 := s.Snapshot().Version
	assert.ErrorIs(t, s.UpsertDriver(model.Driver{ID: "bad", Status: model.DriverActive, VehicleCapacityKg: 10, Position: model.GeoPoint{Lat: 100}}), model.ErrInvalidPosition)
	assert.ErrorIs(t, s.UpsertOrder(model.Order{ID: "neg", Priority: model.PriorityLow, EstimatedWeightKg: -1}), model.ErrInvalidWeight)
	assert.ErrorIs(t, s.UpsertVehicle(model.Vehicle{}), model.ErrMissingID)
	require.NoError(t, s.UpsertVehicle(model.Vehicle{ID: "v2"}))
	assert.Greater(t, s.Snapshot().Version, v0)

	_, err := s.Commit([]model.AssignmentResult{{DriverID: "d1", OrderID: "o2"}})
	require.NoError(t, err)
	assert.ErrorIs(t, s.UpsertOrder(model.Order{ID: "o2", Priority: model.PriorityLow}), ErrOrderNotPending)
}

func TestDemand(t *testing.T) {
	s := seed(t)
	assert.Equal(t, 3, s.Demand())
	assert.Equal(t, 2, s.Demand(spatial.ZoneOf(london)))
	assert.Equal(t, 2, s.Demand(spatial.ZoneOf(london).Area()...))
	_, err := s.Commit([]model.AssignmentResult{{DriverID: "d1", OrderID: "o1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Demand(spatial.ZoneOf(london)))

	s.SetDemandHistory([]float64{3, 4})
	h := s.DemandHistory()
	h[0] = 99
	assert.Equal(t, []float64{3, 4}, s.DemandHistory())
}

func orderIDs(orders []model.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestUpsertDriverKeepsCommittedLoad(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Load(
		[]model.Driver{{ID: "d1", Position: london, Status: model.DriverActive, Rating: 4, VehicleCapacityKg: 100}},
		[]model.Order{
			{ID: "o1", Position: london, EstimatedWeightKg: 80, Priority: model.PriorityHigh},
			{ID: "o2", Position: london, EstimatedWeightKg: 80, Priority: model.PriorityHigh},
		},
		nil,
	))
	_, err := s.Commit([]model.AssignmentResult{{DriverID: "d1", OrderID: "o1"}})
	require.NoError(t, err)

	moved := model.Driver{ID: "d1", Position: model.GeoPoint{Lat: 51.51, Lon: -0.12}, Status: model.DriverActive, Rating: 4, VehicleCapacityKg: 100}
	require.NoError(t, s.UpsertDriver(moved))
	d, _ := s.Driver("d1")
	assert.Equal(t, 80.0, d.CurrentLoadKg)
	assert.Equal(t, moved.Position, d.Position)

	_, err = s.Commit([]model.AssignmentResult{{DriverID: "d1", OrderID: "o2"}})
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	moved.VehicleCapacityKg = 50
	assert.ErrorIs(t, s.UpsertDriver(moved), ErrCapacityExceeded)
	d, _ = s.Driver("d1")
	assert.Equal(t, 100.0, d.VehicleCapacityKg)

	require.NoError(t, s.Complete("o1"))
	require.NoError(t, s.UpsertDriver(moved))
	d, _ = s.Driver("d1")
	assert.Zero(t, d.CurrentLoadKg)
}

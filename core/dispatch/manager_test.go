package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/binfleet/core/assignment"
	"github.com/kilianp07/binfleet/core/dispatch/logging"
	"github.com/kilianp07/binfleet/core/events"
	"github.com/kilianp07/binfleet/core/maintenance"
	"github.com/kilianp07/binfleet/core/metrics"
	"github.com/kilianp07/binfleet/core/model"
	coremon "github.com/kilianp07/binfleet/core/monitoring"
	"github.com/kilianp07/binfleet/core/pricing"
	"github.com/kilianp07/binfleet/core/roster"
	"github.com/kilianp07/binfleet/core/routing"
	"github.com/kilianp07/binfleet/core/spatial"
	"github.com/kilianp07/binfleet/internal/eventbus"
)

var (
	london = model.GeoPoint{Lat: 51.5074, Lon: -0.1278}
	kl     = model.GeoPoint{Lat: 3.1390, Lon: 101.6869}
)

type recordSink struct {
	mu          sync.Mutex
	assignments []metrics.AssignmentRecord
	routes      []metrics.RouteRecord
	quotes      []metrics.QuoteRecord
	alerts      []model.MaintenanceAlert
}

func (s *recordSink) RecordAssignments(r []metrics.AssignmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, r...)
	return nil
}

func (s *recordSink) RecordRoute(r metrics.RouteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, r)
	return nil
}

func (s *recordSink) RecordQuote(r metrics.QuoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes = append(s.quotes, r)
	return nil
}

func (s *recordSink) RecordAlerts(a []model.MaintenanceAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a...)
	return nil
}

type recordMonitor struct {
	mu   sync.Mutex
	errs []error
	tags []coremon.Tags
}

func (r *recordMonitor) CaptureException(err error, tags coremon.Tags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func defaultEngines() Engines {
	return Engines{
		Assignment:  assignment.New(assignment.DefaultConfig(), nil),
		Routing:     routing.New(routing.DefaultConfig(), nil),
		Pricing:     pricing.New(pricing.DefaultConfig(), nil),
		Maintenance: maintenance.New(maintenance.DefaultConfig(), nil),
	}
}

type fixture struct {
	mgr    *Manager
	roster *roster.MemoryStore
	sink   *recordSink
	bus    *eventbus.TypedBus[events.Decision]
	log    *logging.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	r := roster.NewMemoryStore()
	sink := &recordSink{}
	bus := eventbus.NewTyped[events.Decision](64)
	mgr, err := NewManager(r, defaultEngines(), sink, bus, nil)
	require.NoError(t, err)
	store := logging.NewMemoryStore()
	mgr.SetLogStore(store)
	t.Cleanup(func() { _ = mgr.Close() })
	return fixture{mgr: mgr, roster: r, sink: sink, bus: bus, log: store}
}

func near(p model.GeoPoint, dLat float64) model.GeoPoint {
	return model.GeoPoint{Lat: p.Lat + dLat, Lon: p.Lon}
}

func TestNewManagerRejectsMissingParts(t *testing.T) {
	_, err := NewManager(nil, defaultEngines(), nil, nil, nil)
	assert.Error(t, err)
	eng := defaultEngines()
	eng.Pricing = nil
	_, err = NewManager(roster.NewMemoryStore(), eng, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewManager(roster.NewMemoryStore(), defaultEngines(), nil, nil, nil)
	assert.NoError(t, err)
}

func TestAssignPendingCommits(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.roster.Load(
		[]model.Driver{
			{ID: "d1", Position: london, Status: model.DriverActive, Rating: 5, VehicleCapacityKg: 200},
			{ID: "d2", Position: near(london, 0.05), Status: model.DriverActive, Rating: 3, VehicleCapacityKg: 1000},
		},
		[]model.Order{
			{ID: "o1", Position: near(london, 0.01), EstimatedWeightKg: 150, Priority: model.PriorityHigh},
			{ID: "o2", Position: near(london, 0.01), EstimatedWeightKg: 100, Priority: model.PriorityMedium},
			{ID: "o3", Position: near(london, 0.02), EstimatedWeightKg: 5000, Priority: model.PriorityLow},
		},
		nil,
	))
	sub := f.bus.Subscribe()

	out, err := f.mgr.AssignPending(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Assignments, 2)
	assert.NotEmpty(t, out.CommitID)
	assert.NotEmpty(t, out.RecordID)
	assert.Equal(t, []string{"o3"}, out.Unassigned)
	require.Len(t, out.Breakdowns, 2)
	for i, b := range out.Breakdowns {
		assert.Equal(t, out.Assignments[i].OrderID, b.OrderID)
		assert.Equal(t, out.Assignments[i].DriverID, b.DriverID)
		assert.Equal(t, out.Assignments[i].Score, b.Total)
	}
	assert.Equal(t, assignment.DefaultConfig().HighPriorityBonus, out.Breakdowns[0].Priority)
	// d1 is empty when o1 is scored; taking it fills 150 of 200 kg.
	assert.InDelta(t, 0.25*assignment.DefaultConfig().UtilizationWeight, out.Breakdowns[0].Utilization, 1e-9)

	for _, id := range []string{"d1", "d2"} {
		d, ok := f.roster.Driver(id)
		require.True(t, ok)
		assert.LessOrEqual(t, d.CurrentLoadKg, d.VehicleCapacityKg, id)
	}
	st, _ := f.roster.Order("o1")
	assert.Equal(t, "d1", st.DriverID)
	st, _ = f.roster.Order("o2")
	assert.Equal(t, "d2", st.DriverID)
	assert.Equal(t, []string{"o3"}, orderIDs(f.roster.Pending()))

	require.Len(t, f.sink.assignments, 3)
	assert.False(t, f.sink.assignments[2].Assigned())

	select {
	case ev := <-sub:
		assert.Equal(t, events.KindAssignment, ev.Kind)
		assert.Equal(t, out.RecordID, ev.RecordID)
		assert.NoError(t, ev.Err)
		assert.Contains(t, ev.Subjects, "o3")
	case <-time.After(time.Second):
		t.Fatal("no decision event published")
	}

	recs, err := f.mgr.Decisions(context.Background(), logging.LogQuery{SubjectID: "d2"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, out.RecordID, recs[0].ID)
	assert.Contains(t, string(recs[0].Payload), `"commit_id"`)
	var logged AssignmentOutcome
	require.NoError(t, json.Unmarshal(recs[0].Payload, &logged))
	assert.Equal(t, out.Breakdowns, logged.Breakdowns)

	again, err := f.mgr.AssignPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.Assignments)
	assert.Equal(t, []string{"o3"}, again.Unassigned)
	assert.Empty(t, again.CommitID)
}

func TestAssignPendingCanceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.mgr.AssignPending(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssignOne(t *testing.T) {
	f := newFixture(t)
	mon := &recordMonitor{}
	coremon.Init(mon)
	t.Cleanup(func() { coremon.Init(coremon.NopMonitor{}) })

	require.NoError(t, f.roster.Load(
		[]model.Driver{{ID: "d1", Position: london, Status: model.DriverActive, Rating: 4, VehicleCapacityKg: 100}},
		[]model.Order{
			{ID: "o1", Position: near(london, 0.01), EstimatedWeightKg: 60, Priority: model.PriorityLow},
			{ID: "o2", Position: near(london, 0.01), EstimatedWeightKg: 60, Priority: model.PriorityHigh},
		},
		nil,
	))

	out, err := f.mgr.AssignOne(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, out.Assignments, 1)
	assert.Equal(t, "d1", out.Assignments[0].DriverID)
	require.Len(t, out.Breakdowns, 1)
	assert.Equal(t, out.Assignments[0].Score, out.Breakdowns[0].Total)

	// d1 has 40 kg left.
	out, err = f.mgr.AssignOne(context.Background(), "o2")
	require.NoError(t, err)
	assert.Empty(t, out.Assignments)
	assert.Empty(t, out.Breakdowns)
	assert.Equal(t, []string{"o2"}, out.Unassigned)

	_, err = f.mgr.AssignOne(context.Background(), "o1")
	assert.ErrorIs(t, err, roster.ErrOrderNotPending)
	_, err = f.mgr.AssignOne(context.Background(), "missing")
	assert.ErrorIs(t, err, roster.ErrUnknownOrder)

	failed, err := f.mgr.Decisions(context.Background(), logging.LogQuery{SubjectID: "missing"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "unknown order")

	mon.mu.Lock()
	defer mon.mu.Unlock()
	require.Len(t, mon.errs, 2)
	assert.Equal(t, "dispatch_manager", mon.tags[0]["module"])
	assert.Equal(t, "assignment", mon.tags[0]["kind"])
}

func TestConcurrentAssignmentsKeepCapacity(t *testing.T) {
	f := newFixture(t)
	drivers := []model.Driver{
		{ID: "d1", Position: london, Status: model.DriverActive, Rating: 4, VehicleCapacityKg: 300},
		{ID: "d2", Position: near(london, 0.02), Status: model.DriverActive, Rating: 4, VehicleCapacityKg: 300},
	}
	require.NoError(t, f.roster.Load(drivers, nil, nil))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("o%02d", i)
			o := model.Order{ID: id, Position: near(london, float64(i)*0.001), EstimatedWeightKg: 70, Priority: model.PriorityMedium}
			if err := f.roster.UpsertOrder(o); err != nil {
				t.Errorf("upsert: %v", err)
				return
			}
			var err error
			if i%2 == 0 {
				_, err = f.mgr.AssignOne(context.Background(), id)
			} else {
				_, err = f.mgr.AssignPending(context.Background())
			}
			if err != nil && !errors.Is(err, roster.ErrOrderNotPending) {
				t.Errorf("assign %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	assigned := 0
	for _, d := range drivers {
		got, _ := f.roster.Driver(d.ID)
		assert.LessOrEqual(t, got.CurrentLoadKg, got.VehicleCapacityKg, d.ID)
		var sum float64
		for _, o := range f.roster.OrdersFor(d.ID) {
			sum += o.EstimatedWeightKg
			assigned++
		}
		assert.InDelta(t, got.CurrentLoadKg, sum, 1e-9, d.ID)
	}
	// 4 orders of 70 kg fit in 300 kg.
	assert.Equal(t, 8, assigned)
}

func TestPlanRoute(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.roster.Load(
		[]model.Driver{{ID: "d1", Position: london, Status: model.DriverActive, Rating: 4, VehicleCapacityKg: 1000}},
		[]model.Order{
			{ID: "far", Position: near(london, 0.05), EstimatedWeightKg: 10, Priority: model.PriorityLow},
			{ID: "close", Position: near(london, 0.01), EstimatedWeightKg: 10, Priority: model.PriorityLow},
		},
		nil,
	))
	_, err := f.mgr.AssignPending(context.Background())
	require.NoError(t, err)

	out, err := f.mgr.PlanRoute(context.Background(), "d1", model.RouteConstraints{FuelEfficiencyKmPerLiter: 5, FuelPricePerLiter: 2})
	require.NoError(t, err)
	require.Len(t, out.Route.Stops, 2)
	assert.Equal(t, "close", out.Route.Stops[0].LocationID)
	assert.Equal(t, "far", out.Route.Stops[1].LocationID)
	assert.Empty(t, out.Route.Unvisited)
	assert.Greater(t, out.Route.EstimatedFuelCost, 0.0)
	require.Len(t, f.sink.routes, 1)
	assert.Equal(t, 2, f.sink.routes[0].Stops)

	_, err = f.mgr.PlanRoute(context.Background(), "ghost", model.RouteConstraints{})
	assert.ErrorIs(t, err, roster.ErrUnknownDriver)
	_, err = f.mgr.PlanRoute(context.Background(), "d1", model.RouteConstraints{MaxDistanceKm: -1})
	assert.ErrorIs(t, err, model.ErrInvalidCapacity)

	recs, err := f.mgr.Decisions(context.Background(), logging.LogQuery{Kind: events.KindRoute})
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestQuoteUsesZoneDemand(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.roster.Load(nil, []model.Order{
		{ID: "l1", Position: london, Priority: model.PriorityLow},
		{ID: "l2", Position: london, Priority: model.PriorityLow},
		{ID: "l3", Position: london, Priority: model.PriorityLow},
		{ID: "k1", Position: kl, Priority: model.PriorityLow},
	}, nil))
	f.roster.SetDemandHistory([]float64{3, 5})
	factors := model.PricingFactors{DistanceKm: 10, WeightKg: 100, WasteType: model.WasteHousehold}

	// 50 + 1.5*10 + 0.1*100 = 75; zone demand 3/4 clamps to 0.8.
	out, err := f.mgr.Quote(context.Background(), factors, spatial.ZoneOf(london))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Demand.CurrentPendingOrders)
	assert.InDelta(t, 4, out.Demand.HistoricalAverageOrders, 1e-9)
	assert.InDelta(t, 0.8, out.Quote.DemandMultiplier, 1e-9)
	assert.InDelta(t, 60.0, out.Quote.Final, 1e-9)

	// Fleet wide demand 4/4 is neutral.
	out, err = f.mgr.Quote(context.Background(), factors, "")
	require.NoError(t, err)
	assert.InDelta(t, 75.0, out.Quote.Final, 1e-9)

	_, err = f.mgr.Quote(context.Background(), model.PricingFactors{WeightKg: -1}, "")
	assert.ErrorIs(t, err, model.ErrInvalidWeight)
	require.Len(t, f.sink.quotes, 2)
}

func TestMaintenanceSweep(t *testing.T) {
	f := newFixture(t)
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.roster.Load(nil, nil, []model.Vehicle{
		{ID: "v1", MileageKm: 21000, LastMaintenanceMileageKm: 10000, MileageIntervalKm: 10000},
		{ID: "v2", MileageKm: 11000, LastMaintenanceMileageKm: 10000, MileageIntervalKm: 10000},
	}))
	out, err := f.mgr.MaintenanceSweep(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, out.Alerts, 1)
	assert.Equal(t, "v1", out.Alerts[0].VehicleID)
	assert.Equal(t, model.SeverityOverdue, out.Alerts[0].Severity)
	assert.Equal(t, asOf, out.AsOf)
	assert.Len(t, f.sink.alerts, 1)

	recs, err := f.mgr.Decisions(context.Background(), logging.LogQuery{SubjectID: "v1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, events.KindMaintenance, recs[0].Kind)
}

func TestDecisionsWithoutLog(t *testing.T) {
	mgr, err := NewManager(roster.NewMemoryStore(), defaultEngines(), nil, nil, nil)
	require.NoError(t, err)
	_, err = mgr.Decisions(context.Background(), logging.LogQuery{})
	assert.ErrorIs(t, err, ErrNoDecisionLog)
	_, err = mgr.MaintenanceSweep(context.Background(), time.Time{})
	assert.NoError(t, err)
	assert.NoError(t, mgr.Close())
}

type fixedBaseline struct {
	zones [][]spatial.Zone
	hist  []float64
	err   error
}

func (b *fixedBaseline) History(_ context.Context, zones []spatial.Zone, _ time.Time) ([]float64, error) {
	b.zones = append(b.zones, zones)
	return b.hist, b.err
}

func TestQuoteUsesDemandBaseline(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.roster.Load(nil, []model.Order{
		{ID: "l1", Position: london, Priority: model.PriorityLow},
		{ID: "l2", Position: london, Priority: model.PriorityLow},
	}, nil))
	f.roster.SetDemandHistory([]float64{100})
	b := &fixedBaseline{hist: []float64{1, 1}}
	f.mgr.SetDemandBaseline(b)
	factors := model.PricingFactors{DistanceKm: 10, WeightKg: 100}

	out, err := f.mgr.Quote(context.Background(), factors, spatial.ZoneOf(london))
	require.NoError(t, err)
	assert.InDelta(t, 1, out.Demand.HistoricalAverageOrders, 1e-9)
	assert.InDelta(t, 1.5, out.Quote.DemandMultiplier, 1e-9)
	require.Len(t, b.zones, 1)
	assert.Len(t, b.zones[0], 9)

	// An empty or failing baseline falls back to the roster history.
	b.hist, b.err = nil, errors.New("db down")
	out, err = f.mgr.Quote(context.Background(), factors, "")
	require.NoError(t, err)
	assert.InDelta(t, 100, out.Demand.HistoricalAverageOrders, 1e-9)
	assert.Nil(t, b.zones[1])
}

// Package roster holds the canonical drivers, orders and vehicles on behalf of
// the orchestration layer. Engines only ever see snapshots; results come back
// through Commit, which applies a batch atomically.
package roster

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/binfleet/core/model"
	"github.com/kilianp07/binfleet/core/spatial"
)

var (
	ErrCapacityExceeded  = errors.New("roster: driver capacity exceeded")
	ErrUnknownDriver     = errors.New("roster: unknown driver")
	ErrUnknownOrder      = errors.New("roster: unknown order")
	ErrOrderNotPending   = errors.New("roster: order is not pending")
	ErrDriverUnavailable = errors.New("roster: driver is not active")
)

// OrderState tracks an order's assignment.
type OrderState struct {
	Order    model.Order `json:"order"`
	DriverID string      `json:"driver_id,omitempty"`
	CommitID string      `json:"commit_id,omitempty"`
}

// Pending reports whether the order still awaits a driver.
func (s OrderState) Pending() bool { return s.DriverID == "" }

// Snapshot is an immutable copy of the roster. Orders holds pending orders only.
type Snapshot struct {
	Version  uint64          `json:"version"`
	Drivers  []model.Driver  `json:"drivers"`
	Orders   []model.Order   `json:"orders"`
	Vehicles []model.Vehicle `json:"vehicles"`
}

// Commit describes an applied batch of assignments.
type Commit struct {
	ID      string                   `json:"id"`
	At      time.Time                `json:"at"`
	Version uint64                   `json:"version"`
	Applied []model.AssignmentResult `json:"applied"`
}

// Store is the canonical roster.
type Store interface {
	UpsertDriver(model.Driver) error
	UpsertOrder(model.Order) error
	UpsertVehicle(model.Vehicle) error
	Complete(orderID string) error
	Snapshot() Snapshot
	Pending() []model.Order
	Driver(id string) (model.Driver, bool)
	Order(id string) (OrderState, bool)
	OrdersFor(driverID string) []model.Order
	Demand(zones ...spatial.Zone) int
	SetDemandHistory(counts []float64)
	DemandHistory() []float64
	Commit(results []model.AssignmentResult) (Commit, error)
}

// MemoryStore is a mutex guarded in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	version  uint64
	drivers  map[string]model.Driver
	orders   map[string]OrderState
	vehicles map[string]model.Vehicle
	history  []float64
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drivers:  map[string]model.Driver{},
		orders:   map[string]OrderState{},
		vehicles: map[string]model.Vehicle{},
		now:      time.Now,
	}
}

// Load replaces the roster with the given records. Every record is validated
// first; on error nothing changes.
func (s *MemoryStore) Load(drivers []model.Driver, orders []model.Order, vehicles []model.Vehicle) error {
	for _, d := range drivers {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	for _, v := range vehicles {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers = make(map[string]model.Driver, len(drivers))
	for _, d := range drivers {
		s.drivers[d.ID] = cloneDriver(d)
	}
	s.orders = make(map[string]OrderState, len(orders))
	for _, o := range orders {
		s.orders[o.ID] = OrderState{Order: o}
	}
	s.vehicles = make(map[string]model.Vehicle, len(vehicles))
	for _, v := range vehicles {
		s.vehicles[v.ID] = v
	}
	s.version++
	return nil
}

// UpsertDriver adds a driver or updates a known one. The load of a known
// driver is owned by the roster: the stored CurrentLoadKg is kept and the
// caller's value ignored. Lowering the capacity below that load fails with
// ErrCapacityExceeded.
func (s *MemoryStore) UpsertDriver(d model.Driver) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.drivers[d.ID]; ok {
		if cur.CurrentLoadKg > d.VehicleCapacityKg {
			return fmt.Errorf("%w: %s carries %.1f kg, new capacity %.1f kg",
				ErrCapacityExceeded, d.ID, cur.CurrentLoadKg, d.VehicleCapacityKg)
		}
		d.CurrentLoadKg = cur.CurrentLoadKg
	}
	s.drivers[d.ID] = cloneDriver(d)
	s.version++
	return nil
}

// UpsertOrder adds a pending order or updates one that is still pending.
func (s *MemoryStore) UpsertOrder(o model.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.orders[o.ID]; ok && !st.Pending() {
		return fmt.Errorf("%w: %s is assigned to %s", ErrOrderNotPending, o.ID, st.DriverID)
	}
	s.orders[o.ID] = OrderState{Order: o}
	s.version++
	return nil
}

func (s *MemoryStore) UpsertVehicle(v model.Vehicle) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.vehicles[v.ID] = v
	s.version++
	s.mu.Unlock()
	return nil
}

// Complete removes a finished order and releases its weight from the driver.
func (s *MemoryStore) Complete(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if d, ok := s.drivers[st.DriverID]; ok {
		d.CurrentLoadKg = max(0, d.CurrentLoadKg-st.Order.EstimatedWeightKg)
		s.drivers[d.ID] = d
	}
	delete(s.orders, orderID)
	s.version++
	return nil
}

// Snapshot returns deep copies sorted by id.
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Version:  s.version,
		Drivers:  make([]model.Driver, 0, len(s.drivers)),
		Orders:   s.pendingLocked(),
		Vehicles: make([]model.Vehicle, 0, len(s.vehicles)),
	}
	for _, d := range s.drivers {
		snap.Drivers = append(snap.Drivers, cloneDriver(d))
	}
	for _, v := range s.vehicles {
		snap.Vehicles = append(snap.Vehicles, v)
	}
	sort.Slice(snap.Drivers, func(i, j int) bool { return snap.Drivers[i].ID < snap.Drivers[j].ID })
	sort.Slice(snap.Vehicles, func(i, j int) bool { return snap.Vehicles[i].ID < snap.Vehicles[j].ID })
	return snap
}

// Pending returns the orders still awaiting a driver, sorted by id.
func (s *MemoryStore) Pending() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingLocked()
}

func (s *MemoryStore) pendingLocked() []model.Order {
	res := make([]model.Order, 0, len(s.orders))
	for _, st := range s.orders {
		if st.Pending() {
			res = append(res, st.Order)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *MemoryStore) Driver(id string) (model.Driver, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers[id]
	return cloneDriver(d), ok
}

func (s *MemoryStore) Order(id string) (OrderState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.orders[id]
	return st, ok
}

// OrdersFor returns the orders committed to driverID, sorted by id.
func (s *MemoryStore) OrdersFor(driverID string) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.Order
	for _, st := range s.orders {
		if st.DriverID == driverID && driverID != "" {
			res = append(res, st.Order)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Demand counts pending orders located in any of zones, or all pending orders
// when no zone is given.
func (s *MemoryStore) Demand(zones ...spatial.Zone) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, st := range s.orders {
		if !st.Pending() {
			continue
		}
		if len(zones) == 0 || inAny(zones, st.Order.Position) {
			n++
		}
	}
	return n
}

func inAny(zones []spatial.Zone, p model.GeoPoint) bool {
	for _, z := range zones {
		if z.Contains(p) {
			return true
		}
	}
	return false
}

// SetDemandHistory stores past daily order counts used as the demand baseline.
func (s *MemoryStore) SetDemandHistory(counts []float64) {
	s.mu.Lock()
	s.history = slices.Clone(counts)
	s.mu.Unlock()
}

func (s *MemoryStore) DemandHistory() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// Commit applies results atomically. Every result is checked against the
// canonical loads, including the other results of the same batch; if any
// check fails nothing is applied.
func (s *MemoryStore) Commit(results []model.AssignmentResult) (Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make(map[string]float64)
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		st, ok := s.orders[r.OrderID]
		if !ok {
			return Commit{}, fmt.Errorf("%w: %s", ErrUnknownOrder, r.OrderID)
		}
		if !st.Pending() || seen[r.OrderID] {
			return Commit{}, fmt.Errorf("%w: %s", ErrOrderNotPending, r.OrderID)
		}
		seen[r.OrderID] = true
		d, ok := s.drivers[r.DriverID]
		if !ok {
			return Commit{}, fmt.Errorf("%w: %s", ErrUnknownDriver, r.DriverID)
		}
		if d.Status != model.DriverActive {
			return Commit{}, fmt.Errorf("%w: %s is %s", ErrDriverUnavailable, d.ID, d.Status)
		}
		added[d.ID] += st.Order.EstimatedWeightKg
		if d.CurrentLoadKg+added[d.ID] > d.VehicleCapacityKg {
			return Commit{}, fmt.Errorf("%w: %s would carry %.1f of %.1f kg",
				ErrCapacityExceeded, d.ID, d.CurrentLoadKg+added[d.ID], d.VehicleCapacityKg)
		}
	}

	c := Commit{ID: uuid.NewString(), At: s.now(), Applied: slices.Clone(results)}
	for id, w := range added {
		d := s.drivers[id]
		d.CurrentLoadKg += w
		s.drivers[id] = d
	}
	for _, r := range results {
		st := s.orders[r.OrderID]
		st.DriverID = r.DriverID
		st.CommitID = c.ID
		s.orders[r.OrderID] = st
	}
	s.version++
	c.Version = s.version
	return c, nil
}

func cloneDriver(d model.Driver) model.Driver {
	d.Expertise = slices.Clone(d.Expertise)
	return d
}

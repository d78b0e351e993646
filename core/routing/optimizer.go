// Package routing sequences a driver's stops with a nearest-neighbour
// heuristic under distance, time and capacity limits.
package routing

import (
	"math"

	"github.com/kilianp07/binfleet/core/logger"
	"github.com/kilianp07/binfleet/core/model"
)

// Optimizer builds routes. It holds only configuration and is safe for
// concurrent use.
type Optimizer struct {
	cfg Config
	log logger.Logger
}

// New returns an Optimizer. A nil logger disables logging.
func New(cfg Config, log logger.Logger) *Optimizer {
	cfg.SetDefaults()
	return &Optimizer{cfg: cfg, log: logger.OrNop(log)}
}

// minutesPerKm resolves the travel rate for one call.
func (o *Optimizer) minutesPerKm(c model.RouteConstraints) float64 {
	if c.AverageSpeedKmh > 0 {
		return 60 / c.AverageSpeedKmh
	}
	return o.cfg.MinutesPerKm
}

// Optimize visits the nearest remaining stop first, starting at start. Ties
// go to the higher priority weight, then the lower location id. A stop that
// would break a limit is reported in Unvisited and the search continues from
// the same position. Zero limits are unbounded. Optimize never fails.
func (o *Optimizer) Optimize(driverID string, start model.GeoPoint, stops []model.Stop, c model.RouteConstraints) model.OptimizedRoute {
	route := model.OptimizedRoute{
		DriverID:  driverID,
		Stops:     make([]model.Stop, 0, len(stops)),
		Unvisited: []string{},
	}
	if len(stops) == 0 {
		return route
	}

	rate := o.minutesPerKm(c)
	remaining := make([]model.Stop, len(stops))
	copy(remaining, stops)
	pos := start
	var weight float64

	for len(remaining) > 0 {
		i, km := nearest(pos, remaining)
		next := remaining[i]
		remaining = append(remaining[:i], remaining[i+1:]...)

		minutes := km*rate + next.ServiceTimeMinutes
		if !fits(route.TotalDistanceKm+km, c.MaxDistanceKm) ||
			!fits(route.TotalTimeMinutes+minutes, c.MaxTimeMinutes) ||
			!fits(weight+next.WeightKg, c.VehicleCapacityKg) {
			o.log.Debugf("route %s: stop %s does not fit", driverID, next.LocationID)
			route.Unvisited = append(route.Unvisited, next.LocationID)
			continue
		}
		route.Stops = append(route.Stops, next)
		route.TotalDistanceKm += km
		route.TotalTimeMinutes += minutes
		weight += next.WeightKg
		pos = next.Position
	}
	route.EstimatedFuelCost = FuelCost(route.TotalDistanceKm, c)
	return route
}

// OptimizeForOrders routes the orders a driver already owns, starting at the
// driver's position and using the vehicle capacity as weight limit when the
// constraints leave it unset.
func (o *Optimizer) OptimizeForOrders(d model.Driver, orders []model.Order, c model.RouteConstraints) model.OptimizedRoute {
	stops := make([]model.Stop, len(orders))
	for i, ord := range orders {
		stops[i] = model.StopFromOrder(ord)
	}
	if c.VehicleCapacityKg == 0 {
		c.VehicleCapacityKg = d.VehicleCapacityKg
	}
	return o.Optimize(d.ID, d.Position, stops, c)
}

// FuelCost returns distance / efficiency * price rounded to cents, or 0
// when the efficiency is not positive.
func FuelCost(distanceKm float64, c model.RouteConstraints) float64 {
	if c.FuelEfficiencyKmPerLiter <= 0 {
		return 0
	}
	return round2(distanceKm / c.FuelEfficiencyKmPerLiter * c.FuelPricePerLiter)
}

func nearest(from model.GeoPoint, stops []model.Stop) (int, float64) {
	best := 0
	bestKm := model.DistanceKm(from, stops[0].Position)
	for i := 1; i < len(stops); i++ {
		km := model.DistanceKm(from, stops[i].Position)
		s, b := stops[i], stops[best]
		switch {
		case km < bestKm:
		case km > bestKm:
			continue
		case s.PriorityWeight > b.PriorityWeight:
		case s.PriorityWeight < b.PriorityWeight:
			continue
		case s.LocationID < b.LocationID:
		default:
			continue
		}
		best, bestKm = i, km
	}
	return best, bestKm
}

func fits(value, limit float64) bool {
	return limit <= 0 || value <= limit
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

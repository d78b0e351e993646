package spatial

import (
	"github.com/mmcloughlin/geohash"

	"github.com/kilianp07/binfleet/core/model"
)

// ZonePrecision is the geohash length used for demand zones (roughly 5 km cells).
const ZonePrecision = 5

// Zone is a geohash cell.
type Zone string

// ZoneOf returns the zone containing p.
func ZoneOf(p model.GeoPoint) Zone {
	return Zone(geohash.EncodeWithPrecision(p.Lat, p.Lon, ZonePrecision))
}

// Contains reports whether p falls inside the zone.
func (z Zone) Contains(p model.GeoPoint) bool {
	if z == "" {
		return false
	}
	return geohash.BoundingBox(string(z)).Contains(p.Lat, p.Lon)
}

// Neighbors returns the eight adjacent zones.
func (z Zone) Neighbors() []Zone {
	ns := geohash.Neighbors(string(z))
	out := make([]Zone, len(ns))
	for i, n := range ns {
		out[i] = Zone(n)
	}
	return out
}

// Area returns the zone plus its neighbours, for demand lookups that should
// not stop at a cell edge.
func (z Zone) Area() []Zone {
	return append([]Zone{z}, z.Neighbors()...)
}

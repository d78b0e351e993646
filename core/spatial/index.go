package spatial

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/kilianp07/binfleet/core/model"
)

const (
	minBranch = 25
	maxBranch = 50

	kmPerDegree = model.EarthRadiusKm * math.Pi / 180
	pointTol    = 1e-7
)

// entry wraps a driver so it satisfies rtreego.Spatial. Entries are pointers
// so the tree can compare them by identity.
type entry struct {
	driver model.Driver
	where  rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect { return e.where }

// Index is an immutable R-tree over driver positions, built per snapshot.
// Coordinates are stored as (lat, lon) in degrees.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// NewIndex bulk loads the drivers into a new index.
func NewIndex(drivers []model.Driver) *Index {
	objs := make([]rtreego.Spatial, 0, len(drivers))
	for _, d := range drivers {
		p := rtreego.Point{d.Position.Lat, d.Position.Lon}
		objs = append(objs, &entry{driver: d, where: p.ToRect(pointTol)})
	}
	return &Index{tree: rtreego.NewTree(2, minBranch, maxBranch, objs...), size: len(drivers)}
}

// Len returns the number of indexed drivers.
func (ix *Index) Len() int { return ix.size }

// Within returns the drivers whose great-circle distance to center is at most
// radiusKm, ordered by driver id. The R-tree prunes with a degree bounding box
// and the exact Haversine check filters the rest.
func (ix *Index) Within(center model.GeoPoint, radiusKm float64) []model.Driver {
	if radiusKm < 0 || ix.size == 0 {
		return nil
	}
	hits := ix.tree.SearchIntersect(searchBox(center, radiusKm))
	out := make([]model.Driver, 0, len(hits))
	for _, h := range hits {
		d := h.(*entry).driver
		if model.DistanceKm(center, d.Position) <= radiusKm {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Nearest returns up to k drivers closest to center by Haversine distance,
// ties broken by driver id.
func (ix *Index) Nearest(center model.GeoPoint, k int) []model.Driver {
	if k <= 0 || ix.size == 0 {
		return nil
	}
	// Degree space is not isotropic, so over-fetch and re-rank.
	fetch := k * 2
	if fetch > ix.size {
		fetch = ix.size
	}
	hits := ix.tree.NearestNeighbors(fetch, rtreego.Point{center.Lat, center.Lon})
	out := make([]model.Driver, 0, len(hits))
	for _, h := range hits {
		if h == nil {
			continue
		}
		out = append(out, h.(*entry).driver)
	}
	sort.SliceStable(out, func(i, j int) bool {
		di := model.DistanceKm(center, out[i].Position)
		dj := model.DistanceKm(center, out[j].Position)
		if di != dj {
			return di < dj
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// searchBox converts a radius into a lat/lon rectangle that contains the
// whole circle. Near the poles or across the antimeridian it widens to the
// full longitude range.
func searchBox(c model.GeoPoint, radiusKm float64) rtreego.Rect {
	dLat := radiusKm/kmPerDegree + pointTol
	minLat := math.Max(-90, c.Lat-dLat)
	maxLat := math.Min(90, c.Lat+dLat)

	minLon, maxLon := -180.0, 180.0
	cosLat := math.Cos(c.Lat * math.Pi / 180)
	if cosLat > 1e-6 {
		dLon := dLat / cosLat
		if c.Lon-dLon >= -180 && c.Lon+dLon <= 180 {
			minLon, maxLon = c.Lon-dLon, c.Lon+dLon
		}
	}
	r, err := rtreego.NewRectFromPoints(rtreego.Point{minLat, minLon}, rtreego.Point{maxLat, maxLon})
	if err != nil {
		// Degenerate box; fall back to the whole globe.
		r, _ = rtreego.NewRectFromPoints(rtreego.Point{-90, -180}, rtreego.Point{90, 180})
	}
	return r
}

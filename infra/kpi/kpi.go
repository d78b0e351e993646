// Package kpi stores daily order demand per zone. The pricing baseline is the
// average of these daily counts.
package kpi

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// FleetZone is the zone key holding fleet wide totals.
const FleetZone = ""

// DemandRecord is the number of orders observed in a zone on a day.
type DemandRecord struct {
	Zone   string    `json:"zone"`
	Day    time.Time `json:"day"`
	Orders int       `json:"orders"`
}

// Store persists demand records. Set replaces the count of (zone, day).
type Store interface {
	Set(ctx context.Context, recs ...DemandRecord) error
	// Query returns the records of zone with start <= day <= end, ordered by day.
	Query(ctx context.Context, zone string, start, end time.Time) ([]DemandRecord, error)
	Close() error
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Config selects the demand store.
type Config struct {
	// Backend is "memory", "sqlite" or empty to disable demand tracking.
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// WindowDays is the number of past days averaged into the baseline.
	WindowDays int `json:"window_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.WindowDays == 0 {
		c.WindowDays = 28
	}
	if c.Backend == "sqlite" && c.Path == "" {
		c.Path = "demand.db"
	}
}

// Validate checks the backend and window.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("demand: unknown backend %q", c.Backend)
	}
	if c.WindowDays < 0 {
		return fmt.Errorf("demand: window_days must not be negative")
	}
	return nil
}

// Open returns the configured store, or nil when tracking is disabled.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, nil
	}
}

type key struct {
	zone string
	day  int64
}

// MemoryStore keeps records in a map.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[key]int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: map[key]int{}}
}

func (s *MemoryStore) Set(_ context.Context, recs ...DemandRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.recs[key{r.Zone, Day(r.Day).Unix()}] = r.Orders
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, zone string, start, end time.Time) ([]DemandRecord, error) {
	from, to := Day(start).Unix(), Day(end).Unix()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []DemandRecord
	for k, n := range s.recs {
		if k.zone == zone && k.day >= from && k.day <= to {
			res = append(res, DemandRecord{Zone: zone, Day: time.Unix(k.day, 0).UTC(), Orders: n})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Day.Before(res[j].Day) })
	return res, nil
}

func (s *MemoryStore) Close() error { return nil }

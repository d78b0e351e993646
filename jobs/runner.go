// Package jobs runs periodic work against the dispatch manager while the
// service is up.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/binfleet/core/logger"
	coremon "github.com/kilianp07/binfleet/core/monitoring"
)

// Config sets job intervals. A zero interval disables the job.
type Config struct {
	AssignInterval      time.Duration `json:"assign_interval"`
	MaintenanceInterval time.Duration `json:"maintenance_interval"`
	DemandInterval      time.Duration `json:"demand_interval"`
}

// Validate rejects negative intervals.
func (c Config) Validate() error {
	if c.AssignInterval < 0 || c.MaintenanceInterval < 0 || c.DemandInterval < 0 {
		return fmt.Errorf("jobs: intervals must not be negative")
	}
	return nil
}

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner ticks every job on its own interval.
type Runner struct {
	jobs []Job
	log  logger.Logger
}

// NewRunner returns a runner for the jobs with a positive interval.
func NewRunner(log logger.Logger, jobs ...Job) *Runner {
	r := &Runner{log: logger.OrNop(log)}
	for _, j := range jobs {
		if j.Interval > 0 && j.Run != nil {
			r.jobs = append(r.jobs, j)
		}
	}
	return r
}

// Len returns the number of scheduled jobs.
func (r *Runner) Len() int { return len(r.jobs) }

// Start runs the jobs until ctx is canceled. A failing run is logged and
// reported; the job keeps its schedule.
func (r *Runner) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range r.jobs {
		wg.Add(1)
		go func(j Job) {
			defer wg.Done()
			ticker := time.NewTicker(j.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := j.Run(ctx); err != nil && ctx.Err() == nil {
						r.log.Errorf("job %s: %v", j.Name, err)
						coremon.CaptureException(err, coremon.Tags{"module": "jobs", "job": j.Name})
					}
				}
			}
		}(j)
	}
	wg.Wait()
}

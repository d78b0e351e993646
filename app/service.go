// Package app wires configuration, engines, roster and transports into a
// running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kilianp07/binfleet/api/decisions"
	"github.com/kilianp07/binfleet/config"
	"github.com/kilianp07/binfleet/core/assignment"
	"github.com/kilianp07/binfleet/core/dispatch"
	"github.com/kilianp07/binfleet/core/dispatch/logging"
	"github.com/kilianp07/binfleet/core/events"
	"github.com/kilianp07/binfleet/core/maintenance"
	coremetrics "github.com/kilianp07/binfleet/core/metrics"
	coremon "github.com/kilianp07/binfleet/core/monitoring"
	"github.com/kilianp07/binfleet/core/pricing"
	"github.com/kilianp07/binfleet/core/roster"
	"github.com/kilianp07/binfleet/core/routing"
	"github.com/kilianp07/binfleet/infra/kpi"
	"github.com/kilianp07/binfleet/infra/logger"
	"github.com/kilianp07/binfleet/infra/metrics"
	"github.com/kilianp07/binfleet/infra/monitoring"
	"github.com/kilianp07/binfleet/internal/eventbus"
	"github.com/kilianp07/binfleet/jobs"
	"github.com/kilianp07/binfleet/jobs/demand"
)

// Service owns the dispatch manager and the HTTP surfaces around it.
type Service struct {
	Manager *dispatch.Manager
	Roster  *roster.MemoryStore
	cfg     *config.Config
	sink    coremetrics.MetricsSink
	bus     *eventbus.TypedBus[events.Decision]
	demand  kpi.Store
	tracker *demand.Tracker
	log     logger.Logger
}

// New creates a Service from the configuration. The roster starts empty.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	store := roster.NewMemoryStore()
	bus := eventbus.NewTyped[events.Decision](eventbus.DefaultBuffer)
	manager, err := dispatch.NewManager(store, Engines(cfg), sink, bus, logger.New("dispatch"))
	if err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}
	decisionLog, err := logging.Open(cfg.DecisionLog)
	if err != nil {
		return nil, fmt.Errorf("decision log: %w", err)
	}
	manager.SetLogStore(decisionLog)

	svc := &Service{Manager: manager, Roster: store, cfg: cfg, sink: sink, bus: bus, log: logg}
	demandStore, err := kpi.Open(cfg.Demand)
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("demand store: %w", err)
	}
	if demandStore != nil {
		svc.demand = demandStore
		svc.tracker = demand.NewTracker(demandStore, cfg.Demand.WindowDays)
		manager.SetDemandBaseline(svc.tracker)
	}
	return svc, nil
}

// Engines builds the decision engines from cfg.
func Engines(cfg *config.Config) dispatch.Engines {
	return dispatch.Engines{
		Assignment:  assignment.New(cfg.Assignment, logger.New("assignment")),
		Routing:     routing.New(cfg.Routing, logger.New("routing")),
		Pricing:     pricing.New(cfg.Pricing, logger.New("pricing")),
		Maintenance: maintenance.New(cfg.Maintenance, logger.New("maintenance")),
	}
}

// Jobs returns the periodic runner built from the jobs configuration. The
// demand job is only scheduled when a demand store is configured.
func (s *Service) Jobs() *jobs.Runner {
	c := s.cfg.Jobs
	list := []jobs.Job{
		{Name: "assign", Interval: c.AssignInterval, Run: func(ctx context.Context) error {
			_, err := s.Manager.AssignPending(ctx)
			return err
		}},
		{Name: "maintenance", Interval: c.MaintenanceInterval, Run: func(ctx context.Context) error {
			_, err := s.Manager.MaintenanceSweep(ctx, time.Time{})
			return err
		}},
	}
	if s.tracker != nil {
		list = append(list, jobs.Job{Name: "demand", Interval: c.DemandInterval, Run: s.RecordDemand})
	}
	return jobs.NewRunner(logger.New("jobs"), list...)
}

// RecordDemand stores today's pending order counts. It is a no-op without a
// demand store.
func (s *Service) RecordDemand(ctx context.Context) error {
	if s.tracker == nil {
		return nil
	}
	return s.tracker.Record(ctx, s.Roster.Pending(), time.Now())
}

// Handler returns the API routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	decisions.Register(mux, s.Manager, s.cfg.Server.Token)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Run serves the API, and the metrics endpoint when configured, until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collectorDone := metrics.StartEventCollector(ctx, s.bus, s.sink)

	var wg sync.WaitGroup
	if runner := s.Jobs(); runner.Len() > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Start(ctx)
		}()
	}
	errs := make(chan error, 2)
	if addr := s.cfg.Metrics.Address; addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartPromServer(ctx, addr, logger.New("metrics")); err != nil {
				errs <- fmt.Errorf("prom server: %w", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.log.Infof("api listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("api server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
		s.log.Errorf("%v", runErr)
		coremon.CaptureException(runErr, coremon.Tags{"module": "service"})
	}
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("api shutdown: %v", err)
	}
	wg.Wait()
	<-collectorDone
	return runErr
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	err := s.Manager.Close()
	if s.demand != nil {
		if cerr := s.demand.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	coremon.Flush(2 * time.Second)
	return err
}

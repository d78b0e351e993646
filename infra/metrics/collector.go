package metrics

import (
	"context"

	"github.com/kilianp07/binfleet/core/events"
	coremetrics "github.com/kilianp07/binfleet/core/metrics"
	"github.com/kilianp07/binfleet/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records a timing for
// every decision. It stops when the context is canceled or the bus closes.
// The returned channel is closed once the collector has stopped.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Decision], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.DecisionRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordDecision(coremetrics.DecisionEvent{
					Kind:     string(ev.Kind),
					Duration: ev.Duration,
					Failed:   ev.Err != nil,
				})
			}
		}
	}()
	return done
}

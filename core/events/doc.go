// Package events defines the events the dispatch manager emits on the event bus.
//
// Every engine call produces one Decision whose Kind names the engine:
//   - assignment: orders matched to drivers and committed
//   - route: a driver's stops sequenced
//   - quote: a job priced
//   - maintenance: a maintenance sweep over the fleet
package events

// Package monitoring reports unexpected errors to an external tracker.
package monitoring

import (
	"sync"
	"time"
)

// Tags annotate a captured error.
type Tags map[string]string

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags Tags)
	// Recover reports a panic in the calling goroutine and re-panics.
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor drops everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, Tags) {}
func (NopMonitor) Recover()                     {}
func (NopMonitor) Flush(time.Duration)          {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the process wide monitor. A nil monitor is ignored.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

// Current returns the process wide monitor.
func Current() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// OrNop returns m, or a NopMonitor when m is nil.
func OrNop(m Monitor) Monitor {
	if m == nil {
		return NopMonitor{}
	}
	return m
}

// CaptureException records err on the process wide monitor.
func CaptureException(err error, tags Tags) {
	if err == nil {
		return
	}
	Current().CaptureException(err, tags)
}

// Flush flushes buffered events.
func Flush(d time.Duration) { Current().Flush(d) }

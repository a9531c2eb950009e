package service

import "time"

// Observer receives pipeline and session measurements. The metrics package
// provides the Prometheus implementation.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ObserveDegradation(stage string)
	ObserveTurn(outcome string)
	SetActiveSessions(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration) {}
func (nopObserver) ObserveDegradation(string)          {}
func (nopObserver) ObserveTurn(string)                 {}
func (nopObserver) SetActiveSessions(int)              {}

// NopObserver discards all measurements.
var NopObserver Observer = nopObserver{}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return NopObserver
	}
	return o
}

package scheduler

import (
	"time"

	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

// Postponement reasons reported to a Recorder
const (
	ReasonReplicaTie        = "replica_tie"
	ReasonLoadBalancingSame = "lb_same_date"
	ReasonLoadBalancing     = "lb_overlap"
)

// Recorder receives run events, typically for metrics
type Recorder interface {
	ObservePlacement(mode domain.Mode, acq domain.Acquisition)
	ObserveExchange()
	ObservePostpone(reason string)
	ObserveRun(stats Stats, batches int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObservePlacement(domain.Mode, domain.Acquisition) {}
func (nopRecorder) ObserveExchange()                                 {}
func (nopRecorder) ObservePostpone(string)                           {}
func (nopRecorder) ObserveRun(Stats, int, time.Duration)             {}

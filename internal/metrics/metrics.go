// Package metrics exports scheduling runs as prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
	"github.com/hochfrequenz/upgrade-scheduler/internal/scheduler"
)

const namespace = "upgrade_sched"

// Prometheus records scheduler events. It implements scheduler.Recorder.
type Prometheus struct {
	gatherer prometheus.Gatherer

	placements     *prometheus.CounterVec
	exchanges      prometheus.Counter
	postponements  *prometheus.CounterVec
	runs           prometheus.Counter
	runDuration    prometheus.Histogram
	lastInstances  prometheus.Gauge
	lastBatches    prometheus.Gauge
	lastSameDate   prometheus.Gauge
	lastRunSeconds prometheus.Gauge
}

var _ scheduler.Recorder = (*Prometheus)(nil)

// NewPrometheus registers the scheduler metrics on registry. A nil registry
// gets a fresh one. Create one per process and share it across runs so the
// counters accumulate.
func NewPrometheus(registry *prometheus.Registry) *Prometheus {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Prometheus{
		gatherer: registry,
		placements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "placements_total",
				Help:      "Instances placed by the initial packer",
			},
			[]string{"mode", "acquisition"},
		),
		exchanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Replica pairs whose batches were exchanged",
		}),
		postponements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "postponements_total",
				Help:      "Instances moved to a later batch",
			},
			[]string{"reason"},
		),
		runs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed scheduling runs",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of scheduling runs in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		lastInstances: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_instances",
			Help:      "Instances scheduled by the last run",
		}),
		lastBatches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_batches",
			Help:      "Batches created by the last run",
		}),
		lastSameDate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_same_date_groups",
			Help:      "Load balancing groups found with both sides on one date in the last run",
		}),
		lastRunSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

func (p *Prometheus) ObservePlacement(mode domain.Mode, acq domain.Acquisition) {
	p.placements.WithLabelValues(string(mode), string(acq)).Inc()
}

func (p *Prometheus) ObserveExchange() {
	p.exchanges.Inc()
}

func (p *Prometheus) ObservePostpone(reason string) {
	p.postponements.WithLabelValues(reason).Inc()
}

func (p *Prometheus) ObserveRun(stats scheduler.Stats, batches int, elapsed time.Duration) {
	p.runs.Inc()
	p.runDuration.Observe(elapsed.Seconds())
	p.lastInstances.Set(float64(stats.ReservedPlaced + stats.OnDemandPlaced))
	p.lastBatches.Set(float64(batches))
	p.lastSameDate.Set(float64(stats.SameDateGroups))
	p.lastRunSeconds.SetToCurrentTime()
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for the node exporter textfile collector.
func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.gatherer)
}

// Package metrics collects run measurements in a Prometheus registry and
// writes them for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements orchestrator.Metrics on a private registry.
type Recorder struct {
	registry  *prometheus.Registry
	instances *prometheus.CounterVec
	snapshots prometheus.Counter
	skipped   *prometheus.CounterVec
	waits     *prometheus.HistogramVec
}

// New returns a Recorder with all shots collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		instances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shots_instances_total",
			Help: "Instances processed, by outcome.",
		}, []string{"outcome"}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shots_snapshots_requested_total",
			Help: "Snapshot requests accepted by the provider.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shots_volumes_skipped_total",
			Help: "Volumes left alone, by reason.",
		}, []string{"reason"}),
		waits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shots_power_wait_seconds",
			Help:    "Time spent waiting for an instance to reach a power state.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		}, []string{"target"}),
	}
	r.registry.MustRegister(r.instances, r.snapshots, r.skipped, r.waits)
	return r
}

func (r *Recorder) InstanceFinished(outcome string) {
	r.instances.WithLabelValues(outcome).Inc()
}

func (r *Recorder) SnapshotRequested() {
	r.snapshots.Inc()
}

func (r *Recorder) VolumeSkipped(reason string) {
	r.skipped.WithLabelValues(reason).Inc()
}

func (r *Recorder) PowerWaited(target string, d time.Duration) {
	r.waits.WithLabelValues(target).Observe(d.Seconds())
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes the current values to path in the Prometheus text
// format. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}

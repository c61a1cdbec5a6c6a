package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Detection results.
const (
	DetectionEmitted     = "emitted"
	DetectionSuppressed  = "suppressed"
	DetectionUnsupported = "unsupported"
	DetectionReplaced    = "replaced"
)

// Recorder collects the watcher and pipeline metrics.
type Recorder struct {
	registry *prometheus.Registry

	detections         *prometheus.CounterVec
	resolutions        *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	watcherRestarts    *prometheus.CounterVec
	watcherRunning     prometheus.Gauge
	pendingFiles       prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	detections := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapsaver",
			Subsystem: "watcher",
			Name:      "detections_total",
			Help:      "Watcher events by filter result.",
		},
		[]string{"result"},
	)
	resolutions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapsaver",
			Subsystem: "pipeline",
			Name:      "resolutions_total",
			Help:      "Resolved decisions by kind and status.",
		},
		[]string{"decision", "status"},
	)
	resolutionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snapsaver",
			Subsystem: "pipeline",
			Name:      "resolution_duration_seconds",
			Help:      "Time spent on the filesystem steps of a decision.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"decision"},
	)
	watcherRestarts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapsaver",
			Subsystem: "watcher",
			Name:      "restarts_total",
			Help:      "Watcher (re)starts by reason.",
		},
		[]string{"reason"},
	)
	watcherRunning := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "snapsaver",
			Subsystem: "watcher",
			Name:      "running",
			Help:      "1 while a directory is being watched.",
		},
	)
	pendingFiles := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "snapsaver",
			Subsystem: "watcher",
			Name:      "pending_files",
			Help:      "Detected files waiting for a decision (0 or 1).",
		},
	)

	registry.MustRegister(detections, resolutions, resolutionDuration, watcherRestarts, watcherRunning, pendingFiles)

	return &Recorder{
		registry:           registry,
		detections:         detections,
		resolutions:        resolutions,
		resolutionDuration: resolutionDuration,
		watcherRestarts:    watcherRestarts,
		watcherRunning:     watcherRunning,
		pendingFiles:       pendingFiles,
	}
}

// Handler serves the registry in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveDetection(result string) {
	if r == nil {
		return
	}
	r.detections.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveResolution(decision string, failed bool, duration time.Duration) {
	if r == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	r.resolutions.WithLabelValues(decision, status).Inc()
	r.resolutionDuration.WithLabelValues(decision).Observe(duration.Seconds())
}

func (r *Recorder) ObserveRestart(reason string) {
	if r == nil {
		return
	}
	r.watcherRestarts.WithLabelValues(reason).Inc()
}

func (r *Recorder) SetWatcherRunning(running bool) {
	if r == nil {
		return
	}
	if running {
		r.watcherRunning.Set(1)
		return
	}
	r.watcherRunning.Set(0)
}

func (r *Recorder) SetPending(pending bool) {
	if r == nil {
		return
	}
	if pending {
		r.pendingFiles.Set(1)
		return
	}
	r.pendingFiles.Set(0)
}

package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phobologic/javamap/internal/model"
)

// Metrics collects per-run counters on a private registry. All methods are
// safe on a nil receiver, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	filesScanned  *prometheus.CounterVec
	fileFailures  *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	relations     *prometheus.CounterVec
	references    *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
}

// NewMetrics returns a Metrics with its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		filesScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "javamap_files_scanned_total",
			Help: "Files scanned per phase",
		}, []string{"phase"}),
		fileFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "javamap_file_failures_total",
			Help: "Files that contributed nothing because of a failure, per phase",
		}, []string{"phase"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "javamap_cache_hits_total",
			Help: "Per-file results served from the cache, per phase",
		}, []string{"phase"}),
		relations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "javamap_relations_total",
			Help: "Relations extracted per type",
		}, []string{"type"}),
		references: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "javamap_references_total",
			Help: "Referencing files found per signal",
		}, []string{"signal"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "javamap_phase_duration_seconds",
			Help:    "Wall time per phase",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
	}
	m.registry.MustRegister(
		m.filesScanned,
		m.fileFailures,
		m.cacheHits,
		m.relations,
		m.references,
		m.phaseDuration,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FileScanned counts one file through a phase.
func (m *Metrics) FileScanned(phase string) {
	if m == nil {
		return
	}
	m.filesScanned.WithLabelValues(phase).Inc()
}

// FileFailed counts one failed file in a phase.
func (m *Metrics) FileFailed(phase string) {
	if m == nil {
		return
	}
	m.fileFailures.WithLabelValues(phase).Inc()
}

// CacheHit counts one cached file result in a phase.
func (m *Metrics) CacheHit(phase string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(phase).Inc()
}

// Relations counts relations by type.
func (m *Metrics) Relations(rels []model.Relation) {
	if m == nil {
		return
	}
	for _, r := range rels {
		m.relations.WithLabelValues(string(r.Type)).Inc()
	}
}

// Reference counts a referencing file for each signal that hit it.
func (m *Metrics) Reference(signals []string) {
	if m == nil {
		return
	}
	for _, s := range signals {
		m.references.WithLabelValues(s).Inc()
	}
}

// ObservePhase records the duration of a phase that started at start.
func (m *Metrics) ObservePhase(phase string, start time.Time) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes the metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

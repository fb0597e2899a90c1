// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "modgate"

// Scan outcome label values.
const (
	OutcomeAccepted   = "accepted"
	OutcomeRejected   = "rejected"
	OutcomeUnreadable = "unreadable"
)

// Metrics holds the loader's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	FilesScanned          *prometheus.CounterVec
	ScanDuration          prometheus.Histogram
	ModsRegistered        prometheus.Counter
	InstantiationFailures prometheus.Counter
	DuplicateIdentifiers  prometheus.Counter
}

// NewMetrics creates the loader collectors and registers them with reg.
// Collectors that are already registered are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "loader",
			Name:      "files_scanned_total",
			Help:      "Module files scanned, by outcome.",
		}, []string{"outcome"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "loader",
			Name:      "scan_duration_seconds",
			Help:      "Time to read and scan one module file.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		ModsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "loader",
			Name:      "mods_registered_total",
			Help:      "Mod instances registered.",
		}),
		InstantiationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "loader",
			Name:      "instantiation_failures_total",
			Help:      "Capability types skipped because they could not be instantiated.",
		}),
		DuplicateIdentifiers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "loader",
			Name:      "duplicate_identifiers_total",
			Help:      "Registrations that replaced a mod with the same identifier.",
		}),
	}

	if reg == nil {
		return m
	}

	m.FilesScanned = registerOrReuse(reg, m.FilesScanned)
	m.ScanDuration = registerOrReuse(reg, m.ScanDuration)
	m.ModsRegistered = registerOrReuse(reg, m.ModsRegistered)
	m.InstantiationFailures = registerOrReuse(reg, m.InstantiationFailures)
	m.DuplicateIdentifiers = registerOrReuse(reg, m.DuplicateIdentifiers)
	return m
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) observeScan(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FilesScanned.WithLabelValues(outcome).Inc()
	m.ScanDuration.Observe(d.Seconds())
}

func (m *Metrics) registered(replaced bool) {
	if m == nil {
		return
	}
	m.ModsRegistered.Inc()
	if replaced {
		m.DuplicateIdentifiers.Inc()
	}
}

func (m *Metrics) instantiationFailed() {
	if m == nil {
		return
	}
	m.InstantiationFailures.Inc()
}

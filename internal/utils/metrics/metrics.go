package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/einar-hansen/cachepool/internal/domain/cache"
	"github.com/einar-hansen/cachepool/internal/port/outbound"
)

// Metrics holds all cache pool metrics.
type Metrics struct {
	// Pool metrics
	ItemLookupsTotal *prometheus.CounterVec
	DeferredItems    *prometheus.GaugeVec
	CommitsTotal     *prometheus.CounterVec

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
}

// New creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "cachepool"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ItemLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "item_lookups_total",
				Help:      "Total number of item lookups",
			},
			[]string{"pool", "result"}, // result: hit, miss
		),
		DeferredItems: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "deferred_items",
				Help:      "Number of items waiting for commit",
			},
			[]string{"pool"},
		),
		CommitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "commits_total",
				Help:      "Total number of non-empty commits",
			},
			[]string{"pool", "status"}, // status: ok, error
		),

		StoreOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of backing store operations",
			},
			[]string{"pool", "op", "status"}, // status: ok, miss, error
		),
		StoreOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Backing store operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"pool", "op"},
		),
	}
}

// RecordLookup records a GetItem result.
func (m *Metrics) RecordLookup(pool string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ItemLookupsTotal.WithLabelValues(pool, result).Inc()
}

// RecordStoreOperation records one backing store call.
func (m *Metrics) RecordStoreOperation(pool, op string, err error, duration time.Duration) {
	m.StoreOperationsTotal.WithLabelValues(pool, op, operationStatus(err)).Inc()
	m.StoreOperationDuration.WithLabelValues(pool, op).Observe(duration.Seconds())
}

// SetDeferred sets the deferred buffer size.
func (m *Metrics) SetDeferred(pool string, count int) {
	m.DeferredItems.WithLabelValues(pool).Set(float64(count))
}

// RecordCommit records a commit outcome.
func (m *Metrics) RecordCommit(pool string, ok bool) {
	status := "error"
	if ok {
		status = "ok"
	}
	m.CommitsTotal.WithLabelValues(pool, status).Inc()
}

// operationStatus maps a store error to a status label.
func operationStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, outbound.ErrCacheMiss):
		return "miss"
	default:
		return "error"
	}
}

// Compile-time check
var _ cache.Recorder = (*Metrics)(nil)

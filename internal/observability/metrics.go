// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	WeeksAdvanced   prometheus.Counter
	CurrentWeek     prometheus.Gauge
	WeekDuration    prometheus.Histogram
	DriftMagnitude  prometheus.Histogram
	BandTransitions *prometheus.CounterVec

	// Catalog metrics
	CatalogRows     *prometheus.CounterVec
	CatalogMachines prometheus.Gauge

	// Trading metrics
	TradesExecuted  *prometheus.CounterVec
	TradeVolumeYen  *prometheus.CounterVec
	TradeRejections *prometheus.CounterVec
	QuotesServed    *prometheus.CounterVec
	Money           prometheus.Gauge

	// Export metrics
	ExportDuration *prometheus.HistogramVec
	ExportErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec
	DigestSubscribers   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "slot_parlor"
	}

	return &Metrics{
		// Simulation metrics
		WeeksAdvanced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "weeks_advanced_total",
			Help:      "Total number of simulated weeks advanced",
		}),
		CurrentWeek: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "current_week",
			Help:      "Current simulated week",
		}),
		WeekDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "week_advance_duration_seconds",
			Help:      "Wall time of one week advance over the whole catalog",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		DriftMagnitude: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "drift_magnitude",
			Help:      "Absolute weekly popularity change per machine",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		BandTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "band_transitions_total",
			Help:      "Machines moving between popularity bands",
		}, []string{"from", "to"}),

		// Catalog metrics
		CatalogRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "rows_total",
			Help:      "Catalog CSV rows by outcome",
		}, []string{"outcome"}),
		CatalogMachines: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "machines",
			Help:      "Number of machines in the loaded catalog",
		}),

		// Trading metrics
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_total",
			Help:      "Executed trades by side",
		}, []string{"side"}),
		TradeVolumeYen: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "volume_yen_total",
			Help:      "Traded amount in yen by side",
		}, []string{"side"}),
		TradeRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "rejections_total",
			Help:      "Rejected trades by reason",
		}, []string{"reason"}),
		QuotesServed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "quotes_total",
			Help:      "Price quotes served by kind",
		}, []string{"kind"}),
		Money: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "money_yen",
			Help:      "Current wallet balance",
		}),

		// Export metrics
		ExportDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Export sink write duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
		ExportErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "errors_total",
			Help:      "Export sink write errors",
		}, []string{"sink"}),

		// HTTP metrics
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		DigestSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "digest_subscribers",
			Help:      "Connected weekly digest websocket clients",
		}),
	}
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordWeekAdvanced records a completed week advance.
func RecordWeekAdvanced(week int, seconds float64) {
	DefaultMetrics.WeeksAdvanced.Inc()
	DefaultMetrics.CurrentWeek.Set(float64(week))
	DefaultMetrics.WeekDuration.Observe(seconds)
}

// RecordDrift records one machine's weekly change and any band move.
func RecordDrift(delta float64, fromBand, toBand string) {
	if delta < 0 {
		delta = -delta
	}
	DefaultMetrics.DriftMagnitude.Observe(delta)
	if fromBand != toBand {
		DefaultMetrics.BandTransitions.WithLabelValues(fromBand, toBand).Inc()
	}
}

// RecordCatalogLoad records row outcomes of a catalog load.
func RecordCatalogLoad(loaded, skipped int) {
	DefaultMetrics.CatalogRows.WithLabelValues("loaded").Add(float64(loaded))
	DefaultMetrics.CatalogRows.WithLabelValues("skipped").Add(float64(skipped))
	DefaultMetrics.CatalogMachines.Set(float64(loaded))
}

// RecordTrade records an executed trade and the resulting balance.
func RecordTrade(side string, total, moneyAfter int64) {
	DefaultMetrics.TradesExecuted.WithLabelValues(side).Inc()
	DefaultMetrics.TradeVolumeYen.WithLabelValues(side).Add(float64(total))
	DefaultMetrics.Money.Set(float64(moneyAfter))
}

// RecordTradeRejected records a trade rejected before mutation.
func RecordTradeRejected(reason string) {
	DefaultMetrics.TradeRejections.WithLabelValues(reason).Inc()
}

// RecordQuote records a served price quote.
func RecordQuote(kind string) {
	DefaultMetrics.QuotesServed.WithLabelValues(kind).Inc()
}

// UpdateMoney sets the wallet gauge.
func UpdateMoney(money int64) {
	DefaultMetrics.Money.Set(float64(money))
}

// RecordExport records an export sink write.
func RecordExport(sink string, seconds float64, err error) {
	DefaultMetrics.ExportDuration.WithLabelValues(sink).Observe(seconds)
	if err != nil {
		DefaultMetrics.ExportErrors.WithLabelValues(sink).Inc()
	}
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route, method string, status int, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(seconds)
}

// UpdateDigestSubscribers sets the websocket subscriber gauge.
func UpdateDigestSubscribers(n int) {
	DefaultMetrics.DigestSubscribers.Set(float64(n))
}

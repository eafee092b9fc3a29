package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wind_yield"

// Metrics holds the Prometheus counters, histograms, and gauges for the yield pipeline.
type Metrics struct {
	ForecastsFetched prometheus.Counter
	ForecastErrors   prometheus.Counter
	ReportsProduced  prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge
	FleetSize        prometheus.Gauge

	CycleDuration prometheus.Histogram

	// Weather API metrics.
	ForecastRequests    *prometheus.CounterVec // labels: outcome={success,retry,error}
	ForecastAPIDuration prometheus.Histogram
	ForecastCache       *prometheus.CounterVec // labels: result={hit,miss,expired}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.ForecastsFetched,
		m.ForecastErrors,
		m.ReportsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.FleetSize,
		m.CycleDuration,
		m.ForecastRequests,
		m.ForecastAPIDuration,
		m.ForecastCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		ForecastsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_fetched_total",
			Help:      help("Total site forecasts retrieved from the weather provider."),
		}),
		ForecastErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_errors_total",
			Help:      help("Total site forecasts that could not be retrieved."),
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_produced_total",
			Help:      help("Total turbine yield reports written to the sinks."),
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      help("Total site forecasts that could not be turned into a report."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the pipeline is active, 0 when shut down."),
		}),
		FleetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fleet_turbines",
			Help:      help("Number of turbines in the loaded fleet."),
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      help("Duration of a complete extract-transform-load cycle over the fleet."),
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_requests_total",
			Help:      help("Weather API requests by outcome."),
		}, []string{"outcome"}),
		ForecastAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_api_duration_seconds",
			Help:      help("Weather API request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_total",
			Help:      help("Forecast cache lookups by result."),
		}, []string{"result"}),
	}
}

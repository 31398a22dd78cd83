package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prometheusNamespace = "compressed_wallet"

var (
	// Registry holds the service's Prometheus collectors
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: prometheusNamespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: prometheusNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: prometheusNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "route"},
	)

	walletCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: prometheusNamespace,
			Subsystem: "wallets",
			Name:      "count",
			Help:      "Number of managed wallets.",
		},
	)

	walletBalances = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: prometheusNamespace,
			Subsystem: "wallets",
			Name:      "balance_total",
			Help:      "Sum of the last observed balances across managed wallets, in base units.",
		},
		[]string{"balance"},
	)

	refreshRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: prometheusNamespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of wallet refresh runs.",
		},
		[]string{"success"},
	)

	refreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: prometheusNamespace,
			Subsystem: "refresh",
			Name:      "run_duration_seconds",
			Help:      "Duration of wallet refresh runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		walletCount,
		walletBalances,
		refreshRuns,
		refreshDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// PrometheusHandler exposes the registered Prometheus collectors
func PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// TrackInFlightRequest marks a request as started. The returned function marks
// it as done.
func TrackInFlightRequest() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// ObserveHTTPRequest records a handled request against its route pattern
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)

	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetWalletGauges publishes the aggregate wallet state
func SetWalletGauges(count int, solBalance, splBalance, zkBalance uint64) {
	walletCount.Set(float64(count))
	walletBalances.WithLabelValues("sol").Set(float64(solBalance))
	walletBalances.WithLabelValues("spl").Set(float64(splBalance))
	walletBalances.WithLabelValues("zk").Set(float64(zkBalance))
}

// ObserveRefreshRun records the outcome of a wallet refresh run
func ObserveRefreshRun(success bool, duration time.Duration) {
	refreshRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
	refreshDuration.Observe(duration.Seconds())
}

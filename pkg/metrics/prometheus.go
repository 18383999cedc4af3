package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	errorsTotal     *prometheus.CounterVec
	walletValue     *prometheus.GaugeVec
	degraded        prometheus.Gauge
	historyWrites   *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	wsSubscribers   prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		refreshTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypertrack_refresh_total",
				Help: "Total refresh cycles by result",
			},
			[]string{"result"},
		),
		refreshDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hypertrack_refresh_duration_seconds",
				Help:    "End-to-end duration of one refresh cycle",
				Buckets: prometheus.DefBuckets,
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypertrack_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"kind"},
		),
		walletValue: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hypertrack_wallet_value_usd",
				Help: "Last aggregated USD value per wallet",
			},
			[]string{"wallet"},
		),
		degraded: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "hypertrack_degraded_wallets",
				Help: "Number of wallets with a degraded snapshot in the current set",
			},
		),
		historyWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypertrack_history_rows_total",
				Help: "Rows written to the history backend",
			},
			[]string{"backend"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hypertrack_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		wsSubscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "hypertrack_ws_subscribers",
				Help: "Connected WebSocket subscribers",
			},
		),
	}
}

// RecordRefresh records one refresh cycle outcome and duration.
func (r *Recorder) RecordRefresh(result string, seconds float64) {
	r.refreshTotal.WithLabelValues(result).Inc()
	if seconds > 0 {
		r.refreshDuration.Observe(seconds)
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordWalletValue records the last aggregated USD value for a wallet.
func (r *Recorder) RecordWalletValue(wallet string, usd float64) {
	r.walletValue.WithLabelValues(wallet).Set(usd)
}

// RecordDegraded records how many wallets are degraded in the current set.
func (r *Recorder) RecordDegraded(n int) {
	r.degraded.Set(float64(n))
}

// RecordHistoryWrite records rows written to a history backend.
func (r *Recorder) RecordHistoryWrite(backend string, rows int) {
	r.historyWrites.WithLabelValues(backend).Add(float64(rows))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordWSSubscribers records the current WebSocket subscriber count.
func (r *Recorder) RecordWSSubscribers(n int) {
	r.wsSubscribers.Set(float64(n))
}

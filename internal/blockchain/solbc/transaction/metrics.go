// internal/blockchain/solbc/transaction/metrics.go
package transaction

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics собирает счётчики жизненного цикла транзакций. Nil-значение допустимо и ничего не пишет.
type Metrics struct {
	outcomeCounter     *prometheus.CounterVec
	simulationFailures *prometheus.CounterVec
	sendRetries        prometheus.Counter
	feeLamports        prometheus.Counter
	durationHistogram  prometheus.Histogram
}

// NewMetrics регистрирует метрики в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_tx_outcome_total",
			Help: "Submitted transactions by terminal status",
		}, []string{"status"}),
		simulationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_tx_simulation_failure_total",
			Help: "Transactions rejected before broadcast",
		}, []string{"kind"}),
		sendRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_tx_send_retries_total",
			Help: "Broadcast retries after RPC errors",
		}),
		feeLamports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_tx_fee_lamports_total",
			Help: "Network fees paid by submitted transactions",
		}),
		durationHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sniper_tx_confirmation_seconds",
			Help:    "Time from broadcast to terminal status",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}

	reg.MustRegister(m.outcomeCounter, m.simulationFailures, m.sendRetries, m.feeLamports, m.durationHistogram)
	return m
}

func (m *Metrics) outcome(res *ConfirmationResult) {
	if m == nil {
		return
	}
	m.outcomeCounter.WithLabelValues(string(res.Status)).Inc()
	m.feeLamports.Add(float64(res.FeeLamports))
	m.durationHistogram.Observe(res.Duration.Seconds())
}

func (m *Metrics) simulationFailure(kind string) {
	if m == nil {
		return
	}
	m.simulationFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) sendRetry() {
	if m == nil {
		return
	}
	m.sendRetries.Inc()
}

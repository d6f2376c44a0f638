// internal/utils/metrics/collector.go
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rovshanmuradov/solana-sniper/internal/events"
)

// Collector переводит события торгового ядра в метрики Prometheus.
type Collector struct {
	trades          *prometheus.CounterVec
	feeLamports     prometheus.Counter
	retries         prometheus.Counter
	balanceRefusals prometheus.Counter
	configUpdates   *prometheus.CounterVec
	halted          prometheus.Gauge
	ledgerFees      prometheus.Gauge
}

var _ events.Handler = (*Collector)(nil)

// NewCollector создает коллектор и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sniper",
			Name:      "trades_total",
			Help:      "Finished trades by action and terminal status",
		}, []string{"action", "status"}),
		feeLamports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sniper",
			Name:      "trade_fee_lamports_total",
			Help:      "Fees charged across finished trades",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sniper",
			Name:      "slippage_retries_total",
			Help:      "Trades retried with widened slippage",
		}),
		balanceRefusals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sniper",
			Name:      "balance_refusals_total",
			Help:      "Trades refused by the balance floor",
		}),
		configUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sniper",
			Name:      "config_updates_total",
			Help:      "Applied trading parameter updates",
		}, []string{"source"}),
		halted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sniper",
			Name:      "trading_halted",
			Help:      "1 once the daily fee budget is exhausted",
		}),
		ledgerFees: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sniper",
			Name:      "halt_fee_total_lamports",
			Help:      "Fee ledger total at the moment trading halted",
		}),
	}

	reg.MustRegister(c.trades, c.feeLamports, c.retries, c.balanceRefusals,
		c.configUpdates, c.halted, c.ledgerFees)
	return c
}

// Handle implements events.Handler.
func (c *Collector) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.OutcomeEvent:
		c.trades.WithLabelValues(e.Action, e.Status).Inc()
		c.feeLamports.Add(float64(e.FeeLamports))
	case events.RetryEvent:
		c.retries.Inc()
	case events.BalanceRefusedEvent:
		c.balanceRefusals.Inc()
	case events.ConfigUpdatedEvent:
		c.configUpdates.WithLabelValues(e.Source).Inc()
	case events.HaltEvent:
		c.halted.Set(1)
		c.ledgerFees.Set(float64(e.TotalFeesLamports))
	}
	return nil
}

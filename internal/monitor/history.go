package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Journal persists outcomes beyond the in-memory window.
type Journal interface {
	SaveOutcome(ctx context.Context, outcome Outcome) error
}

// TradeHistory keeps the last N outcomes in memory and running totals since start.
type TradeHistory struct {
	mu        sync.RWMutex
	journal   Journal
	trades    []Outcome
	maxTrades int
	logger    *zap.Logger

	// Statistics
	totalTrades   int
	confirmed     int
	failedOnChain int
	timedOut      int
	rejected      int
	refused       int
	retried       int
	totalFees     uint64
}

// NewTradeHistory creates a history with the given window. journal may be nil.
func NewTradeHistory(maxTrades int, journal Journal, logger *zap.Logger) *TradeHistory {
	if maxTrades <= 0 {
		maxTrades = 100
	}
	return &TradeHistory{
		journal:   journal,
		trades:    make([]Outcome, 0, maxTrades),
		maxTrades: maxTrades,
		logger:    logger.Named("trade_history"),
	}
}

// LogTrade records an outcome. The in-memory window is updated even when the
// journal write fails.
func (th *TradeHistory) LogTrade(ctx context.Context, trade Outcome) error {
	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}
	if trade.Timestamp.IsZero() {
		trade.Timestamp = time.Now()
	}

	th.mu.Lock()
	if len(th.trades) >= th.maxTrades {
		th.trades = th.trades[1:]
	}
	th.trades = append(th.trades, trade)

	th.totalTrades++
	switch trade.Status {
	case StatusConfirmed:
		th.confirmed++
	case StatusFailedOnChain:
		th.failedOnChain++
	case StatusTimedOut:
		th.timedOut++
	case StatusRejected:
		th.rejected++
	case StatusRefused:
		th.refused++
	}
	if trade.Attempts > 1 {
		th.retried++
	}
	th.totalFees += trade.FeeLamports
	th.mu.Unlock()

	th.logger.Debug("Trade logged",
		zap.String("id", trade.ID),
		zap.String("action", trade.Action),
		zap.String("mint", trade.Mint),
		zap.String("status", string(trade.Status)))

	if th.journal == nil {
		return nil
	}
	if err := th.journal.SaveOutcome(ctx, trade); err != nil {
		th.logger.Error("Failed to persist trade",
			zap.String("trade_id", trade.ID),
			zap.Error(err))
		return fmt.Errorf("failed to persist trade: %w", err)
	}
	return nil
}

// GetRecentTrades returns up to limit most recent outcomes, oldest first.
func (th *TradeHistory) GetRecentTrades(limit int) []Outcome {
	th.mu.RLock()
	defer th.mu.RUnlock()

	if limit <= 0 || limit > len(th.trades) {
		limit = len(th.trades)
	}

	result := make([]Outcome, limit)
	copy(result, th.trades[len(th.trades)-limit:])
	return result
}

// GetTradeByID returns a specific outcome by ID
func (th *TradeHistory) GetTradeByID(id string) (*Outcome, bool) {
	th.mu.RLock()
	defer th.mu.RUnlock()

	for i := len(th.trades) - 1; i >= 0; i-- {
		if th.trades[i].ID == id {
			trade := th.trades[i]
			return &trade, true
		}
	}
	return nil, false
}

// GetTradesByMint returns all remembered outcomes for a token.
func (th *TradeHistory) GetTradesByMint(mint string) []Outcome {
	th.mu.RLock()
	defer th.mu.RUnlock()

	var result []Outcome
	for _, trade := range th.trades {
		if trade.Mint == mint {
			result = append(result, trade)
		}
	}
	return result
}

// GetStatistics returns totals since process start.
func (th *TradeHistory) GetStatistics() TradeStatistics {
	th.mu.RLock()
	defer th.mu.RUnlock()

	stats := TradeStatistics{
		TotalTrades:       th.totalTrades,
		Confirmed:         th.confirmed,
		FailedOnChain:     th.failedOnChain,
		TimedOut:          th.timedOut,
		Rejected:          th.rejected,
		Refused:           th.refused,
		Retried:           th.retried,
		TotalFeesLamports: th.totalFees,
	}

	submitted := th.confirmed + th.failedOnChain + th.timedOut
	if submitted > 0 {
		stats.SuccessRate = float64(th.confirmed) / float64(submitted) * 100
	}

	for _, trade := range th.trades {
		switch trade.Action {
		case "buy":
			stats.BuyCount++
		case "sell":
			stats.SellCount++
		}
	}

	return stats
}

// TradeStatistics holds aggregate outcome statistics
type TradeStatistics struct {
	TotalTrades       int     `json:"total_trades"`
	Confirmed         int     `json:"confirmed"`
	FailedOnChain     int     `json:"failed_on_chain"`
	TimedOut          int     `json:"timed_out"`
	Rejected          int     `json:"rejected"`
	Refused           int     `json:"refused"`
	Retried           int     `json:"retried"`
	TotalFeesLamports uint64  `json:"total_fees_lamports"`
	SuccessRate       float64 `json:"success_rate"`
	// BuyCount and SellCount cover the in-memory window only
	BuyCount  int `json:"buy_count"`
	SellCount int `json:"sell_count"`
}

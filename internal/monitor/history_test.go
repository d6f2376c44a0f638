package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type memoryJournal struct {
	mu    sync.Mutex
	saved []Outcome
	err   error
}

func (j *memoryJournal) SaveOutcome(_ context.Context, o Outcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.saved = append(j.saved, o)
	return nil
}

func TestTradeHistoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	journal := &memoryJournal{}
	history := NewTradeHistory(100, journal, zap.NewNop())

	var wg sync.WaitGroup
	numGoroutines := 10
	tradesPerGoroutine := 50

	// Concurrent trade logging
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < tradesPerGoroutine; j++ {
				trade := Outcome{
					Wallet:      fmt.Sprintf("wallet_%d", id),
					Mint:        fmt.Sprintf("token_%d_%d", id, j),
					Action:      "buy",
					Status:      StatusConfirmed,
					AmountIn:    uint64(j) * 100_000_000,
					FeeLamports: 5_000,
					Signature:   fmt.Sprintf("sig_%d_%d", id, j),
					Attempts:    1,
				}
				if j%2 == 0 {
					trade.Action = "sell"
				}

				if err := history.LogTrade(ctx, trade); err != nil {
					t.Errorf("Failed to log trade: %v", err)
				}
			}
		}(i)
	}

	// Concurrent reads
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = history.GetRecentTrades(10)
				_ = history.GetTradesByMint(fmt.Sprintf("token_%d_%d", id, j))
				_ = history.GetStatistics()
				time.Sleep(time.Millisecond)
			}
		}(i)
	}

	wg.Wait()

	stats := history.GetStatistics()
	expectedTrades := numGoroutines * tradesPerGoroutine

	if stats.TotalTrades != expectedTrades {
		t.Errorf("Expected %d total trades, got %d", expectedTrades, stats.TotalTrades)
	}
	if stats.SuccessRate != 100 {
		t.Errorf("Expected 100%% success rate, got %.1f%%", stats.SuccessRate)
	}
	if stats.TotalFeesLamports != uint64(expectedTrades)*5_000 {
		t.Errorf("Expected %d lamports in fees, got %d", expectedTrades*5_000, stats.TotalFeesLamports)
	}
	if len(journal.saved) != expectedTrades {
		t.Errorf("Expected %d journal rows, got %d", expectedTrades, len(journal.saved))
	}
}

func TestTradeHistoryLookups(t *testing.T) {
	ctx := context.Background()
	history := NewTradeHistory(10, nil, zap.NewNop())

	trades := []Outcome{
		{ID: "trade1", Mint: "token1", Action: "buy", Status: StatusConfirmed, FeeLamports: 10_000, Attempts: 1},
		{ID: "trade2", Mint: "token1", Action: "sell", Status: StatusFailedOnChain, FeeLamports: 5_000, Attempts: 2},
		{ID: "trade3", Mint: "token2", Action: "buy", Status: StatusRejected, Attempts: 1},
		{ID: "trade4", Mint: "token2", Action: "buy", Status: StatusTimedOut, FeeLamports: 5_000, FeeEstimated: true, Attempts: 1},
		{ID: "trade5", Mint: "token3", Action: "buy", Status: StatusRefused},
	}
	for _, trade := range trades {
		if err := history.LogTrade(ctx, trade); err != nil {
			t.Fatalf("Failed to log trade: %v", err)
		}
	}

	trade, exists := history.GetTradeByID("trade1")
	if !exists {
		t.Fatal("trade1 should exist")
	}
	if trade.Action != "buy" || trade.Timestamp.IsZero() {
		t.Errorf("Unexpected trade1: %+v", trade)
	}
	if _, exists := history.GetTradeByID("missing"); exists {
		t.Error("missing trade should not exist")
	}

	if n := len(history.GetTradesByMint("token1")); n != 2 {
		t.Errorf("Expected 2 trades for token1, got %d", n)
	}

	stats := history.GetStatistics()
	if stats.TotalTrades != 5 || stats.Confirmed != 1 || stats.FailedOnChain != 1 ||
		stats.TimedOut != 1 || stats.Rejected != 1 || stats.Refused != 1 {
		t.Errorf("Unexpected status counts: %+v", stats)
	}
	if stats.Retried != 1 {
		t.Errorf("Expected 1 retried trade, got %d", stats.Retried)
	}
	if stats.TotalFeesLamports != 20_000 {
		t.Errorf("Expected 20000 lamports in fees, got %d", stats.TotalFeesLamports)
	}
	if stats.BuyCount != 4 || stats.SellCount != 1 {
		t.Errorf("Unexpected buy/sell counts: %d/%d", stats.BuyCount, stats.SellCount)
	}
	if rate := stats.SuccessRate; rate < 33.3 || rate > 33.4 {
		t.Errorf("Expected success rate over submitted trades ~33.3%%, got %.2f", rate)
	}
}

func TestTradeHistoryCircularBuffer(t *testing.T) {
	ctx := context.Background()
	maxTrades := 5
	history := NewTradeHistory(maxTrades, nil, zap.NewNop())

	for i := 0; i < 10; i++ {
		trade := Outcome{
			ID:     fmt.Sprintf("trade%d", i),
			Mint:   fmt.Sprintf("token%d", i),
			Action: "buy",
			Status: StatusConfirmed,
		}
		if err := history.LogTrade(ctx, trade); err != nil {
			t.Fatalf("Failed to log trade: %v", err)
		}
	}

	recent := history.GetRecentTrades(10)
	if len(recent) != maxTrades {
		t.Errorf("Expected %d trades in memory, got %d", maxTrades, len(recent))
	}
	for i, trade := range recent {
		expectedID := fmt.Sprintf("trade%d", i+5)
		if trade.ID != expectedID {
			t.Errorf("Expected trade ID %s, got %s", expectedID, trade.ID)
		}
	}

	if last := history.GetRecentTrades(2); len(last) != 2 || last[1].ID != "trade9" {
		t.Errorf("Expected the two newest trades, got %+v", last)
	}

	stats := history.GetStatistics()
	if stats.TotalTrades != 10 {
		t.Errorf("Expected 10 total trades logged, got %d", stats.TotalTrades)
	}
}

func TestTradeHistoryJournalFailureKeepsMemory(t *testing.T) {
	journal := &memoryJournal{err: errors.New("disk full")}
	history := NewTradeHistory(5, journal, zap.NewNop())

	err := history.LogTrade(context.Background(), Outcome{ID: "t", Status: StatusConfirmed})
	if err == nil {
		t.Fatal("Expected journal error")
	}
	if _, ok := history.GetTradeByID("t"); !ok {
		t.Error("Trade should stay in memory after journal failure")
	}
}

package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/storage/models"
)

func generateTestTrades() []*models.Trade {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*models.Trade{
		{OutcomeID: "c", Mint: "MintBBBBBBBBBBBB", Action: "sell", Status: "failed_on_chain", FeeLamports: 5_000, Attempts: 1, ExecutedAt: base.Add(2 * time.Minute)},
		{OutcomeID: "a", Mint: "MintAAAAAAAAAAAA", Action: "buy", Status: "confirmed", FeeLamports: 10_000, Attempts: 2, ExecutedAt: base},
		{OutcomeID: "b", Mint: "MintAAAAAAAAAAAA", Action: "buy", Status: "timed_out", FeeLamports: 25_000, FeeEstimated: true, Attempts: 1, ExecutedAt: base.Add(time.Minute)},
		{OutcomeID: "d", Mint: "MintBBBBBBBBBBBB", Action: "buy", Status: "rejected", Attempts: 1, ExecutedAt: base.Add(3 * time.Minute), ErrorMessage: "slippage, retried"},
	}
}

func TestTradeExportCSV(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())

	outputPath, err := exporter.ExportTrades(generateTestTrades(), ExportOptions{
		Format:    FormatCSV,
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}

	f, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want header + 4", len(rows))
	}
	if rows[0][0] != "executed_at" || len(rows[0]) != len(rows[1]) {
		t.Errorf("unexpected header: %v", rows[0])
	}
	// сортировка по времени
	if rows[1][1] != "a" || rows[4][1] != "d" {
		t.Errorf("trades not sorted by time: %v, %v", rows[1][1], rows[4][1])
	}
	if rows[4][15] != "slippage, retried" {
		t.Errorf("error column = %q", rows[4][15])
	}
}

func TestTradeExportJSONSummary(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())

	outputPath, err := exporter.ExportTrades(generateTestTrades(), ExportOptions{
		Format:       FormatJSON,
		ActionFilter: "buy",
		OutputDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}
	if !strings.Contains(outputPath, "trades_buy_") {
		t.Errorf("unexpected file name %s", outputPath)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}
	var data struct {
		TradeCount int           `json:"trade_count"`
		Summary    ExportSummary `json:"summary"`
	}
	if err := json.Unmarshal(content, &data); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if data.TradeCount != 3 {
		t.Errorf("trade_count = %d, want 3", data.TradeCount)
	}
	s := data.Summary
	if s.TotalFeesLamports != 35_000 || s.EstimatedFees != 25_000 {
		t.Errorf("fees = %d/%d, want 35000/25000", s.TotalFeesLamports, s.EstimatedFees)
	}
	if s.Retried != 1 || s.UniqueTokens != 2 || s.ByStatus["confirmed"] != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestTradeExportFilters(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	trades := generateTestTrades()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got := exporter.filterTrades(trades, ExportOptions{OnlyConfirmed: true})
	if len(got) != 1 || got[0].OutcomeID != "a" {
		t.Errorf("OnlyConfirmed filter returned %d trades", len(got))
	}

	got = exporter.filterTrades(trades, ExportOptions{StartTime: base.Add(time.Minute), EndTime: base.Add(3 * time.Minute)})
	if len(got) != 2 {
		t.Errorf("time filter returned %d trades, want 2", len(got))
	}

	got = exporter.filterTrades(trades, ExportOptions{TokenFilter: "MintBBBBBBBBBBBB"})
	if len(got) != 2 {
		t.Errorf("token filter returned %d trades, want 2", len(got))
	}

	if _, err := exporter.ExportTrades(trades, ExportOptions{Format: FormatCSV, ActionFilter: "swap", OutputDir: t.TempDir()}); err == nil {
		t.Error("expected error when nothing matches")
	}
	if _, err := exporter.ExportTrades(trades, ExportOptions{Format: "xml", OutputDir: t.TempDir()}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(nil)
	if err != nil {
		t.Fatalf("ParseOptions(nil) error = %v", err)
	}
	if opts.Format != FormatCSV || opts.OutputDir != "exports" || opts.OnlyConfirmed {
		t.Errorf("unexpected defaults: %+v", opts)
	}

	opts, err = ParseOptions([]string{
		"-from", "2026-03-01", "-to", "2026-03-02T00:00:00Z",
		"-mint", "MintAAAAAAAAAAAA", "-action", "buy", "-confirmed",
		"json", "out",
	})
	if err != nil {
		t.Fatalf("ParseOptions() error = %v", err)
	}
	wantFrom := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !opts.StartTime.Equal(wantFrom) || !opts.EndTime.Equal(wantFrom.Add(24*time.Hour)) {
		t.Errorf("range = %v..%v", opts.StartTime, opts.EndTime)
	}
	if opts.TokenFilter != "MintAAAAAAAAAAAA" || opts.ActionFilter != "buy" || !opts.OnlyConfirmed {
		t.Errorf("filters not applied: %+v", opts)
	}
	if opts.Format != FormatJSON || opts.OutputDir != "out" {
		t.Errorf("positional args not applied: %+v", opts)
	}

	got := NewTradeExporter(zap.NewNop()).filterTrades(generateTestTrades(), opts)
	if len(got) != 1 || got[0].OutcomeID != "a" {
		t.Errorf("parsed filters matched %d trades, want only the confirmed buy", len(got))
	}

	bad := [][]string{
		{"-from", "yesterday"},
		{"-from", "2026-03-02", "-to", "2026-03-01"},
		{"-action", "swap"},
		{"xml"},
		{"-unknown"},
	}
	for _, args := range bad {
		if _, err := ParseOptions(args); err == nil {
			t.Errorf("ParseOptions(%v) expected error", args)
		}
	}
}

package export

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/storage/models"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format        ExportFormat
	StartTime     time.Time
	EndTime       time.Time
	TokenFilter   string // Filter by token mint
	ActionFilter  string // Filter by action (buy/sell)
	OnlyConfirmed bool
	OutputDir     string
}

// ParseOptions разбирает аргументы команды export:
// [-from t] [-to t] [-mint m] [-action a] [-confirmed] [format] [dir].
func ParseOptions(args []string) (ExportOptions, error) {
	opts := ExportOptions{Format: FormatCSV, OutputDir: "exports"}

	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	from := fs.String("from", "", "start of the range")
	to := fs.String("to", "", "end of the range (exclusive)")
	fs.StringVar(&opts.TokenFilter, "mint", "", "token mint")
	fs.StringVar(&opts.ActionFilter, "action", "", "buy or sell")
	fs.BoolVar(&opts.OnlyConfirmed, "confirmed", false, "confirmed trades only")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	var err error
	if opts.StartTime, err = parseTime(*from); err != nil {
		return opts, fmt.Errorf("invalid -from: %w", err)
	}
	if opts.EndTime, err = parseTime(*to); err != nil {
		return opts, fmt.Errorf("invalid -to: %w", err)
	}
	if !opts.StartTime.IsZero() && !opts.EndTime.IsZero() && !opts.StartTime.Before(opts.EndTime) {
		return opts, fmt.Errorf("-from must be before -to")
	}
	switch opts.ActionFilter {
	case "", "buy", "sell":
	default:
		return opts, fmt.Errorf("invalid -action %q", opts.ActionFilter)
	}

	rest := fs.Args()
	if len(rest) > 0 {
		opts.Format = ExportFormat(rest[0])
	}
	if len(rest) > 1 {
		opts.OutputDir = rest[1]
	}
	if opts.Format != FormatCSV && opts.Format != FormatJSON {
		return opts, fmt.Errorf("unsupported format: %s", opts.Format)
	}
	return opts, nil
}

// parseTime принимает дату (UTC) или RFC3339. Пустая строка - без границы.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// TradeExporter выгружает журнал сделок в файл.
type TradeExporter struct {
	logger *zap.Logger
}

// NewTradeExporter creates a new trade exporter
func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger.Named("export"),
	}
}

// ExportTrades фильтрует сделки и пишет их в файл, возвращая путь.
func (te *TradeExporter) ExportTrades(trades []*models.Trade, options ExportOptions) (string, error) {
	filtered := te.filterTrades(trades, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].ExecutedAt.Before(filtered[j].ExecutedAt)
	})

	outputPath := filepath.Join(options.OutputDir, te.generateFilename(options))
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (te *TradeExporter) filterTrades(trades []*models.Trade, options ExportOptions) []*models.Trade {
	var filtered []*models.Trade
	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.ExecutedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && !trade.ExecutedAt.Before(options.EndTime) {
			continue
		}
		if options.TokenFilter != "" && trade.Mint != options.TokenFilter {
			continue
		}
		if options.ActionFilter != "" && trade.Action != options.ActionFilter {
			continue
		}
		if options.OnlyConfirmed && trade.Status != "confirmed" {
			continue
		}
		filtered = append(filtered, trade)
	}
	return filtered
}

func (te *TradeExporter) generateFilename(options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "trades_all"
	if options.ActionFilter != "" {
		prefix = "trades_" + options.ActionFilter
	}
	if len(options.TokenFilter) >= 8 {
		prefix += "_" + options.TokenFilter[:8]
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

var csvHeaders = []string{
	"executed_at", "outcome_id", "wallet", "mint", "action", "status", "signature", "slot",
	"amount_in", "expected_output", "slippage_bps", "fee_lamports", "fee_estimated",
	"attempts", "error_kind", "error", "execution_seconds",
}

func csvRow(t *models.Trade) []string {
	return []string{
		t.ExecutedAt.UTC().Format(time.RFC3339),
		t.OutcomeID,
		t.WalletAddress,
		t.Mint,
		t.Action,
		t.Status,
		t.Signature,
		strconv.FormatUint(t.Slot, 10),
		strconv.FormatUint(t.AmountIn, 10),
		strconv.FormatUint(t.ExpectedOutput, 10),
		strconv.FormatUint(uint64(t.SlippageBps), 10),
		strconv.FormatUint(t.FeeLamports, 10),
		strconv.FormatBool(t.FeeEstimated),
		strconv.Itoa(t.Attempts),
		t.ErrorKind,
		t.ErrorMessage,
		strconv.FormatFloat(t.ExecutionTime, 'f', 3, 64),
	}
}

func (te *TradeExporter) exportToCSV(trades []*models.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, trade := range trades {
		if err := writer.Write(csvRow(trade)); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (te *TradeExporter) exportToJSON(trades []*models.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time       `json:"export_time"`
		TradeCount int             `json:"trade_count"`
		Trades     []*models.Trade `json:"trades"`
		Summary    ExportSummary   `json:"summary"`
	}{
		ExportTime: time.Now(),
		TradeCount: len(trades),
		Trades:     trades,
		Summary:    Summarize(trades),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary - сводка по выгруженным сделкам.
type ExportSummary struct {
	TotalTrades       int            `json:"total_trades"`
	ByStatus          map[string]int `json:"by_status"`
	BuyCount          int            `json:"buy_count"`
	SellCount         int            `json:"sell_count"`
	UniqueTokens      int            `json:"unique_tokens"`
	Retried           int            `json:"retried"`
	TotalFeesLamports uint64         `json:"total_fees_lamports"`
	EstimatedFees     uint64         `json:"estimated_fees_lamports"`
	StartDate         time.Time      `json:"start_date"`
	EndDate           time.Time      `json:"end_date"`
}

// Summarize считает сводку; trades должны быть отсортированы по времени.
func Summarize(trades []*models.Trade) ExportSummary {
	summary := ExportSummary{
		TotalTrades: len(trades),
		ByStatus:    make(map[string]int),
	}
	if len(trades) == 0 {
		return summary
	}

	summary.StartDate = trades[0].ExecutedAt
	summary.EndDate = trades[len(trades)-1].ExecutedAt

	tokenSet := make(map[string]bool)
	for _, trade := range trades {
		tokenSet[trade.Mint] = true
		summary.ByStatus[trade.Status]++
		summary.TotalFeesLamports += trade.FeeLamports
		if trade.FeeEstimated {
			summary.EstimatedFees += trade.FeeLamports
		}
		if trade.Attempts > 1 {
			summary.Retried++
		}
		switch trade.Action {
		case "buy":
			summary.BuyCount++
		case "sell":
			summary.SellCount++
		}
	}
	summary.UniqueTokens = len(tokenSet)
	return summary
}

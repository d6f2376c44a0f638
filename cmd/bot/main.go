// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-sniper/internal/api"
	"github.com/rovshanmuradov/solana-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-sniper/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-sniper/internal/bot"
	"github.com/rovshanmuradov/solana-sniper/internal/budget"
	"github.com/rovshanmuradov/solana-sniper/internal/config"
	"github.com/rovshanmuradov/solana-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-sniper/internal/eventlistener"
	"github.com/rovshanmuradov/solana-sniper/internal/events"
	"github.com/rovshanmuradov/solana-sniper/internal/export"
	"github.com/rovshanmuradov/solana-sniper/internal/monitor"
	"github.com/rovshanmuradov/solana-sniper/internal/storage"
	"github.com/rovshanmuradov/solana-sniper/internal/storage/models"
	"github.com/rovshanmuradov/solana-sniper/internal/storage/sqlite"
	"github.com/rovshanmuradov/solana-sniper/internal/utils/logger"
	"github.com/rovshanmuradov/solana-sniper/internal/utils/metrics"
	"github.com/rovshanmuradov/solana-sniper/internal/wallet"
)

const usage = `usage: bot [-config path] [command]

commands:
  run                               snipe new pump.fun tokens (default)
  buy  <mint> <creator|-> <sol>     buy a token once ("-" reads the creator from the curve)
  sell <mint> <creator|-> <tokens>  sell raw token units once
  export [flags] [csv|json] [dir]   export the trade journal (default csv to exports/)
      -from, -to <date|RFC3339>     executed-at range, -to exclusive
      -mint <address>               one token only
      -action <buy|sell>            one side only
      -confirmed                    confirmed trades only
`

// app - собранное приложение.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	client   *solbc.Client
	store    storage.Storage
	registry *prometheus.Registry
	quoter   *pumpfun.CurveQuoter
	executor *bot.Executor
	shutdown *bot.ShutdownHandler
}

func main() {
	configPath := flag.String("config", "configs/config.json", "path to the config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	cmd := "run"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "run":
		err = a.run(ctx, *configPath)
	case "buy", "sell":
		err = a.trade(ctx, cmd, args[1:])
	case "export":
		err = a.export(ctx, args[1:])
	default:
		flag.Usage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if shutdownErr := a.shutdown.Shutdown(context.Background()); shutdownErr != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", shutdownErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func build(ctx context.Context, configPath string) (*app, error) {
	// Шаг 1: конфигурация и логгер
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zl := log.Logger

	shutdown := bot.NewShutdownHandler(zl, 15*time.Second)
	shutdown.Add("logger", log)

	a := &app{cfg: cfg, log: log, shutdown: shutdown}
	if err := a.wire(ctx, zl); err != nil {
		zl.Error("Startup failed", zap.Error(err))
		_ = shutdown.Shutdown(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, zl *zap.Logger) error {
	cfg := a.cfg

	// Шаг 2: кошелёк и RPC
	w, err := wallet.NewWallet(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	a.client = solbc.NewClient(cfg.RPCEndpoint, cfg.WSEndpoint, zl)
	a.shutdown.AddFunc("rpc_client", func() error { a.client.Close(); return nil })

	// Шаг 3: журнал сделок
	a.store, err = sqlite.NewStorage(cfg.DatabasePath, zl)
	if err != nil {
		return err
	}
	a.shutdown.Add("trade_journal", a.store)

	// Шаг 4: телеметрия
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bus := events.NewBus(zl)
	bus.SubscribeAll(events.NewLogHandler(zl))
	bus.SubscribeAll(metrics.NewCollector(a.registry))

	// Шаг 5: бюджет комиссий от открывающего баланса
	opening, err := a.client.GetBalance(ctx, w.PublicKey(), rpc.CommitmentConfirmed)
	if err != nil {
		return fmt.Errorf("read opening balance: %w", err)
	}
	governor, err := budget.NewGovernor(opening, cfg.FeeLimitPercent)
	if err != nil {
		return err
	}
	zl.Info("Fee budget initialized",
		zap.String("wallet", w.PublicKey().String()),
		zap.Uint64("starting_capital_lamports", opening),
		zap.Uint64("budget_lamports", governor.Snapshot().BudgetLamports))

	// Шаг 6: конвейер сделки
	feeRecipient := pumpfun.NewFeeRecipientResolver(a.client, zl)
	a.quoter = pumpfun.NewCurveQuoter(a.client, feeRecipient, zl)
	txCfg := transaction.Config{
		MaxRetries:          cfg.MaxRetries,
		ConfirmationTimeout: cfg.TransactionTimeout(),
		PollInterval:        cfg.PollInterval(),
		ComputeUnits:        cfg.ComputeUnitLimit,
		Commitment:          rpc.CommitmentConfirmed,
	}
	a.executor, err = bot.NewExecutor(&bot.ExecutorConfig{
		Client:       a.client,
		Manager:      transaction.NewManager(a.client, a.client, bus, transaction.NewMetrics(a.registry), txCfg, zl),
		Assembler:    transaction.NewAssembler(w, cfg.ComputeUnitLimit, zl),
		FeeRecipient: feeRecipient,
		Quoter:       a.quoter,
		Governor:     governor,
		History:      monitor.NewTradeHistory(cfg.HistorySize, a.store, zl),
		Sink:         bus,
		Params:       paramsFrom(cfg),
		Logger:       zl,
	})
	return err
}

func paramsFrom(cfg *config.Config) bot.Params {
	return bot.Params{
		SlippageBps:         cfg.MaxSlippageBps,
		SlippageRetryCapBps: cfg.SlippageRetryCapBps,
		PriorityFeeLamports: cfg.PriorityFeeLamports,
		MinBalanceLamports:  cfg.MinBalanceLamports(),
	}
}

// run запускает снайпер, API мониторинга и наблюдение за конфигом.
func (a *app) run(ctx context.Context, configPath string) error {
	zl := a.log.WithOperation("snipe")
	g, ctx := errgroup.WithContext(ctx)

	if err := config.Watch(configPath, zl, func(c *config.Config) {
		if err := a.executor.UpdateParams(ctx, paramsFrom(c), "file"); err != nil {
			zl.Warn("Config update ignored", zap.Error(err))
		}
	}); err != nil {
		zl.Warn("Config watch disabled", zap.Error(err))
	}

	server := api.NewServer(a.cfg.APIListen, a.executor, a.store, a.executor.Wallet().String(), a.registry, zl)
	g.Go(func() error { return server.Run(ctx) })

	created := make(chan eventlistener.CreateEvent, 16)
	listener := eventlistener.NewEventListener(a.cfg.WSEndpoint, pumpfun.PumpFunProgramID, zl)
	g.Go(func() error { return listener.Run(ctx, created) })

	sniper := bot.NewSniper(a.executor, a.cfg.BuyAmountLamports(), zl)
	g.Go(func() error { return sniper.Run(ctx, created) })

	zl.Info("Sniper started",
		zap.Float64("buy_amount_sol", a.cfg.BuyAmountSOL),
		zap.String("api_listen", a.cfg.APIListen))
	return g.Wait()
}

// trade выполняет одну ручную сделку и печатает исход в JSON.
func (a *app) trade(ctx context.Context, cmd string, args []string) error {
	if len(args) != 3 {
		flag.Usage()
		return errors.New("expected <mint> <creator> <amount>")
	}
	mint, err := solana.PublicKeyFromBase58(args[0])
	if err != nil {
		return fmt.Errorf("invalid mint: %w", err)
	}
	var creator solana.PublicKey
	if args[1] == "-" {
		if creator, err = a.quoter.Creator(ctx, mint); err != nil {
			return fmt.Errorf("resolve creator: %w", err)
		}
	} else if creator, err = solana.PublicKeyFromBase58(args[1]); err != nil {
		return fmt.Errorf("invalid creator: %w", err)
	}

	side := pumpfun.SideBuy
	var amount uint64
	if cmd == "buy" {
		sol, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid SOL amount: %w", err)
		}
		amount = config.Lamports(sol)
	} else {
		side = pumpfun.SideSell
		amount, err = strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid token amount: %w", err)
		}
	}

	zl := a.log.WithOperation(cmd)
	zl.Info("Manual trade requested",
		zap.String("token", mint.String()),
		zap.Uint64("amount_in", amount))

	outcome, tradeErr := a.executor.Execute(ctx, a.executor.NewIntent(side, mint, creator, amount))
	if outcome != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(outcome)
	}
	return tradeErr
}

// export выгружает журнал кошелька в файл с учётом фильтров.
func (a *app) export(ctx context.Context, args []string) error {
	opts, err := export.ParseOptions(args)
	if err != nil {
		flag.Usage()
		return err
	}

	owner := a.executor.Wallet().String()
	var trades []*models.Trade
	for offset := 0; ; offset += exportPageSize {
		page, err := a.store.ListTrades(ctx, owner, exportPageSize, offset)
		if err != nil {
			return fmt.Errorf("read trade journal: %w", err)
		}
		trades = append(trades, page...)
		if len(page) < exportPageSize {
			break
		}
	}

	path, err := export.NewTradeExporter(a.log.Logger).ExportTrades(trades, opts)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

const exportPageSize = 500

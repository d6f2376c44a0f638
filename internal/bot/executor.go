// internal/bot/executor.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/blockchain"
	"github.com/rovshanmuradov/solana-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-sniper/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-sniper/internal/budget"
	"github.com/rovshanmuradov/solana-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-sniper/internal/events"
	"github.com/rovshanmuradov/solana-sniper/internal/monitor"
	"github.com/rovshanmuradov/solana-sniper/internal/types"
)

// Рента associated token account, резервируется при покупке.
const ataRentLamports = 2_039_280

// Quoter - внешний источник ожидаемого выхода сделки.
type Quoter interface {
	Quote(ctx context.Context, side pumpfun.Side, mint solana.PublicKey, amountIn uint64) (uint64, error)
}

// FeeRecipientSource возвращает получателя протокольной комиссии.
type FeeRecipientSource interface {
	FeeRecipient(ctx context.Context) (solana.PublicKey, error)
}

// Params - торговые параметры, которые можно менять без перезапуска.
type Params struct {
	SlippageBps         uint32 `json:"slippage_bps"`
	SlippageRetryCapBps uint32 `json:"slippage_retry_cap_bps"`
	PriorityFeeLamports uint64 `json:"priority_fee_lamports"`
	MinBalanceLamports  uint64 `json:"min_balance_lamports"`
}

// Validate проверяет согласованность параметров.
func (p Params) Validate() error {
	if err := types.ValidateSlippageBps(p.SlippageBps); err != nil {
		return err
	}
	if err := types.ValidateSlippageBps(p.SlippageRetryCapBps); err != nil {
		return err
	}
	if p.SlippageRetryCapBps < p.SlippageBps {
		return types.MalformedInput("slippage retry cap %d bps is below slippage %d bps",
			p.SlippageRetryCapBps, p.SlippageBps)
	}
	return nil
}

// ExecutorConfig configuration for Executor. Quoter используется, если у намерения
// нет ожидаемого выхода, и при повторе.
type ExecutorConfig struct {
	Client       blockchain.Client
	Manager      *transaction.Manager
	Assembler    *transaction.Assembler
	Deriver      *pumpfun.Deriver
	FeeRecipient FeeRecipientSource
	Quoter       Quoter
	Governor     *budget.Governor
	History      *monitor.TradeHistory
	Sink         events.Sink
	Params       Params
	Logger       *zap.Logger
}

// Snapshot - срез состояния для мониторинга, только для чтения.
type Snapshot struct {
	Recent []monitor.Outcome       `json:"recent"`
	Stats  monitor.TradeStatistics `json:"stats"`
	Ledger budget.LedgerSnapshot   `json:"ledger"`
	Halted bool                    `json:"halted"`
	Params Params                  `json:"params"`
}

// Executor проводит сделку через весь конвейер: бюджет, баланс, построение,
// симуляция, отправка, один повтор при проскальзывании, учёт комиссии.
// Одновременно выполняется не больше одной сделки.
type Executor struct {
	mu sync.Mutex

	manager      *transaction.Manager
	assembler    *transaction.Assembler
	deriver      *pumpfun.Deriver
	feeRecipient FeeRecipientSource
	quoter       Quoter
	guard        *BalanceGuard
	governor     *budget.Governor
	history      *monitor.TradeHistory
	sink         events.Sink
	params       atomic.Pointer[Params]
	logger       *zap.Logger
}

// NewExecutor creates a new trade executor
func NewExecutor(cfg *ExecutorConfig) (*Executor, error) {
	switch {
	case cfg.Client == nil, cfg.Manager == nil, cfg.Assembler == nil:
		return nil, errors.New("executor requires client, manager and assembler")
	case cfg.FeeRecipient == nil, cfg.Governor == nil:
		return nil, errors.New("executor requires fee recipient source and governor")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger.Named("executor")
	sink := cfg.Sink
	if sink == nil {
		sink = events.NopSink{}
	}
	deriver := cfg.Deriver
	if deriver == nil {
		deriver = pumpfun.NewDeriver(pumpfun.PumpFunProgramID)
	}
	history := cfg.History
	if history == nil {
		history = monitor.NewTradeHistory(100, nil, cfg.Logger)
	}

	e := &Executor{
		manager:      cfg.Manager,
		assembler:    cfg.Assembler,
		deriver:      deriver,
		feeRecipient: cfg.FeeRecipient,
		quoter:       cfg.Quoter,
		guard:        NewBalanceGuard(cfg.Client, cfg.Assembler.FeePayer(), cfg.Logger),
		governor:     cfg.Governor,
		history:      history,
		sink:         sink,
		logger:       logger,
	}
	params := cfg.Params
	e.params.Store(&params)

	cfg.Governor.OnHalt(func(s budget.LedgerSnapshot) {
		logger.Error("Trading halted for the day",
			zap.Uint64("total_fees_lamports", s.TotalFeesLamports),
			zap.Uint64("budget_lamports", s.BudgetLamports),
			zap.Uint64("starting_capital_lamports", s.StartingCapitalLamports))
		sink.Emit(context.Background(), events.HaltEvent{
			BaseEvent:               events.NewBase(events.TradingHalted),
			TotalFeesLamports:       s.TotalFeesLamports,
			BudgetLamports:          s.BudgetLamports,
			StartingCapitalLamports: s.StartingCapitalLamports,
		})
	})

	logger.Info("Executor initialized",
		zap.String("wallet", cfg.Assembler.FeePayer().String()),
		zap.Uint32("slippage_bps", params.SlippageBps),
		zap.Uint32("slippage_retry_cap_bps", params.SlippageRetryCapBps),
		zap.Uint64("priority_fee_lamports", params.PriorityFeeLamports))

	return e, nil
}

// Params возвращает действующие параметры.
func (e *Executor) Params() Params {
	return *e.params.Load()
}

// UpdateParams атомарно применяет новые параметры; они действуют со следующей сделки.
func (e *Executor) UpdateParams(ctx context.Context, p Params, source string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.params.Store(&p)

	e.logger.Info("Trading parameters updated",
		zap.String("source", source),
		zap.Uint32("slippage_bps", p.SlippageBps),
		zap.Uint32("slippage_retry_cap_bps", p.SlippageRetryCapBps),
		zap.Uint64("priority_fee_lamports", p.PriorityFeeLamports),
		zap.Uint64("min_balance_lamports", p.MinBalanceLamports))
	e.sink.Emit(ctx, events.ConfigUpdatedEvent{
		BaseEvent: events.NewBase(events.ConfigUpdated),
		Source:    source,
	})
	return nil
}

// Halted сообщает, остановлена ли торговля по бюджету комиссий.
func (e *Executor) Halted() bool {
	return e.governor.IsHalted()
}

// Wallet возвращает адрес торгового кошелька.
func (e *Executor) Wallet() solana.PublicKey {
	return e.assembler.FeePayer()
}

// Balance читает текущий баланс кошелька.
func (e *Executor) Balance(ctx context.Context) (uint64, error) {
	return e.guard.Balance(ctx)
}

// Snapshot возвращает последние исходы, учёт комиссий и флаг остановки.
// Не ждёт завершения текущей сделки.
func (e *Executor) Snapshot(limit int) Snapshot {
	ledger := e.governor.Snapshot()
	return Snapshot{
		Recent: e.history.GetRecentTrades(limit),
		Stats:  e.history.GetStatistics(),
		Ledger: ledger,
		Halted: ledger.Halted,
		Params: e.Params(),
	}
}

// NewIntent собирает намерение с текущими допуском и приоритетной комиссией.
// Ожидаемый выход оставляется нулевым и заполняется котировщиком при исполнении.
func (e *Executor) NewIntent(side pumpfun.Side, mint, creator solana.PublicKey, amountIn uint64) pumpfun.TradeIntent {
	p := e.Params()
	return pumpfun.TradeIntent{
		Side:                side,
		Mint:                mint,
		Creator:             creator,
		AmountIn:            amountIn,
		SlippageBps:         p.SlippageBps,
		PriorityFeeLamports: p.PriorityFeeLamports,
	}
}

// Execute проводит сделку. Возвращает исход в любом случае и ошибку, если сделка
// не подтвердилась. Ошибка сравнима через errors.Is с категориями из types.
func (e *Executor) Execute(ctx context.Context, intent pumpfun.TradeIntent) (*monitor.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	params := e.Params()
	outcome := &monitor.Outcome{
		ID:             uuid.New().String(),
		Timestamp:      start,
		Wallet:         e.assembler.FeePayer().String(),
		Mint:           intent.Mint.String(),
		Action:         intent.Side.String(),
		AmountIn:       intent.AmountIn,
		ExpectedOutput: intent.ExpectedOutput,
		SlippageBps:    intent.SlippageBps,
	}

	// Шаг 1: предусловия
	if err := intent.Validate(); err != nil {
		return e.finish(ctx, outcome, monitor.StatusRejected, err, start)
	}

	// Шаг 2: бюджет комиссий
	if err := e.governor.Authorize(); err != nil {
		return e.finish(ctx, outcome, monitor.StatusRefused, err, start)
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		outcome.Attempts = attempt

		// Шаг 3: живой баланс перед каждой попыткой
		if err := e.checkBalance(ctx, intent, params.MinBalanceLamports); err != nil {
			status := monitor.StatusRefused
			if attempt > 1 {
				status = statusAfterRetry(lastErr)
			}
			return e.finish(ctx, outcome, status, err, start)
		}

		// Шаг 4: ожидаемый выход
		if intent.ExpectedOutput == 0 || attempt > 1 {
			quoted, err := e.quote(ctx, intent)
			if err != nil {
				return e.finish(ctx, outcome, monitor.StatusRejected, err, start)
			}
			if quoted != 0 {
				intent.ExpectedOutput = quoted
			}
		}
		if intent.ExpectedOutput == 0 {
			// Вырожденные резервы: токен пропускается, это не ошибка конфигурации
			return e.finish(ctx, outcome, monitor.StatusRejected, &types.TradeError{
				Kind:   types.KindSimulationRejected,
				Stage:  types.StageBuild,
				Reason: fmt.Sprintf("expected output for %s is zero", intent.Mint),
			}, start)
		}
		outcome.ExpectedOutput = intent.ExpectedOutput
		outcome.SlippageBps = intent.SlippageBps

		// Шаг 5: одна попытка от построения до терминального статуса
		res, err := e.attempt(ctx, intent)
		status := monitor.StatusRejected
		if res != nil {
			// Попытка дошла до сети: комиссия списана
			e.governor.RecordFee(res.FeeLamports)
			outcome.FeeLamports += res.FeeLamports
			outcome.FeeEstimated = outcome.FeeEstimated || res.FeeEstimated
			outcome.Signature = res.Signature.String()
			outcome.Slot = res.Slot
			status = monitor.Status(res.Status)
		}
		if err == nil {
			return e.finish(ctx, outcome, monitor.StatusConfirmed, nil, start)
		}
		lastErr = err

		// Шаг 6: повтор только при проскальзывании и только один раз
		retry := SlippageRetry{CapBps: params.SlippageRetryCapBps}
		next, ok := retry.MaybeRetry(err, intent, attempt)
		if !ok {
			return e.finish(ctx, outcome, status, err, start)
		}
		if haltErr := e.governor.Authorize(); haltErr != nil {
			return e.finish(ctx, outcome, status, errors.Join(err, haltErr), start)
		}

		e.logger.Info("Slippage exceeded, retrying once",
			zap.String("token", intent.Mint.String()),
			zap.Uint32("prev_slippage_bps", intent.SlippageBps),
			zap.Uint32("next_slippage_bps", next.SlippageBps))
		e.sink.Emit(ctx, events.RetryEvent{
			BaseEvent:       events.NewBase(events.TradeRetried),
			Mint:            intent.Mint.String(),
			PrevSlippageBps: intent.SlippageBps,
			NextSlippageBps: next.SlippageBps,
		})
		intent = next
	}
}

func statusAfterRetry(prev error) monitor.Status {
	var te *types.TradeError
	if errors.As(prev, &te) && te.Stage == types.StageOnChain {
		return monitor.StatusFailedOnChain
	}
	return monitor.StatusRejected
}

func (e *Executor) checkBalance(ctx context.Context, intent pumpfun.TradeIntent, floor uint64) error {
	required := intent.MaxSolSpend() + estimatedNetworkFee(intent)
	if intent.Side == pumpfun.SideBuy {
		required += ataRentLamports
	}

	ok, balance, err := e.guard.CheckSufficient(ctx, required, floor)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	e.sink.Emit(ctx, events.BalanceRefusedEvent{
		BaseEvent:        events.NewBase(events.BalanceRefused),
		Mint:             intent.Mint.String(),
		BalanceLamports:  balance,
		RequiredLamports: required,
		FloorLamports:    floor,
	})
	return fmt.Errorf("%w: balance %d lamports, required %d, floor %d",
		types.ErrInsufficientBalance, balance, required, floor)
}

func estimatedNetworkFee(intent pumpfun.TradeIntent) uint64 {
	return 5_000 + intent.PriorityFeeLamports
}

func (e *Executor) quote(ctx context.Context, intent pumpfun.TradeIntent) (uint64, error) {
	if e.quoter == nil {
		return 0, nil
	}
	out, err := e.quoter.Quote(ctx, intent.Side, intent.Mint, intent.AmountIn)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, pumpfun.ErrCurveComplete) || solbc.IsAccountNotFoundError(err) {
		// Кривая отсутствует или завершена: сделка невозможна, комиссии нет
		return 0, &types.TradeError{
			Kind:   types.KindSimulationRejected,
			Stage:  types.StageBuild,
			Reason: err.Error(),
			Err:    err,
		}
	}
	return 0, &types.TradeError{
		Kind:  types.KindNetworkUnavailable,
		Stage: types.StageBuild,
		Err:   fmt.Errorf("failed to quote %s: %w", intent.Mint, err),
	}
}

// attempt строит, симулирует и отправляет одну транзакцию. Результат не nil,
// только если попытка дошла до состояния Submitted.
func (e *Executor) attempt(ctx context.Context, intent pumpfun.TradeIntent) (*transaction.ConfirmationResult, error) {
	owner := e.assembler.FeePayer()

	accounts, err := e.deriver.Accounts(intent.Mint, intent.Creator, owner)
	if err != nil {
		return nil, err
	}

	feeRecipient, err := e.feeRecipient.FeeRecipient(ctx)
	if err != nil {
		var te *types.TradeError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &types.TradeError{
			Kind:  types.KindNetworkUnavailable,
			Stage: types.StageBuild,
			Err:   fmt.Errorf("failed to resolve fee recipient: %w", err),
		}
	}

	tradeIx, err := pumpfun.BuildTradeInstruction(intent, accounts, feeRecipient, owner)
	if err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, 2)
	if intent.Side == pumpfun.SideBuy {
		ataIx, err := pumpfun.BuildCreateATAIdempotentInstruction(owner, owner, intent.Mint)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, ataIx)
	}
	instructions = append(instructions, tradeIx)

	anchor, err := e.manager.LatestAnchor(ctx)
	if err != nil {
		return nil, err
	}

	signed, err := e.assembler.Assemble(instructions, intent.PriorityFeeLamports, anchor)
	if err != nil {
		return nil, err
	}

	sim, err := e.manager.Simulate(ctx, e.manager.Begin(), signed)
	if err != nil {
		return nil, err
	}

	return e.manager.Submit(ctx, sim)
}

func (e *Executor) finish(
	ctx context.Context,
	outcome *monitor.Outcome,
	status monitor.Status,
	err error,
	start time.Time,
) (*monitor.Outcome, error) {
	outcome.Status = status
	outcome.Duration = time.Since(start)
	if err != nil {
		outcome.Reason = err.Error()
		if kind := types.KindOf(err); kind != 0 {
			outcome.ErrorKind = kind.String()
		}
	}

	fields := []zap.Field{
		zap.String("outcome_id", outcome.ID),
		zap.String("action", outcome.Action),
		zap.String("token", outcome.Mint),
		zap.String("status", string(status)),
		zap.Uint64("fee_lamports", outcome.FeeLamports),
		zap.Uint32("slippage_bps", outcome.SlippageBps),
		zap.Int("attempts", outcome.Attempts),
		zap.Duration("duration", outcome.Duration),
	}
	if outcome.Signature != "" {
		fields = append(fields, zap.String("signature", outcome.Signature))
	}
	if err != nil {
		fields = append(fields, zap.String("reason", outcome.Reason))
	}

	switch status {
	case monitor.StatusConfirmed:
		e.logger.Info("Trade confirmed", fields...)
	case monitor.StatusTimedOut:
		e.logger.Warn("Trade outcome unknown: confirmation timed out, reconcile balance before next trade", fields...)
	case monitor.StatusRefused:
		e.logger.Warn("Trade refused", fields...)
	default:
		if errors.Is(err, types.ErrMalformedInput) {
			e.logger.Error("Trade rejected: malformed input", fields...)
		} else {
			e.logger.Warn("Trade failed", fields...)
		}
	}

	if logErr := e.history.LogTrade(ctx, *outcome); logErr != nil {
		e.logger.Warn("Trade outcome not persisted", zap.Error(logErr))
	}

	e.sink.Emit(ctx, events.OutcomeEvent{
		BaseEvent:   events.NewBase(events.TradeCompleted),
		OutcomeID:   outcome.ID,
		Action:      outcome.Action,
		Mint:        outcome.Mint,
		Status:      string(status),
		Signature:   outcome.Signature,
		FeeLamports: outcome.FeeLamports,
		SlippageBps: outcome.SlippageBps,
		Reason:      outcome.Reason,
		Attempts:    outcome.Attempts,
	})

	return outcome, err
}

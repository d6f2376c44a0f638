// internal/blockchain/solbc/transaction/manager.go
package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/blockchain"
	"github.com/rovshanmuradov/solana-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-sniper/internal/events"
	"github.com/rovshanmuradov/solana-sniper/internal/types"
)

// Manager ведёт попытку от симуляции до терминального состояния.
type Manager struct {
	client   blockchain.Client
	gate     *Gate
	monitor  *Monitor
	analyzer *solbc.ErrorAnalyzer
	metrics  *Metrics
	sink     events.Sink
	config   Config
	logger   *zap.Logger
}

// NewManager создаёт менеджер транзакций. notifier, metrics и sink могут быть nil.
func NewManager(
	client blockchain.Client,
	notifier blockchain.SignatureNotifier,
	sink events.Sink,
	metrics *Metrics,
	config Config,
	logger *zap.Logger,
) *Manager {
	if sink == nil {
		sink = events.NopSink{}
	}
	config = config.withDefaults()
	return &Manager{
		client:   client,
		gate:     NewGate(client, metrics, logger),
		monitor:  NewMonitor(client, notifier, config, logger),
		analyzer: solbc.NewErrorAnalyzer(logger),
		metrics:  metrics,
		sink:     sink,
		config:   config,
		logger:   logger.Named("tx-manager"),
	}
}

// Config возвращает действующие настройки.
func (tm *Manager) Config() Config {
	return tm.config
}

// Begin открывает новую попытку в состоянии Built.
func (tm *Manager) Begin() *Attempt {
	return NewAttempt(tm.sink)
}

// LatestAnchor получает свежий blockhash. Сетевые ошибки возвращаются как KindNetworkUnavailable.
func (tm *Manager) LatestAnchor(ctx context.Context) (blockchain.Anchor, error) {
	anchor, err := tm.client.GetLatestBlockhash(ctx)
	if err != nil {
		return blockchain.Anchor{}, &types.TradeError{
			Kind:  types.KindNetworkUnavailable,
			Stage: types.StageBuild,
			Err:   err,
		}
	}
	return anchor, nil
}

// Simulate прогоняет конверт через шлюз симуляции.
func (tm *Manager) Simulate(ctx context.Context, attempt *Attempt, signed *SignedTransaction) (*Simulated, error) {
	return tm.gate.Simulate(ctx, attempt, signed)
}

// Submit отправляет симулированный конверт и ждёт терминального статуса.
// Для Confirmed возвращает результат без ошибки. Для FailedOnChain и TimedOut
// возвращает и результат, и *types.TradeError с комиссией.
func (tm *Manager) Submit(ctx context.Context, sim *Simulated) (*ConfirmationResult, error) {
	if sim == nil || sim.attempt == nil || sim.tx == nil {
		return nil, types.MalformedInput("submit requires a simulated transaction")
	}
	attempt, signed := sim.attempt, sim.tx
	if attempt.State() != StateSimulated {
		return nil, illegalTransition(attempt.State(), StateSubmitted)
	}

	start := time.Now()

	// Шаг 1: отправка с повторами при сетевых ошибках
	signature, err := tm.sendWithRetry(ctx, signed)
	if err != nil {
		if !tm.alreadySeen(ctx, signed.Signature) {
			_ = attempt.advance(ctx, StateRejected)
			return nil, &types.TradeError{
				Kind:      types.KindNetworkUnavailable,
				Stage:     types.StageSubmission,
				Signature: signed.Signature.String(),
				Err:       err,
			}
		}
		// Сеть приняла конверт, хотя ответ на отправку потерян.
		signature = signed.Signature
	}

	attempt.setSignature(signature.String())
	if err := attempt.advance(ctx, StateSubmitted); err != nil {
		return nil, err
	}
	tm.logger.Info("Transaction submitted",
		zap.String("attempt_id", attempt.ID),
		zap.String("signature", signature.String()))

	// Шаг 2: ожидание подтверждения
	landed, err := tm.monitor.AwaitConfirmation(ctx, signature)
	if err != nil {
		return tm.timedOut(ctx, attempt, signed, start, err)
	}

	// Шаг 3: фактическая комиссия и логи
	result := &ConfirmationResult{
		Signature: signature,
		Slot:      landed.slot,
	}
	meta := tm.fetchMeta(ctx, signature)
	var logs []string
	if meta != nil {
		result.FeeLamports = meta.Fee
		logs = meta.Logs
	} else {
		result.FeeLamports = signed.EstimatedFee()
		result.FeeEstimated = true
	}
	result.Logs = logs

	if landed.txErr == nil {
		if err := attempt.advance(ctx, StateConfirmed); err != nil {
			return nil, err
		}
		result.Status = StatusConfirmed
		result.Duration = time.Since(start)
		tm.metrics.outcome(result)

		tm.logger.Info("Transaction confirmed",
			zap.String("attempt_id", attempt.ID),
			zap.String("signature", signature.String()),
			zap.Uint64("slot", result.Slot),
			zap.Uint64("fee_lamports", result.FeeLamports),
			zap.Duration("duration", result.Duration))
		return result, nil
	}

	// Шаг 4: транзакция включена, но программа вернула ошибку
	failure := tm.analyzer.Analyze(landed.txErr, logs)
	if err := attempt.advance(ctx, StateFailedOnChain); err != nil {
		return nil, err
	}
	result.Status = StatusFailedOnChain
	result.Reason = failure.Reason
	result.Duration = time.Since(start)
	tm.metrics.outcome(result)

	kind := types.KindOnChainFailure
	if failure.Slippage {
		kind = types.KindSlippageExceeded
	}

	tm.logger.Warn("Transaction failed on-chain",
		zap.String("attempt_id", attempt.ID),
		zap.String("signature", signature.String()),
		zap.String("kind", kind.String()),
		zap.String("reason", failure.Reason),
		zap.Uint64("fee_lamports", result.FeeLamports))

	return result, &types.TradeError{
		Kind:        kind,
		Stage:       types.StageOnChain,
		Reason:      failure.Reason,
		Logs:        logs,
		Signature:   signature.String(),
		FeeLamports: result.FeeLamports,
	}
}

func (tm *Manager) timedOut(
	ctx context.Context,
	attempt *Attempt,
	signed *SignedTransaction,
	start time.Time,
	cause error,
) (*ConfirmationResult, error) {
	// Исход неизвестен: комиссия учитывается по оценке.
	advanceCtx := context.WithoutCancel(ctx)
	if err := attempt.advance(advanceCtx, StateTimedOut); err != nil {
		return nil, err
	}

	result := &ConfirmationResult{
		Status:       StatusTimedOut,
		Signature:    signed.Signature,
		FeeLamports:  signed.EstimatedFee(),
		FeeEstimated: true,
		Reason:       cause.Error(),
		Duration:     time.Since(start),
	}
	tm.metrics.outcome(result)

	tm.logger.Warn("Confirmation timed out, outcome unknown",
		zap.String("attempt_id", attempt.ID),
		zap.String("signature", signed.Signature.String()),
		zap.Uint64("estimated_fee_lamports", result.FeeLamports),
		zap.Error(cause))

	return result, &types.TradeError{
		Kind:        types.KindSubmissionTimeout,
		Stage:       types.StageSubmission,
		Reason:      "confirmation not observed before timeout",
		Signature:   signed.Signature.String(),
		FeeLamports: result.FeeLamports,
		Err:         cause,
	}
}

func (tm *Manager) sendWithRetry(ctx context.Context, signed *SignedTransaction) (solana.Signature, error) {
	opts := blockchain.TransactionOptions{
		SkipPreflight:       true,
		PreflightCommitment: tm.config.Commitment,
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = tm.config.PollInterval
	b.MaxInterval = tm.config.MaxPollInterval

	tries := 0
	send := func() (solana.Signature, error) {
		tries++
		sig, err := tm.client.SendTransactionWithOpts(ctx, signed.Tx, opts)
		if err != nil {
			if tries < tm.config.MaxRetries {
				tm.metrics.sendRetry()
			}
			tm.logger.Warn("Failed to send transaction",
				zap.Int("attempt", tries),
				zap.Int("max_attempts", tm.config.MaxRetries),
				zap.Error(err))
			return solana.Signature{}, err
		}
		return sig, nil
	}

	return backoff.Retry(ctx, send,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(tm.config.MaxRetries)),
	)
}

// alreadySeen проверяет, знает ли сеть подпись, ответ на отправку которой был потерян.
func (tm *Manager) alreadySeen(ctx context.Context, signature solana.Signature) bool {
	if ctx.Err() != nil {
		return false
	}
	resp, err := tm.client.GetSignatureStatuses(ctx, signature)
	if err != nil || resp == nil || len(resp.Value) == 0 {
		return false
	}
	return resp.Value[0] != nil
}

func (tm *Manager) fetchMeta(ctx context.Context, signature solana.Signature) *blockchain.TransactionMeta {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = tm.config.PollInterval
	b.MaxInterval = tm.config.MaxPollInterval

	fetch := func() (*blockchain.TransactionMeta, error) {
		meta, err := tm.client.GetTransactionMeta(ctx, signature)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			return nil, errors.New("transaction meta not yet available")
		}
		return meta, nil
	}

	meta, err := backoff.Retry(ctx, fetch,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(tm.config.MaxRetries)+2),
	)
	if err != nil {
		tm.logger.Debug("Transaction meta unavailable, using estimated fee",
			zap.String("signature", signature.String()),
			zap.Error(err))
		return nil
	}
	return meta
}

// internal/blockchain/solbc/transaction/simulate.go
package transaction

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/blockchain"
	"github.com/rovshanmuradov/solana-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-sniper/internal/types"
)

// Gate прогоняет подписанный конверт через симуляцию. Отказ симуляции бесплатен
// и не доходит до отправки.
type Gate struct {
	client   blockchain.Client
	analyzer *solbc.ErrorAnalyzer
	metrics  *Metrics
	logger   *zap.Logger
}

// NewGate создаёт шлюз симуляции.
func NewGate(client blockchain.Client, metrics *Metrics, logger *zap.Logger) *Gate {
	return &Gate{
		client:   client,
		analyzer: solbc.NewErrorAnalyzer(logger),
		metrics:  metrics,
		logger:   logger.Named("tx-simulation"),
	}
}

// Simulate возвращает *Simulated при успехе или *types.TradeError с причиной и логами
// в исходном виде.
func (g *Gate) Simulate(ctx context.Context, attempt *Attempt, signed *SignedTransaction) (*Simulated, error) {
	if attempt.State() != StateBuilt {
		return nil, illegalTransition(attempt.State(), StateSimulated)
	}

	result, err := g.client.SimulateTransaction(ctx, signed.Tx)
	if err != nil {
		_ = attempt.advance(ctx, StateRejected)
		g.metrics.simulationFailure("network")
		return nil, &types.TradeError{
			Kind:      types.KindNetworkUnavailable,
			Stage:     types.StageSimulation,
			Signature: signed.Signature.String(),
			Err:       err,
		}
	}

	if result.Err != nil {
		_ = attempt.advance(ctx, StateRejected)
		failure := g.analyzer.Analyze(result.Err, result.Logs)

		kind := types.KindSimulationRejected
		if failure.Slippage {
			kind = types.KindSlippageExceeded
		}
		g.metrics.simulationFailure(kind.String())

		g.logger.Warn("Simulation rejected transaction",
			zap.String("attempt_id", attempt.ID),
			zap.String("kind", kind.String()),
			zap.String("reason", failure.Reason),
			zap.Strings("logs", result.Logs))

		return nil, &types.TradeError{
			Kind:      kind,
			Stage:     types.StageSimulation,
			Reason:    failure.Reason,
			Logs:      result.Logs,
			Signature: signed.Signature.String(),
		}
	}

	if err := attempt.advance(ctx, StateSimulated); err != nil {
		return nil, err
	}

	g.logger.Debug("Simulation passed",
		zap.String("attempt_id", attempt.ID),
		zap.Uint64("units_consumed", result.UnitsConsumed))

	return &Simulated{attempt: attempt, tx: signed, Result: *result}, nil
}

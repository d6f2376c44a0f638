// internal/bot/sniper.go
package bot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-sniper/internal/eventlistener"
	"github.com/rovshanmuradov/solana-sniper/internal/monitor"
	"github.com/rovshanmuradov/solana-sniper/internal/types"
)

// Sniper покупает новые токены по событиям создания, по одному за раз.
type Sniper struct {
	executor  *Executor
	buyAmount uint64
	logger    *zap.Logger

	haltLogged bool
}

// NewSniper creates a sniper that buys buyAmountLamports of every new token.
func NewSniper(executor *Executor, buyAmountLamports uint64, logger *zap.Logger) *Sniper {
	return &Sniper{
		executor:  executor,
		buyAmount: buyAmountLamports,
		logger:    logger.Named("sniper"),
	}
}

// Run обрабатывает события до закрытия канала или отмены ctx.
// Ошибка возвращается только для некорректной конфигурации сделки.
func (s *Sniper) Run(ctx context.Context, in <-chan eventlistener.CreateEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			if err := s.HandleEvent(ctx, ev); err != nil {
				return err
			}
		}
	}
}

// HandleEvent проводит покупку одного токена.
func (s *Sniper) HandleEvent(ctx context.Context, ev eventlistener.CreateEvent) error {
	if s.executor.Halted() {
		if !s.haltLogged {
			s.logger.Warn("Trading halted, ignoring new tokens until restart")
			s.haltLogged = true
		}
		s.logger.Debug("Token skipped: trading halted", zap.String("mint", ev.Mint.String()))
		return nil
	}

	intent := s.executor.NewIntent(pumpfun.SideBuy, ev.Mint, ev.Creator, s.buyAmount)
	out, err := s.executor.Execute(ctx, intent)
	if errors.Is(err, types.ErrMalformedInput) {
		return fmt.Errorf("buy %s: %w", ev.Mint, err)
	}

	if out != nil && out.Status == monitor.StatusTimedOut {
		// Исход неизвестен: перед следующей сделкой сверяемся с реальным балансом
		balance, balErr := s.executor.Balance(ctx)
		if balErr != nil {
			s.logger.Warn("Failed to reconcile balance after timeout", zap.Error(balErr))
		} else {
			s.logger.Info("Balance reconciled after timeout",
				zap.String("mint", ev.Mint.String()),
				zap.Uint64("balance_lamports", balance))
		}
	}
	return nil
}

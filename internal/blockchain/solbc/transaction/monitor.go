// internal/blockchain/solbc/transaction/monitor.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/blockchain"
)

var errPending = errors.New("signature not yet confirmed")

// landing - слот и ошибка исполнения (nil при успехе) включённой транзакции.
type landing struct {
	slot  uint64
	txErr interface{}
}

// Monitor ждёт подтверждения подписи: опрашивает getSignatureStatuses с экспоненциальной
// паузой и параллельно слушает подписку, если она доступна.
type Monitor struct {
	client   blockchain.Client
	notifier blockchain.SignatureNotifier
	config   Config
	logger   *zap.Logger
}

// NewMonitor создаёт монитор. notifier может быть nil.
func NewMonitor(client blockchain.Client, notifier blockchain.SignatureNotifier, config Config, logger *zap.Logger) *Monitor {
	return &Monitor{
		client:   client,
		notifier: notifier,
		config:   config.withDefaults(),
		logger:   logger.Named("tx-monitor"),
	}
}

// AwaitConfirmation блокируется до подтверждения подписи на уровне Config.Commitment
// или до истечения ConfirmationTimeout. По таймауту возвращает ErrConfirmationTimeout.
func (m *Monitor) AwaitConfirmation(ctx context.Context, signature solana.Signature) (*landing, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.ConfirmationTimeout)
	defer cancel()

	results := make(chan landing, 2)

	if m.notifier != nil {
		go func() {
			slot, txErr, err := m.notifier.WaitSignature(ctx, signature, m.config.Commitment)
			if err != nil {
				if ctx.Err() == nil {
					m.logger.Debug("Signature subscription unavailable, relying on polling",
						zap.String("signature", signature.String()),
						zap.Error(err))
				}
				return
			}
			results <- landing{slot: slot, txErr: txErr}
		}()
	}

	go func() {
		l, err := m.poll(ctx, signature)
		if err != nil {
			return
		}
		results <- *l
	}()

	select {
	case l := <-results:
		return &l, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w after %s: %v", ErrConfirmationTimeout, m.config.ConfirmationTimeout, context.Cause(ctx))
	}
}

func (m *Monitor) poll(ctx context.Context, signature solana.Signature) (*landing, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.config.PollInterval
	b.MaxInterval = m.config.MaxPollInterval
	b.Multiplier = 1.5
	b.RandomizationFactor = 0.1

	check := func() (*landing, error) {
		return m.checkStatus(ctx, signature)
	}

	return backoff.Retry(ctx, check,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(m.config.ConfirmationTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			if !errors.Is(err, errPending) {
				m.logger.Debug("Signature status check failed",
					zap.String("signature", signature.String()),
					zap.Duration("next_check", next),
					zap.Error(err))
			}
		}),
	)
}

// checkStatus возвращает landing, если подпись достигла нужного уровня подтверждения
// либо транзакция включена с ошибкой.
func (m *Monitor) checkStatus(ctx context.Context, signature solana.Signature) (*landing, error) {
	response, err := m.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return nil, errPending
	}

	status := response.Value[0]
	if status.Err != nil {
		return &landing{slot: status.Slot, txErr: status.Err}, nil
	}

	if reached(status.ConfirmationStatus, m.config.Commitment) {
		return &landing{slot: status.Slot}, nil
	}
	return nil, errPending
}

func reached(have rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch want {
	case rpc.CommitmentFinalized:
		return have == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentProcessed:
		return have != ""
	default:
		return have == rpc.ConfirmationStatusConfirmed || have == rpc.ConfirmationStatusFinalized
	}
}

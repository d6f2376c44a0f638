// internal/eventlistener/listener.go
package eventlistener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/blockchain/solbc"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// logStream - открытая подписка на логи программы.
type logStream interface {
	Recv() (*ws.LogResult, error)
	Unsubscribe()
}

// subscribeFunc открывает подписку; closeConn закрывает её соединение.
type subscribeFunc func(ctx context.Context) (stream logStream, closeConn func(), err error)

// EventListener следит за логами программы pump.fun и отдаёт новые токены.
// При обрыве соединения переподключается с экспоненциальной задержкой.
type EventListener struct {
	wsURL   string
	program solana.PublicKey
	logger  *zap.Logger

	subscribe      subscribeFunc
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewEventListener creates a listener for program log mentions.
func NewEventListener(wsURL string, program solana.PublicKey, logger *zap.Logger) *EventListener {
	el := &EventListener{
		wsURL:          wsURL,
		program:        program,
		logger:         logger.Named("event_listener"),
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
	el.subscribe = el.dial
	return el
}

func (el *EventListener) dial(ctx context.Context) (logStream, func(), error) {
	client, sub, err := solbc.SubscribeProgramLogs(ctx, el.wsURL, el.program, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, nil, err
	}
	return sub, func() { client.Close() }, nil
}

// Run блокируется до отмены ctx, отправляя события в out. Медленный получатель
// задерживает чтение подписки, события не теряются молча.
func (el *EventListener) Run(ctx context.Context, out chan<- CreateEvent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = el.initialBackoff
	b.MaxInterval = el.maxBackoff
	b.Reset()

	for {
		// После успешной подписки задержка снова начинается с минимальной
		err := el.session(ctx, out, b.Reset)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := b.NextBackOff()
		el.logger.Warn("Log subscription dropped, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", wait))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (el *EventListener) session(ctx context.Context, out chan<- CreateEvent, onSubscribed func()) error {
	stream, closeConn, err := el.subscribe(ctx)
	if err != nil {
		return err
	}
	// Закрытие подписки освобождает Recv, оставшийся после отмены ctx
	defer closeConn()
	defer stream.Unsubscribe()

	onSubscribed()
	el.logger.Info("Subscribed to program logs", zap.String("program", el.program.String()))

	for {
		res, err := solbc.RecvContext(ctx, stream.Recv)
		if err != nil {
			return fmt.Errorf("receive logs: %w", err)
		}
		if err := el.handle(ctx, res, out); err != nil {
			return err
		}
	}
}

func (el *EventListener) handle(ctx context.Context, res *ws.LogResult, out chan<- CreateEvent) error {
	if res == nil {
		return errors.New("subscription closed")
	}
	// Неуспешные транзакции токен не создают
	if res.Value.Err != nil {
		return nil
	}

	found, errs := ParseCreateEvents(res.Value.Logs)
	for _, err := range errs {
		el.logger.Debug("Skipping undecodable program data",
			zap.String("signature", res.Value.Signature.String()),
			zap.Error(err))
	}

	for _, ev := range found {
		ev.Signature = res.Value.Signature
		ev.Slot = res.Context.Slot

		el.logger.Info("New token detected",
			zap.String("mint", ev.Mint.String()),
			zap.String("symbol", ev.Symbol),
			zap.String("creator", ev.Creator.String()),
			zap.Uint64("slot", ev.Slot))

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

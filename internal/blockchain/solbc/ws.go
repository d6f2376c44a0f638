// internal/blockchain/solbc/ws.go
package solbc

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"
)

// wsConn лениво открывает одно WebSocket-соединение и переоткрывает его после ошибки.
type wsConn struct {
	url    string
	logger *zap.Logger

	mu     sync.Mutex
	client *ws.Client
}

func newWSConn(url string, logger *zap.Logger) *wsConn {
	return &wsConn{url: url, logger: logger}
}

func (w *wsConn) get(ctx context.Context) (*ws.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.client != nil {
		return w.client, nil
	}
	client, err := ws.Connect(ctx, w.url)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	w.client = client
	return client, nil
}

// reset закрывает соединение; следующий вызов get откроет новое.
func (w *wsConn) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
}

func (w *wsConn) close() {
	w.reset()
}

func (w *wsConn) waitSignature(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) (uint64, interface{}, error) {
	client, err := w.get(ctx)
	if err != nil {
		return 0, nil, err
	}

	sub, err := client.SignatureSubscribe(signature, commitment)
	if err != nil {
		w.reset()
		return 0, nil, fmt.Errorf("signature subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	res, err := RecvContext(ctx, sub.Recv)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Debug("Signature subscription dropped", zap.Error(err))
			w.reset()
		}
		return 0, nil, err
	}
	return res.Context.Slot, res.Value.Err, nil
}

// SubscribeProgramLogs открывает подписку logsSubscribe на упоминания программы.
// Соединение принадлежит подписке и закрывается вместе с ней.
func SubscribeProgramLogs(ctx context.Context, wsURL string, program solana.PublicKey, commitment rpc.CommitmentType) (*ws.Client, *ws.LogSubscription, error) {
	client, err := ws.Connect(ctx, wsURL)
	if err != nil {
		return nil, nil, fmt.Errorf("websocket connect: %w", err)
	}
	sub, err := client.LogsSubscribeMentions(program, commitment)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("logs subscribe: %w", err)
	}
	return client, sub, nil
}

// RecvContext ждёт следующего значения подписки, пока не отменён ctx.
// Recv подписки контекст не принимает; после отмены чтение завершается,
// когда вызывающий закроет подписку.
func RecvContext[T any](ctx context.Context, recv func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := recv()
		done <- result{value, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

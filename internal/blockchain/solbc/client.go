// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/blockchain"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc    *rpc.Client
	ws     *wsConn
	logger *zap.Logger
}

// Определение ошибок
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNoWebsocket     = errors.New("websocket endpoint is not configured")
)

// IsAccountNotFoundError проверяет, является ли ошибка "not found"
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rpc.ErrNotFound) || errors.Is(err, ErrAccountNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// NewClient создаёт новый клиент, принимая RPC и WebSocket URL и логгер через dependency injection.
// Пустой wsURL отключает подписки.
func NewClient(rpcURL, wsURL string, logger *zap.Logger) *Client {
	logger = logger.Named("solbc-client")
	c := &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger,
	}
	if wsURL != "" {
		c.ws = newWSConn(wsURL, logger)
	}
	return c
}

// GetLatestBlockhash получает свежий blockhash вместе с высотой его истечения.
func (c *Client) GetLatestBlockhash(ctx context.Context) (blockchain.Anchor, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return blockchain.Anchor{}, err
	}
	if result == nil || result.Value == nil {
		return blockchain.Anchor{}, errors.New("empty GetLatestBlockhash response")
	}
	return blockchain.Anchor{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// GetAccountInfo получает информацию об аккаунте.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetSignatureStatuses получает статусы транзакций.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	if err != nil {
		c.logger.Warn("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
// Повторы отправки выполняет менеджер транзакций, поэтому узлу передаётся MaxRetries=0.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	noRetries := uint(0)
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
		MaxRetries:          &noRetries,
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// SimulateTransaction симулирует транзакцию и возвращает результат симуляции.
// Blockhash не подменяется: симулируется ровно тот конверт, который будет отправлен.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	result, err := c.rpc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:  true,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Error("SimulateTransaction error", zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, errors.New("empty SimulateTransaction response")
	}
	units := uint64(0)
	if result.Value.UnitsConsumed != nil {
		units = *result.Value.UnitsConsumed
	}
	return &blockchain.SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// GetTransactionMeta получает комиссию, ошибку и логи включённой транзакции.
func (c *Client) GetTransactionMeta(ctx context.Context, signature solana.Signature) (*blockchain.TransactionMeta, error) {
	maxVersion := uint64(0)
	result, err := c.rpc.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		c.logger.Debug("GetTransaction error",
			zap.String("signature", signature.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Meta == nil {
		return nil, ErrAccountNotFound
	}
	return &blockchain.TransactionMeta{
		Slot: result.Slot,
		Fee:  result.Meta.Fee,
		Err:  result.Meta.Err,
		Logs: result.Meta.LogMessages,
	}, nil
}

// WaitSignature ожидает уведомление signatureSubscribe по WebSocket.
func (c *Client) WaitSignature(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) (uint64, interface{}, error) {
	if c.ws == nil {
		return 0, nil, ErrNoWebsocket
	}
	return c.ws.waitSignature(ctx, signature, commitment)
}

// Close закрывает WebSocket-соединение, если оно было открыто.
func (c *Client) Close() {
	if c.ws != nil {
		c.ws.close()
	}
}

// Гарантируем, что Client реализует интерфейсы blockchain.
var (
	_ blockchain.Client            = (*Client)(nil)
	_ blockchain.SignatureNotifier = (*Client)(nil)
)

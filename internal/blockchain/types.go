// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// SimulationResult представляет результат симуляции транзакции.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// Anchor - недавний blockhash и высота блока, после которой он истекает.
type Anchor struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// TransactionMeta - итог включённой транзакции.
type TransactionMeta struct {
	Slot uint64
	Fee  uint64
	Err  interface{}
	Logs []string
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	// Получить свежий blockhash с высотой истечения.
	GetLatestBlockhash(ctx context.Context) (Anchor, error)
	// Получить информацию об аккаунте.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	// Получить статусы подписей транзакций.
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	// Отправить транзакцию с опциями.
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	// Симулировать транзакцию.
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error)
	// Получить баланс аккаунта.
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	// Получить итог транзакции (комиссия, ошибка, логи).
	GetTransactionMeta(ctx context.Context, signature solana.Signature) (*TransactionMeta, error)
}

// SignatureNotifier ожидает уведомление о подписи через подписку.
// Возвращает ошибку исполнения (nil при успехе) и слот.
type SignatureNotifier interface {
	WaitSignature(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) (slot uint64, txErr interface{}, err error)
}

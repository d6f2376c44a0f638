// internal/bot/balance.go
package bot

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/types"
)

// BalanceReader - часть RPC-клиента, читающая баланс.
type BalanceReader interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
}

// BalanceGuard проверяет живой баланс кошелька перед каждой сделкой. Значение не кэшируется.
type BalanceGuard struct {
	client BalanceReader
	owner  solana.PublicKey
	logger *zap.Logger
}

// NewBalanceGuard создаёт проверку баланса для кошелька owner.
func NewBalanceGuard(client BalanceReader, owner solana.PublicKey, logger *zap.Logger) *BalanceGuard {
	return &BalanceGuard{
		client: client,
		owner:  owner,
		logger: logger.Named("balance_guard"),
	}
}

// CheckSufficient возвращает true, если после траты required на кошельке останется
// не меньше floor. Вторым значением возвращается прочитанный баланс.
func (g *BalanceGuard) CheckSufficient(ctx context.Context, required, floor uint64) (bool, uint64, error) {
	balance, err := g.client.GetBalance(ctx, g.owner, rpc.CommitmentConfirmed)
	if err != nil {
		return false, 0, &types.TradeError{
			Kind:  types.KindNetworkUnavailable,
			Stage: types.StageBuild,
			Err:   fmt.Errorf("failed to get wallet balance: %w", err),
		}
	}

	need := required + floor
	if need < required {
		need = ^uint64(0)
	}
	ok := balance >= need

	g.logger.Debug("Balance checked",
		zap.Uint64("balance_lamports", balance),
		zap.Uint64("required_lamports", required),
		zap.Uint64("floor_lamports", floor),
		zap.Bool("sufficient", ok))

	return ok, balance, nil
}

// Balance читает текущий баланс кошелька.
func (g *BalanceGuard) Balance(ctx context.Context) (uint64, error) {
	return g.client.GetBalance(ctx, g.owner, rpc.CommitmentConfirmed)
}

package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-sniper/internal/types"
)

func TestSlippageRetry(t *testing.T) {
	r := SlippageRetry{CapBps: 300}
	prev := pumpfun.TradeIntent{Side: pumpfun.SideBuy, SlippageBps: 100, AmountIn: 1}

	slippage := &types.TradeError{Kind: types.KindSlippageExceeded, Stage: types.StageOnChain}
	other := &types.TradeError{Kind: types.KindOnChainFailure, Stage: types.StageOnChain}

	next, ok := r.MaybeRetry(slippage, prev, 1)
	require.True(t, ok)
	assert.Equal(t, uint32(200), next.SlippageBps)
	assert.Equal(t, uint32(100), prev.SlippageBps)

	next, ok = r.MaybeRetry(slippage, next, 1)
	require.True(t, ok)
	assert.Equal(t, uint32(300), next.SlippageBps)

	_, ok = r.MaybeRetry(slippage, prev, 2)
	assert.False(t, ok)

	_, ok = r.MaybeRetry(other, prev, 1)
	assert.False(t, ok)

	_, ok = r.MaybeRetry(errors.New("timeout"), prev, 1)
	assert.False(t, ok)

	assert.Equal(t, RetrySlippageExceeded, r.Classify(wrapped(slippage)))
	assert.Equal(t, RetryOther, r.Classify(other))
}

func wrapped(err error) error {
	return errors.Join(errors.New("trade failed"), err)
}

type fixedBalance struct {
	balance uint64
	err     error
	calls   int
}

func (f *fixedBalance) GetBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (uint64, error) {
	f.calls++
	return f.balance, f.err
}

func TestBalanceGuard(t *testing.T) {
	reader := &fixedBalance{balance: 40_000_000}
	guard := NewBalanceGuard(reader, solana.PublicKey{1}, zap.NewNop())

	ok, balance, err := guard.CheckSufficient(context.Background(), 0, 50_000_000)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(40_000_000), balance)

	reader.balance = 60_000_000
	ok, _, err = guard.CheckSufficient(context.Background(), 10_000_000, 50_000_000)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = guard.CheckSufficient(context.Background(), 10_000_001, 50_000_000)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, reader.calls)

	ok, _, err = guard.CheckSufficient(context.Background(), ^uint64(0), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	reader.err = errors.New("rpc down")
	_, _, err = guard.CheckSufficient(context.Background(), 0, 0)
	assert.ErrorIs(t, err, types.ErrNetworkUnavailable)
}

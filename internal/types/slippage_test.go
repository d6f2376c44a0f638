package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinAmountOut(t *testing.T) {
	tests := []struct {
		name     string
		expected uint64
		bps      uint32
		want     uint64
	}{
		{"zero slippage", 1_000_000, 0, 1_000_000},
		{"one percent", 1_000_000, 100, 990_000},
		{"fifteen percent", 1_000_000, 1500, 850_000},
		{"rounds down", 999, 100, 989},
		{"large amount", 1_000_000_000_000_000, 500, 950_000_000_000_000},
		{"full slippage", 1_000_000, 10_000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MinAmountOut(tt.expected, tt.bps))
		})
	}
}

func TestMaxAmountIn(t *testing.T) {
	assert.Equal(t, uint64(115_000_000), MaxAmountIn(100_000_000, 1500))
	assert.Equal(t, uint64(100_000_000), MaxAmountIn(100_000_000, 0))
	// 101 * 1.01 = 102.01 -> 103
	assert.Equal(t, uint64(103), MaxAmountIn(101, 100))
	assert.Equal(t, ^uint64(0), MaxAmountIn(^uint64(0), 100))
}

func TestDoubleSlippage(t *testing.T) {
	assert.Equal(t, uint32(200), DoubleSlippage(100, 5000))
	assert.Equal(t, uint32(3000), DoubleSlippage(1500, 3000))
	assert.Equal(t, uint32(3000), DoubleSlippage(2000, 3000))
	assert.Equal(t, uint32(3000), DoubleSlippage(3000, 3000))
}

func TestValidateSlippageBps(t *testing.T) {
	require.NoError(t, ValidateSlippageBps(0))
	require.NoError(t, ValidateSlippageBps(9_999))

	err := ValidateSlippageBps(10_000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestTradeErrorMatching(t *testing.T) {
	simSlip := &TradeError{Kind: KindSlippageExceeded, Stage: StageSimulation, Reason: "TooLittleSolReceived"}
	assert.ErrorIs(t, simSlip, ErrSlippageExceeded)
	assert.ErrorIs(t, simSlip, ErrSimulationRejected)
	assert.NotErrorIs(t, simSlip, ErrOnChainFailure)
	assert.True(t, simSlip.Retriable())

	chainSlip := &TradeError{Kind: KindSlippageExceeded, Stage: StageOnChain}
	assert.ErrorIs(t, chainSlip, ErrOnChainFailure)
	assert.NotErrorIs(t, chainSlip, ErrSimulationRejected)

	timeout := &TradeError{Kind: KindSubmissionTimeout, Stage: StageSubmission}
	assert.ErrorIs(t, timeout, ErrSubmissionTimeout)
	assert.False(t, timeout.Retriable())

	wrapped := fmt.Errorf("execute: %w", timeout)
	assert.Equal(t, KindSubmissionTimeout, KindOf(wrapped))
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))

	cause := errors.New("connection refused")
	netErr := &TradeError{Kind: KindNetworkUnavailable, Stage: StageSubmission, Err: cause}
	assert.ErrorIs(t, netErr, cause)
	assert.Contains(t, netErr.Error(), "network_unavailable at submission")
}

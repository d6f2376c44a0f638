package transaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-sniper/internal/blockchain"
	"github.com/rovshanmuradov/solana-sniper/internal/blockchain/blockchaintest"
	"github.com/rovshanmuradov/solana-sniper/internal/types"
	"github.com/rovshanmuradov/solana-sniper/internal/wallet"
)

var testProgram = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

func testConfig() Config {
	return Config{
		MaxRetries:          2,
		ConfirmationTimeout: 200 * time.Millisecond,
		PollInterval:        5 * time.Millisecond,
		MaxPollInterval:     20 * time.Millisecond,
	}
}

func newSigner(t *testing.T) *wallet.Wallet {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := wallet.NewWallet(key.String())
	require.NoError(t, err)
	return w
}

func testInstruction(payer solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(testProgram, solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
	}, []byte{1, 2, 3})
}

type harness struct {
	client    *blockchaintest.FakeClient
	assembler *Assembler
	manager   *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	client := blockchaintest.NewFakeClient()
	return &harness{
		client:    client,
		assembler: NewAssembler(newSigner(t), 0, logger),
		manager:   NewManager(client, nil, nil, NewMetrics(prometheus.NewRegistry()), testConfig(), logger),
	}
}

func (h *harness) simulated(t *testing.T, priorityFee uint64) *Simulated {
	t.Helper()
	ctx := context.Background()
	anchor, err := h.manager.LatestAnchor(ctx)
	require.NoError(t, err)
	signed, err := h.assembler.Assemble([]solana.Instruction{testInstruction(h.assembler.FeePayer())}, priorityFee, anchor)
	require.NoError(t, err)
	sim, err := h.manager.Simulate(ctx, h.manager.Begin(), signed)
	require.NoError(t, err)
	return sim
}

func TestAssemblerPrependsPriorityInstructions(t *testing.T) {
	h := newHarness(t)
	anchor := h.client.Anchor
	ix := []solana.Instruction{testInstruction(h.assembler.FeePayer())}

	signed, err := h.assembler.Assemble(ix, 50_000, anchor)
	require.NoError(t, err)
	assert.Len(t, signed.Tx.Message.Instructions, 3)
	assert.Equal(t, anchor.Blockhash, signed.Tx.Message.RecentBlockhash)
	assert.Equal(t, signed.Tx.Signatures[0], signed.Signature)
	assert.Equal(t, uint64(55_000), signed.EstimatedFee())

	plain, err := h.assembler.Assemble(ix, 0, anchor)
	require.NoError(t, err)
	assert.Len(t, plain.Tx.Message.Instructions, 1)
	assert.Equal(t, uint64(5_000), plain.EstimatedFee())
}

func TestAssemblerRejectsBadInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.assembler.Assemble(nil, 0, h.client.Anchor)
	assert.ErrorIs(t, err, types.ErrMalformedInput)

	_, err = h.assembler.Assemble([]solana.Instruction{testInstruction(h.assembler.FeePayer())}, 0, blockchain.Anchor{})
	assert.ErrorIs(t, err, types.ErrMalformedInput)
}

func TestGateRejectsSlippageWithoutBroadcast(t *testing.T) {
	h := newHarness(t)
	logs := []string{
		"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P invoke [1]",
		"Program log: AnchorError thrown in programs/pump/src/lib.rs:664. Error Code: TooLittleSolReceived. Error Number: 6003. Error Message: Slippage: Too little SOL received to sell the given amount of tokens..",
	}
	h.client.SimResult = blockchain.SimulationResult{
		Err: map[string]interface{}{
			"InstructionError": []interface{}{float64(2), map[string]interface{}{"Custom": float64(6003)}},
		},
		Logs: logs,
	}

	anchor := h.client.Anchor
	signed, err := h.assembler.Assemble([]solana.Instruction{testInstruction(h.assembler.FeePayer())}, 0, anchor)
	require.NoError(t, err)

	attempt := h.manager.Begin()
	sim, err := h.manager.Simulate(context.Background(), attempt, signed)
	require.Error(t, err)
	assert.Nil(t, sim)
	assert.ErrorIs(t, err, types.ErrSlippageExceeded)
	assert.ErrorIs(t, err, types.ErrSimulationRejected)

	var te *types.TradeError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, logs, te.Logs)
	assert.Contains(t, te.Reason, "6003")
	assert.Zero(t, te.FeeLamports)

	assert.Equal(t, StateRejected, attempt.State())
	assert.Zero(t, h.client.SendCalls())
}

func TestGateRejectsGenericFailure(t *testing.T) {
	h := newHarness(t)
	h.client.SimResult = blockchain.SimulationResult{Err: "AccountNotFound"}

	signed, err := h.assembler.Assemble([]solana.Instruction{testInstruction(h.assembler.FeePayer())}, 0, h.client.Anchor)
	require.NoError(t, err)

	_, err = h.manager.Simulate(context.Background(), h.manager.Begin(), signed)
	assert.ErrorIs(t, err, types.ErrSimulationRejected)
	assert.NotErrorIs(t, err, types.ErrSlippageExceeded)
	assert.Equal(t, types.KindSimulationRejected, types.KindOf(err))
}

func TestSubmitConfirmed(t *testing.T) {
	h := newHarness(t)
	h.client.Status = blockchaintest.ConfirmedStatus(42, nil)
	h.client.Meta = &blockchain.TransactionMeta{Slot: 42, Fee: 15_000}

	sim := h.simulated(t, 10_000)
	res, err := h.manager.Submit(context.Background(), sim)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, res.Status)
	assert.Equal(t, uint64(42), res.Slot)
	assert.Equal(t, uint64(15_000), res.FeeLamports)
	assert.False(t, res.FeeEstimated)
	assert.Equal(t, sim.Transaction().Signature, res.Signature)
	assert.Equal(t,
		[]State{StateBuilt, StateSimulated, StateSubmitted, StateConfirmed},
		sim.Attempt().History())
}

func TestSubmitFallsBackToEstimatedFee(t *testing.T) {
	h := newHarness(t)
	h.client.Status = blockchaintest.ConfirmedStatus(7, nil)

	res, err := h.manager.Submit(context.Background(), h.simulated(t, 1_000))
	require.NoError(t, err)
	assert.True(t, res.FeeEstimated)
	assert.Equal(t, uint64(6_000), res.FeeLamports)
}

func TestSubmitFailedOnChainCarriesFee(t *testing.T) {
	h := newHarness(t)
	h.client.Status = blockchaintest.ConfirmedStatus(9, map[string]interface{}{
		"InstructionError": []interface{}{float64(2), map[string]interface{}{"Custom": float64(6002)}},
	})
	h.client.Meta = &blockchain.TransactionMeta{Fee: 5_000, Logs: []string{"Program log: TooMuchSolRequired"}}

	sim := h.simulated(t, 0)
	res, err := h.manager.Submit(context.Background(), sim)
	require.Error(t, err)
	require.NotNil(t, res)

	assert.Equal(t, StatusFailedOnChain, res.Status)
	assert.ErrorIs(t, err, types.ErrSlippageExceeded)
	assert.ErrorIs(t, err, types.ErrOnChainFailure)

	var te *types.TradeError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, types.StageOnChain, te.Stage)
	assert.Equal(t, uint64(5_000), te.FeeLamports)
	assert.Equal(t, StateFailedOnChain, sim.Attempt().State())
}

func TestSubmitTimesOutWithEstimatedFee(t *testing.T) {
	h := newHarness(t)

	sim := h.simulated(t, 20_000)
	start := time.Now()
	res, err := h.manager.Submit(context.Background(), sim)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.ErrorIs(t, err, types.ErrSubmissionTimeout)
	assert.Equal(t, StatusTimedOut, res.Status)
	assert.True(t, res.FeeEstimated)
	assert.Equal(t, uint64(25_000), res.FeeLamports)
	assert.Equal(t, StateTimedOut, sim.Attempt().State())
}

func TestSubmitRetriesBroadcastThenGivesUp(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("connection refused")
	h.client.SendErrs = []error{boom, boom, boom}

	sim := h.simulated(t, 0)
	res, err := h.manager.Submit(context.Background(), sim)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, types.ErrNetworkUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, h.client.SendCalls())
	assert.Equal(t, StateRejected, sim.Attempt().State())
}

func TestSubmitRecoversFromTransientSendError(t *testing.T) {
	h := newHarness(t)
	h.client.SendErrs = []error{errors.New("503 service unavailable")}
	h.client.Status = blockchaintest.ConfirmedStatus(3, nil)

	res, err := h.manager.Submit(context.Background(), h.simulated(t, 0))
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, res.Status)
	assert.Equal(t, 2, h.client.SendCalls())
}

func TestSubmitRejectsUnsimulated(t *testing.T) {
	h := newHarness(t)
	_, err := h.manager.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, types.ErrMalformedInput)

	sim := h.simulated(t, 0)
	h.client.Status = blockchaintest.ConfirmedStatus(1, nil)
	_, err = h.manager.Submit(context.Background(), sim)
	require.NoError(t, err)

	_, err = h.manager.Submit(context.Background(), sim)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, 1, h.client.SendCalls())
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, canTransition(StateBuilt, StateSimulated))
	assert.False(t, canTransition(StateBuilt, StateSubmitted))
	assert.False(t, canTransition(StateConfirmed, StateSubmitted))
	for _, s := range []State{StateConfirmed, StateFailedOnChain, StateTimedOut, StateRejected} {
		assert.True(t, s.Terminal(), s)
	}
	assert.False(t, StateSubmitted.Terminal())
}

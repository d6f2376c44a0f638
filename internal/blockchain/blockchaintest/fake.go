// internal/blockchain/blockchaintest/fake.go

// Package blockchaintest provides an in-memory blockchain.Client for tests.
package blockchaintest

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/solana-sniper/internal/blockchain"
)

// FakeClient is a scriptable blockchain.Client. Func fields take precedence over
// the matching static fields.
type FakeClient struct {
	mu sync.Mutex

	Anchor    blockchain.Anchor
	AnchorErr error

	Accounts map[solana.PublicKey]*rpc.Account

	Balance    uint64
	BalanceErr error

	SimResult    blockchain.SimulationResult
	SimErr       error
	SimulateFunc func(call int, tx *solana.Transaction) (*blockchain.SimulationResult, error)

	// SendErrs[i] is returned by the i-th send; calls past the slice succeed.
	SendErrs []error

	// Status is reported for every signature that was successfully sent.
	Status     *rpc.SignatureStatusesResult
	StatusErr  error
	StatusFunc func(sig solana.Signature) *rpc.SignatureStatusesResult

	Meta     *blockchain.TransactionMeta
	MetaErr  error
	MetaFunc func(sig solana.Signature) (*blockchain.TransactionMeta, error)

	Sent          []*solana.Transaction
	simulateCalls int
	sendCalls     int
	balanceCalls  int
	sentSigs      map[solana.Signature]bool
}

var _ blockchain.Client = (*FakeClient)(nil)

// NewFakeClient returns a client with a non-zero blockhash and a successful simulation.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Anchor: blockchain.Anchor{
			Blockhash:            solana.HashFromBytes([]byte("blockhash-for-tests-000000000000")),
			LastValidBlockHeight: 1_000,
		},
		Accounts: make(map[solana.PublicKey]*rpc.Account),
		sentSigs: make(map[solana.Signature]bool),
	}
}

// ConfirmedStatus builds a confirmed signature status, optionally with an execution error.
func ConfirmedStatus(slot uint64, txErr interface{}) *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{
		Slot:               slot,
		Err:                txErr,
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
	}
}

// SetAccount stores raw account data under pubkey.
func (f *FakeClient) SetAccount(pubkey solana.PublicKey, owner solana.PublicKey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Accounts[pubkey] = &rpc.Account{
		Owner: owner,
		Data:  rpc.DataBytesOrJSONFromBytes(data),
	}
}

// SimulateCalls returns how many simulations were requested.
func (f *FakeClient) SimulateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.simulateCalls
}

// SendCalls returns how many broadcasts were attempted.
func (f *FakeClient) SendCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

// BalanceCalls returns how many balance reads were made.
func (f *FakeClient) BalanceCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceCalls
}

func (f *FakeClient) GetLatestBlockhash(context.Context) (blockchain.Anchor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Anchor, f.AnchorErr
}

func (f *FakeClient) GetAccountInfo(_ context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.Accounts[pubkey]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (f *FakeClient) GetSignatureStatuses(_ context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatusErr != nil {
		return nil, f.StatusErr
	}
	out := &rpc.GetSignatureStatusesResult{
		Value: make([]*rpc.SignatureStatusesResult, len(signatures)),
	}
	for i, sig := range signatures {
		if !f.sentSigs[sig] {
			continue
		}
		if f.StatusFunc != nil {
			out.Value[i] = f.StatusFunc(sig)
		} else {
			out.Value[i] = f.Status
		}
	}
	return out, nil
}

func (f *FakeClient) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ blockchain.TransactionOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.sendCalls
	f.sendCalls++
	if call < len(f.SendErrs) && f.SendErrs[call] != nil {
		return solana.Signature{}, f.SendErrs[call]
	}
	f.Sent = append(f.Sent, tx)
	f.sentSigs[tx.Signatures[0]] = true
	return tx.Signatures[0], nil
}

func (f *FakeClient) SimulateTransaction(_ context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	f.mu.Lock()
	call := f.simulateCalls
	f.simulateCalls++
	fn := f.SimulateFunc
	res, err := f.SimResult, f.SimErr
	f.mu.Unlock()

	if fn != nil {
		return fn(call, tx)
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (f *FakeClient) GetBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls++
	return f.Balance, f.BalanceErr
}

func (f *FakeClient) GetTransactionMeta(_ context.Context, sig solana.Signature) (*blockchain.TransactionMeta, error) {
	f.mu.Lock()
	fn := f.MetaFunc
	meta, err := f.Meta, f.MetaErr
	f.mu.Unlock()

	if fn != nil {
		return fn(sig)
	}
	return meta, err
}

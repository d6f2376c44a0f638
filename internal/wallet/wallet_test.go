package wallet

import (
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(t *testing.T) (*Wallet, solana.PrivateKey) {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := NewWallet(key.String())
	require.NoError(t, err)
	return w, key
}

func TestNewWallet(t *testing.T) {
	w, key := newTestWallet(t)
	assert.Equal(t, key.PublicKey(), w.PublicKey())
	assert.Equal(t, key.PublicKey().String(), w.String())
}

func TestNewWalletRejectsBadKeys(t *testing.T) {
	_, err := NewWallet("0OIl")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "0OIl")

	_, err = NewWallet("3Nxwena6DHMPuCqGz5YbV5QjRYiUDHJmBjRVXixgRvQh")
	assert.ErrorContains(t, err, "invalid private key length")
}

func TestWalletDoesNotLeakSecret(t *testing.T) {
	w, key := newTestWallet(t)
	for _, s := range []string{
		fmt.Sprintf("%v", w),
		fmt.Sprintf("%s", w),
		fmt.Sprintf("%#v", w),
	} {
		assert.NotContains(t, s, key.String())
	}
}

func TestSignTransaction(t *testing.T) {
	w, _ := newTestWallet(t)
	ix := system.NewTransferInstruction(1, w.PublicKey(), solana.SystemProgramID).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(w.PublicKey()))
	require.NoError(t, err)

	require.NoError(t, w.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())
}

func TestSignTransactionRefusesForeignSigner(t *testing.T) {
	w, _ := newTestWallet(t)
	other, _ := newTestWallet(t)
	ix := system.NewTransferInstruction(1, other.PublicKey(), w.PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(w.PublicKey()))
	require.NoError(t, err)

	err = w.SignTransaction(tx)
	assert.ErrorIs(t, err, ErrSignerMissing)
	assert.Empty(t, tx.Signatures)
}

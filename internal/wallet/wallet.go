// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrSignerMissing возвращается, если транзакция требует подписи другого ключа.
var ErrSignerMissing = errors.New("transaction requires a signature this wallet cannot provide")

// Signer подписывает транзакции локально. Секретный ключ наружу не отдаётся.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// Wallet представляет кошелёк Solana.
type Wallet struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

var _ Signer = (*Wallet)(nil)

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		// исходная ошибка может содержать фрагмент ключа
		return nil, errors.New("failed to decode private key: invalid base58")
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
	}, nil
}

// PublicKey возвращает публичный ключ кошелька.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.publicKey
}

// SignTransaction подписывает транзакцию с помощью приватного ключа кошелька.
// Транзакция, требующая чужих подписей, не подписывается частично.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	signers := tx.Message.Signers()
	for _, key := range signers {
		if !key.Equals(w.publicKey) {
			return fmt.Errorf("%w: %s", ErrSignerMissing, key)
		}
	}

	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.publicKey) {
			return &w.privateKey
		}
		return nil
	})
	return err
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.publicKey.String()
}

// GoString скрывает приватный ключ при форматировании через %#v.
func (w *Wallet) GoString() string {
	return fmt.Sprintf("wallet.Wallet{publicKey: %s}", w.publicKey)
}

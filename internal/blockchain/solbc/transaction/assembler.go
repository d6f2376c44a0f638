// internal/blockchain/solbc/transaction/assembler.go
package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-sniper/internal/blockchain"
	"github.com/rovshanmuradov/solana-sniper/internal/types"
	"github.com/rovshanmuradov/solana-sniper/internal/wallet"
)

// Assembler собирает и подписывает транзакцию из инструкций. Сетевых вызовов не делает:
// blockhash передаётся вызывающей стороной.
type Assembler struct {
	signer       wallet.Signer
	computeUnits uint32
	validator    *Validator
	logger       *zap.Logger
}

// NewAssembler создаёт сборщик транзакций для подписанта.
func NewAssembler(signer wallet.Signer, computeUnits uint32, logger *zap.Logger) *Assembler {
	if computeUnits == 0 {
		computeUnits = types.DefaultComputeUnits
	}
	return &Assembler{
		signer:       signer,
		computeUnits: computeUnits,
		validator:    NewValidator(logger),
		logger:       logger.Named("tx-assembler"),
	}
}

// FeePayer возвращает адрес плательщика комиссии.
func (a *Assembler) FeePayer() solana.PublicKey {
	return a.signer.PublicKey()
}

// Assemble добавляет инструкции compute budget (при ненулевой приоритетной комиссии),
// собирает сообщение на переданном blockhash и подписывает его.
func (a *Assembler) Assemble(
	instructions []solana.Instruction,
	priorityFeeLamports uint64,
	anchor blockchain.Anchor,
) (*SignedTransaction, error) {
	if len(instructions) == 0 {
		return nil, types.MalformedInput("no instructions to assemble")
	}
	if anchor.Blockhash == (solana.Hash{}) {
		return nil, types.MalformedInput("empty blockhash")
	}

	all := types.PriorityInstructions(types.PriorityConfig{
		ComputeUnits: a.computeUnits,
		FeeLamports:  priorityFeeLamports,
	})
	all = append(all, instructions...)

	feePayer := a.signer.PublicKey()
	tx, err := solana.NewTransaction(all, anchor.Blockhash, solana.TransactionPayer(feePayer))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := a.signer.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := a.validator.ValidateTransaction(tx); err != nil {
		return nil, fmt.Errorf("assembled transaction is invalid: %w", err)
	}

	signed := &SignedTransaction{
		Tx:                  tx,
		Anchor:              anchor,
		FeePayer:            feePayer,
		Signature:           tx.Signatures[0],
		PriorityFeeLamports: priorityFeeLamports,
	}

	a.logger.Debug("Transaction assembled",
		zap.String("signature", signed.Signature.String()),
		zap.String("blockhash", anchor.Blockhash.String()),
		zap.Int("instructions", len(all)),
		zap.Uint64("priority_fee_lamports", priorityFeeLamports))

	return signed, nil
}

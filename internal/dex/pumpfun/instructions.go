// ==============================================
// File: internal/dex/pumpfun/instructions.go
// ==============================================
package pumpfun

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-sniper/internal/types"
)

// BuildTradeInstruction builds a buy or sell instruction for the bonding curve program.
// Ограничения проскальзывания вычисляются из intent; аккаунты должны быть получены
// через Deriver для того же минта.
func BuildTradeInstruction(
	intent TradeIntent,
	accounts DerivedAccountSet,
	feeRecipient solana.PublicKey,
	user solana.PublicKey,
) (solana.Instruction, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if !accounts.Mint.Equals(intent.Mint) {
		return nil, types.MalformedInput("account set mint %s does not match intent mint %s", accounts.Mint, intent.Mint)
	}
	if feeRecipient.IsZero() {
		return nil, types.MalformedInput("fee recipient is empty")
	}
	if user.IsZero() {
		return nil, types.MalformedInput("user address is empty")
	}

	limits := intent.ComputeLimits()

	switch intent.Side {
	case SideBuy:
		data := encodeTradeData(BuyDiscriminator, limits.Amount, limits.SolLimit)
		return solana.NewInstruction(accounts.Program, buyAccountMetas(accounts, feeRecipient, user), data), nil
	default:
		data := encodeTradeData(SellDiscriminator, limits.Amount, limits.SolLimit)
		return solana.NewInstruction(accounts.Program, sellAccountMetas(accounts, feeRecipient, user), data), nil
	}
}

// encodeTradeData: discriminator + amount (LE u64) + SOL limit (LE u64).
func encodeTradeData(discriminator []byte, amount, solLimit uint64) []byte {
	data := make([]byte, 0, tradeDataLength)
	data = append(data, discriminator...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = binary.LittleEndian.AppendUint64(data, solLimit)
	return data
}

// Account list must be in the exact order expected by the program
func buyAccountMetas(a DerivedAccountSet, feeRecipient, user solana.PublicKey) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		{PublicKey: a.GlobalConfig, IsSigner: false, IsWritable: false},
		{PublicKey: feeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: a.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: a.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: a.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: a.AssociatedUserTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: user, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: a.CreatorVault, IsSigner: false, IsWritable: true},
		{PublicKey: a.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: a.Program, IsSigner: false, IsWritable: false},
	}
}

// Sell differs from buy only in creator vault position
func sellAccountMetas(a DerivedAccountSet, feeRecipient, user solana.PublicKey) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		{PublicKey: a.GlobalConfig, IsSigner: false, IsWritable: false},
		{PublicKey: feeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: a.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: a.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: a.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: a.AssociatedUserTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: user, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: a.CreatorVault, IsSigner: false, IsWritable: true},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: a.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: a.Program, IsSigner: false, IsWritable: false},
	}
}

// BuildCreateATAIdempotentInstruction creates the user's token account if it does not exist yet.
func BuildCreateATAIdempotentInstruction(payer, owner, mint solana.PublicKey) (solana.Instruction, error) {
	ata, err := Derive(mint, RoleAssociatedTokenAccount(owner))
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(
		AssociatedTokenProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // CreateIdempotent
	), nil
}

// =============================
// File: internal/dex/pumpfun/config.go
// =============================
package pumpfun

import (
	"github.com/gagliardetto/solana-go"
)

// Known PumpFun protocol addresses
var (
	// Program ID for Pump.fun protocol
	PumpFunProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// AssociatedTokenProgramID is the SPL associated token account program
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
)

// PDA seeds used by the bonding curve program
var (
	seedGlobal         = []byte("global")
	seedBondingCurve   = []byte("bonding-curve")
	seedCreatorVault   = []byte("creator-vault")
	seedEventAuthority = []byte("__event_authority")
)

// Anchor discriminators: sha256("global:<name>")[:8]
var (
	BuyDiscriminator  = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	SellDiscriminator = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

// Token and SOL decimals on the bonding curve
const (
	TokenDecimals    = 6
	LamportsPerSol   = solana.LAMPORTS_PER_SOL
	tradeDataLength  = 24
	globalDataLength = 8 + 1 + 32 + 32 + 5*8
)

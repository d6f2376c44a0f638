// Package pumpfun builds trade instructions for the Pump.fun bonding curve program on Solana.
//
// This package provides:
// - Deterministic derivation of program addresses (bonding curve, creator vault, token accounts).
// - Encoding of buy and sell instructions with slippage limits.
// - Reading the global config account (fee recipient, fee basis points).
// - Quoting expected trade output from bonding curve virtual reserves.
//
// Key Types and Functions:
//
// - Derive(), Deriver: address derivation for a mint and role, cached per process.
// - TradeIntent: immutable description of one trade attempt.
// - BuildTradeInstruction(): buy/sell instruction in the exact account order the program expects.
// - FeeRecipientResolver: fee recipient read from the global account.
// - CurveQuoter: expected output from the current bonding curve state.
//
// Usage example:
//
//	deriver := pumpfun.NewDeriver(solana.PublicKey{})
//	accounts, err := deriver.Accounts(mint, creator, wallet.PublicKey())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	feeRecipient, err := resolver.FeeRecipient(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ix, err := pumpfun.BuildTradeInstruction(intent, accounts, feeRecipient, wallet.PublicKey())
package pumpfun

// =============================
// File: internal/dex/pumpfun/types.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-sniper/internal/types"
)

// Side - направление сделки.
type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// TradeIntent описывает одну торговую попытку. Значение неизменяемо:
// повтор создаёт новый экземпляр через WithSlippage.
//
// Для покупки AmountIn - лампорты, ExpectedOutput - токены.
// Для продажи AmountIn - токены, ExpectedOutput - лампорты.
type TradeIntent struct {
	Side                Side
	Mint                solana.PublicKey
	Creator             solana.PublicKey
	AmountIn            uint64
	ExpectedOutput      uint64
	SlippageBps         uint32
	PriorityFeeLamports uint64
}

// WithSlippage возвращает копию намерения с другим допуском проскальзывания.
func (i TradeIntent) WithSlippage(bps uint32) TradeIntent {
	i.SlippageBps = bps
	return i
}

// Validate проверяет предусловия построения инструкции.
func (i TradeIntent) Validate() error {
	if i.Side != SideBuy && i.Side != SideSell {
		return types.MalformedInput("unknown trade side %d", int(i.Side))
	}
	if i.Mint.IsZero() {
		return types.MalformedInput("mint address is empty")
	}
	if i.Creator.IsZero() {
		return types.MalformedInput("creator address is empty")
	}
	if i.AmountIn == 0 {
		return types.MalformedInput("trade amount must be positive")
	}
	return types.ValidateSlippageBps(i.SlippageBps)
}

// Limits - пара ограничений, записываемая в данные инструкции.
type Limits struct {
	// Amount - количество токенов (минимум при покупке, точное при продаже)
	Amount uint64
	// SolLimit - max_sol_cost при покупке или min_sol_output при продаже
	SolLimit uint64
}

// ComputeLimits переводит намерение в ограничения инструкции.
func (i TradeIntent) ComputeLimits() Limits {
	if i.Side == SideBuy {
		return Limits{
			Amount:   types.MinAmountOut(i.ExpectedOutput, i.SlippageBps),
			SolLimit: types.MaxAmountIn(i.AmountIn, i.SlippageBps),
		}
	}
	return Limits{
		Amount:   i.AmountIn,
		SolLimit: types.MinAmountOut(i.ExpectedOutput, i.SlippageBps),
	}
}

// MaxSolSpend - верхняя граница SOL, которые может списать инструкция.
func (i TradeIntent) MaxSolSpend() uint64 {
	if i.Side == SideBuy {
		return types.MaxAmountIn(i.AmountIn, i.SlippageBps)
	}
	return 0
}

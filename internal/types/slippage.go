// internal/types/slippage.go
package types

import (
	"github.com/shopspring/decimal"
)

// BpsDenominator - 100% в базисных пунктах.
const BpsDenominator = 10_000

var bpsDenominator = decimal.NewFromInt(BpsDenominator)

// ValidateSlippageBps проверяет, что значение допустимо для ограничения сделки.
func ValidateSlippageBps(bps uint32) error {
	if bps >= BpsDenominator {
		return MalformedInput("slippage %d bps must be below %d", bps, BpsDenominator)
	}
	return nil
}

// MinAmountOut вычисляет минимально допустимый выход:
// floor(expected * (10000 - bps) / 10000).
func MinAmountOut(expected uint64, bps uint32) uint64 {
	if bps >= BpsDenominator {
		return 0
	}
	factor := decimal.NewFromInt(int64(BpsDenominator - bps))
	return decimal.NewFromUint64(expected).
		Mul(factor).
		Div(bpsDenominator).
		Floor().
		BigInt().
		Uint64()
}

// MaxAmountIn вычисляет максимально допустимую стоимость входа:
// ceil(amount * (10000 + bps) / 10000).
func MaxAmountIn(amount uint64, bps uint32) uint64 {
	factor := decimal.NewFromInt(int64(BpsDenominator) + int64(bps))
	result := decimal.NewFromUint64(amount).
		Mul(factor).
		Div(bpsDenominator).
		Ceil()
	if !result.BigInt().IsUint64() {
		return ^uint64(0)
	}
	return result.BigInt().Uint64()
}

// DoubleSlippage удваивает допуск, не превышая потолок.
func DoubleSlippage(bps, capBps uint32) uint32 {
	doubled := uint64(bps) * 2
	if doubled > uint64(capBps) {
		return capBps
	}
	return uint32(doubled)
}

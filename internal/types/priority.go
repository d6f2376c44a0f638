package types

import (
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// DefaultComputeUnits - лимит вычислительных единиц для одной сделки на bonding curve.
const DefaultComputeUnits uint32 = 100_000

// microLamportsPerLamport переводит лампорты в микро-лампорты.
const microLamportsPerLamport = 1_000_000

// PriorityConfig описывает бюджет вычислений одной транзакции.
type PriorityConfig struct {
	ComputeUnits uint32 // Лимит вычислительных единиц
	FeeLamports  uint64 // Итоговая приоритетная комиссия в лампортах
}

// UnitPrice переводит общую приоритетную комиссию в цену одной CU (micro-lamports).
func (c PriorityConfig) UnitPrice() uint64 {
	units := c.ComputeUnits
	if units == 0 {
		units = DefaultComputeUnits
	}
	return c.FeeLamports * microLamportsPerLamport / uint64(units)
}

// PriorityInstructions возвращает инструкции compute budget.
// При нулевой комиссии список пуст.
func PriorityInstructions(cfg PriorityConfig) []solana.Instruction {
	if cfg.FeeLamports == 0 {
		return nil
	}
	units := cfg.ComputeUnits
	if units == 0 {
		units = DefaultComputeUnits
	}
	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(units).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(cfg.UnitPrice()).Build(),
	}
}

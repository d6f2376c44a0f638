// internal/budget/governor.go
package budget

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/solana-sniper/internal/types"
)

// LedgerSnapshot - согласованный срез учёта комиссий.
type LedgerSnapshot struct {
	TotalFeesLamports       uint64  `json:"total_fees_lamports"`
	StartingCapitalLamports uint64  `json:"starting_capital_lamports"`
	LimitFraction           float64 `json:"limit_fraction"`
	BudgetLamports          uint64  `json:"budget_lamports"`
	Halted                  bool    `json:"halted"`
}

// Governor накапливает комиссии за процесс и останавливает торговлю, когда сумма
// превышает долю стартового капитала. Остановка не сбрасывается до перезапуска.
type Governor struct {
	mu              sync.Mutex
	total           uint64
	startingCapital uint64
	limitFraction   decimal.Decimal
	budget          uint64
	halted          bool
	onHalt          func(LedgerSnapshot)
}

// NewGovernor создаёт учёт для стартового капитала и доли лимита (0.02 = 2%).
func NewGovernor(startingCapitalLamports uint64, limitFraction float64) (*Governor, error) {
	if limitFraction <= 0 || limitFraction > 1 {
		return nil, types.MalformedInput("fee limit fraction must be in (0, 1], got %v", limitFraction)
	}

	fraction := decimal.NewFromFloat(limitFraction)
	budget := decimal.NewFromUint64(startingCapitalLamports).Mul(fraction).Floor()

	return &Governor{
		startingCapital: startingCapitalLamports,
		limitFraction:   fraction,
		budget:          budget.BigInt().Uint64(),
	}, nil
}

// OnHalt регистрирует обработчик перехода в остановку. Вызывается ровно один раз,
// вне блокировки.
func (g *Governor) OnHalt(fn func(LedgerSnapshot)) {
	g.mu.Lock()
	g.onHalt = fn
	g.mu.Unlock()
}

// RecordFee добавляет комиссию попытки, дошедшей до отправки, и возвращает
// признак остановки после записи.
func (g *Governor) RecordFee(lamports uint64) bool {
	g.mu.Lock()
	if g.total > ^uint64(0)-lamports {
		g.total = ^uint64(0)
	} else {
		g.total += lamports
	}

	justHalted := false
	if !g.halted && g.total > g.budget {
		g.halted = true
		justHalted = true
	}
	halted := g.halted
	snap := g.snapshotLocked()
	fn := g.onHalt
	g.mu.Unlock()

	if justHalted && fn != nil {
		fn(snap)
	}
	return halted
}

// IsHalted сообщает, остановлена ли торговля.
func (g *Governor) IsHalted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.halted
}

// Authorize разрешает следующую сделку. Единственная точка принятия решения об остановке.
func (g *Governor) Authorize() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.halted {
		return fmt.Errorf("%w: spent %d of %d lamports", types.ErrTradingHalted, g.total, g.budget)
	}
	return nil
}

// Snapshot возвращает текущие значения учёта.
func (g *Governor) Snapshot() LedgerSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Governor) snapshotLocked() LedgerSnapshot {
	f, _ := g.limitFraction.Float64()
	return LedgerSnapshot{
		TotalFeesLamports:       g.total,
		StartingCapitalLamports: g.startingCapital,
		LimitFraction:           f,
		BudgetLamports:          g.budget,
		Halted:                  g.halted,
	}
}

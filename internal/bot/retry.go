// internal/bot/retry.go
package bot

import (
	"errors"

	"github.com/rovshanmuradov/solana-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-sniper/internal/types"
)

// RetryClass - категория отказа для решения о повторе.
type RetryClass int

const (
	RetryOther RetryClass = iota
	RetrySlippageExceeded
)

func (c RetryClass) String() string {
	if c == RetrySlippageExceeded {
		return "slippage_exceeded"
	}
	return "other"
}

// SlippageRetry повторяет сделку один раз с удвоенным допуском, если отказ вызван
// проскальзыванием.
type SlippageRetry struct {
	CapBps uint32
}

// Classify относит ошибку симуляции или исполнения к одной из категорий.
func (r SlippageRetry) Classify(err error) RetryClass {
	if errors.Is(err, types.ErrSlippageExceeded) {
		return RetrySlippageExceeded
	}
	return RetryOther
}

// MaybeRetry возвращает новое намерение для повтора. attempt - номер неудачной
// попытки начиная с 1; повтор разрешён только после первой.
func (r SlippageRetry) MaybeRetry(err error, prev pumpfun.TradeIntent, attempt int) (pumpfun.TradeIntent, bool) {
	if attempt != 1 || r.Classify(err) != RetrySlippageExceeded {
		return pumpfun.TradeIntent{}, false
	}

	return prev.WithSlippage(types.DoubleSlippage(prev.SlippageBps, r.CapBps)), true
}

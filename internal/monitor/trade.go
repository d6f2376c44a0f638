package monitor

import (
	"time"
)

// Status - терминальный исход торговой попытки.
type Status string

const (
	StatusConfirmed     Status = "confirmed"
	StatusFailedOnChain Status = "failed_on_chain"
	StatusTimedOut      Status = "timed_out"
	// StatusRejected - отказ до отправки (симуляция, сеть, некорректный ввод), комиссии нет
	StatusRejected Status = "rejected"
	// StatusRefused - сделка не начиналась: недостаточный баланс или остановка по бюджету
	StatusRefused Status = "refused"
)

// Outcome represents the terminal result of one trade, including its retry.
type Outcome struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	Wallet         string        `json:"wallet"`
	Mint           string        `json:"mint"`
	Action         string        `json:"action"` // "buy" or "sell"
	Status         Status        `json:"status"`
	AmountIn       uint64        `json:"amount_in"`
	ExpectedOutput uint64        `json:"expected_output"`
	SlippageBps    uint32        `json:"slippage_bps"`
	Signature      string        `json:"signature,omitempty"`
	Slot           uint64        `json:"slot,omitempty"`
	FeeLamports    uint64        `json:"fee_lamports"`
	FeeEstimated   bool          `json:"fee_estimated,omitempty"`
	Attempts       int           `json:"attempts"`
	ErrorKind      string        `json:"error_kind,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Success reports whether the trade confirmed without an execution error.
func (o *Outcome) Success() bool {
	return o.Status == StatusConfirmed
}

// Submitted reports whether any attempt of the trade reached the network.
func (o *Outcome) Submitted() bool {
	switch o.Status {
	case StatusConfirmed, StatusFailedOnChain, StatusTimedOut:
		return true
	}
	return false
}

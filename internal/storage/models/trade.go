// internal/storage/models/trade.go
package models

import (
	"time"

	"github.com/rovshanmuradov/solana-sniper/internal/monitor"
)

type Trade struct {
	BaseModel
	OutcomeID      string `gorm:"uniqueIndex;not null;type:varchar(36)"`
	WalletAddress  string `gorm:"index;not null;type:varchar(44)"`
	Mint           string `gorm:"index;not null;type:varchar(44)"`
	Action         string `gorm:"not null;type:varchar(8)"`
	Status         string `gorm:"index;not null;type:varchar(20)"`
	Signature      string `gorm:"type:varchar(88)"`
	Slot           uint64
	AmountIn       uint64 `gorm:"not null"`
	ExpectedOutput uint64
	SlippageBps    uint32
	FeeLamports    uint64 `gorm:"not null;default:0"`
	FeeEstimated   bool
	Attempts       int
	ErrorKind      string `gorm:"type:varchar(32)"`
	ErrorMessage   string `gorm:"type:text"`
	ExecutionTime  float64
	ExecutedAt     time.Time `gorm:"index;not null"`
}

// FromOutcome переводит исход сделки в строку журнала.
func FromOutcome(o monitor.Outcome) *Trade {
	return &Trade{
		OutcomeID:      o.ID,
		WalletAddress:  o.Wallet,
		Mint:           o.Mint,
		Action:         o.Action,
		Status:         string(o.Status),
		Signature:      o.Signature,
		Slot:           o.Slot,
		AmountIn:       o.AmountIn,
		ExpectedOutput: o.ExpectedOutput,
		SlippageBps:    o.SlippageBps,
		FeeLamports:    o.FeeLamports,
		FeeEstimated:   o.FeeEstimated,
		Attempts:       o.Attempts,
		ErrorKind:      o.ErrorKind,
		ErrorMessage:   o.Reason,
		ExecutionTime:  o.Duration.Seconds(),
		ExecutedAt:     o.Timestamp,
	}
}

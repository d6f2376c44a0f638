// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/solana-sniper/internal/blockchain"
)

var (
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
	ErrInvalidBlockhash    = errors.New("invalid blockhash")
	ErrInvalidInstruction  = errors.New("invalid instruction")
	ErrIllegalTransition   = errors.New("illegal attempt state transition")
)

// Базовая комиссия за подпись в лампортах.
const baseFeePerSignature = 5_000

type Config struct {
	// MaxRetries - число повторов отправки при сетевых ошибках
	MaxRetries int
	// ConfirmationTimeout - верхняя граница ожидания подтверждения
	ConfirmationTimeout time.Duration
	// PollInterval - начальный интервал опроса статуса, растёт экспоненциально
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	ComputeUnits    uint32
	Commitment      rpc.CommitmentType
}

// DefaultConfig returns settings matching a 60s confirmation window.
func DefaultConfig() Config {
	return Config{
		MaxRetries:          3,
		ConfirmationTimeout: 60 * time.Second,
		PollInterval:        500 * time.Millisecond,
		MaxPollInterval:     4 * time.Second,
		ComputeUnits:        100_000,
		Commitment:          rpc.CommitmentConfirmed,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.ConfirmationTimeout <= 0 {
		c.ConfirmationTimeout = d.ConfirmationTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxPollInterval < c.PollInterval {
		c.MaxPollInterval = c.PollInterval * 8
	}
	if c.ComputeUnits == 0 {
		c.ComputeUnits = d.ComputeUnits
	}
	if c.Commitment == "" {
		c.Commitment = d.Commitment
	}
	return c
}

// State - состояние торговой попытки.
type State string

const (
	StateBuilt         State = "built"
	StateSimulated     State = "simulated"
	StateSubmitted     State = "submitted"
	StateConfirmed     State = "confirmed"
	StateFailedOnChain State = "failed_on_chain"
	StateTimedOut      State = "timed_out"
	StateRejected      State = "rejected"
)

// Допустимые переходы. Confirmed, FailedOnChain, TimedOut и Rejected терминальны.
var transitions = map[State][]State{
	StateBuilt:     {StateSimulated, StateRejected},
	StateSimulated: {StateSubmitted, StateRejected},
	StateSubmitted: {StateConfirmed, StateFailedOnChain, StateTimedOut},
}

// Terminal сообщает, что из состояния нет переходов.
func (s State) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Status - итог подтверждения.
type Status string

const (
	StatusConfirmed     Status = "confirmed"
	StatusFailedOnChain Status = "failed_on_chain"
	StatusTimedOut      Status = "timed_out"
)

// ConfirmationResult - итог попытки, достигшей состояния Submitted.
type ConfirmationResult struct {
	Status      Status
	Signature   solana.Signature
	Slot        uint64
	FeeLamports uint64
	// FeeEstimated - комиссия не получена из сети и рассчитана по составу транзакции
	FeeEstimated bool
	Reason       string
	Logs         []string
	Duration     time.Duration
}

// SignedTransaction - подписанный конверт одной попытки. Не переиспользуется между попытками.
type SignedTransaction struct {
	Tx                  *solana.Transaction
	Anchor              blockchain.Anchor
	FeePayer            solana.PublicKey
	Signature           solana.Signature
	PriorityFeeLamports uint64
}

// EstimatedFee - комиссия, которую сеть спишет при включении транзакции.
func (s *SignedTransaction) EstimatedFee() uint64 {
	sigs := uint64(len(s.Tx.Signatures))
	if sigs == 0 {
		sigs = 1
	}
	return sigs*baseFeePerSignature + s.PriorityFeeLamports
}

// Simulated - конверт, успешно прошедший симуляцию. Создаётся только Gate.Simulate;
// Manager.Submit принимает только его.
type Simulated struct {
	attempt *Attempt
	tx      *SignedTransaction
	Result  blockchain.SimulationResult
}

// Transaction возвращает подписанный конверт.
func (s *Simulated) Transaction() *SignedTransaction {
	return s.tx
}

// Attempt возвращает попытку, к которой относится конверт.
func (s *Simulated) Attempt() *Attempt {
	return s.attempt
}

func illegalTransition(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

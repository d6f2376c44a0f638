// internal/types/errors.go
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Базовые категории ошибок торгового ядра. Сравнивать через errors.Is.
var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrSimulationRejected  = errors.New("simulation rejected")
	ErrSlippageExceeded    = errors.New("slippage exceeded")
	ErrOnChainFailure      = errors.New("on-chain execution failure")
	ErrSubmissionTimeout   = errors.New("submission timeout")
	ErrNetworkUnavailable  = errors.New("network unavailable")
	ErrTradingHalted       = errors.New("trading halted: fee budget exhausted")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// ErrorKind классифицирует исход неудачной торговой попытки.
type ErrorKind int

const (
	KindMalformedInput ErrorKind = iota + 1
	KindSimulationRejected
	KindSlippageExceeded
	KindOnChainFailure
	KindSubmissionTimeout
	KindNetworkUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed_input"
	case KindSimulationRejected:
		return "simulation_rejected"
	case KindSlippageExceeded:
		return "slippage_exceeded"
	case KindOnChainFailure:
		return "on_chain_failure"
	case KindSubmissionTimeout:
		return "submission_timeout"
	case KindNetworkUnavailable:
		return "network_unavailable"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindMalformedInput:
		return ErrMalformedInput
	case KindSimulationRejected:
		return ErrSimulationRejected
	case KindSlippageExceeded:
		return ErrSlippageExceeded
	case KindOnChainFailure:
		return ErrOnChainFailure
	case KindSubmissionTimeout:
		return ErrSubmissionTimeout
	case KindNetworkUnavailable:
		return ErrNetworkUnavailable
	default:
		return nil
	}
}

// Stage указывает, на каком этапе конвейера возникла ошибка.
type Stage string

const (
	StageBuild      Stage = "build"
	StageSimulation Stage = "simulation"
	StageSubmission Stage = "submission"
	StageOnChain    Stage = "on_chain"
)

// TradeError описывает неудачную попытку сделки.
// Reason и Logs сохраняются дословно в том виде, в каком их вернул узел.
type TradeError struct {
	Kind        ErrorKind
	Stage       Stage
	Reason      string
	Logs        []string
	Signature   string
	FeeLamports uint64
	Err         error
}

func (e *TradeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s", e.Kind, e.Stage)
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать TradeError с базовыми категориями.
// Проскальзывание на этапе симуляции также считается отказом симуляции.
func (e *TradeError) Is(target error) bool {
	if target == e.Kind.sentinel() {
		return true
	}
	if e.Kind == KindSlippageExceeded {
		switch e.Stage {
		case StageSimulation:
			return target == ErrSimulationRejected
		case StageOnChain:
			return target == ErrOnChainFailure
		}
	}
	return false
}

// Retriable сообщает, допускает ли ошибка повтор с изменёнными параметрами.
func (e *TradeError) Retriable() bool {
	return e.Kind == KindSlippageExceeded
}

// MalformedInput оборачивает нарушение предусловия.
func MalformedInput(format string, args ...interface{}) error {
	return &TradeError{
		Kind:   KindMalformedInput,
		Stage:  StageBuild,
		Reason: fmt.Sprintf(format, args...),
	}
}

// KindOf извлекает ErrorKind из цепочки ошибок. Ноль, если это не TradeError.
func KindOf(err error) ErrorKind {
	var te *TradeError
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}

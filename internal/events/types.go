// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Attempt lifecycle
	AttemptTransition EventType = "attempt.transition"

	// Trade outcomes
	TradeCompleted EventType = "trade.completed"
	TradeRetried   EventType = "trade.retried"

	// Safety governance
	TradingHalted  EventType = "trading.halted"
	BalanceRefused EventType = "balance.refused"
	ConfigUpdated  EventType = "config.updated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase заполняет тип и время события.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TransitionEvent - переход торговой попытки между состояниями.
type TransitionEvent struct {
	BaseEvent
	AttemptID string
	From      string
	To        string
	Signature string
}

// OutcomeEvent - терминальный итог сделки.
type OutcomeEvent struct {
	BaseEvent
	OutcomeID   string
	Action      string
	Mint        string
	Status      string
	Signature   string
	FeeLamports uint64
	SlippageBps uint32
	Reason      string
	Attempts    int
}

// RetryEvent - повтор сделки с увеличенным допуском проскальзывания.
type RetryEvent struct {
	BaseEvent
	Mint            string
	PrevSlippageBps uint32
	NextSlippageBps uint32
}

// HaltEvent - исчерпание дневного бюджета комиссий.
type HaltEvent struct {
	BaseEvent
	TotalFeesLamports       uint64
	BudgetLamports          uint64
	StartingCapitalLamports uint64
}

// BalanceRefusedEvent - отказ от сделки из-за нехватки баланса.
type BalanceRefusedEvent struct {
	BaseEvent
	Mint             string
	BalanceLamports  uint64
	RequiredLamports uint64
	FloorLamports    uint64
}

// ConfigUpdatedEvent - применено обновление торговых параметров.
type ConfigUpdatedEvent struct {
	BaseEvent
	Source string
}

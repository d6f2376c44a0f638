package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBusDeliversByType(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	var outcomes, halts, all int
	bus.SubscribeFunc(TradeCompleted, func(context.Context, Event) error { outcomes++; return nil })
	bus.SubscribeFunc(TradingHalted, func(context.Context, Event) error { halts++; return nil })
	bus.SubscribeAll(HandlerFunc(func(context.Context, Event) error { all++; return nil }))

	bus.Emit(context.Background(), OutcomeEvent{BaseEvent: NewBase(TradeCompleted), Status: "confirmed"})
	bus.Emit(context.Background(), OutcomeEvent{BaseEvent: NewBase(TradeCompleted), Status: "failed"})
	bus.Emit(context.Background(), HaltEvent{BaseEvent: NewBase(TradingHalted)})

	assert.Equal(t, 2, outcomes)
	assert.Equal(t, 1, halts)
	assert.Equal(t, 3, all)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	calls := 0
	sub := bus.SubscribeFunc(TradeCompleted, func(context.Context, Event) error { calls++; return nil })
	wild := bus.SubscribeAll(HandlerFunc(func(context.Context, Event) error { calls++; return nil }))

	sub.Unsubscribe()
	wild.Unsubscribe()
	bus.Emit(context.Background(), OutcomeEvent{BaseEvent: NewBase(TradeCompleted)})

	assert.Zero(t, calls)
	assert.Equal(t, 0, bus.Stats()["wildcard_handlers"])
}

func TestBusPublishSyncReportsHandlerErrors(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))
	bus.SubscribeFunc(TradeCompleted, func(context.Context, Event) error { return errors.New("boom") })

	err := bus.PublishSync(context.Background(), OutcomeEvent{BaseEvent: NewBase(TradeCompleted)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	// Emit проглатывает ошибку обработчика
	bus.Emit(context.Background(), OutcomeEvent{BaseEvent: NewBase(TradeCompleted)})
}

func TestLogHandlerAcceptsAllEvents(t *testing.T) {
	h := NewLogHandler(zaptest.NewLogger(t))
	for _, e := range []Event{
		TransitionEvent{BaseEvent: NewBase(AttemptTransition), From: "built", To: "simulated"},
		OutcomeEvent{BaseEvent: NewBase(TradeCompleted), Reason: "x"},
		RetryEvent{BaseEvent: NewBase(TradeRetried)},
		HaltEvent{BaseEvent: NewBase(TradingHalted)},
		BalanceRefusedEvent{BaseEvent: NewBase(BalanceRefused)},
		ConfigUpdatedEvent{BaseEvent: NewBase(ConfigUpdated)},
	} {
		assert.NoError(t, h.Handle(context.Background(), e))
	}
}

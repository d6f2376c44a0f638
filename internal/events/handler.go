// internal/events/handler.go
package events

import (
	"context"

	"go.uber.org/zap"
)

// Handler processes events of a specific type.
type Handler interface {
	// Handle processes an event. Should not block.
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as event handlers.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription represents a subscription to events.
type Subscription interface {
	// Unsubscribe removes the subscription.
	Unsubscribe()
}

// subscription is the internal implementation of Subscription.
type subscription struct {
	id       string
	eventBus *Bus
	typ      EventType
}

// Unsubscribe removes this subscription from the event bus.
func (s *subscription) Unsubscribe() {
	s.eventBus.unsubscribe(s.id, s.typ)
}

// NewLogHandler пишет каждое событие в структурированный лог. Итоги сделок и остановку
// исполнитель пишет сам, здесь они идут на уровне Debug.
func NewLogHandler(logger *zap.Logger) Handler {
	logger = logger.Named("telemetry")
	return HandlerFunc(func(_ context.Context, event Event) error {
		switch e := event.(type) {
		case TransitionEvent:
			logger.Debug("Attempt state changed",
				zap.String("attempt_id", e.AttemptID),
				zap.String("from", e.From),
				zap.String("to", e.To),
				zap.String("signature", e.Signature))
		case OutcomeEvent:
			fields := []zap.Field{
				zap.String("outcome_id", e.OutcomeID),
				zap.String("action", e.Action),
				zap.String("token", e.Mint),
				zap.String("status", e.Status),
				zap.String("signature", e.Signature),
				zap.Uint64("fee_lamports", e.FeeLamports),
				zap.Uint32("slippage_bps", e.SlippageBps),
				zap.Int("attempts", e.Attempts),
			}
			if e.Reason != "" {
				fields = append(fields, zap.String("reason", e.Reason))
			}
			logger.Debug("Trade outcome event", fields...)
		case RetryEvent:
			logger.Info("Retrying trade with wider slippage",
				zap.String("token", e.Mint),
				zap.Uint32("prev_slippage_bps", e.PrevSlippageBps),
				zap.Uint32("next_slippage_bps", e.NextSlippageBps))
		case HaltEvent:
			logger.Debug("Halt event",
				zap.Uint64("total_fees_lamports", e.TotalFeesLamports),
				zap.Uint64("budget_lamports", e.BudgetLamports))
		case BalanceRefusedEvent:
			logger.Warn("Trade refused: balance below floor",
				zap.String("token", e.Mint),
				zap.Uint64("balance_lamports", e.BalanceLamports),
				zap.Uint64("required_lamports", e.RequiredLamports),
				zap.Uint64("floor_lamports", e.FloorLamports))
		default:
			logger.Debug("Event", zap.String("type", string(event.Type())))
		}
		return nil
	})
}

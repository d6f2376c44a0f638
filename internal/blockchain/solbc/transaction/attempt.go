// internal/blockchain/solbc/transaction/attempt.go
package transaction

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/solana-sniper/internal/events"
)

// Attempt отслеживает состояние одной торговой попытки и сообщает о переходах в sink.
type Attempt struct {
	ID string

	mu        sync.Mutex
	state     State
	signature string
	history   []State
	sink      events.Sink
}

// NewAttempt создаёт попытку в состоянии Built.
func NewAttempt(sink events.Sink) *Attempt {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Attempt{
		ID:      uuid.New().String(),
		state:   StateBuilt,
		history: []State{StateBuilt},
		sink:    sink,
	}
}

// State возвращает текущее состояние.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// History возвращает пройденные состояния по порядку.
func (a *Attempt) History() []State {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]State, len(a.history))
	copy(out, a.history)
	return out
}

func (a *Attempt) setSignature(sig string) {
	a.mu.Lock()
	a.signature = sig
	a.mu.Unlock()
}

func (a *Attempt) advance(ctx context.Context, to State) error {
	a.mu.Lock()
	from := a.state
	if !canTransition(from, to) {
		a.mu.Unlock()
		return illegalTransition(from, to)
	}
	a.state = to
	a.history = append(a.history, to)
	sig := a.signature
	a.mu.Unlock()

	a.sink.Emit(ctx, events.TransitionEvent{
		BaseEvent: events.NewBase(events.AttemptTransition),
		AttemptID: a.ID,
		From:      string(from),
		To:        string(to),
		Signature: sig,
	})
	return nil
}

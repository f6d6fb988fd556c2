package events

import (
	"context"
	"sync"

	"arenawager/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange  EventType = "balance_change"
	EventTypeUserCreated    EventType = "user_created"
	EventTypeOfferCreated   EventType = "offer_created"
	EventTypeOfferAccepted  EventType = "offer_accepted"
	EventTypeMatchStarting  EventType = "match_starting"
	EventTypeCountdownTick  EventType = "countdown_tick"
	EventTypeMatchStarted   EventType = "match_started"
	EventTypeMatchResolved  EventType = "match_resolved"
	EventTypeWagerCancelled EventType = "wager_cancelled"
	EventTypeWagerSettled   EventType = "wager_settled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	ParticipantID   uuid.UUID
	OldBalance      decimal.Decimal
	NewBalance      decimal.Decimal
	TransactionType models.TransactionType
	ChangeAmount    decimal.Decimal
	WagerID         *uuid.UUID
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new wallet account
type UserCreatedEvent struct {
	ParticipantID  uuid.UUID
	Username       string
	InitialBalance decimal.Decimal
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// OfferCreatedEvent is broadcast when a challenger opens a new offer
type OfferCreatedEvent struct {
	WagerID        uuid.UUID
	ChallengerID   uuid.UUID
	ChallengerName string
	Stake          decimal.Decimal
}

func (e OfferCreatedEvent) Type() EventType {
	return EventTypeOfferCreated
}

// OfferAcceptedEvent is published once an opponent is bound and an arena reserved
type OfferAcceptedEvent struct {
	WagerID        uuid.UUID
	ChallengerID   uuid.UUID
	ChallengerName string
	OpponentID     uuid.UUID
	OpponentName   string
	Stake          decimal.Decimal
	ArenaID        string
}

func (e OfferAcceptedEvent) Type() EventType {
	return EventTypeOfferAccepted
}

// MatchStartingEvent is published when both participants are in the arena and frozen
type MatchStartingEvent struct {
	WagerID      uuid.UUID
	Participants []uuid.UUID
	Names        map[uuid.UUID]string
	Stake        decimal.Decimal
	ArenaID      string
	Countdown    int
}

func (e MatchStartingEvent) Type() EventType {
	return EventTypeMatchStarting
}

// CountdownTickEvent carries the seconds left before a match begins
type CountdownTickEvent struct {
	WagerID      uuid.UUID
	Participants []uuid.UUID
	Remaining    int
}

func (e CountdownTickEvent) Type() EventType {
	return EventTypeCountdownTick
}

// MatchStartedEvent is published when participants are released to fight
type MatchStartedEvent struct {
	WagerID      uuid.UUID
	Participants []uuid.UUID
}

func (e MatchStartedEvent) Type() EventType {
	return EventTypeMatchStarted
}

// MatchResolvedEvent is published after the winner has been paid
type MatchResolvedEvent struct {
	Result  models.MatchResult
	ArenaID string
}

func (e MatchResolvedEvent) Type() EventType {
	return EventTypeMatchResolved
}

// WagerCancelledEvent is published after stakes have been refunded
type WagerCancelledEvent struct {
	WagerID      uuid.UUID
	Participants []uuid.UUID
	Reason       string
	Refund       decimal.Decimal
	PriorState   models.WagerState
}

func (e WagerCancelledEvent) Type() EventType {
	return EventTypeWagerCancelled
}

// WagerSettledEvent is published once the arena is released and participants restored
type WagerSettledEvent struct {
	WagerID uuid.UUID
	ArenaID string
}

func (e WagerSettledEvent) Type() EventType {
	return EventTypeWagerSettled
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// SubscribeMany adds the same handler for several event types
func (b *Bus) SubscribeMany(handler Handler, eventTypes ...EventType) {
	for _, eventType := range eventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Publish emits an event outside of any request context
func (b *Bus) Publish(event Event) {
	b.Emit(context.Background(), event)
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	// Handlers run asynchronously so the main loop never waits on presentation
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus to main event bus")

	// Emission must outlive the transaction's context
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

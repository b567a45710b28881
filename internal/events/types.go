// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Price discovery
	QuoteApplied EventType = "quote.applied"

	// Accepted route
	RouteAccepted EventType = "route.accepted"
	RouteCleared  EventType = "route.cleared"
	RouteFailed   EventType = "route.failed"

	// Execution lifecycle
	TransactionStatusChanged EventType = "transaction.status"

	// Form
	PairChanged EventType = "pair.changed"
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

// NewBase stamps an event of type t with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

func (e BaseEvent) Type() EventType {
	return e.EventType
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// QuoteAppliedEvent is emitted when a price quote fills the opposite field.
type QuoteAppliedEvent struct {
	BaseEvent
	Field  string // "input" or "output"
	Amount string
}

// RouteAcceptedEvent is emitted when a new route becomes executable.
type RouteAcceptedEvent struct {
	BaseEvent
	InputMint   string
	OutputMint  string
	InAmount    string
	TotalOut    string
	PriceImpact string
	Hops        int
}

// RouteClearedEvent is emitted when the accepted route is dropped.
type RouteClearedEvent struct {
	BaseEvent
}

// RouteFailedEvent is emitted when a route refresh fails.
type RouteFailedEvent struct {
	BaseEvent
	Error error
}

// TransactionEvent is emitted on every execution state transition.
type TransactionEvent struct {
	BaseEvent
	AttemptID string
	Status    string
	Signature string
	Reason    string
	Error     error
}

// PairChangedEvent is emitted when either token or the direction changes.
type PairChangedEvent struct {
	BaseEvent
	InputMint  string
	OutputMint string
}

// Package events defines domain events that represent significant catalog changes.
// Events are immutable facts about what happened in the past.
//
// SOLID Principles:
// - SRP: Each event type represents one business occurrence
// - OCP: New events can be added without modifying existing code
//
// Pattern: Domain Events + Transactional Outbox
// - Services collect events while a unit of work is open
// - Events are written to the outbox in the same transaction
// - A relay publishes them to the message broker afterwards
package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateType() string
	AggregateID() string // ID of the entity that raised this event
}

// BaseEvent provides common fields for all events.
// Embedded in specific event types to avoid duplication (DRY).
// Fields are unexported so they stay out of the JSON payload.
type BaseEvent struct {
	eventID       uuid.UUID
	eventType     string
	occurredAt    time.Time
	aggregateType string
	aggregateID   string
}

func newBaseEvent(eventType, aggregateType string, aggregateID int) BaseEvent {
	return BaseEvent{
		eventID:       uuid.New(),
		eventType:     eventType,
		occurredAt:    time.Now().UTC(),
		aggregateType: aggregateType,
		aggregateID:   strconv.Itoa(aggregateID),
	}
}

func (e BaseEvent) EventID() uuid.UUID     { return e.eventID }
func (e BaseEvent) EventType() string      { return e.eventType }
func (e BaseEvent) OccurredAt() time.Time  { return e.occurredAt }
func (e BaseEvent) AggregateType() string  { return e.aggregateType }
func (e BaseEvent) AggregateID() string    { return e.aggregateID }

// Aggregate types
const (
	AggregateProduct         = "Product"
	AggregateProductCategory = "ProductCategory"
)

// Event Types (constants for type checking and subject routing)
const (
	EventTypeProductCreated         = "product.created"
	EventTypeProductUpdated         = "product.updated"
	EventTypeProductDeleted         = "product.deleted"
	EventTypeProductCategoryChanged = "product_category.changed"
)

// ===== Product Events =====

// ProductCreated is raised when a product is added to the catalog.
// State is the serializable snapshot of the product at creation time.
type ProductCreated struct {
	BaseEvent
	ProductID int `json:"product_id"`
	State     any `json:"state"`
}

func NewProductCreated(productID int, state any) *ProductCreated {
	return &ProductCreated{
		BaseEvent: newBaseEvent(EventTypeProductCreated, AggregateProduct, productID),
		ProductID: productID,
		State:     state,
	}
}

// ProductUpdated is raised when a partial update touched at least one field.
type ProductUpdated struct {
	BaseEvent
	ProductID     int      `json:"product_id"`
	ChangedFields []string `json:"changed_fields"`
	State         any      `json:"state"`
}

func NewProductUpdated(productID int, changed []string, state any) *ProductUpdated {
	return &ProductUpdated{
		BaseEvent:     newBaseEvent(EventTypeProductUpdated, AggregateProduct, productID),
		ProductID:     productID,
		ChangedFields: changed,
		State:         state,
	}
}

// ProductDeleted is raised when a product is removed.
type ProductDeleted struct {
	BaseEvent
	ProductID int `json:"product_id"`
}

func NewProductDeleted(productID int) *ProductDeleted {
	return &ProductDeleted{
		BaseEvent: newBaseEvent(EventTypeProductDeleted, AggregateProduct, productID),
		ProductID: productID,
	}
}

// ===== Category Events =====

// ProductCategoryChanged is raised when a category row is modified (or created)
// through a product update.
type ProductCategoryChanged struct {
	BaseEvent
	ProductCategoryID int    `json:"product_category_id"`
	Name              string `json:"name"`
	Created           bool   `json:"created"`
	ViaProductID      int    `json:"via_product_id"`
}

func NewProductCategoryChanged(categoryID int, name string, created bool, viaProductID int) *ProductCategoryChanged {
	return &ProductCategoryChanged{
		BaseEvent:         newBaseEvent(EventTypeProductCategoryChanged, AggregateProductCategory, categoryID),
		ProductCategoryID: categoryID,
		Name:              name,
		Created:           created,
		ViaProductID:      viaProductID,
	}
}

// ===== Serialization =====

// Envelope - формат сообщения в outbox и в брокере: метаданные + тело события.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Data          json.RawMessage `json:"data"`
}

// Marshal сериализует событие в Envelope JSON.
func Marshal(event DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
	}
	return json.Marshal(Envelope{
		ID:            event.EventID(),
		Type:          event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		OccurredAt:    event.OccurredAt(),
		Data:          data,
	})
}

// EventStore collects events during a unit of work.
//
// Pattern: collect while mutating, flush into the outbox once before commit.
type EventStore struct {
	events []DomainEvent
}

// NewEventStore creates a new event store.
func NewEventStore() *EventStore {
	return &EventStore{
		events: make([]DomainEvent, 0),
	}
}

// Add appends an event to the store.
func (s *EventStore) Add(event DomainEvent) {
	s.events = append(s.events, event)
}

// GetAll returns all collected events.
func (s *EventStore) GetAll() []DomainEvent {
	return s.events
}

// Clear removes all events from the store.
func (s *EventStore) Clear() {
	s.events = make([]DomainEvent, 0)
}

// Count returns the number of events in the store.
func (s *EventStore) Count() int {
	return len(s.events)
}

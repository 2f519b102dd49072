package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/warehouse-allocator/internal/warehouse"
)

// Event types pushed to WebSocket subscribers.
const (
	EventItemStored      = "item_stored"
	EventItemRemoved     = "item_removed"
	EventStrategyChanged = "strategy_changed"
)

// Event is a warehouse change notification.
type Event struct {
	ID        string              `json:"id"`
	Type      string              `json:"type"`
	Item      *ItemResponse       `json:"item,omitempty"`
	Location  *warehouse.Location `json:"location,omitempty"`
	Strategy  string              `json:"strategy,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

func newEvent(eventType string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// NewItemStoredEvent reports an item placed at its home location.
func NewItemStoredEvent(item warehouse.Item, loc warehouse.Location) Event {
	e := newEvent(EventItemStored)
	resp := NewItemResponse(item)
	e.Item = &resp
	e.Location = &loc
	return e
}

// NewItemRemovedEvent reports an item taken out of its home location.
func NewItemRemovedEvent(item warehouse.Item, loc warehouse.Location) Event {
	e := newEvent(EventItemRemoved)
	resp := NewItemResponse(item)
	e.Item = &resp
	e.Location = &loc
	return e
}

// NewStrategyChangedEvent reports a new allocation strategy.
func NewStrategyChangedEvent(strategy string) Event {
	e := newEvent(EventStrategyChanged)
	e.Strategy = strategy
	return e
}

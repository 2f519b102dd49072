// Package store provides concurrency-safe access to a warehouse.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/vyrodovalexey/warehouse-allocator/internal/model"
	"github.com/vyrodovalexey/warehouse-allocator/internal/warehouse"
)

// Store errors.
var (
	ErrInvalidID = errors.New("invalid item ID")
	ErrNilItem   = errors.New("item cannot be nil")
)

// Listener receives warehouse change events after they are committed.
type Listener func(event model.Event)

// Store defines the warehouse operations exposed to the API layer.
type Store interface {
	// Add places an item and returns its home location.
	Add(ctx context.Context, item *warehouse.Item) (warehouse.Location, error)

	// RemoveAt removes the item covering the location.
	RemoveAt(ctx context.Context, loc warehouse.Location) (warehouse.Placement, error)

	// RemoveByID removes every item with the given ID.
	RemoveByID(ctx context.Context, id uint32) ([]warehouse.Placement, error)

	// Get returns the item covering the location.
	Get(ctx context.Context, loc warehouse.Location) (warehouse.Placement, error)

	// FindByID returns every zone holding items with the given ID.
	FindByID(ctx context.Context, id uint32) ([]warehouse.Location, error)

	// FindByName returns every zone holding items with the given name.
	FindByName(ctx context.Context, name string) ([]warehouse.Location, error)

	// List returns all items sorted by name.
	List(ctx context.Context) ([]warehouse.Placement, error)

	// NearExpiry returns fragile items expiring within days of now.
	NearExpiry(ctx context.Context, now time.Time, days int) ([]warehouse.ExpiryNotice, error)

	// SetStrategy switches the allocation strategy by name.
	SetStrategy(ctx context.Context, name string) error

	// Stats returns occupancy and policy information.
	Stats(ctx context.Context) (warehouse.Stats, error)
}

// Publisher is implemented by stores that emit change events.
type Publisher interface {
	Subscribe(l Listener)
}

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/warehouse-allocator/internal/model"
	"github.com/vyrodovalexey/warehouse-allocator/internal/warehouse"
)

// MemoryStore implements Store on top of a single in-memory warehouse.
// The warehouse itself is single-owner; every call goes through mu.
type MemoryStore struct {
	mu        sync.Mutex
	wh        *warehouse.Warehouse
	logger    *zap.Logger
	listeners []Listener
	lmu       sync.RWMutex
}

// NewMemoryStore wraps wh. A nil logger disables logging.
func NewMemoryStore(wh *warehouse.Warehouse, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &MemoryStore{
		wh:     wh,
		logger: logger,
	}
	recordOccupancy(wh.Stats())

	return s
}

// Subscribe registers a listener for change events.
func (s *MemoryStore) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *MemoryStore) publish(events ...model.Event) {
	s.lmu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.lmu.RUnlock()

	for _, e := range events {
		for _, l := range listeners {
			l(e)
		}
	}
}

// Add places an item and returns its home location.
func (s *MemoryStore) Add(ctx context.Context, item *warehouse.Item) (warehouse.Location, error) {
	select {
	case <-ctx.Done():
		return warehouse.Location{}, fmt.Errorf("add item: %w", ctx.Err())
	default:
	}

	if item == nil {
		return warehouse.Location{}, fmt.Errorf("add item: %w", ErrNilItem)
	}

	s.mu.Lock()
	strategy := s.wh.Strategy().Name()
	loc, err := s.wh.Add(*item)
	stats := s.wh.Stats()
	s.mu.Unlock()

	if err != nil {
		recordRejection(err)
		s.logger.Warn("item not stored",
			zap.Uint32("item_id", item.ID),
			zap.String("name", item.Name),
			zap.String("quality", string(item.Quality.Kind)),
			zap.String("strategy", strategy),
			zap.Error(err),
		)
		return warehouse.Location{}, fmt.Errorf("add item: %w", err)
	}

	recordPlacement(strategy, item.Quality.Kind)
	recordOccupancy(stats)
	s.logger.Info("item stored",
		zap.Uint32("item_id", item.ID),
		zap.String("name", item.Name),
		zap.String("location", loc.String()),
		zap.Int("zones", item.ZoneSpan()),
		zap.String("strategy", strategy),
	)

	s.publish(model.NewItemStoredEvent(*item, loc))

	return loc, nil
}

// RemoveAt removes the item covering the location.
func (s *MemoryStore) RemoveAt(ctx context.Context, loc warehouse.Location) (warehouse.Placement, error) {
	select {
	case <-ctx.Done():
		return warehouse.Placement{}, fmt.Errorf("remove item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	p, found := s.wh.ItemAt(loc)
	_, err := s.wh.RemoveAt(loc)
	stats := s.wh.Stats()
	s.mu.Unlock()

	if err != nil {
		return warehouse.Placement{}, fmt.Errorf("remove item: %w", err)
	}
	if !found {
		panic(fmt.Sprintf("store: removed item at %s that was not visible", loc))
	}

	recordRemovals(1)
	recordOccupancy(stats)
	s.logger.Info("item removed",
		zap.Uint32("item_id", p.Item.ID),
		zap.String("location", p.Location.String()),
	)

	s.publish(model.NewItemRemovedEvent(p.Item, p.Location))

	return p, nil
}

// RemoveByID removes every item with the given ID.
func (s *MemoryStore) RemoveByID(ctx context.Context, id uint32) ([]warehouse.Placement, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("remove items: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	homes := s.homesOf(s.wh.FindByID(id))
	items, err := s.wh.RemoveByID(id)
	stats := s.wh.Stats()
	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("remove items: %w", err)
	}
	if len(homes) != len(items) {
		panic(fmt.Sprintf("store: id %d resolved to %d homes but removed %d items", id, len(homes), len(items)))
	}

	removed := make([]warehouse.Placement, 0, len(items))
	events := make([]model.Event, 0, len(items))
	for i, item := range items {
		removed = append(removed, warehouse.Placement{Item: item, Location: homes[i]})
		events = append(events, model.NewItemRemovedEvent(item, homes[i]))
	}

	recordRemovals(len(removed))
	recordOccupancy(stats)
	s.logger.Info("items removed by id",
		zap.Uint32("item_id", id),
		zap.Int("count", len(removed)),
	)

	s.publish(events...)

	return removed, nil
}

// homesOf returns the distinct home locations behind locs in proximity
// order. Callers must hold mu.
func (s *MemoryStore) homesOf(locs []warehouse.Location) []warehouse.Location {
	seen := make(map[warehouse.Location]bool)
	var homes []warehouse.Location
	for _, loc := range locs {
		p, ok := s.wh.ItemAt(loc)
		if !ok || seen[p.Location] {
			continue
		}
		seen[p.Location] = true
		homes = append(homes, p.Location)
	}
	return homes
}

// Get returns the item covering the location.
func (s *MemoryStore) Get(ctx context.Context, loc warehouse.Location) (warehouse.Placement, error) {
	select {
	case <-ctx.Done():
		return warehouse.Placement{}, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.wh.Dimensions().Contains(loc) {
		return warehouse.Placement{}, fmt.Errorf("get item: %w: %s", warehouse.ErrInvalidLocation, loc)
	}

	p, ok := s.wh.ItemAt(loc)
	if !ok {
		return warehouse.Placement{}, fmt.Errorf("get item: %w: %s is empty", warehouse.ErrNotFound, loc)
	}

	return p, nil
}

// FindByID returns every zone holding items with the given ID.
func (s *MemoryStore) FindByID(ctx context.Context, id uint32) ([]warehouse.Location, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("find by id: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wh.FindByID(id), nil
}

// FindByName returns every zone holding items with the given name.
func (s *MemoryStore) FindByName(ctx context.Context, name string) ([]warehouse.Location, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("find by name: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wh.FindByName(name), nil
}

// List returns all items sorted by name.
func (s *MemoryStore) List(ctx context.Context) ([]warehouse.Placement, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wh.ListAllSortedByName(), nil
}

// NearExpiry returns fragile items expiring within days of now.
func (s *MemoryStore) NearExpiry(ctx context.Context, now time.Time, days int) ([]warehouse.ExpiryNotice, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("near expiry: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wh.CheckNearExpiry(now, days), nil
}

// SetStrategy switches the allocation strategy by name.
func (s *MemoryStore) SetStrategy(ctx context.Context, name string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("set strategy: %w", ctx.Err())
	default:
	}

	strategy, err := warehouse.ParseStrategy(name)
	if err != nil {
		return fmt.Errorf("set strategy: %w", err)
	}

	s.mu.Lock()
	previous := s.wh.Strategy().Name()
	s.wh.SetStrategy(strategy)
	s.mu.Unlock()

	s.logger.Info("allocation strategy changed",
		zap.String("from", previous),
		zap.String("to", strategy.Name()),
	)

	s.publish(model.NewStrategyChangedEvent(strategy.Name()))

	return nil
}

// Stats returns occupancy and policy information.
func (s *MemoryStore) Stats(ctx context.Context) (warehouse.Stats, error) {
	select {
	case <-ctx.Done():
		return warehouse.Stats{}, fmt.Errorf("stats: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wh.Stats(), nil
}

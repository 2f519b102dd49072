// Package warehouse implements an in-memory slot-allocation engine for a
// warehouse laid out as rows of shelves of zones.
//
// A Warehouse is owned by a single goroutine; callers that share one across
// goroutines must serialise access themselves.
package warehouse

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Placement pairs a stored item with its home location.
type Placement struct {
	Item     Item
	Location Location
}

// ExpiryNotice reports a fragile item that is close to or past its expiry.
type ExpiryNotice struct {
	Placement
	DaysLeft int
}

// Stats summarises warehouse occupancy.
type Stats struct {
	Dimensions    Dimensions
	TotalZones    int
	OccupiedZones int
	FreeZones     int
	StoredItems   int
	Strategy      string
	Filters       []string
}

// slot is one zone of the grid. Only the home zone of an item holds the
// item itself; the remaining zones of an oversized span refer back to it.
type slot struct {
	occupied bool
	home     Location
	item     *Item
}

// Warehouse owns the grid, the placement policy and the reverse indexes.
type Warehouse struct {
	dims     Dimensions
	slots    []slot
	strategy Strategy
	filters  []Filter

	byID   map[uint32]map[Location]struct{}
	byName map[string]map[Location]struct{}
}

// New creates an empty warehouse with the given dimensions.
// A nil strategy defaults to NearestStrategy.
func New(dims Dimensions, strategy Strategy) (*Warehouse, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}

	if strategy == nil {
		strategy = NewNearestStrategy()
	}

	return &Warehouse{
		dims:     dims,
		slots:    make([]slot, dims.Total()),
		strategy: strategy,
		byID:     make(map[uint32]map[Location]struct{}),
		byName:   make(map[string]map[Location]struct{}),
	}, nil
}

// Dimensions returns the grid size.
func (w *Warehouse) Dimensions() Dimensions {
	return w.dims
}

// AddFilter registers an admission filter for subsequent adds.
func (w *Warehouse) AddFilter(f Filter) {
	if f == nil {
		return
	}
	w.filters = append(w.filters, f)
}

// Filters returns the registered filter names in registration order.
func (w *Warehouse) Filters() []string {
	names := make([]string, 0, len(w.filters))
	for _, f := range w.filters {
		names = append(names, f.Name())
	}
	return names
}

// SetStrategy replaces the allocation strategy for subsequent adds.
func (w *Warehouse) SetStrategy(s Strategy) {
	if s == nil {
		return
	}
	w.strategy = s
}

// Strategy returns the active allocation strategy.
func (w *Warehouse) Strategy() Strategy {
	return w.strategy
}

// IsFree reports whether loc is inside the grid and empty.
func (w *Warehouse) IsFree(loc Location) bool {
	if !w.dims.Contains(loc) {
		return false
	}
	return !w.slots[w.dims.index(loc)].occupied
}

// ItemAt returns the item occupying loc together with its home location.
// Locations inside an oversized span resolve to the same placement.
func (w *Warehouse) ItemAt(loc Location) (Placement, bool) {
	if !w.dims.Contains(loc) {
		return Placement{}, false
	}

	s := w.slots[w.dims.index(loc)]
	if !s.occupied {
		return Placement{}, false
	}

	home := w.slots[w.dims.index(s.home)]
	if home.item == nil {
		panic(fmt.Sprintf("warehouse: zone %s points to empty home %s", loc, s.home))
	}

	return Placement{Item: *home.item, Location: s.home}, true
}

// Add admits item through every filter, asks the strategy for a home
// location and stores it there.
func (w *Warehouse) Add(item Item) (Location, error) {
	if err := item.Validate(); err != nil {
		return Location{}, err
	}

	for _, f := range w.filters {
		if !f.Apply(w, item) {
			return Location{}, fmt.Errorf("%w: %s rejected item %d", ErrFilteredOut, f.Name(), item.ID)
		}
	}

	loc, ok := w.strategy.Allocate(w, item)
	if !ok {
		return Location{}, fmt.Errorf("%w: %s found no zone for item %d",
			ErrNoSpaceAvailable, w.strategy.Name(), item.ID)
	}

	if err := w.reserve(loc, item); err != nil {
		return Location{}, err
	}

	w.commit(loc, item)

	return loc, nil
}

// reserve re-validates a strategy's answer before anything is written.
func (w *Warehouse) reserve(loc Location, item Item) error {
	if !w.dims.Contains(loc) {
		return fmt.Errorf("%w: strategy returned %s outside %dx%dx%d",
			ErrInvalidLocation, loc, w.dims.Rows, w.dims.Shelves, w.dims.Zones)
	}

	if !w.IsFree(loc) {
		return fmt.Errorf("%w: strategy returned occupied %s", ErrNoSpaceAvailable, loc)
	}

	if item.IsFragile() && loc.Row > item.Quality.MaxRow {
		return fmt.Errorf("%w: %s is beyond max row %d of fragile item %d",
			ErrNoSpaceAvailable, loc, item.Quality.MaxRow, item.ID)
	}

	if span := item.ZoneSpan(); !spanFree(w, loc, span) {
		return fmt.Errorf("%w: %d zones from %s", ErrInsufficientContiguousSpace, span, loc)
	}

	return nil
}

// commit writes item into the grid and the indexes. It is the only path
// that marks zones occupied.
func (w *Warehouse) commit(home Location, item Item) {
	stored := item
	for z := home.Zone; z < home.Zone+item.ZoneSpan(); z++ {
		loc := Location{Row: home.Row, Shelf: home.Shelf, Zone: z}
		s := &w.slots[w.dims.index(loc)]
		if s.occupied {
			panic(fmt.Sprintf("warehouse: commit over occupied zone %s", loc))
		}

		s.occupied = true
		s.home = home
		if loc == home {
			s.item = &stored
		}

		indexAdd(w.byID, item.ID, loc)
		indexAdd(w.byName, item.Name, loc)
	}
}

// release clears the span rooted at home from the grid and the indexes.
// It is the only path that frees zones.
func (w *Warehouse) release(home Location) Item {
	s := w.slots[w.dims.index(home)]
	if s.item == nil {
		panic(fmt.Sprintf("warehouse: release of empty home %s", home))
	}
	item := *s.item

	for z := home.Zone; z < home.Zone+item.ZoneSpan(); z++ {
		loc := Location{Row: home.Row, Shelf: home.Shelf, Zone: z}
		idx := w.dims.index(loc)
		if w.slots[idx].home != home || !w.slots[idx].occupied {
			panic(fmt.Sprintf("warehouse: zone %s is not part of span at %s", loc, home))
		}
		w.slots[idx] = slot{}

		indexRemove(w.byID, item.ID, loc)
		indexRemove(w.byName, item.Name, loc)
	}

	return item
}

// RemoveAt removes the item covering loc, including every zone of an
// oversized span.
func (w *Warehouse) RemoveAt(loc Location) (Item, error) {
	if !w.dims.Contains(loc) {
		return Item{}, fmt.Errorf("%w: %s", ErrInvalidLocation, loc)
	}

	s := w.slots[w.dims.index(loc)]
	if !s.occupied {
		return Item{}, fmt.Errorf("%w: %s is empty", ErrNotFound, loc)
	}

	return w.release(s.home), nil
}

// RemoveByID removes every stored item with the given id, nearest first.
func (w *Warehouse) RemoveByID(id uint32) ([]Item, error) {
	homes := w.homesOf(w.byID[id])
	if len(homes) == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	removed := make([]Item, 0, len(homes))
	for _, home := range homes {
		removed = append(removed, w.release(home))
	}

	return removed, nil
}

// FindByID returns every zone occupied by items with the given id.
func (w *Warehouse) FindByID(id uint32) []Location {
	return sortedLocations(w.byID[id])
}

// FindByName returns every zone occupied by items with the given name.
func (w *Warehouse) FindByName(name string) []Location {
	return sortedLocations(w.byName[name])
}

// ListAllSortedByName returns one placement per stored item ordered by
// name without regard to case, then by proximity.
func (w *Warehouse) ListAllSortedByName() []Placement {
	placements := w.placements()

	sort.SliceStable(placements, func(i, j int) bool {
		a := strings.ToLower(placements[i].Item.Name)
		b := strings.ToLower(placements[j].Item.Name)
		if a != b {
			return a < b
		}
		return placements[i].Location.Less(placements[j].Location)
	})

	return placements
}

// CheckNearExpiry returns fragile items expiring within thresholdDays of
// now, expired ones included. Each id is reported once.
func (w *Warehouse) CheckNearExpiry(now time.Time, thresholdDays int) []ExpiryNotice {
	seen := make(map[uint32]bool)
	var notices []ExpiryNotice

	for _, p := range w.placements() {
		if seen[p.Item.ID] {
			continue
		}

		days, ok := p.Item.DaysUntilExpiry(now)
		if !ok || days > thresholdDays {
			continue
		}

		seen[p.Item.ID] = true
		notices = append(notices, ExpiryNotice{Placement: p, DaysLeft: days})
	}

	sort.SliceStable(notices, func(i, j int) bool {
		return notices[i].DaysLeft < notices[j].DaysLeft
	})

	return notices
}

// Stats returns a snapshot of occupancy and policy.
func (w *Warehouse) Stats() Stats {
	st := Stats{
		Dimensions: w.dims,
		TotalZones: w.dims.Total(),
		Strategy:   w.strategy.Name(),
		Filters:    w.Filters(),
	}

	for _, s := range w.slots {
		if s.occupied {
			st.OccupiedZones++
		}
		if s.item != nil {
			st.StoredItems++
		}
	}
	st.FreeZones = st.TotalZones - st.OccupiedZones

	return st
}

// CheckConsistency verifies that the grid and the reverse indexes agree.
func (w *Warehouse) CheckConsistency() error {
	indexed := make(map[Location]uint32)
	for id, locs := range w.byID {
		for loc := range locs {
			indexed[loc] = id
		}
	}

	named := 0
	for _, locs := range w.byName {
		named += len(locs)
	}

	occupied := 0
	for _, loc := range w.dims.Locations() {
		p, ok := w.ItemAt(loc)
		if !ok {
			if _, found := indexed[loc]; found {
				return fmt.Errorf("index lists empty zone %s", loc)
			}
			continue
		}

		occupied++
		id, found := indexed[loc]
		if !found || id != p.Item.ID {
			return fmt.Errorf("zone %s holds item %d but index disagrees", loc, p.Item.ID)
		}
		if _, found := w.byName[p.Item.Name][loc]; !found {
			return fmt.Errorf("zone %s missing from name index %q", loc, p.Item.Name)
		}
	}

	if occupied != len(indexed) || occupied != named {
		return fmt.Errorf("grid has %d occupied zones, id index %d, name index %d",
			occupied, len(indexed), named)
	}

	return nil
}

// placements returns one placement per stored item in enumeration order.
func (w *Warehouse) placements() []Placement {
	var out []Placement
	for i, s := range w.slots {
		if s.item == nil {
			continue
		}
		out = append(out, Placement{Item: *s.item, Location: w.locationAt(i)})
	}
	return out
}

// homesOf returns the distinct home locations behind a set of zones.
func (w *Warehouse) homesOf(locs map[Location]struct{}) []Location {
	seen := make(map[Location]struct{})
	for loc := range locs {
		s := w.slots[w.dims.index(loc)]
		if !s.occupied {
			panic(fmt.Sprintf("warehouse: index lists empty zone %s", loc))
		}
		seen[s.home] = struct{}{}
	}
	return sortedLocations(seen)
}

func (w *Warehouse) locationAt(idx int) Location {
	zone := idx % w.dims.Zones
	idx /= w.dims.Zones
	return Location{Row: idx / w.dims.Shelves, Shelf: idx % w.dims.Shelves, Zone: zone}
}

func indexAdd[K comparable](index map[K]map[Location]struct{}, key K, loc Location) {
	set, ok := index[key]
	if !ok {
		set = make(map[Location]struct{})
		index[key] = set
	}
	set[loc] = struct{}{}
}

func indexRemove[K comparable](index map[K]map[Location]struct{}, key K, loc Location) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, loc)
	if len(set) == 0 {
		delete(index, key)
	}
}

func sortedLocations(set map[Location]struct{}) []Location {
	locs := make([]Location, 0, len(set))
	for loc := range set {
		locs = append(locs, loc)
	}
	sortByProximity(locs)
	return locs
}

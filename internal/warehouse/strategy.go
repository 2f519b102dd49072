package warehouse

import (
	"fmt"
	"strings"
)

// Strategy names.
const (
	StrategyNearest    = "nearest"
	StrategyRoundRobin = "round_robin"
)

// Strategy chooses a free location for an admitted item.
// Implementations that keep state must use pointer receivers so that
// updates made during Allocate persist between calls.
type Strategy interface {
	Name() string
	Allocate(v View, item Item) (Location, bool)
}

// ParseStrategy returns a fresh strategy for the given name.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategyNearest, "closest":
		return NewNearestStrategy(), nil
	case StrategyRoundRobin, "robin", "round-robin":
		return NewRoundRobinStrategy(), nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrValidation, name)
	}
}

// Fits reports whether item may be placed with its home zone at loc:
// the zone must be free, a fragile item must stay within its MaxRow and an
// oversized item needs its whole span free inside the same shelf.
func Fits(v View, item Item, loc Location) bool {
	dims := v.Dimensions()
	if !dims.Contains(loc) || !v.IsFree(loc) {
		return false
	}

	if item.IsFragile() && loc.Row > item.Quality.MaxRow {
		return false
	}

	return spanFree(v, loc, item.ZoneSpan())
}

// spanFree reports whether span zones starting at loc are all inside the
// shelf and free.
func spanFree(v View, loc Location, span int) bool {
	if loc.Zone+span > v.Dimensions().Zones {
		return false
	}
	for z := loc.Zone; z < loc.Zone+span; z++ {
		if !v.IsFree(Location{Row: loc.Row, Shelf: loc.Shelf, Zone: z}) {
			return false
		}
	}
	return true
}

// NearestStrategy places items as close to the entrance as possible.
type NearestStrategy struct{}

// NewNearestStrategy creates a NearestStrategy.
func NewNearestStrategy() *NearestStrategy {
	return &NearestStrategy{}
}

// Name returns the strategy name.
func (s *NearestStrategy) Name() string {
	return StrategyNearest
}

// Allocate returns the fitting location with the lowest proximity value.
func (s *NearestStrategy) Allocate(v View, item Item) (Location, bool) {
	var candidates []Location
	for _, loc := range v.Dimensions().Locations() {
		if Fits(v, item, loc) {
			candidates = append(candidates, loc)
		}
	}

	if len(candidates) == 0 {
		return Location{}, false
	}

	sortByProximity(candidates)
	return candidates[0], true
}

// RoundRobinStrategy cycles through the zones, resuming each scan just past
// the last zone it handed out.
type RoundRobinStrategy struct {
	cursor int
}

// NewRoundRobinStrategy creates a RoundRobinStrategy starting at the first zone.
func NewRoundRobinStrategy() *RoundRobinStrategy {
	return &RoundRobinStrategy{}
}

// Name returns the strategy name.
func (s *RoundRobinStrategy) Name() string {
	return StrategyRoundRobin
}

// Cursor returns the enumeration index the next scan starts from.
func (s *RoundRobinStrategy) Cursor() int {
	return s.cursor
}

// Reset rewinds the cursor to the first zone.
func (s *RoundRobinStrategy) Reset() {
	s.cursor = 0
}

// Allocate scans at most one full cycle from the cursor. The cursor only
// moves when a location is found.
func (s *RoundRobinStrategy) Allocate(v View, item Item) (Location, bool) {
	locs := v.Dimensions().Locations()
	total := len(locs)
	if total == 0 {
		return Location{}, false
	}

	start := s.cursor % total
	for i := 0; i < total; i++ {
		idx := (start + i) % total
		if Fits(v, item, locs[idx]) {
			s.cursor = (idx + 1) % total
			return locs[idx], true
		}
	}

	return Location{}, false
}

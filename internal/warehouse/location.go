package warehouse

import (
	"fmt"
	"sort"
)

// Location addresses a single zone in the warehouse grid.
type Location struct {
	Row   int `json:"row"`
	Shelf int `json:"shelf"`
	Zone  int `json:"zone"`
}

// Proximity ranks a location by its distance from the entrance.
// Lower values are closer.
func (l Location) Proximity() int {
	return l.Row*10000 + l.Shelf*100 + l.Zone
}

// String returns a human-readable form of the location.
func (l Location) String() string {
	return fmt.Sprintf("row %d, shelf %d, zone %d", l.Row, l.Shelf, l.Zone)
}

// Dimensions describes the fixed size of the grid.
type Dimensions struct {
	Rows    int `json:"rows" yaml:"rows"`
	Shelves int `json:"shelves" yaml:"shelves"`
	Zones   int `json:"zones" yaml:"zones"`
}

// MaxZones caps the number of zones in one grid. The grid is allocated
// up front, one slot per zone.
const MaxZones = 1 << 20

// Validate checks that every dimension is positive and that the grid
// holds at most MaxZones zones.
func (d Dimensions) Validate() error {
	if d.Rows < 1 || d.Shelves < 1 || d.Zones < 1 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%dx%d",
			ErrValidation, d.Rows, d.Shelves, d.Zones)
	}

	// Each factor is at least 1, so dividing keeps the check free of overflow.
	if d.Rows > MaxZones/d.Shelves || d.Rows*d.Shelves > MaxZones/d.Zones {
		return fmt.Errorf("%w: %dx%dx%d exceeds %d zones",
			ErrValidation, d.Rows, d.Shelves, d.Zones, MaxZones)
	}
	return nil
}

// Total returns the number of zones in the grid.
func (d Dimensions) Total() int {
	return d.Rows * d.Shelves * d.Zones
}

// Contains reports whether loc lies inside the grid.
func (d Dimensions) Contains(loc Location) bool {
	return loc.Row >= 0 && loc.Row < d.Rows &&
		loc.Shelf >= 0 && loc.Shelf < d.Shelves &&
		loc.Zone >= 0 && loc.Zone < d.Zones
}

// Locations enumerates every zone in row-major, shelf-major, zone-minor order.
func (d Dimensions) Locations() []Location {
	locs := make([]Location, 0, d.Total())
	for r := 0; r < d.Rows; r++ {
		for s := 0; s < d.Shelves; s++ {
			for z := 0; z < d.Zones; z++ {
				locs = append(locs, Location{Row: r, Shelf: s, Zone: z})
			}
		}
	}
	return locs
}

// index returns the position of loc in the enumeration order.
func (d Dimensions) index(loc Location) int {
	return (loc.Row*d.Shelves+loc.Shelf)*d.Zones + loc.Zone
}

// Less orders locations by proximity, falling back to grid order when
// large shelves or zones make proximity values collide.
func (l Location) Less(o Location) bool {
	if p, q := l.Proximity(), o.Proximity(); p != q {
		return p < q
	}
	if l.Row != o.Row {
		return l.Row < o.Row
	}
	if l.Shelf != o.Shelf {
		return l.Shelf < o.Shelf
	}
	return l.Zone < o.Zone
}

func sortByProximity(locs []Location) {
	sort.SliceStable(locs, func(i, j int) bool {
		return locs[i].Less(locs[j])
	})
}

package warehouse

import (
	"fmt"
	"time"
)

// View is the read-only face of a warehouse handed to filters and strategies.
type View interface {
	Dimensions() Dimensions
	IsFree(loc Location) bool
	ItemAt(loc Location) (Placement, bool)
}

// Filter is an admission gate. Apply must not mutate the warehouse.
type Filter interface {
	Name() string
	Apply(v View, item Item) bool
}

// FilterFunc adapts a predicate to the Filter interface.
type FilterFunc struct {
	Label string
	Fn    func(v View, item Item) bool
}

// Name returns the filter label.
func (f FilterFunc) Name() string {
	return f.Label
}

// Apply calls the wrapped predicate.
func (f FilterFunc) Apply(v View, item Item) bool {
	return f.Fn(v, item)
}

// MaxRowFilter is a warehouse-wide ceiling for fragile goods. It rejects
// fragile items whose own MaxRow exceeds Limit.
type MaxRowFilter struct {
	Limit int
}

// NewMaxRowFilter creates a MaxRowFilter.
func NewMaxRowFilter(limit int) *MaxRowFilter {
	return &MaxRowFilter{Limit: limit}
}

// Name returns the filter name.
func (f *MaxRowFilter) Name() string {
	return fmt.Sprintf("max_row(%d)", f.Limit)
}

// Apply admits non-fragile items and fragile items within the ceiling.
func (f *MaxRowFilter) Apply(_ View, item Item) bool {
	if !item.IsFragile() {
		return true
	}
	return item.Quality.MaxRow <= f.Limit
}

// ExpirationFilter rejects items that are already expired when evaluated.
type ExpirationFilter struct {
	Now func() time.Time
}

// NewExpirationFilter creates an ExpirationFilter. A nil clock uses time.Now.
func NewExpirationFilter(now func() time.Time) *ExpirationFilter {
	if now == nil {
		now = time.Now
	}
	return &ExpirationFilter{Now: now}
}

// Name returns the filter name.
func (f *ExpirationFilter) Name() string {
	return "expiration"
}

// Apply admits items that are not expired.
func (f *ExpirationFilter) Apply(_ View, item Item) bool {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return !item.IsExpired(now())
}

// Package model defines the request, response and event shapes exchanged
// with API clients.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vyrodovalexey/warehouse-allocator/internal/warehouse"
)

// Validation errors for item requests.
var (
	ErrNameTooLong     = errors.New("name cannot exceed 255 characters")
	ErrUnknownQuality  = errors.New("quality type must be one of: normal, fragile, oversized")
	ErrMissingExpiry   = errors.New("fragile items require expiry_date")
	ErrMissingMaxRow   = errors.New("fragile items require max_row")
	ErrMissingZones    = errors.New("oversized items require zones_needed")
	ErrMissingStrategy = errors.New("strategy cannot be empty")
)

// MaxNameLength limits item names.
const MaxNameLength = 255

// QualityRequest is the wire form of an item's quality.
type QualityRequest struct {
	Type        string `json:"type"`
	ExpiryDate  string `json:"expiry_date,omitempty"`
	MaxRow      *int   `json:"max_row,omitempty"`
	ZonesNeeded int    `json:"zones_needed,omitempty"`
}

// CreateItemRequest is the body of POST /api/v1/items.
type CreateItemRequest struct {
	ID        uint32         `json:"id"`
	Name      string         `json:"name"`
	Quantity  uint32         `json:"quantity"`
	Quality   QualityRequest `json:"quality"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// ToItem validates the request and converts it into a warehouse item.
func (r *CreateItemRequest) ToItem() (warehouse.Item, error) {
	if len(r.Name) > MaxNameLength {
		return warehouse.Item{}, ErrNameTooLong
	}

	quality, err := r.Quality.toQuality()
	if err != nil {
		return warehouse.Item{}, err
	}

	return warehouse.NewItem(r.ID, r.Name, r.Quantity, quality, r.Timestamp)
}

func (q QualityRequest) toQuality() (warehouse.Quality, error) {
	switch strings.ToLower(strings.TrimSpace(q.Type)) {
	case "", string(warehouse.QualityNormal):
		return warehouse.NormalQuality(), nil
	case string(warehouse.QualityFragile):
		if q.ExpiryDate == "" {
			return warehouse.Quality{}, ErrMissingExpiry
		}
		if q.MaxRow == nil {
			return warehouse.Quality{}, ErrMissingMaxRow
		}
		expiry, err := warehouse.ParseDate(q.ExpiryDate)
		if err != nil {
			return warehouse.Quality{}, err
		}
		return warehouse.FragileQuality(expiry, *q.MaxRow), nil
	case string(warehouse.QualityOversized):
		if q.ZonesNeeded == 0 {
			return warehouse.Quality{}, ErrMissingZones
		}
		return warehouse.OversizedQuality(q.ZonesNeeded), nil
	default:
		return warehouse.Quality{}, ErrUnknownQuality
	}
}

// StrategyRequest is the body of PUT /api/v1/warehouse/strategy.
type StrategyRequest struct {
	Strategy string `json:"strategy"`
}

// Validate checks that a strategy was named.
func (r *StrategyRequest) Validate() error {
	if strings.TrimSpace(r.Strategy) == "" {
		return ErrMissingStrategy
	}
	return nil
}

// QualityResponse is the wire form of a stored item's quality.
type QualityResponse struct {
	Type        string `json:"type"`
	ExpiryDate  string `json:"expiry_date,omitempty"`
	MaxRow      *int   `json:"max_row,omitempty"`
	ZonesNeeded int    `json:"zones_needed,omitempty"`
}

// ItemResponse is the wire form of a stored item.
type ItemResponse struct {
	ID        uint32          `json:"id"`
	Name      string          `json:"name"`
	Quantity  uint32          `json:"quantity"`
	Quality   QualityResponse `json:"quality"`
	Timestamp string          `json:"timestamp"`
	Details   string          `json:"details"`
}

// NewItemResponse converts a warehouse item.
func NewItemResponse(item warehouse.Item) ItemResponse {
	q := QualityResponse{Type: string(item.Quality.Kind)}
	switch item.Quality.Kind {
	case warehouse.QualityFragile:
		maxRow := item.Quality.MaxRow
		q.ExpiryDate = item.Quality.ExpiryDate.Format(warehouse.DateLayout)
		q.MaxRow = &maxRow
	case warehouse.QualityOversized:
		q.ZonesNeeded = item.Quality.ZonesNeeded
	}

	return ItemResponse{
		ID:        item.ID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		Quality:   q,
		Timestamp: item.Timestamp,
		Details:   item.Details(),
	}
}

// PlacementResponse pairs an item with its home location.
type PlacementResponse struct {
	Item     ItemResponse       `json:"item"`
	Location warehouse.Location `json:"location"`
}

// NewPlacementResponse converts a warehouse placement.
func NewPlacementResponse(p warehouse.Placement) PlacementResponse {
	return PlacementResponse{Item: NewItemResponse(p.Item), Location: p.Location}
}

// NewPlacementResponses converts a list of placements.
func NewPlacementResponses(ps []warehouse.Placement) []PlacementResponse {
	out := make([]PlacementResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, NewPlacementResponse(p))
	}
	return out
}

// ExpiryResponse reports an item close to its expiry date.
type ExpiryResponse struct {
	PlacementResponse
	DaysLeft int `json:"days_left"`
}

// ExpiryReport is the body of GET /api/v1/expiring.
type ExpiryReport struct {
	Date          string           `json:"date"`
	ThresholdDays int              `json:"threshold_days"`
	Count         int              `json:"count"`
	Items         []ExpiryResponse `json:"items"`
}

// NewExpiryReport converts near-expiry notices.
func NewExpiryReport(now time.Time, days int, notices []warehouse.ExpiryNotice) ExpiryReport {
	items := make([]ExpiryResponse, 0, len(notices))
	for _, n := range notices {
		items = append(items, ExpiryResponse{
			PlacementResponse: NewPlacementResponse(n.Placement),
			DaysLeft:          n.DaysLeft,
		})
	}

	return ExpiryReport{
		Date:          now.Format(warehouse.DateLayout),
		ThresholdDays: days,
		Count:         len(items),
		Items:         items,
	}
}

// LocationsResponse lists the zones matching a lookup.
type LocationsResponse struct {
	Query     string               `json:"query"`
	Count     int                  `json:"count"`
	Locations []warehouse.Location `json:"locations"`
}

// NewLocationsResponse builds a lookup result.
func NewLocationsResponse(query string, locs []warehouse.Location) LocationsResponse {
	if locs == nil {
		locs = []warehouse.Location{}
	}
	return LocationsResponse{Query: query, Count: len(locs), Locations: locs}
}

// AddItemResponse is returned after an item was stored.
type AddItemResponse struct {
	Item     ItemResponse         `json:"item"`
	Location warehouse.Location   `json:"location"`
	Zones    []warehouse.Location `json:"zones"`
	Message  string               `json:"message"`
}

// NewAddItemResponse builds the response for a stored item.
func NewAddItemResponse(item warehouse.Item, home warehouse.Location) AddItemResponse {
	zones := make([]warehouse.Location, 0, item.ZoneSpan())
	for z := home.Zone; z < home.Zone+item.ZoneSpan(); z++ {
		zones = append(zones, warehouse.Location{Row: home.Row, Shelf: home.Shelf, Zone: z})
	}

	return AddItemResponse{
		Item:     NewItemResponse(item),
		Location: home,
		Zones:    zones,
		Message: fmt.Sprintf("Item stored at Row %d, Shelf %d, Zone %d",
			home.Row, home.Shelf, home.Zone),
	}
}

// WarehouseResponse describes the warehouse layout, policy and occupancy.
type WarehouseResponse struct {
	Dimensions    warehouse.Dimensions `json:"dimensions"`
	TotalZones    int                  `json:"total_zones"`
	OccupiedZones int                  `json:"occupied_zones"`
	FreeZones     int                  `json:"free_zones"`
	StoredItems   int                  `json:"stored_items"`
	Strategy      string               `json:"strategy"`
	Filters       []string             `json:"filters"`
}

// NewWarehouseResponse converts warehouse stats.
func NewWarehouseResponse(st warehouse.Stats) WarehouseResponse {
	filters := st.Filters
	if filters == nil {
		filters = []string{}
	}
	return WarehouseResponse{
		Dimensions:    st.Dimensions,
		TotalZones:    st.TotalZones,
		OccupiedZones: st.OccupiedZones,
		FreeZones:     st.FreeZones,
		StoredItems:   st.StoredItems,
		Strategy:      st.Strategy,
		Filters:       filters,
	}
}

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

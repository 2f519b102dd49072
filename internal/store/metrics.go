package store

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vyrodovalexey/warehouse-allocator/internal/warehouse"
)

// Prometheus metrics.
var (
	itemsStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_items_stored_total",
			Help: "Total number of items placed in the warehouse",
		},
		[]string{"strategy", "quality"},
	)

	itemsRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warehouse_items_removed_total",
			Help: "Total number of items removed from the warehouse",
		},
	)

	addRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_add_rejections_total",
			Help: "Total number of rejected add attempts by reason",
		},
		[]string{"reason"},
	)

	zonesOccupied = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warehouse_zones_occupied",
			Help: "Number of occupied zones",
		},
	)

	zonesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warehouse_zones_total",
			Help: "Number of zones in the warehouse",
		},
	)
)

func recordPlacement(strategy string, kind warehouse.QualityKind) {
	itemsStoredTotal.WithLabelValues(strategy, string(kind)).Inc()
}

func recordRemovals(n int) {
	itemsRemovedTotal.Add(float64(n))
}

func recordOccupancy(st warehouse.Stats) {
	zonesOccupied.Set(float64(st.OccupiedZones))
	zonesTotal.Set(float64(st.TotalZones))
}

func recordRejection(err error) {
	addRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
}

// rejectionReason maps an add error to a low-cardinality label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, warehouse.ErrValidation):
		return "validation"
	case errors.Is(err, warehouse.ErrFilteredOut):
		return "filtered_out"
	case errors.Is(err, warehouse.ErrInsufficientContiguousSpace):
		return "insufficient_contiguous_space"
	case errors.Is(err, warehouse.ErrNoSpaceAvailable):
		return "no_space"
	case errors.Is(err, warehouse.ErrInvalidLocation):
		return "invalid_location"
	default:
		return "other"
	}
}

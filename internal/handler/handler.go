// Package handler provides the HTTP and WebSocket handlers of the warehouse API.
package handler

import (
	"time"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status      string `json:"status"`
	TotalZones  int    `json:"total_zones"`
	StoredItems int    `json:"stored_items"`
}

// Option configures a RESTHandler.
type Option func(*RESTHandler)

// WithClock sets the clock used for expiry reports.
func WithClock(now func() time.Time) Option {
	return func(h *RESTHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithNearExpiryDays sets the default threshold of GET /api/v1/expiring.
func WithNearExpiryDays(days int) Option {
	return func(h *RESTHandler) {
		if days >= 0 {
			h.nearExpiryDays = days
		}
	}
}

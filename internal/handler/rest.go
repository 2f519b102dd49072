package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/warehouse-allocator/internal/middleware"
	"github.com/vyrodovalexey/warehouse-allocator/internal/model"
	"github.com/vyrodovalexey/warehouse-allocator/internal/store"
	"github.com/vyrodovalexey/warehouse-allocator/internal/warehouse"
)

// Version is the application version.
const Version = "1.0.0"

// defaultNearExpiryDays is the expiry report threshold when none is configured.
const defaultNearExpiryDays = 3

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// RESTHandler handles REST API requests for the warehouse.
type RESTHandler struct {
	store          store.Store
	logger         *zap.Logger
	now            func() time.Time
	nearExpiryDays int
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(s store.Store, logger *zap.Logger, opts ...Option) *RESTHandler {
	h := &RESTHandler{
		store:          s,
		logger:         logger,
		now:            time.Now,
		nearExpiryDays: defaultNearExpiryDays,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet).Name("health")
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet).Name("ready")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/warehouse", h.GetWarehouse).Methods(http.MethodGet).Name("get_warehouse")
	api.HandleFunc("/warehouse/strategy", h.SetStrategy).Methods(http.MethodPut).Name("set_strategy")
	api.HandleFunc("/items", h.ListItems).Methods(http.MethodGet).Name("list_items")
	api.HandleFunc("/items", h.AddItem).Methods(http.MethodPost).Name("add_item")
	api.HandleFunc("/items/{id}/locations", h.FindByID).Methods(http.MethodGet).Name("find_by_id")
	api.HandleFunc("/items/{id}", h.RemoveByID).Methods(http.MethodDelete).Name("remove_by_id")
	api.HandleFunc("/search", h.FindByName).Methods(http.MethodGet).Name("find_by_name")
	api.HandleFunc("/locations/{row}/{shelf}/{zone}", h.GetLocation).Methods(http.MethodGet).Name("get_location")
	api.HandleFunc("/locations/{row}/{shelf}/{zone}", h.RemoveAt).Methods(http.MethodDelete).Name("remove_at")
	api.HandleFunc("/expiring", h.NearExpiry).Methods(http.MethodGet).Name("near_expiry")
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		h.writeError(w, http.StatusServiceUnavailable, "warehouse not ready")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ReadyResponse{
		Status:      "ready",
		TotalZones:  stats.TotalZones,
		StoredItems: stats.StoredItems,
	}))
}

// GetWarehouse handles GET /api/v1/warehouse requests.
func (h *RESTHandler) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.handleStoreError(w, r, err, "warehouse stats")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.NewWarehouseResponse(stats)))
}

// SetStrategy handles PUT /api/v1/warehouse/strategy requests.
func (h *RESTHandler) SetStrategy(w http.ResponseWriter, r *http.Request) {
	var input model.StrategyRequest
	if !h.decodeBody(w, r, &input) {
		return
	}

	if err := input.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SetStrategy(r.Context(), input.Strategy); err != nil {
		h.handleStoreError(w, r, err, "set strategy")
		return
	}

	h.GetWarehouse(w, r)
}

// ListItems handles GET /api/v1/items requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	placements, err := h.store.List(r.Context())
	if err != nil {
		h.handleStoreError(w, r, err, "list items")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.NewPlacementResponses(placements)))
}

// AddItem handles POST /api/v1/items requests.
func (h *RESTHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var input model.CreateItemRequest
	if !h.decodeBody(w, r, &input) {
		return
	}

	item, err := input.ToItem()
	if err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	home, err := h.store.Add(r.Context(), &item)
	if err != nil {
		h.handleStoreError(w, r, err, "add item")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(model.NewAddItemResponse(item, home)))
}

// FindByID handles GET /api/v1/items/{id}/locations requests.
func (h *RESTHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	id, err := parseID(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	locs, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, r, err, "find by id")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.NewLocationsResponse(raw, locs)))
}

// RemoveByID handles DELETE /api/v1/items/{id} requests.
func (h *RESTHandler) RemoveByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	removed, err := h.store.RemoveByID(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, r, err, "remove by id")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.NewPlacementResponses(removed)))
}

// FindByName handles GET /api/v1/search?name= requests.
func (h *RESTHandler) FindByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter name is required")
		return
	}

	locs, err := h.store.FindByName(r.Context(), name)
	if err != nil {
		h.handleStoreError(w, r, err, "find by name")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.NewLocationsResponse(name, locs)))
}

// GetLocation handles GET /api/v1/locations/{row}/{shelf}/{zone} requests.
func (h *RESTHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(mux.Vars(r))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.store.Get(r.Context(), loc)
	if err != nil {
		h.handleStoreError(w, r, err, "get location")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.NewPlacementResponse(p)))
}

// RemoveAt handles DELETE /api/v1/locations/{row}/{shelf}/{zone} requests.
func (h *RESTHandler) RemoveAt(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(mux.Vars(r))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.store.RemoveAt(r.Context(), loc)
	if err != nil {
		h.handleStoreError(w, r, err, "remove at location")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.NewPlacementResponse(p)))
}

// NearExpiry handles GET /api/v1/expiring?days= requests.
func (h *RESTHandler) NearExpiry(w http.ResponseWriter, r *http.Request) {
	days := h.nearExpiryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	}

	now := h.now()
	notices, err := h.store.NearExpiry(r.Context(), now, days)
	if err != nil {
		h.handleStoreError(w, r, err, "near expiry")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.NewExpiryReport(now, days, notices)))
}

// decodeBody decodes a JSON request body into dst, writing 400 on failure.
func (h *RESTHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// handleStoreError maps warehouse and store errors onto HTTP responses.
func (h *RESTHandler) handleStoreError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, warehouse.ErrValidation),
		errors.Is(err, warehouse.ErrInvalidLocation),
		errors.Is(err, store.ErrInvalidID),
		errors.Is(err, store.ErrNilItem):
		status = http.StatusBadRequest
	case errors.Is(err, warehouse.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, warehouse.ErrNoSpaceAvailable),
		errors.Is(err, warehouse.ErrInsufficientContiguousSpace):
		status = http.StatusConflict
	case errors.Is(err, warehouse.ErrFilteredOut):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("store operation failed",
			zap.String("operation", operation),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		h.writeError(w, status, "internal server error")
		return
	}

	middleware.AddLogFields(r.Context(), zap.String("rejection", err.Error()))
	h.writeError(w, status, err.Error())
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}

func parseID(raw string) (uint32, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", store.ErrInvalidID, raw)
	}
	return uint32(id), nil
}

func parseLocation(vars map[string]string) (warehouse.Location, error) {
	var coords [3]int
	for i, key := range []string{"row", "shelf", "zone"} {
		n, err := strconv.Atoi(vars[key])
		if err != nil {
			return warehouse.Location{}, fmt.Errorf("%w: %s %q is not a number",
				warehouse.ErrInvalidLocation, key, vars[key])
		}
		coords[i] = n
	}
	return warehouse.Location{Row: coords[0], Shelf: coords[1], Zone: coords[2]}, nil
}

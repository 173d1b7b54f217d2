package handler

import (
	"net/http"

	"auto-atelier/internal/model"
	"auto-atelier/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.SaveDesign(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "failed to save design", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid order ID format", h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err, "failed to retrieve order", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ListByCustomer handles GET /api/customers/{id}/orders requests.
func (h *OrderHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListByCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "failed to list orders", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// UpdateStage handles PUT /api/orders/{id}/stages/{stage} requests.
func (h *OrderHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid order ID format", h.logger)
		return
	}

	var req model.StageUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.UpdateStage(r.Context(), orderID, chi.URLParam(r, "stage"), req.Completed)
	if err != nil {
		writeServiceError(w, r, err, "failed to update stage", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Capacity handles GET /api/capacity requests.
func (h *OrderHandler) Capacity(w http.ResponseWriter, r *http.Request) {
	capacity, err := h.service.Capacity(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to read capacity", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, capacity)
}

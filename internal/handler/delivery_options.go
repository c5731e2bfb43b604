package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/validate"
)

const maxDeliveryDays = 365

var maxDeliveryCost = decimal.RequireFromString("999999.99")

// DeliveryOptionStore defines the database methods needed by delivery option handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DeliveryOptionStore interface {
	ListDeliveryOptions(ctx context.Context, isActive pgtype.Bool) ([]database.DeliveryOption, error)
	CreateDeliveryOption(ctx context.Context, arg database.CreateDeliveryOptionParams) (database.DeliveryOption, error)
	UpdateDeliveryOption(ctx context.Context, arg database.UpdateDeliveryOptionParams) (database.DeliveryOption, error)
}

// DeliveryOptionHandler handles delivery option endpoints.
type DeliveryOptionHandler struct {
	store DeliveryOptionStore
}

// NewDeliveryOptionHandler creates a new DeliveryOptionHandler.
func NewDeliveryOptionHandler(store DeliveryOptionStore) *DeliveryOptionHandler {
	return &DeliveryOptionHandler{store: store}
}

// RegisterPublicRoutes registers the checkout-facing list.
func (h *DeliveryOptionHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/delivery-options", h.ListActive)
}

// RegisterRoutes registers admin endpoints at /admin/delivery-options.
func (h *DeliveryOptionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListAll)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
}

// --- Request / Response types ---

type deliveryOptionRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	DeliveryTimeMin any    `json:"delivery_time_min"`
	DeliveryTimeMax any    `json:"delivery_time_max"`
	Cost            any    `json:"cost"`
	IsActive        *bool  `json:"is_active"`
	SortOrder       any    `json:"sort_order"`
}

type deliveryOptionResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DeliveryTimeMin int32     `json:"delivery_time_min"`
	DeliveryTimeMax int32     `json:"delivery_time_max"`
	Cost            string    `json:"cost"`
	IsActive        bool      `json:"is_active"`
	SortOrder       int32     `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
}

type validatedDeliveryOption struct {
	name        string
	description string
	timeMin     int32
	timeMax     int32
	cost        pgtype.Numeric
	isActive    bool
	sortOrder   int32
}

func toDeliveryOptionResponse(d database.DeliveryOption) deliveryOptionResponse {
	return deliveryOptionResponse{
		ID:              d.ID,
		Name:            d.Name,
		Description:     d.Description,
		DeliveryTimeMin: d.DeliveryTimeMin,
		DeliveryTimeMax: d.DeliveryTimeMax,
		Cost:            numericToString(d.Cost),
		IsActive:        d.IsActive,
		SortOrder:       d.SortOrder,
		CreatedAt:       d.CreatedAt,
	}
}

// --- Handlers ---

// ListActive returns the options offered at checkout, cheapest first within
// sort order.
func (h *DeliveryOptionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, pgtype.Bool{Bool: true, Valid: true})
}

// ListAll returns every option including inactive ones.
func (h *DeliveryOptionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, pgtype.Bool{})
}

func (h *DeliveryOptionHandler) list(w http.ResponseWriter, r *http.Request, active pgtype.Bool) {
	options, err := h.store.ListDeliveryOptions(r.Context(), active)
	if err != nil {
		log.Printf("ERROR: list delivery options: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]deliveryOptionResponse, len(options))
	for i, o := range options {
		resp[i] = toDeliveryOptionResponse(o)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"options": resp,
	})
}

// Create adds a delivery option.
func (h *DeliveryOptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	v, ok := decodeDeliveryOption(w, r)
	if !ok {
		return
	}

	option, err := h.store.CreateDeliveryOption(r.Context(), database.CreateDeliveryOptionParams{
		Name:            v.name,
		Description:     v.description,
		DeliveryTimeMin: v.timeMin,
		DeliveryTimeMax: v.timeMax,
		Cost:            v.cost,
		IsActive:        v.isActive,
		SortOrder:       v.sortOrder,
	})
	if err != nil {
		log.Printf("ERROR: create delivery option: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"option":  toDeliveryOptionResponse(option),
	})
}

// Update replaces a delivery option. Setting is_active=false retires it
// without touching orders that reference it.
func (h *DeliveryOptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	v, ok := decodeDeliveryOption(w, r)
	if !ok {
		return
	}

	option, err := h.store.UpdateDeliveryOption(r.Context(), database.UpdateDeliveryOptionParams{
		ID:              id,
		Name:            v.name,
		Description:     v.description,
		DeliveryTimeMin: v.timeMin,
		DeliveryTimeMax: v.timeMax,
		Cost:            v.cost,
		IsActive:        v.isActive,
		SortOrder:       v.sortOrder,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "delivery option not found")
			return
		}
		log.Printf("ERROR: update delivery option %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"option":  toDeliveryOptionResponse(option),
	})
}

func decodeDeliveryOption(w http.ResponseWriter, r *http.Request) (*validatedDeliveryOption, bool) {
	var req deliveryOptionRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	v := &validatedDeliveryOption{isActive: true}
	var ok bool
	if v.name, ok = validate.Text(req.Name, 100, 1); !ok {
		writeError(w, http.StatusBadRequest, "name must be 1-100 characters")
		return nil, false
	}
	if v.description, ok = validate.OptionalText(req.Description, 500); !ok {
		writeError(w, http.StatusBadRequest, "description is too long (max 500 characters)")
		return nil, false
	}

	timeMin, ok := validate.Integer(req.DeliveryTimeMin, 0, maxDeliveryDays)
	if !ok {
		writeError(w, http.StatusBadRequest, "delivery_time_min must be a whole number of days")
		return nil, false
	}
	timeMax, ok := validate.Integer(req.DeliveryTimeMax, timeMin, maxDeliveryDays)
	if !ok {
		writeError(w, http.StatusBadRequest, "delivery_time_max must be at least delivery_time_min")
		return nil, false
	}
	v.timeMin, v.timeMax = int32(timeMin), int32(timeMax)

	cost, ok := validate.Price(req.Cost, decimal.Zero, maxDeliveryCost)
	if !ok {
		writeError(w, http.StatusBadRequest, "cost must be between 0 and 999999.99")
		return nil, false
	}
	if err := v.cost.Scan(cost.StringFixed(2)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid cost")
		return nil, false
	}

	if req.SortOrder != nil {
		sort, ok := validate.Integer(req.SortOrder, 0, 10000)
		if !ok {
			writeError(w, http.StatusBadRequest, "sort_order must be a whole number")
			return nil, false
		}
		v.sortOrder = int32(sort)
	}
	if req.IsActive != nil {
		v.isActive = *req.IsActive
	}
	return v, true
}

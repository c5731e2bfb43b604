package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/readers-haven/api/internal/database"
)

const (
	defaultCustomerListLimit = 50
	maxCustomerListLimit     = 500
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.ListCustomersRow, error)
	CountCustomers(ctx context.Context, search pgtype.Text) (int64, error)
	GetCustomer(ctx context.Context, id int64) (database.Customer, error)
}

// CustomerHandler serves the read-only customer directory. Customers are
// created and backfilled by checkout, never edited here.
type CustomerHandler struct {
	store CustomerStore
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// RegisterRoutes registers endpoints at /admin/customers.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

type customerResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      *string   `json:"phone"`
	Address    *string   `json:"address"`
	OrderCount *int64    `json:"order_count,omitempty"`
	TotalSpent string    `json:"total_spent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// List handles GET /admin/customers?search=&limit=&offset=.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, defaultCustomerListLimit, maxCustomerListLimit)
	search := optionalText(strings.TrimSpace(r.URL.Query().Get("search")))

	rows, err := h.store.ListCustomers(r.Context(), database.ListCustomersParams{
		Search: search,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list customers: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	total, err := h.store.CountCustomers(r.Context(), search)
	if err != nil {
		log.Printf("ERROR: count customers: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]customerResponse, len(rows))
	for i, c := range rows {
		count := c.OrderCount
		resp[i] = customerResponse{
			ID:         c.ID,
			Name:       c.Name,
			Email:      c.Email,
			Phone:      textPtr(c.Phone),
			Address:    textPtr(c.Address),
			OrderCount: &count,
			TotalSpent: numericToString(c.TotalSpent),
			CreatedAt:  c.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"customers": resp,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// Get handles GET /admin/customers/{id}.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	c, err := h.store.GetCustomer(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		log.Printf("ERROR: get customer %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"customer": customerResponse{
			ID:        c.ID,
			Name:      c.Name,
			Email:     c.Email,
			Phone:     textPtr(c.Phone),
			Address:   textPtr(c.Address),
			CreatedAt: c.CreatedAt,
		},
	})
}

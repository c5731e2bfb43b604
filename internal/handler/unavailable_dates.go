package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/validate"
)

const defaultBlockReason = "Blocked"

// UnavailableDateStore defines the database methods needed by blocked date handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UnavailableDateStore interface {
	ListUnavailableDates(ctx context.Context, fromDate pgtype.Date) ([]database.UnavailableDate, error)
	CreateUnavailableDate(ctx context.Context, arg database.CreateUnavailableDateParams) (database.UnavailableDate, error)
	DeleteUnavailableDate(ctx context.Context, id int64) (int64, error)
}

// UnavailableDateHandler manages dates closed to bookings.
type UnavailableDateHandler struct {
	store UnavailableDateStore
	now   func() time.Time
}

// NewUnavailableDateHandler creates a new UnavailableDateHandler.
func NewUnavailableDateHandler(store UnavailableDateStore) *UnavailableDateHandler {
	return &UnavailableDateHandler{store: store, now: time.Now}
}

// RegisterPublicRoutes registers the calendar feed used by the booking form.
func (h *UnavailableDateHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/unavailable-dates", h.ListUpcoming)
}

// RegisterRoutes registers admin endpoints at /admin/unavailable-dates.
func (h *UnavailableDateHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListAll)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
}

type createUnavailableDateRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type unavailableDateResponse struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func toUnavailableDateResponse(d database.UnavailableDate) unavailableDateResponse {
	return unavailableDateResponse{
		ID:        d.ID,
		Date:      d.UnavailableDate.Time.Format(validate.DateLayout),
		Reason:    d.Reason.String,
		CreatedAt: d.CreatedAt,
	}
}

// ListUpcoming returns blocked dates from today onward.
func (h *UnavailableDateHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	h.list(w, r, pgtype.Date{Time: today, Valid: true})
}

// ListAll returns every blocked date, past ones included.
func (h *UnavailableDateHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, pgtype.Date{})
}

func (h *UnavailableDateHandler) list(w http.ResponseWriter, r *http.Request, from pgtype.Date) {
	dates, err := h.store.ListUnavailableDates(r.Context(), from)
	if err != nil {
		log.Printf("ERROR: list unavailable dates: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]unavailableDateResponse, len(dates))
	for i, d := range dates {
		resp[i] = toUnavailableDateResponse(d)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"dates":   resp,
	})
}

// Create blocks a date. Blocking an already blocked date is a conflict.
func (h *UnavailableDateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUnavailableDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, ok := validate.CalendarDate(req.Date)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		return
	}
	reason, ok := validate.OptionalText(req.Reason, 255)
	if !ok {
		writeError(w, http.StatusBadRequest, "reason is too long (max 255 characters)")
		return
	}
	if reason == "" {
		reason = defaultBlockReason
	}

	blocked, err := h.store.CreateUnavailableDate(r.Context(), database.CreateUnavailableDateParams{
		UnavailableDate: pgtype.Date{Time: date, Valid: true},
		Reason:          pgtype.Text{String: reason, Valid: true},
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "This date is already blocked")
			return
		}
		log.Printf("ERROR: create unavailable date: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Date blocked successfully",
		"date":    toUnavailableDateResponse(blocked),
	})
}

// Delete reopens a blocked date.
func (h *UnavailableDateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	n, err := h.store.DeleteUnavailableDate(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: delete unavailable date %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "unavailable date not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Date unblocked successfully",
	})
}

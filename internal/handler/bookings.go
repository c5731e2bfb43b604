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
	"github.com/readers-haven/api/internal/notify"
	"github.com/readers-haven/api/internal/service"
	"github.com/readers-haven/api/internal/ws"
)

const (
	defaultBookingListLimit = 50
	maxBookingListLimit     = 500
)

// BookingServicer is satisfied by *service.BookingService.
type BookingServicer interface {
	CreateBooking(ctx context.Context, req service.CreateBookingRequest) (*database.Booking, error)
	AvailableSlots(ctx context.Context, date string) (*service.SlotsResult, error)
	UpdateBookingStatus(ctx context.Context, id int64, status, notes string) (*database.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}

// BookingStore defines the read queries for the admin booking list.
// Satisfied by *database.Queries; narrow interface for testability.
type BookingStore interface {
	ListBookings(ctx context.Context, arg database.ListBookingsParams) ([]database.Booking, error)
	CountBookings(ctx context.Context, arg database.CountBookingsParams) (int64, error)
}

// BookingNotifier is satisfied by *notify.Events.
type BookingNotifier interface {
	BookingCreated(b notify.BookingSummary)
}

// BookingHandler handles appointment booking endpoints.
type BookingHandler struct {
	svc    BookingServicer
	store  BookingStore
	events BookingNotifier
	hub    Publisher
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(svc BookingServicer, store BookingStore, events BookingNotifier, hub Publisher) *BookingHandler {
	return &BookingHandler{svc: svc, store: store, events: events, hub: hub}
}

// RegisterPublicRoutes registers the storefront booking endpoints. Only
// creation is rate limited.
func (h *BookingHandler) RegisterPublicRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.With(limit).Post("/bookings", h.Create)
	r.Get("/bookings/slots", h.Slots)
}

// RegisterRoutes registers admin booking endpoints at /admin/bookings.
func (h *BookingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createBookingRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Message string `json:"message"`
}

type updateBookingStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type bookingResponse struct {
	ID            int64     `json:"id"`
	BookingNumber string    `json:"booking_number"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone *string   `json:"customer_phone"`
	BookingDate   string    `json:"booking_date"`
	BookingTime   string    `json:"booking_time"`
	Notes         *string   `json:"notes"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type slotsResponse struct {
	Success        bool     `json:"success"`
	Date           string   `json:"date"`
	Available      bool     `json:"available"`
	Message        string   `json:"message,omitempty"`
	AvailableSlots []string `json:"available_slots"`
}

// --- Handlers ---

// Create handles POST /bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	booking, err := h.svc.CreateBooking(r.Context(), service.CreateBookingRequest{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Date:    req.Date,
		Time:    req.Time,
		Message: req.Message,
	})
	if err != nil {
		writeServiceError(w, "create booking", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":       true,
		"message":       "Booking created successfully",
		"bookingId":     booking.ID,
		"bookingNumber": booking.BookingNumber,
	})

	h.events.BookingCreated(service.NewBookingSummary(*booking))
	h.hub.Publish(ws.EventBookingCreated, dbBookingToResponse(*booking))
}

// Slots handles GET /bookings/slots?date=YYYY-MM-DD.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.AvailableSlots(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, "available slots", err)
		return
	}

	slots := res.Slots
	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, slotsResponse{
		Success:        true,
		Date:           res.Date,
		Available:      res.Available,
		Message:        res.Message,
		AvailableSlots: slots,
	})
}

// List handles GET /admin/bookings.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, defaultBookingListLimit, maxBookingListLimit)
	q := r.URL.Query()

	filter := database.CountBookingsParams{
		Status: optionalText(q.Get("status")),
		Search: optionalText(q.Get("search")),
	}
	if s := q.Get("date"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
			return
		}
		filter.BookingDate = pgtype.Date{Time: d, Valid: true}
	}

	bookings, err := h.store.ListBookings(r.Context(), database.ListBookingsParams{
		Status:      filter.Status,
		BookingDate: filter.BookingDate,
		Search:      filter.Search,
		Limit:       int32(limit),
		Offset:      int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list bookings: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	total, err := h.store.CountBookings(r.Context(), filter)
	if err != nil {
		log.Printf("ERROR: count bookings: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]bookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = dbBookingToResponse(b)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"bookings": resp,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// UpdateStatus handles POST /admin/bookings/{id}/status.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateBookingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	booking, err := h.svc.UpdateBookingStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		writeServiceError(w, "update booking status", err)
		return
	}

	resp := dbBookingToResponse(*booking)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Booking status updated successfully",
		"booking": resp,
	})
	h.hub.Publish(ws.EventBookingUpdated, resp)
}

// Delete handles DELETE /admin/bookings/{id}.
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteBooking(r.Context(), id); err != nil {
		writeServiceError(w, "delete booking", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Booking deleted successfully",
	})
}

// --- Helpers ---

func dbBookingToResponse(b database.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		BookingNumber: b.BookingNumber,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		CustomerPhone: textPtr(b.CustomerPhone),
		BookingDate:   b.BookingDate.Time.Format("2006-01-02"),
		BookingTime:   b.BookingTime,
		Notes:         textPtr(b.Notes),
		Status:        b.Status,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/handler"
	"github.com/readers-haven/api/internal/middleware"
	"github.com/readers-haven/api/internal/service"
	"github.com/readers-haven/api/internal/ws"
)

// --- Mocks ---

type mockBookingService struct {
	createFn func(ctx context.Context, req service.CreateBookingRequest) (*database.Booking, error)
	slotsFn  func(ctx context.Context, date string) (*service.SlotsResult, error)
	updateFn func(ctx context.Context, id int64, status, notes string) (*database.Booking, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockBookingService) CreateBooking(ctx context.Context, req service.CreateBookingRequest) (*database.Booking, error) {
	return m.createFn(ctx, req)
}

func (m *mockBookingService) AvailableSlots(ctx context.Context, date string) (*service.SlotsResult, error) {
	return m.slotsFn(ctx, date)
}

func (m *mockBookingService) UpdateBookingStatus(ctx context.Context, id int64, status, notes string) (*database.Booking, error) {
	return m.updateFn(ctx, id, status, notes)
}

func (m *mockBookingService) DeleteBooking(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

type mockBookingStore struct {
	bookings []database.Booking
	lastList database.ListBookingsParams
}

func (m *mockBookingStore) ListBookings(_ context.Context, arg database.ListBookingsParams) ([]database.Booking, error) {
	m.lastList = arg
	return m.bookings, nil
}

func (m *mockBookingStore) CountBookings(_ context.Context, _ database.CountBookingsParams) (int64, error) {
	return int64(len(m.bookings)), nil
}

type bookingFixture struct {
	svc    *mockBookingService
	store  *mockBookingStore
	events *recordingEvents
	hub    *recordingHub
	router *chi.Mux
}

func setupBookingRouter() *bookingFixture {
	f := &bookingFixture{
		svc:    &mockBookingService{},
		store:  &mockBookingStore{},
		events: &recordingEvents{},
		hub:    &recordingHub{},
	}
	h := handler.NewBookingHandler(f.svc, f.store, f.events, f.hub)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r, passthrough)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Route("/bookings", h.RegisterRoutes)
	})
	f.router = r
	return f
}

func testBooking(id int64, status string) database.Booking {
	return database.Booking{
		ID:            id,
		BookingNumber: "BOOK-20260310090000-abcdef",
		CustomerName:  "Jane Reader",
		CustomerEmail: "jane@example.com",
		BookingDate:   pgtype.Date{Time: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), Valid: true},
		BookingTime:   "10:00",
		Status:        status,
	}
}

// --- Tests ---

func TestBookingCreate(t *testing.T) {
	f := setupBookingRouter()
	f.svc.createFn = func(_ context.Context, req service.CreateBookingRequest) (*database.Booking, error) {
		if req.Date != "2026-03-12" || req.Time != "10:00" {
			t.Errorf("slot: got %s %s", req.Date, req.Time)
		}
		b := testBooking(3, "pending")
		return &b, nil
	}

	rr := doRequest(t, f.router, "POST", "/bookings",
		`{"name":"Jane Reader","email":"jane@example.com","date":"2026-03-12","time":"10:00"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["bookingNumber"] != "BOOK-20260310090000-abcdef" {
		t.Errorf("bookingNumber: got %v", resp["bookingNumber"])
	}
	if len(f.events.bookings) != 1 {
		t.Errorf("expected booking emails to be queued")
	}
	if len(f.hub.events) != 1 || f.hub.events[0] != ws.EventBookingCreated {
		t.Errorf("hub events: got %v", f.hub.events)
	}
}

func TestBookingCreate_Conflicts(t *testing.T) {
	for _, err := range []error{service.ErrSlotTaken, service.ErrDateUnavailable} {
		f := setupBookingRouter()
		f.svc.createFn = func(context.Context, service.CreateBookingRequest) (*database.Booking, error) {
			return nil, err
		}
		rr := doRequest(t, f.router, "POST", "/bookings", `{"name":"Jane"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%v: status got %d, want 400", err, rr.Code)
		}
		if msg := decodeResponse(t, rr)["message"]; msg != err.Error() {
			t.Errorf("message: got %v, want %q", msg, err.Error())
		}
	}
}

func TestBookingSlots(t *testing.T) {
	f := setupBookingRouter()
	f.svc.slotsFn = func(_ context.Context, date string) (*service.SlotsResult, error) {
		switch date {
		case "2026-03-14":
			return &service.SlotsResult{Date: date, Message: "This date is a weekend"}, nil
		case "":
			return nil, &service.ValidationError{Field: "date", Message: "date parameter required"}
		}
		return &service.SlotsResult{Date: date, Available: true, Slots: []string{"08:00", "08:30"}}, nil
	}

	rr := doRequest(t, f.router, "GET", "/bookings/slots?date=2026-03-12", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if slots := resp["available_slots"].([]interface{}); len(slots) != 2 {
		t.Errorf("slots: got %v", slots)
	}

	rr = doRequest(t, f.router, "GET", "/bookings/slots?date=2026-03-14", "")
	resp = decodeResponse(t, rr)
	if resp["available"] != false || resp["message"] != "This date is a weekend" {
		t.Errorf("weekend: got %v", resp)
	}
	if slots := resp["available_slots"].([]interface{}); len(slots) != 0 {
		t.Errorf("weekend slots should be an empty list, got %v", slots)
	}

	rr = doRequest(t, f.router, "GET", "/bookings/slots", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing date: got %d, want 400", rr.Code)
	}
}

func TestBookingList(t *testing.T) {
	f := setupBookingRouter()
	f.store.bookings = []database.Booking{testBooking(1, "pending"), testBooking(2, "confirmed")}

	rr := doAuthRequest(t, f.router, "GET", "/admin/bookings?status=pending&date=2026-03-12", nil, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if !f.store.lastList.BookingDate.Valid || f.store.lastList.Status.String != "pending" {
		t.Errorf("filters not passed: %+v", f.store.lastList)
	}
	bookings := decodeResponse(t, rr)["bookings"].([]interface{})
	if len(bookings) != 2 {
		t.Fatalf("bookings: got %d", len(bookings))
	}
	if d := bookings[0].(map[string]interface{})["booking_date"]; d != "2026-03-12" {
		t.Errorf("booking_date: got %v", d)
	}

	rr = doAuthRequest(t, f.router, "GET", "/admin/bookings?date=12-03-2026", nil, adminClaims())
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad date: got %d, want 400", rr.Code)
	}
}

func TestBookingUpdateStatus(t *testing.T) {
	f := setupBookingRouter()
	f.svc.updateFn = func(_ context.Context, id int64, status, _ string) (*database.Booking, error) {
		if id == 99 {
			return nil, service.ErrBookingNotFound
		}
		b := testBooking(id, status)
		return &b, nil
	}

	rr := doAuthRequest(t, f.router, "POST", "/admin/bookings/1/status", map[string]string{"status": "confirmed"}, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if len(f.hub.events) != 1 || f.hub.events[0] != ws.EventBookingUpdated {
		t.Errorf("hub events: got %v", f.hub.events)
	}

	rr = doAuthRequest(t, f.router, "POST", "/admin/bookings/99/status", map[string]string{"status": "confirmed"}, adminClaims())
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing booking: got %d, want 404", rr.Code)
	}
}

func TestBookingDelete(t *testing.T) {
	f := setupBookingRouter()
	f.svc.deleteFn = func(_ context.Context, id int64) error {
		if id != 1 {
			return service.ErrBookingNotFound
		}
		return nil
	}

	if rr := doAuthRequest(t, f.router, "DELETE", "/admin/bookings/1", nil, adminClaims()); rr.Code != http.StatusOK {
		t.Errorf("delete: got %d", rr.Code)
	}
	if rr := doAuthRequest(t, f.router, "DELETE", "/admin/bookings/2", nil, adminClaims()); rr.Code != http.StatusNotFound {
		t.Errorf("missing: got %d, want 404", rr.Code)
	}
}

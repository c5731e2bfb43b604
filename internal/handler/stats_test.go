package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/handler"
	"github.com/readers-haven/api/internal/middleware"
)

type mockStatsStore struct {
	stats        database.GetDashboardStatsRow
	recent       []database.Order
	upcoming     []database.Booking
	statsErr     error
	recentLimit  int32
	upcomingArgs database.ListUpcomingBookingsParams
}

func (m *mockStatsStore) GetDashboardStats(context.Context) (database.GetDashboardStatsRow, error) {
	return m.stats, m.statsErr
}

func (m *mockStatsStore) ListRecentOrders(_ context.Context, limit int32) ([]database.Order, error) {
	m.recentLimit = limit
	return m.recent, nil
}

func (m *mockStatsStore) ListUpcomingBookings(_ context.Context, arg database.ListUpcomingBookingsParams) ([]database.Booking, error) {
	m.upcomingArgs = arg
	return m.upcoming, nil
}

func setupStatsRouter(store *mockStatsStore) *chi.Mux {
	h := handler.NewStatsHandler(store)
	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		h.RegisterRoutes(r)
	})
	return r
}

func TestStatsDashboard(t *testing.T) {
	store := &mockStatsStore{
		stats: database.GetDashboardStatsRow{
			TotalOrders:      12,
			PendingOrders:    3,
			AwaitingPayments: 2,
			TotalRevenue:     testNumeric("420.5"),
			TotalBookings:    4,
			PendingBookings:  1,
			TotalCustomers:   9,
		},
		recent:   []database.Order{testOrder(1, "pending", "pod", "pending")},
		upcoming: []database.Booking{testBooking(2, "confirmed")},
	}
	r := setupStatsRouter(store)

	rr := doAuthRequest(t, r, "GET", "/admin/stats", nil, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	stats := resp["stats"].(map[string]interface{})
	if stats["totalOrders"] != float64(12) || stats["totalRevenue"] != "420.50" || stats["awaitingPayments"] != float64(2) {
		t.Errorf("stats: got %v", stats)
	}
	if orders := resp["recentOrders"].([]interface{}); len(orders) != 1 {
		t.Errorf("recentOrders: got %d", len(orders))
	}
	if bookings := resp["upcomingBookings"].([]interface{}); len(bookings) != 1 {
		t.Errorf("upcomingBookings: got %d", len(bookings))
	}
	if store.recentLimit != 5 || store.upcomingArgs.Limit != 5 {
		t.Errorf("limits: recent %d upcoming %d, want 5", store.recentLimit, store.upcomingArgs.Limit)
	}
	if !store.upcomingArgs.FromDate.Valid {
		t.Error("upcoming bookings should be bounded by today")
	}
}

func TestStatsDashboard_Errors(t *testing.T) {
	r := setupStatsRouter(&mockStatsStore{statsErr: errors.New("connection refused")})

	rr := doAuthRequest(t, r, "GET", "/admin/stats", nil, adminClaims())
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}

	if rr := doRequest(t, r, "GET", "/admin/stats", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", rr.Code)
	}
}

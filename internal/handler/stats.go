package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/readers-haven/api/internal/database"
)

const dashboardListSize = 5

// StatsStore defines the database methods needed by the dashboard.
// Satisfied by *database.Queries; narrow interface for testability.
type StatsStore interface {
	GetDashboardStats(ctx context.Context) (database.GetDashboardStatsRow, error)
	ListRecentOrders(ctx context.Context, limit int32) ([]database.Order, error)
	ListUpcomingBookings(ctx context.Context, arg database.ListUpcomingBookingsParams) ([]database.Booking, error)
}

// StatsHandler serves the admin dashboard summary.
type StatsHandler struct {
	store StatsStore
	now   func() time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(store StatsStore) *StatsHandler {
	return &StatsHandler{store: store, now: time.Now}
}

// RegisterRoutes registers GET /admin/stats.
func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.Dashboard)
}

type statsResponse struct {
	TotalOrders      int64  `json:"totalOrders"`
	PendingOrders    int64  `json:"pendingOrders"`
	AwaitingPayments int64  `json:"awaitingPayments"`
	TotalRevenue     string `json:"totalRevenue"`
	TotalBookings    int64  `json:"totalBookings"`
	PendingBookings  int64  `json:"pendingBookings"`
	TotalCustomers   int64  `json:"totalCustomers"`
}

// Dashboard returns counters, revenue over fulfilled statuses, the latest
// orders and the next bookings.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	row, err := h.store.GetDashboardStats(ctx)
	if err != nil {
		log.Printf("ERROR: dashboard stats: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	recent, err := h.store.ListRecentOrders(ctx, dashboardListSize)
	if err != nil {
		log.Printf("ERROR: recent orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := h.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	upcoming, err := h.store.ListUpcomingBookings(ctx, database.ListUpcomingBookingsParams{
		FromDate: pgtype.Date{Time: today, Valid: true},
		Limit:    dashboardListSize,
	})
	if err != nil {
		log.Printf("ERROR: upcoming bookings: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	orders := make([]orderResponse, len(recent))
	for i, o := range recent {
		orders[i] = dbOrderToResponse(o, nil)
	}
	bookings := make([]bookingResponse, len(upcoming))
	for i, b := range upcoming {
		bookings[i] = dbBookingToResponse(b)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats": statsResponse{
			TotalOrders:      row.TotalOrders,
			PendingOrders:    row.PendingOrders,
			AwaitingPayments: row.AwaitingPayments,
			TotalRevenue:     numericToString(row.TotalRevenue),
			TotalBookings:    row.TotalBookings,
			PendingBookings:  row.PendingBookings,
			TotalCustomers:   row.TotalCustomers,
		},
		"recentOrders":     orders,
		"upcomingBookings": bookings,
	})
}

package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getDashboardStats = `-- name: GetDashboardStats :one
SELECT
    (SELECT COUNT(*) FROM orders) AS total_orders,
    (SELECT COUNT(*) FROM orders WHERE status = 'pending') AS pending_orders,
    (SELECT COUNT(*) FROM orders WHERE payment_status = 'awaiting_confirmation') AS awaiting_payments,
    (SELECT COALESCE(SUM(total_amount), 0) FROM orders
        WHERE status IN ('processing', 'shipped', 'out_for_delivery', 'delivered'))::numeric(14,2) AS total_revenue,
    (SELECT COUNT(*) FROM bookings) AS total_bookings,
    (SELECT COUNT(*) FROM bookings WHERE status = 'pending') AS pending_bookings,
    (SELECT COUNT(*) FROM customers) AS total_customers
`

type GetDashboardStatsRow struct {
	TotalOrders      int64          `json:"total_orders"`
	PendingOrders    int64          `json:"pending_orders"`
	AwaitingPayments int64          `json:"awaiting_payments"`
	TotalRevenue     pgtype.Numeric `json:"total_revenue"`
	TotalBookings    int64          `json:"total_bookings"`
	PendingBookings  int64          `json:"pending_bookings"`
	TotalCustomers   int64          `json:"total_customers"`
}

func (q *Queries) GetDashboardStats(ctx context.Context) (GetDashboardStatsRow, error) {
	row := q.db.QueryRow(ctx, getDashboardStats)
	var i GetDashboardStatsRow
	err := row.Scan(
		&i.TotalOrders,
		&i.PendingOrders,
		&i.AwaitingPayments,
		&i.TotalRevenue,
		&i.TotalBookings,
		&i.PendingBookings,
		&i.TotalCustomers,
	)
	return i, err
}

package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

func scanBooking(row rowScanner) (Booking, error) {
	var i Booking
	err := row.Scan(
		&i.ID,
		&i.BookingNumber,
		&i.CustomerName,
		&i.CustomerEmail,
		&i.CustomerPhone,
		&i.BookingDate,
		&i.BookingTime,
		&i.Notes,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectBookings(rows interface {
	rowScanner
	Next() bool
	Err() error
	Close()
}) ([]Booking, error) {
	defer rows.Close()
	items := []Booking{}
	for rows.Next() {
		i, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countBookings = `-- name: CountBookings :one
SELECT COUNT(*)
FROM bookings
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::date IS NULL OR booking_date = $2)
  AND ($3::text IS NULL OR booking_number ILIKE '%' || $3 || '%' OR customer_name ILIKE '%' || $3 || '%' OR customer_email ILIKE '%' || $3 || '%')
`

type CountBookingsParams struct {
	Status      pgtype.Text `json:"status"`
	BookingDate pgtype.Date `json:"booking_date"`
	Search      pgtype.Text `json:"search"`
}

func (q *Queries) CountBookings(ctx context.Context, arg CountBookingsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countBookings, arg.Status, arg.BookingDate, arg.Search)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createBooking = `-- name: CreateBooking :one
INSERT INTO bookings (booking_number, customer_name, customer_email, customer_phone, booking_date, booking_time, notes, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
RETURNING id, booking_number, customer_name, customer_email, customer_phone, booking_date, booking_time, notes, status, created_at, updated_at
`

type CreateBookingParams struct {
	BookingNumber string      `json:"booking_number"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	CustomerPhone pgtype.Text `json:"customer_phone"`
	BookingDate   pgtype.Date `json:"booking_date"`
	BookingTime   string      `json:"booking_time"`
	Notes         pgtype.Text `json:"notes"`
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	row := q.db.QueryRow(ctx, createBooking,
		arg.BookingNumber,
		arg.CustomerName,
		arg.CustomerEmail,
		arg.CustomerPhone,
		arg.BookingDate,
		arg.BookingTime,
		arg.Notes,
	)
	return scanBooking(row)
}

const deleteBooking = `-- name: DeleteBooking :execrows
DELETE FROM bookings WHERE id = $1
`

func (q *Queries) DeleteBooking(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteBooking, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getActiveBookingAt = `-- name: GetActiveBookingAt :one
SELECT id, booking_number, customer_name, customer_email, customer_phone, booking_date, booking_time, notes, status, created_at, updated_at
FROM bookings
WHERE booking_date = $1 AND booking_time = $2 AND status IN ('pending', 'confirmed')
LIMIT 1
`

type GetActiveBookingAtParams struct {
	BookingDate pgtype.Date `json:"booking_date"`
	BookingTime string      `json:"booking_time"`
}

func (q *Queries) GetActiveBookingAt(ctx context.Context, arg GetActiveBookingAtParams) (Booking, error) {
	return scanBooking(q.db.QueryRow(ctx, getActiveBookingAt, arg.BookingDate, arg.BookingTime))
}

const getBooking = `-- name: GetBooking :one
SELECT id, booking_number, customer_name, customer_email, customer_phone, booking_date, booking_time, notes, status, created_at, updated_at
FROM bookings
WHERE id = $1
`

func (q *Queries) GetBooking(ctx context.Context, id int64) (Booking, error) {
	return scanBooking(q.db.QueryRow(ctx, getBooking, id))
}

const listBookedTimes = `-- name: ListBookedTimes :many
SELECT booking_time
FROM bookings
WHERE booking_date = $1 AND status IN ('pending', 'confirmed')
ORDER BY booking_time
`

func (q *Queries) ListBookedTimes(ctx context.Context, bookingDate pgtype.Date) ([]string, error) {
	rows, err := q.db.Query(ctx, listBookedTimes, bookingDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var booking_time string
		if err := rows.Scan(&booking_time); err != nil {
			return nil, err
		}
		items = append(items, booking_time)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listBookings = `-- name: ListBookings :many
SELECT id, booking_number, customer_name, customer_email, customer_phone, booking_date, booking_time, notes, status, created_at, updated_at
FROM bookings
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::date IS NULL OR booking_date = $2)
  AND ($3::text IS NULL OR booking_number ILIKE '%' || $3 || '%' OR customer_name ILIKE '%' || $3 || '%' OR customer_email ILIKE '%' || $3 || '%')
ORDER BY booking_date DESC, booking_time DESC
LIMIT $4 OFFSET $5
`

type ListBookingsParams struct {
	Status      pgtype.Text `json:"status"`
	BookingDate pgtype.Date `json:"booking_date"`
	Search      pgtype.Text `json:"search"`
	Limit       int32       `json:"limit"`
	Offset      int32       `json:"offset"`
}

func (q *Queries) ListBookings(ctx context.Context, arg ListBookingsParams) ([]Booking, error) {
	rows, err := q.db.Query(ctx, listBookings,
		arg.Status,
		arg.BookingDate,
		arg.Search,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

const listUpcomingBookings = `-- name: ListUpcomingBookings :many
SELECT id, booking_number, customer_name, customer_email, customer_phone, booking_date, booking_time, notes, status, created_at, updated_at
FROM bookings
WHERE booking_date >= $1 AND status IN ('pending', 'confirmed')
ORDER BY booking_date, booking_time
LIMIT $2
`

type ListUpcomingBookingsParams struct {
	FromDate pgtype.Date `json:"from_date"`
	Limit    int32       `json:"limit"`
}

func (q *Queries) ListUpcomingBookings(ctx context.Context, arg ListUpcomingBookingsParams) ([]Booking, error) {
	rows, err := q.db.Query(ctx, listUpcomingBookings, arg.FromDate, arg.Limit)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

const updateBookingStatus = `-- name: UpdateBookingStatus :one
UPDATE bookings
SET status = $2, notes = COALESCE($3, notes), updated_at = now()
WHERE id = $1
RETURNING id, booking_number, customer_name, customer_email, customer_phone, booking_date, booking_time, notes, status, created_at, updated_at
`

type UpdateBookingStatusParams struct {
	ID     int64       `json:"id"`
	Status string      `json:"status"`
	Notes  pgtype.Text `json:"notes"`
}

func (q *Queries) UpdateBookingStatus(ctx context.Context, arg UpdateBookingStatusParams) (Booking, error) {
	return scanBooking(q.db.QueryRow(ctx, updateBookingStatus, arg.ID, arg.Status, arg.Notes))
}

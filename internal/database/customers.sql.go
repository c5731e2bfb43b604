package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const countCustomers = `-- name: CountCustomers :one
SELECT COUNT(*) FROM customers c
WHERE ($1::text IS NULL OR c.name ILIKE '%' || $1 || '%' OR c.email ILIKE '%' || $1 || '%')
`

func (q *Queries) CountCustomers(ctx context.Context, search pgtype.Text) (int64, error) {
	row := q.db.QueryRow(ctx, countCustomers, search)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getCustomer = `-- name: GetCustomer :one
SELECT id, name, email, phone, address, created_at, updated_at
FROM customers
WHERE id = $1
`

func (q *Queries) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomer, id)
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.Address,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listCustomers = `-- name: ListCustomers :many
SELECT c.id, c.name, c.email, c.phone, c.address, c.created_at,
       COUNT(o.id) AS order_count,
       COALESCE(SUM(o.total_amount), 0)::numeric(12,2) AS total_spent
FROM customers c
LEFT JOIN orders o ON o.customer_id = c.id
WHERE ($1::text IS NULL OR c.name ILIKE '%' || $1 || '%' OR c.email ILIKE '%' || $1 || '%')
GROUP BY c.id
ORDER BY c.created_at DESC
LIMIT $2 OFFSET $3
`

type ListCustomersParams struct {
	Search pgtype.Text `json:"search"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

type ListCustomersRow struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Phone      pgtype.Text    `json:"phone"`
	Address    pgtype.Text    `json:"address"`
	CreatedAt  time.Time      `json:"created_at"`
	OrderCount int64          `json:"order_count"`
	TotalSpent pgtype.Numeric `json:"total_spent"`
}

func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]ListCustomersRow, error) {
	rows, err := q.db.Query(ctx, listCustomers, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListCustomersRow{}
	for rows.Next() {
		var i ListCustomersRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Email,
			&i.Phone,
			&i.Address,
			&i.CreatedAt,
			&i.OrderCount,
			&i.TotalSpent,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertCustomer = `-- name: UpsertCustomer :one
INSERT INTO customers (name, email, phone, address)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO UPDATE SET
    phone = COALESCE(NULLIF(customers.phone, ''), EXCLUDED.phone),
    address = COALESCE(NULLIF(customers.address, ''), EXCLUDED.address),
    updated_at = now()
RETURNING id
`

type UpsertCustomerParams struct {
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Phone   pgtype.Text `json:"phone"`
	Address pgtype.Text `json:"address"`
}

// UpsertCustomer never overwrites a non-empty phone or address.
func (q *Queries) UpsertCustomer(ctx context.Context, arg UpsertCustomerParams) (int64, error) {
	row := q.db.QueryRow(ctx, upsertCustomer,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Address,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

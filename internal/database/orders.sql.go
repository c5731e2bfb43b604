package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.CustomerID,
		&i.CustomerName,
		&i.CustomerEmail,
		&i.TotalAmount,
		&i.DeliveryMethodID,
		&i.DeliveryCost,
		&i.ShippingAddress,
		&i.DeliveryDetails,
		&i.Notes,
		&i.PaymentMethod,
		&i.PaymentStatus,
		&i.Status,
		&i.PaymentVerifiedAt,
		&i.PaymentVerifiedBy,
		&i.PaymentVerificationNotes,
		&i.PaymentReference,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.PaymentReminderCount,
		&i.PaymentReminderLastSentAt,
		&i.PaymentReminderClaimedAt,
	)
	return i, err
}

func scanOrderItem(row rowScanner) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.ProductName,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalPrice,
		&i.CreatedAt,
	)
	return i, err
}

const countOrders = `-- name: CountOrders :one
SELECT COUNT(*)
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR payment_status = $2)
  AND ($3::text IS NULL OR order_number ILIKE '%' || $3 || '%' OR customer_name ILIKE '%' || $3 || '%' OR customer_email ILIKE '%' || $3 || '%')
`

type CountOrdersParams struct {
	Status        pgtype.Text `json:"status"`
	PaymentStatus pgtype.Text `json:"payment_status"`
	Search        pgtype.Text `json:"search"`
}

func (q *Queries) CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error) {
	row := q.db.QueryRow(ctx, countOrders, arg.Status, arg.PaymentStatus, arg.Search)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    order_number, customer_id, customer_name, customer_email, total_amount,
    delivery_method_id, delivery_cost, shipping_address, delivery_details, notes,
    payment_method, payment_status, status
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 'pending'
)
RETURNING id, order_number, customer_id, customer_name, customer_email, total_amount, delivery_method_id, delivery_cost, shipping_address, delivery_details, notes, payment_method, payment_status, status, payment_verified_at, payment_verified_by, payment_verification_notes, payment_reference, created_at, updated_at, payment_reminder_count, payment_reminder_last_sent_at, payment_reminder_claimed_at
`

type CreateOrderParams struct {
	OrderNumber      string         `json:"order_number"`
	CustomerID       int64          `json:"customer_id"`
	CustomerName     string         `json:"customer_name"`
	CustomerEmail    string         `json:"customer_email"`
	TotalAmount      pgtype.Numeric `json:"total_amount"`
	DeliveryMethodID pgtype.Int8    `json:"delivery_method_id"`
	DeliveryCost     pgtype.Numeric `json:"delivery_cost"`
	ShippingAddress  pgtype.Text    `json:"shipping_address"`
	DeliveryDetails  []byte         `json:"delivery_details"`
	Notes            pgtype.Text    `json:"notes"`
	PaymentMethod    string         `json:"payment_method"`
	PaymentStatus    string         `json:"payment_status"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.CustomerID,
		arg.CustomerName,
		arg.CustomerEmail,
		arg.TotalAmount,
		arg.DeliveryMethodID,
		arg.DeliveryCost,
		arg.ShippingAddress,
		arg.DeliveryDetails,
		arg.Notes,
		arg.PaymentMethod,
		arg.PaymentStatus,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, product_id, product_name, quantity, unit_price, total_price, created_at
`

type CreateOrderItemParams struct {
	OrderID     int64          `json:"order_id"`
	ProductID   int64          `json:"product_id"`
	ProductName string         `json:"product_name"`
	Quantity    int32          `json:"quantity"`
	UnitPrice   pgtype.Numeric `json:"unit_price"`
	TotalPrice  pgtype.Numeric `json:"total_price"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.ProductName,
		arg.Quantity,
		arg.UnitPrice,
		arg.TotalPrice,
	)
	return scanOrderItem(row)
}

const deleteOrder = `-- name: DeleteOrder :execrows
DELETE FROM orders WHERE id = $1
`

// DeleteOrder removes the order; its items go with it via ON DELETE CASCADE.
func (q *Queries) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteOrder, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getOrder = `-- name: GetOrder :one
SELECT id, order_number, customer_id, customer_name, customer_email, total_amount, delivery_method_id, delivery_cost, shipping_address, delivery_details, notes, payment_method, payment_status, status, payment_verified_at, payment_verified_by, payment_verification_notes, payment_reference, created_at, updated_at, payment_reminder_count, payment_reminder_last_sent_at, payment_reminder_claimed_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderByNumber = `-- name: GetOrderByNumber :one
SELECT id, order_number, customer_id, customer_name, customer_email, total_amount, delivery_method_id, delivery_cost, shipping_address, delivery_details, notes, payment_method, payment_status, status, payment_verified_at, payment_verified_by, payment_verification_notes, payment_reference, created_at, updated_at, payment_reminder_count, payment_reminder_last_sent_at, payment_reminder_claimed_at
FROM orders
WHERE order_number = $1
`

func (q *Queries) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByNumber, orderNumber))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT id, order_number, customer_id, customer_name, customer_email, total_amount, delivery_method_id, delivery_cost, shipping_address, delivery_details, notes, payment_method, payment_status, status, payment_verified_at, payment_verified_by, payment_verification_notes, payment_reference, created_at, updated_at, payment_reminder_count, payment_reminder_last_sent_at, payment_reminder_claimed_at
FROM orders
WHERE id = $1
FOR NO KEY UPDATE
`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT id, order_id, product_id, product_name, quantity, unit_price, total_price, created_at
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
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

const listOrderItemsByOrders = `-- name: ListOrderItemsByOrders :many
SELECT id, order_id, product_id, product_name, quantity, unit_price, total_price, created_at
FROM order_items
WHERE order_id = ANY($1::bigint[])
ORDER BY order_id, id
`

func (q *Queries) ListOrderItemsByOrders(ctx context.Context, orderIds []int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrders, orderIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
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

const listOrders = `-- name: ListOrders :many
SELECT id, order_number, customer_id, customer_name, customer_email, total_amount, delivery_method_id, delivery_cost, shipping_address, delivery_details, notes, payment_method, payment_status, status, payment_verified_at, payment_verified_by, payment_verification_notes, payment_reference, created_at, updated_at, payment_reminder_count, payment_reminder_last_sent_at, payment_reminder_claimed_at
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR payment_status = $2)
  AND ($3::text IS NULL OR order_number ILIKE '%' || $3 || '%' OR customer_name ILIKE '%' || $3 || '%' OR customer_email ILIKE '%' || $3 || '%')
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5
`

type ListOrdersParams struct {
	Status        pgtype.Text `json:"status"`
	PaymentStatus pgtype.Text `json:"payment_status"`
	Search        pgtype.Text `json:"search"`
	Limit         int32       `json:"limit"`
	Offset        int32       `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status,
		arg.PaymentStatus,
		arg.Search,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const listRecentOrders = `-- name: ListRecentOrders :many
SELECT id, order_number, customer_id, customer_name, customer_email, total_amount, delivery_method_id, delivery_cost, shipping_address, delivery_details, notes, payment_method, payment_status, status, payment_verified_at, payment_verified_by, payment_verification_notes, payment_reference, created_at, updated_at, payment_reminder_count, payment_reminder_last_sent_at, payment_reminder_claimed_at
FROM orders
ORDER BY created_at DESC, id DESC
LIMIT $1
`

func (q *Queries) ListRecentOrders(ctx context.Context, limit int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listRecentOrders, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const markPaymentVerified = `-- name: MarkPaymentVerified :one
UPDATE orders
SET payment_status = 'completed',
    payment_verified_at = now(),
    payment_verified_by = $2,
    payment_verification_notes = $3,
    payment_reference = $4,
    status = CASE WHEN status = 'pending' THEN 'processing' ELSE status END,
    updated_at = now()
WHERE id = $1 AND payment_status <> 'completed'
RETURNING id, order_number, customer_id, customer_name, customer_email, total_amount, delivery_method_id, delivery_cost, shipping_address, delivery_details, notes, payment_method, payment_status, status, payment_verified_at, payment_verified_by, payment_verification_notes, payment_reference, created_at, updated_at, payment_reminder_count, payment_reminder_last_sent_at, payment_reminder_claimed_at
`

type MarkPaymentVerifiedParams struct {
	ID                       int64       `json:"id"`
	PaymentVerifiedBy        pgtype.Text `json:"payment_verified_by"`
	PaymentVerificationNotes pgtype.Text `json:"payment_verification_notes"`
	PaymentReference         pgtype.Text `json:"payment_reference"`
}

// MarkPaymentVerified returns pgx.ErrNoRows when the payment is already completed.
func (q *Queries) MarkPaymentVerified(ctx context.Context, arg MarkPaymentVerifiedParams) (Order, error) {
	row := q.db.QueryRow(ctx, markPaymentVerified,
		arg.ID,
		arg.PaymentVerifiedBy,
		arg.PaymentVerificationNotes,
		arg.PaymentReference,
	)
	return scanOrder(row)
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2,
    payment_status = COALESCE($3, payment_status),
    notes = COALESCE($4, notes),
    updated_at = now()
WHERE id = $1 AND status = $5
RETURNING id, order_number, customer_id, customer_name, customer_email, total_amount, delivery_method_id, delivery_cost, shipping_address, delivery_details, notes, payment_method, payment_status, status, payment_verified_at, payment_verified_by, payment_verification_notes, payment_reference, created_at, updated_at, payment_reminder_count, payment_reminder_last_sent_at, payment_reminder_claimed_at
`

type UpdateOrderStatusParams struct {
	ID            int64       `json:"id"`
	Status        string      `json:"status"`
	PaymentStatus pgtype.Text `json:"payment_status"`
	Notes         pgtype.Text `json:"notes"`
	Status_2      string      `json:"status_2"`
}

// UpdateOrderStatus only applies while the order is still in Status_2.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.Status,
		arg.PaymentStatus,
		arg.Notes,
		arg.Status_2,
	)
	return scanOrder(row)
}

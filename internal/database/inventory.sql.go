package database

import (
	"context"
)

const createInventory = `-- name: CreateInventory :exec
INSERT INTO inventory (product_id, quantity_in_stock, quantity_reserved, reorder_level)
VALUES ($1, $2, 0, 10)
ON CONFLICT (product_id) DO NOTHING
`

type CreateInventoryParams struct {
	ProductID       int64 `json:"product_id"`
	QuantityInStock int32 `json:"quantity_in_stock"`
}

func (q *Queries) CreateInventory(ctx context.Context, arg CreateInventoryParams) error {
	_, err := q.db.Exec(ctx, createInventory, arg.ProductID, arg.QuantityInStock)
	return err
}

const decrementInventory = `-- name: DecrementInventory :one
UPDATE inventory
SET quantity_in_stock = quantity_in_stock - $2, updated_at = now()
WHERE product_id = $1 AND quantity_in_stock >= $2
RETURNING quantity_in_stock
`

type DecrementInventoryParams struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

// DecrementInventory returns pgx.ErrNoRows when fewer than Quantity units remain.
func (q *Queries) DecrementInventory(ctx context.Context, arg DecrementInventoryParams) (int32, error) {
	row := q.db.QueryRow(ctx, decrementInventory, arg.ProductID, arg.Quantity)
	var quantity_in_stock int32
	err := row.Scan(&quantity_in_stock)
	return quantity_in_stock, err
}

const getInventoryForUpdate = `-- name: GetInventoryForUpdate :one
SELECT product_id, quantity_in_stock, quantity_reserved, reorder_level, updated_at
FROM inventory
WHERE product_id = $1
FOR UPDATE
`

func (q *Queries) GetInventoryForUpdate(ctx context.Context, productID int64) (Inventory, error) {
	row := q.db.QueryRow(ctx, getInventoryForUpdate, productID)
	var i Inventory
	err := row.Scan(
		&i.ProductID,
		&i.QuantityInStock,
		&i.QuantityReserved,
		&i.ReorderLevel,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertInventoryQuantity = `-- name: UpsertInventoryQuantity :one
INSERT INTO inventory (product_id, quantity_in_stock, quantity_reserved, reorder_level)
VALUES ($1, $2, 0, 10)
ON CONFLICT (product_id) DO UPDATE SET quantity_in_stock = EXCLUDED.quantity_in_stock, updated_at = now()
RETURNING product_id, quantity_in_stock, quantity_reserved, reorder_level, updated_at
`

type UpsertInventoryQuantityParams struct {
	ProductID       int64 `json:"product_id"`
	QuantityInStock int32 `json:"quantity_in_stock"`
}

func (q *Queries) UpsertInventoryQuantity(ctx context.Context, arg UpsertInventoryQuantityParams) (Inventory, error) {
	row := q.db.QueryRow(ctx, upsertInventoryQuantity, arg.ProductID, arg.QuantityInStock)
	var i Inventory
	err := row.Scan(
		&i.ProductID,
		&i.QuantityInStock,
		&i.QuantityReserved,
		&i.ReorderLevel,
		&i.UpdatedAt,
	)
	return i, err
}

package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const createFallbackProduct = `-- name: CreateFallbackProduct :one
INSERT INTO products (id, name, description, price, category, emoji, in_stock)
VALUES ($1, $2, '', $3, 'Journals', '📔', true)
ON CONFLICT (id) DO UPDATE SET updated_at = products.updated_at
RETURNING id, name, price, in_stock
`

type CreateFallbackProductParams struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Price pgtype.Numeric `json:"price"`
}

func (q *Queries) CreateFallbackProduct(ctx context.Context, arg CreateFallbackProductParams) (GetProductForOrderRow, error) {
	row := q.db.QueryRow(ctx, createFallbackProduct, arg.ID, arg.Name, arg.Price)
	var i GetProductForOrderRow
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.InStock,
	)
	return i, err
}

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (name, description, price, category, image_url, emoji, in_stock)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, name, description, price, category, image_url, emoji, in_stock, created_at, updated_at
`

type CreateProductParams struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    string         `json:"category"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	Emoji       pgtype.Text    `json:"emoji"`
	InStock     bool           `json:"in_stock"`
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Category,
		arg.ImageUrl,
		arg.Emoji,
		arg.InStock,
	)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.ImageUrl,
		&i.Emoji,
		&i.InStock,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteProduct = `-- name: DeleteProduct :execrows
DELETE FROM products WHERE id = $1
`

func (q *Queries) DeleteProduct(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteProduct, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getProduct = `-- name: GetProduct :one
SELECT id, name, description, price, category, image_url, emoji, in_stock, created_at, updated_at
FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.ImageUrl,
		&i.Emoji,
		&i.InStock,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getProductForOrder = `-- name: GetProductForOrder :one
SELECT id, name, price, in_stock
FROM products
WHERE id = $1
`

type GetProductForOrderRow struct {
	ID      int64          `json:"id"`
	Name    string         `json:"name"`
	Price   pgtype.Numeric `json:"price"`
	InStock bool           `json:"in_stock"`
}

func (q *Queries) GetProductForOrder(ctx context.Context, id int64) (GetProductForOrderRow, error) {
	row := q.db.QueryRow(ctx, getProductForOrder, id)
	var i GetProductForOrderRow
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.InStock,
	)
	return i, err
}

const listProducts = `-- name: ListProducts :many
SELECT p.id, p.name, p.description, p.price, p.category, p.image_url, p.emoji, p.in_stock, p.created_at, p.updated_at,
       i.quantity_in_stock, i.reorder_level
FROM products p
LEFT JOIN inventory i ON i.product_id = p.id
WHERE ($1::text IS NULL OR p.category = $1)
  AND ($2::boolean IS NULL OR p.in_stock = $2)
ORDER BY p.category, p.name
`

type ListProductsParams struct {
	Category pgtype.Text `json:"category"`
	InStock  pgtype.Bool `json:"in_stock"`
}

type ListProductsRow struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Price           pgtype.Numeric `json:"price"`
	Category        string         `json:"category"`
	ImageUrl        pgtype.Text    `json:"image_url"`
	Emoji           pgtype.Text    `json:"emoji"`
	InStock         bool           `json:"in_stock"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	QuantityInStock pgtype.Int4    `json:"quantity_in_stock"`
	ReorderLevel    pgtype.Int4    `json:"reorder_level"`
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]ListProductsRow, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.Category, arg.InStock)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListProductsRow{}
	for rows.Next() {
		var i ListProductsRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.Price,
			&i.Category,
			&i.ImageUrl,
			&i.Emoji,
			&i.InStock,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.QuantityInStock,
			&i.ReorderLevel,
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

const markProductOutOfStock = `-- name: MarkProductOutOfStock :exec
UPDATE products SET in_stock = false, updated_at = now() WHERE id = $1
`

func (q *Queries) MarkProductOutOfStock(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, markProductOutOfStock, id)
	return err
}

const setProductInStock = `-- name: SetProductInStock :one
UPDATE products SET in_stock = $2, updated_at = now()
WHERE id = $1
RETURNING id, name, description, price, category, image_url, emoji, in_stock, created_at, updated_at
`

type SetProductInStockParams struct {
	ID      int64 `json:"id"`
	InStock bool  `json:"in_stock"`
}

func (q *Queries) SetProductInStock(ctx context.Context, arg SetProductInStockParams) (Product, error) {
	row := q.db.QueryRow(ctx, setProductInStock, arg.ID, arg.InStock)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.ImageUrl,
		&i.Emoji,
		&i.InStock,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const syncProductIDSequence = `-- name: SyncProductIDSequence :exec
SELECT setval(pg_get_serial_sequence('products', 'id'), GREATEST((SELECT MAX(id) FROM products), 1))
`

// SyncProductIDSequence moves the id sequence past explicitly inserted ids.
func (q *Queries) SyncProductIDSequence(ctx context.Context) error {
	_, err := q.db.Exec(ctx, syncProductIDSequence)
	return err
}

const updateProduct = `-- name: UpdateProduct :one
UPDATE products
SET name = $2, description = $3, price = $4, category = $5, image_url = $6, emoji = $7, in_stock = $8, updated_at = now()
WHERE id = $1
RETURNING id, name, description, price, category, image_url, emoji, in_stock, created_at, updated_at
`

type UpdateProductParams struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    string         `json:"category"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	Emoji       pgtype.Text    `json:"emoji"`
	InStock     bool           `json:"in_stock"`
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Category,
		arg.ImageUrl,
		arg.Emoji,
		arg.InStock,
	)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.ImageUrl,
		&i.Emoji,
		&i.InStock,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

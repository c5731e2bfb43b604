package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/service"
	"github.com/readers-haven/api/internal/validate"
)

const (
	defaultCategory = "Journals"
	defaultEmoji    = "📔"
	maxStockQty     = 1000000
)

var (
	minProductPrice = decimal.RequireFromString("0.01")
	maxProductPrice = decimal.RequireFromString("999999.99")
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.ListProductsRow, error)
	GetProduct(ctx context.Context, id int64) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	DeleteProduct(ctx context.Context, id int64) (int64, error)
	SetProductInStock(ctx context.Context, arg database.SetProductInStockParams) (database.Product, error)
	CreateInventory(ctx context.Context, arg database.CreateInventoryParams) error
	UpsertInventoryQuantity(ctx context.Context, arg database.UpsertInventoryQuantityParams) (database.Inventory, error)
}

// NewProductStore creates a ProductStore from a DBTX (pool or tx).
type NewProductStore func(db database.DBTX) ProductStore

// ProductHandler handles catalog endpoints.
type ProductHandler struct {
	store    ProductStore
	pool     service.TxBeginner
	newStore NewProductStore
}

// NewProductHandler creates a new ProductHandler. Writes that touch both
// products and inventory run in a transaction from pool.
func NewProductHandler(store ProductStore, pool service.TxBeginner, newStore NewProductStore) *ProductHandler {
	return &ProductHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterPublicRoutes registers the storefront catalog endpoints.
func (h *ProductHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/products", h.List)
	r.Get("/products/{id}", h.Get)
}

// RegisterRoutes registers admin product endpoints at /admin/products.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/stock", h.UpdateStock)
}

// --- Request / Response types ---

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       any    `json:"price"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl"`
	Emoji       string `json:"emoji"`
	InStock     *bool  `json:"inStock"`
	Quantity    any    `json:"quantity"`
}

type updateStockRequest struct {
	InStock  *bool `json:"inStock"`
	Quantity any   `json:"quantity"`
}

type productResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           string    `json:"price"`
	Category        string    `json:"category"`
	ImageURL        *string   `json:"image_url"`
	Emoji           *string   `json:"emoji"`
	InStock         bool      `json:"in_stock"`
	QuantityInStock *int32    `json:"quantity_in_stock,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type validatedProduct struct {
	name        string
	description string
	price       pgtype.Numeric
	category    string
	imageURL    pgtype.Text
	emoji       pgtype.Text
	inStock     bool
	quantity    *int32
}

// --- Handlers ---

// List handles GET /products with optional category and inStock filters.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := database.ListProductsParams{Category: optionalText(q.Get("category"))}
	if s := q.Get("inStock"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid inStock filter")
			return
		}
		params.InStock = pgtype.Bool{Bool: b, Valid: true}
	}

	rows, err := h.store.ListProducts(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]productResponse, len(rows))
	for i, p := range rows {
		resp[i] = productResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       numericToString(p.Price),
			Category:    p.Category,
			ImageURL:    textPtr(p.ImageUrl),
			Emoji:       textPtr(p.Emoji),
			InStock:     p.InStock,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
		if p.QuantityInStock.Valid {
			qty := p.QuantityInStock.Int32
			resp[i].QuantityInStock = &qty
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"products": resp,
	})
}

// Get handles GET /products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Printf("ERROR: get product %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"product": toProductResponse(product),
	})
}

// Create handles POST /admin/products. A quantity, when given, starts stock
// tracking for the product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	v, ok := decodeProduct(w, r)
	if !ok {
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	store := h.newStore(tx)
	product, err := store.CreateProduct(r.Context(), database.CreateProductParams{
		Name:        v.name,
		Description: v.description,
		Price:       v.price,
		Category:    v.category,
		ImageUrl:    v.imageURL,
		Emoji:       v.emoji,
		InStock:     v.inStock,
	})
	if err != nil {
		log.Printf("ERROR: create product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if v.quantity != nil {
		if err := store.CreateInventory(r.Context(), database.CreateInventoryParams{
			ProductID:       product.ID,
			QuantityInStock: *v.quantity,
		}); err != nil {
			log.Printf("ERROR: create inventory for product %d: %v", product.ID, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit tx: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := toProductResponse(product)
	resp.QuantityInStock = v.quantity
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"message":   "Product added successfully",
		"productId": product.ID,
		"product":   resp,
	})
}

// Update handles PUT /admin/products/{id}.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	v, ok := decodeProduct(w, r)
	if !ok {
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	store := h.newStore(tx)
	product, err := store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:          id,
		Name:        v.name,
		Description: v.description,
		Price:       v.price,
		Category:    v.category,
		ImageUrl:    v.imageURL,
		Emoji:       v.emoji,
		InStock:     v.inStock,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Printf("ERROR: update product %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if v.quantity != nil {
		if _, err := store.UpsertInventoryQuantity(r.Context(), database.UpsertInventoryQuantityParams{
			ProductID:       id,
			QuantityInStock: *v.quantity,
		}); err != nil {
			log.Printf("ERROR: upsert inventory for product %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}
	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit tx: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := toProductResponse(product)
	resp.QuantityInStock = v.quantity
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Product updated successfully",
		"product": resp,
	})
}

// Delete handles DELETE /admin/products/{id}. Past order lines keep their
// product name snapshot.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	n, err := h.store.DeleteProduct(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: delete product %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Product deleted successfully",
	})
}

// UpdateStock handles POST /admin/products/{id}/stock. {"quantity": n} sets
// the tracked quantity and derives the flag; {"inStock": b} only flips the
// flag.
func (h *ProductHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateStockRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Quantity == nil {
		if req.InStock == nil {
			writeError(w, http.StatusBadRequest, "inStock or quantity is required")
			return
		}
		product, err := h.store.SetProductInStock(r.Context(), database.SetProductInStockParams{ID: id, InStock: *req.InStock})
		if err != nil {
			h.writeStockError(w, id, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Product stock updated successfully",
			"product": toProductResponse(product),
		})
		return
	}

	qty, ok := validate.Integer(req.Quantity, 0, maxStockQty)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("quantity must be a whole number between 0 and %d", maxStockQty))
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	store := h.newStore(tx)
	product, err := store.SetProductInStock(r.Context(), database.SetProductInStockParams{ID: id, InStock: qty > 0})
	if err != nil {
		h.writeStockError(w, id, err)
		return
	}
	inv, err := store.UpsertInventoryQuantity(r.Context(), database.UpsertInventoryQuantityParams{
		ProductID:       id,
		QuantityInStock: int32(qty),
	})
	if err != nil {
		log.Printf("ERROR: upsert inventory for product %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit tx: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := toProductResponse(product)
	resp.QuantityInStock = &inv.QuantityInStock
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Product quantity updated successfully",
		"product": resp,
	})
}

func (h *ProductHandler) writeStockError(w http.ResponseWriter, id int64, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	log.Printf("ERROR: set product %d stock: %v", id, err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// --- Helpers ---

// decodeProduct reads and validates a create/update body, writing a 400 on
// failure.
func decodeProduct(w http.ResponseWriter, r *http.Request) (*validatedProduct, bool) {
	var req productRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	v := &validatedProduct{inStock: true}
	var ok bool
	if v.name, ok = validate.Text(req.Name, 255, 2); !ok {
		writeError(w, http.StatusBadRequest, "product name must be 2-255 characters")
		return nil, false
	}
	if v.description, ok = validate.OptionalText(req.Description, 2000); !ok {
		writeError(w, http.StatusBadRequest, "description is too long (max 2000 characters)")
		return nil, false
	}
	price, ok := validate.Price(req.Price, minProductPrice, maxProductPrice)
	if !ok {
		writeError(w, http.StatusBadRequest, "price must be between 0.01 and 999999.99")
		return nil, false
	}
	if err := v.price.Scan(price.StringFixed(2)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return nil, false
	}

	category := req.Category
	if category == "" {
		category = defaultCategory
	}
	if v.category, ok = validate.Text(category, 100, 1); !ok {
		writeError(w, http.StatusBadRequest, "category must be 1-100 characters")
		return nil, false
	}
	imageURL, ok := validate.OptionalText(req.ImageURL, 500)
	if !ok {
		writeError(w, http.StatusBadRequest, "imageUrl is too long (max 500 characters)")
		return nil, false
	}
	v.imageURL = optionalText(imageURL)

	emoji := req.Emoji
	if emoji == "" {
		emoji = defaultEmoji
	}
	emoji, ok = validate.Text(emoji, 10, 1)
	if !ok {
		writeError(w, http.StatusBadRequest, "emoji is too long")
		return nil, false
	}
	v.emoji = optionalText(emoji)

	if req.InStock != nil {
		v.inStock = *req.InStock
	}
	if req.Quantity != nil {
		qty, ok := validate.Integer(req.Quantity, 0, maxStockQty)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("quantity must be a whole number between 0 and %d", maxStockQty))
			return nil, false
		}
		q := int32(qty)
		v.quantity = &q
		v.inStock = q > 0
	}
	return v, true
}

func toProductResponse(p database.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       numericToString(p.Price),
		Category:    p.Category,
		ImageURL:    textPtr(p.ImageUrl),
		Emoji:       textPtr(p.Emoji),
		InStock:     p.InStock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

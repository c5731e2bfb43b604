package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/enum"
	"github.com/readers-haven/api/internal/validate"
)

const (
	maxOrderNumberRetries = 3
	maxOrderItems         = 100
	maxProductID          = 999999
	maxItemQuantity       = 1000
	maxDeliveryFieldLen   = 255
	maxAddressLen         = 500
	maxNotesLen           = 1000

	orderNumberConstraint = "orders_order_number_key"
)

var (
	minItemPrice   = decimal.RequireFromString("0.01")
	maxItemPrice   = decimal.RequireFromString("99999.99")
	maxOrderTotal  = decimal.RequireFromString("999999.99")
	priceTolerance = decimal.NewFromInt(1)
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create and update orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetProductForOrder(ctx context.Context, id int64) (database.GetProductForOrderRow, error)
	CreateFallbackProduct(ctx context.Context, arg database.CreateFallbackProductParams) (database.GetProductForOrderRow, error)
	SyncProductIDSequence(ctx context.Context) error
	GetActiveDeliveryOption(ctx context.Context, id int64) (database.DeliveryOption, error)
	UpsertCustomer(ctx context.Context, arg database.UpsertCustomerParams) (int64, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetInventoryForUpdate(ctx context.Context, productID int64) (database.Inventory, error)
	DecrementInventory(ctx context.Context, arg database.DecrementInventoryParams) (int32, error)
	MarkProductOutOfStock(ctx context.Context, id int64) error
	GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the raw checkout input. Numeric fields hold whatever
// the JSON decoder produced (json.Number, string or nil).
type CreateOrderRequest struct {
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	Items            []CreateOrderItemRequest
	Total            any
	PaymentMethod    string
	DeliveryMethodID any
	DeliveryFee      any
	ShippingAddress  string
	Delivery         DeliveryDetails
}

// CreateOrderItemRequest is a single cart line.
type CreateOrderItemRequest struct {
	ID       any
	Name     string
	Quantity any
	Price    any
}

// DeliveryDetails is stored as JSON on the order.
type DeliveryDetails struct {
	Zone       string `json:"zone,omitempty"`
	Street     string `json:"street,omitempty"`
	Building   string `json:"building,omitempty"`
	Area       string `json:"area,omitempty"`
	Landmark   string `json:"landmark,omitempty"`
	Directions string `json:"directions,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// CreateOrderResult is the created order with its line items.
type CreateOrderResult struct {
	Order    database.Order
	Items    []database.OrderItem
	Subtotal decimal.Decimal
}

// UpdateOrderStatusRequest is an admin status change.
type UpdateOrderStatusRequest struct {
	OrderID       int64
	Status        string
	PaymentStatus string
	Notes         string
	// Force allows moving backwards or out of a terminal status.
	Force bool
}

// OrderDetail is an order with its line items.
type OrderDetail struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, now: time.Now}
}

// validatedOrder holds checkout input after field validation.
type validatedOrder struct {
	name             string
	email            string
	phone            string
	paymentMethod    string
	deliveryMethodID int64
	deliveryFee      decimal.Decimal
	shippingAddress  string
	details          []byte
	items            []validatedItem
}

type validatedItem struct {
	productID int64
	name      string
	quantity  int32
	price     decimal.Decimal
}

// CreateOrder validates the checkout, recomputes the total and persists the
// order atomically. Retries up to maxOrderNumberRetries times when the
// generated order number collides.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	v, err := validateOrder(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, v)
		if err == nil {
			return result, nil
		}
		if isUniqueViolation(err, orderNumberConstraint) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func validateOrder(req CreateOrderRequest) (*validatedOrder, error) {
	v := &validatedOrder{}
	var ok bool

	if v.name, ok = validate.Name(req.CustomerName); !ok {
		return nil, invalid("customerName", "invalid customer name format")
	}
	if v.email, ok = validate.Email(req.CustomerEmail); !ok {
		return nil, invalid("customerEmail", "invalid email address")
	}
	if req.CustomerPhone != "" {
		if v.phone, ok = validate.Phone(req.CustomerPhone); !ok {
			return nil, invalid("customerPhone", "invalid phone number")
		}
	}
	if len(req.Items) == 0 {
		return nil, invalid("items", "items array is required and cannot be empty")
	}
	if len(req.Items) > maxOrderItems {
		return nil, invalid("items", fmt.Sprintf("too many items in order (max %d)", maxOrderItems))
	}
	// The client total is checked for shape only; the stored total is recomputed.
	if _, ok = validate.Price(req.Total, minItemPrice, maxOrderTotal); !ok {
		return nil, invalid("total", "invalid total amount")
	}

	v.paymentMethod = req.PaymentMethod
	if !enum.IsPaymentMethod(v.paymentMethod) {
		v.paymentMethod = enum.PaymentMethodPOD
	}

	if !isEmptyValue(req.DeliveryMethodID) {
		id, ok := validate.Integer(req.DeliveryMethodID, 1, maxProductID)
		if !ok {
			return nil, invalid("deliveryMethodId", "invalid delivery method")
		}
		v.deliveryMethodID = id
	}
	if req.DeliveryFee != nil {
		if v.deliveryFee, ok = validate.Price(req.DeliveryFee, decimal.Zero, maxOrderTotal); !ok {
			return nil, invalid("deliveryFee", "invalid delivery fee")
		}
	}

	if v.shippingAddress, ok = validate.OptionalText(req.ShippingAddress, maxAddressLen); !ok {
		return nil, invalid("shippingAddress", "shipping address is too long")
	}
	details, err := validateDeliveryDetails(req.Delivery, v.phone)
	if err != nil {
		return nil, err
	}
	v.details = details

	for i, item := range req.Items {
		if item.ID == nil || item.Quantity == nil || item.Price == nil {
			return nil, invalid("items", "invalid item format, each item must have id, quantity and price")
		}
		id, ok := validate.Integer(item.ID, 1, maxProductID)
		if !ok {
			return nil, invalid("items", fmt.Sprintf("item[%d]: invalid product ID", i))
		}
		qty, ok := validate.Integer(item.Quantity, 1, maxItemQuantity)
		if !ok {
			return nil, invalid("items", fmt.Sprintf("item[%d]: invalid quantity (1-%d)", i, maxItemQuantity))
		}
		price, ok := validate.Price(item.Price, minItemPrice, maxItemPrice)
		if !ok {
			return nil, invalid("items", fmt.Sprintf("item[%d]: invalid item price", i))
		}
		name, _ := validate.Text(item.Name, maxDeliveryFieldLen, 1)
		v.items = append(v.items, validatedItem{
			productID: id,
			name:      name,
			quantity:  int32(qty),
			price:     price,
		})
	}
	return v, nil
}

func validateDeliveryDetails(d DeliveryDetails, phone string) ([]byte, error) {
	fields := []*string{&d.Zone, &d.Street, &d.Building, &d.Area, &d.Landmark, &d.Directions, &d.Notes}
	for _, f := range fields {
		clean, ok := validate.OptionalText(*f, maxDeliveryFieldLen)
		if !ok {
			return nil, invalid("delivery", "delivery details are too long")
		}
		*f = clean
	}
	d.Phone = phone
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode delivery details: %w", err)
	}
	return b, nil
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, v *validatedOrder) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Check products and prices ---
	subtotal := decimal.Zero
	lines := make([]database.CreateOrderItemParams, 0, len(v.items))
	for i, item := range v.items {
		product, err := s.productForItem(ctx, store, item)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		if !product.InStock {
			return nil, &StockUnavailableError{ProductID: product.ID, ProductName: product.Name}
		}
		catalogPrice := numericToDecimal(product.Price)
		if item.price.Sub(catalogPrice).Abs().GreaterThan(priceTolerance) {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrPriceMismatch,
				catalogPrice.StringFixed(2), item.price.StringFixed(2))
		}

		lineTotal := item.price.Mul(decimal.NewFromInt32(item.quantity))
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, database.CreateOrderItemParams{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.quantity,
			UnitPrice:   decimalToNumeric(item.price),
			TotalPrice:  decimalToNumeric(lineTotal),
		})
	}

	// --- Resolve delivery ---
	deliveryCost := v.deliveryFee
	deliveryMethodID := pgtype.Int8{}
	if v.deliveryMethodID != 0 {
		option, err := store.GetActiveDeliveryOption(ctx, v.deliveryMethodID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrDeliveryMethodNotFound
			}
			return nil, fmt.Errorf("get delivery option: %w", err)
		}
		deliveryCost = numericToDecimal(option.Cost)
		deliveryMethodID = pgtype.Int8{Int64: option.ID, Valid: true}
	}
	total := subtotal.Add(deliveryCost)

	// --- Customer ---
	customerID, err := store.UpsertCustomer(ctx, database.UpsertCustomerParams{
		Name:    v.name,
		Email:   v.email,
		Phone:   optionalText(v.phone),
		Address: optionalText(v.shippingAddress),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	// --- Insert order ---
	orderNumber, err := newReference("ORD", s.now())
	if err != nil {
		return nil, err
	}
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:      orderNumber,
		CustomerID:       customerID,
		CustomerName:     v.name,
		CustomerEmail:    v.email,
		TotalAmount:      decimalToNumeric(total),
		DeliveryMethodID: deliveryMethodID,
		DeliveryCost:     decimalToNumeric(deliveryCost),
		ShippingAddress:  optionalText(v.shippingAddress),
		DeliveryDetails:  v.details,
		PaymentMethod:    v.paymentMethod,
		PaymentStatus:    enum.InitialPaymentStatus(v.paymentMethod),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	items := make([]database.OrderItem, 0, len(lines))
	for _, line := range lines {
		line.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, line)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	// --- Decrement stock ---
	for _, item := range items {
		if err := reserveStock(ctx, store, item); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items, Subtotal: subtotal}, nil
}

// productForItem loads the catalog product, creating a minimal record when
// the storefront references an id the catalog does not have.
func (s *OrderService) productForItem(ctx context.Context, store OrderStore, item validatedItem) (database.GetProductForOrderRow, error) {
	product, err := store.GetProductForOrder(ctx, item.productID)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return product, fmt.Errorf("get product: %w", err)
	}

	name := item.name
	if name == "" {
		name = fmt.Sprintf("Product %d", item.productID)
	}
	product, err = store.CreateFallbackProduct(ctx, database.CreateFallbackProductParams{
		ID:    item.productID,
		Name:  name,
		Price: decimalToNumeric(item.price),
	})
	if err != nil {
		return product, fmt.Errorf("create fallback product: %w", err)
	}
	if err := store.SyncProductIDSequence(ctx); err != nil {
		return product, fmt.Errorf("sync product sequence: %w", err)
	}
	return product, nil
}

// reserveStock decrements tracked inventory. Products without an inventory
// row are not stock-tracked.
func reserveStock(ctx context.Context, store OrderStore, item database.OrderItem) error {
	inv, err := store.GetInventoryForUpdate(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("get inventory: %w", err)
	}
	soldOut := &StockUnavailableError{ProductID: item.ProductID, ProductName: item.ProductName}
	if inv.QuantityInStock < item.Quantity {
		return soldOut
	}

	remaining, err := store.DecrementInventory(ctx, database.DecrementInventoryParams{
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return soldOut
		}
		return fmt.Errorf("decrement inventory: %w", err)
	}
	if remaining <= 0 {
		if err := store.MarkProductOutOfStock(ctx, item.ProductID); err != nil {
			return fmt.Errorf("mark out of stock: %w", err)
		}
	}
	return nil
}

// orderStatusRank orders the forward lifecycle. Cancelled is handled apart.
var orderStatusRank = map[string]int{
	enum.OrderStatusPending:        0,
	enum.OrderStatusProcessing:     1,
	enum.OrderStatusShipped:        2,
	enum.OrderStatusOutForDelivery: 3,
	enum.OrderStatusDelivered:      4,
}

// UpdateOrderStatus applies an admin status change and returns the updated
// order with its items.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, req UpdateOrderStatusRequest) (*OrderDetail, error) {
	if _, known := orderStatusRank[req.Status]; !known && req.Status != enum.OrderStatusCancelled {
		return nil, invalid("status", "invalid status")
	}
	paymentStatus := pgtype.Text{}
	if req.PaymentStatus != "" {
		if !validate.OneOf(req.PaymentStatus,
			enum.PaymentStatusPending, enum.PaymentStatusCompleted,
			enum.PaymentStatusFailed, enum.PaymentStatusRefunded) {
			return nil, invalid("payment_status", "invalid payment status")
		}
		paymentStatus = pgtype.Text{String: req.PaymentStatus, Valid: true}
	}
	notes, ok := validate.OptionalText(req.Notes, maxNotesLen)
	if !ok {
		return nil, invalid("notes", fmt.Sprintf("notes are too long (max %d characters)", maxNotesLen))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !req.Force && !canTransition(current.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, req.Status)
	}

	order, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:            req.OrderID,
		Status:        req.Status,
		PaymentStatus: paymentStatus,
		Notes:         optionalText(notes),
		Status_2:      current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderDetail{Order: order, Items: items}, nil
}

// canTransition allows staying put, moving forward, or cancelling an order
// that is not yet delivered.
func canTransition(from, to string) bool {
	if from == to {
		return true
	}
	if from == enum.OrderStatusCancelled || from == enum.OrderStatusDelivered {
		return false
	}
	if to == enum.OrderStatusCancelled {
		return true
	}
	return orderStatusRank[to] > orderStatusRank[from]
}

// --- Helpers ---

// newReference builds a human-readable number such as ORD-20260310143015-a1b2c3.
func newReference(prefix string, now time.Time) (string, error) {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate %s number: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102150405"), hex.EncodeToString(b[:])), nil
}

// isEmptyValue treats absent, blank and zero JSON values as not provided.
func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == "" || x == "0"
	case json.Number:
		return x == "" || x == "0"
	case float64:
		return x == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	}
	return false
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

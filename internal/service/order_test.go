package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/readers-haven/api/internal/database"
)

// mockOrderStore implements OrderStore with map-backed products and inventory.
// Function fields override individual calls.
type mockOrderStore struct {
	products  map[int64]database.GetProductForOrderRow
	inventory map[int64]int32
	delivery  map[int64]database.DeliveryOption
	orders    map[int64]database.Order

	createOrderFn     func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	upsertCustomerFn  func(ctx context.Context, arg database.UpsertCustomerParams) (int64, error)

	createdOrders   []database.CreateOrderParams
	createdItems    []database.CreateOrderItemParams
	customers       []database.UpsertCustomerParams
	fallbacks       []database.CreateFallbackProductParams
	outOfStock      []int64
	sequenceSyncs   int
	statusUpdates   []database.UpdateOrderStatusParams
	nextOrderID     int64
	nextOrderItemID int64
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		products: map[int64]database.GetProductForOrderRow{
			1: {ID: 1, Name: "Gratitude Journal", Price: makeNumeric("24.99"), InStock: true},
			2: {ID: 2, Name: "Prayer Journal", Price: makeNumeric("19.99"), InStock: true},
		},
		inventory: map[int64]int32{},
		delivery:  map[int64]database.DeliveryOption{},
		orders:    map[int64]database.Order{},
	}
}

func (m *mockOrderStore) GetProductForOrder(ctx context.Context, id int64) (database.GetProductForOrderRow, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return database.GetProductForOrderRow{}, pgx.ErrNoRows
}

func (m *mockOrderStore) CreateFallbackProduct(ctx context.Context, arg database.CreateFallbackProductParams) (database.GetProductForOrderRow, error) {
	m.fallbacks = append(m.fallbacks, arg)
	p := database.GetProductForOrderRow{ID: arg.ID, Name: arg.Name, Price: arg.Price, InStock: true}
	m.products[arg.ID] = p
	return p, nil
}

func (m *mockOrderStore) SyncProductIDSequence(ctx context.Context) error {
	m.sequenceSyncs++
	return nil
}

func (m *mockOrderStore) GetActiveDeliveryOption(ctx context.Context, id int64) (database.DeliveryOption, error) {
	if d, ok := m.delivery[id]; ok && d.IsActive {
		return d, nil
	}
	return database.DeliveryOption{}, pgx.ErrNoRows
}

func (m *mockOrderStore) UpsertCustomer(ctx context.Context, arg database.UpsertCustomerParams) (int64, error) {
	if m.upsertCustomerFn != nil {
		return m.upsertCustomerFn(ctx, arg)
	}
	m.customers = append(m.customers, arg)
	return 42, nil
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if m.createOrderFn != nil {
		return m.createOrderFn(ctx, arg)
	}
	m.createdOrders = append(m.createdOrders, arg)
	m.nextOrderID++
	return database.Order{
		ID:               m.nextOrderID,
		OrderNumber:      arg.OrderNumber,
		CustomerID:       arg.CustomerID,
		CustomerName:     arg.CustomerName,
		CustomerEmail:    arg.CustomerEmail,
		TotalAmount:      arg.TotalAmount,
		DeliveryMethodID: arg.DeliveryMethodID,
		DeliveryCost:     arg.DeliveryCost,
		ShippingAddress:  arg.ShippingAddress,
		DeliveryDetails:  arg.DeliveryDetails,
		PaymentMethod:    arg.PaymentMethod,
		PaymentStatus:    arg.PaymentStatus,
		Status:           "pending",
	}, nil
}

func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	if m.createOrderItemFn != nil {
		return m.createOrderItemFn(ctx, arg)
	}
	m.createdItems = append(m.createdItems, arg)
	m.nextOrderItemID++
	return database.OrderItem{
		ID:          m.nextOrderItemID,
		OrderID:     arg.OrderID,
		ProductID:   arg.ProductID,
		ProductName: arg.ProductName,
		Quantity:    arg.Quantity,
		UnitPrice:   arg.UnitPrice,
		TotalPrice:  arg.TotalPrice,
	}, nil
}

func (m *mockOrderStore) GetInventoryForUpdate(ctx context.Context, productID int64) (database.Inventory, error) {
	if q, ok := m.inventory[productID]; ok {
		return database.Inventory{ProductID: productID, QuantityInStock: q, ReorderLevel: 10}, nil
	}
	return database.Inventory{}, pgx.ErrNoRows
}

func (m *mockOrderStore) DecrementInventory(ctx context.Context, arg database.DecrementInventoryParams) (int32, error) {
	q, ok := m.inventory[arg.ProductID]
	if !ok || q < arg.Quantity {
		return 0, pgx.ErrNoRows
	}
	m.inventory[arg.ProductID] = q - arg.Quantity
	return q - arg.Quantity, nil
}

func (m *mockOrderStore) MarkProductOutOfStock(ctx context.Context, id int64) error {
	m.outOfStock = append(m.outOfStock, id)
	return nil
}

func (m *mockOrderStore) GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error) {
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	m.statusUpdates = append(m.statusUpdates, arg)
	o, ok := m.orders[arg.ID]
	if !ok || o.Status != arg.Status_2 {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	if arg.PaymentStatus.Valid {
		o.PaymentStatus = arg.PaymentStatus.String
	}
	if arg.Notes.Valid {
		o.Notes = arg.Notes
	}
	m.orders[arg.ID] = o
	return o, nil
}

func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error) {
	return []database.OrderItem{
		{ID: 1, OrderID: orderID, ProductID: 1, ProductName: "Gratitude Journal", Quantity: 1, UnitPrice: makeNumeric("24.99"), TotalPrice: makeNumeric("24.99")},
	}, nil
}

// newTestOrderService creates an OrderService with mocked dependencies.
func newTestOrderService(store *mockOrderStore) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	svc := NewOrderService(pool, newStore)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 14, 30, 15, 0, time.UTC) }
	return svc, tx
}

func basicOrderReq() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerName:  "Jane Doe",
		CustomerEmail: "Jane@Example.com",
		Items: []CreateOrderItemRequest{
			{ID: json.Number("1"), Quantity: json.Number("2"), Price: json.Number("24.99")},
			{ID: json.Number("2"), Quantity: json.Number("1"), Price: json.Number("19.99")},
		},
		Total:         json.Number("69.97"),
		PaymentMethod: "pod",
	}
}

func assertValidationError(t *testing.T, err error, field string) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	if ve.Field != field {
		t.Errorf("expected field %q, got %q (%s)", field, ve.Field, ve.Message)
	}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CreateOrderRequest)
		field  string
	}{
		{"bad name", func(r *CreateOrderRequest) { r.CustomerName = "J4ne" }, "customerName"},
		{"bad email", func(r *CreateOrderRequest) { r.CustomerEmail = "not-an-email" }, "customerEmail"},
		{"bad phone", func(r *CreateOrderRequest) { r.CustomerPhone = "12" }, "customerPhone"},
		{"no items", func(r *CreateOrderRequest) { r.Items = nil }, "items"},
		{"too many items", func(r *CreateOrderRequest) {
			r.Items = make([]CreateOrderItemRequest, 101)
		}, "items"},
		{"missing total", func(r *CreateOrderRequest) { r.Total = nil }, "total"},
		{"zero total", func(r *CreateOrderRequest) { r.Total = json.Number("0") }, "total"},
		{"item without price", func(r *CreateOrderRequest) { r.Items[0].Price = nil }, "items"},
		{"product id out of range", func(r *CreateOrderRequest) { r.Items[0].ID = json.Number("1000000") }, "items"},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = json.Number("0") }, "items"},
		{"fractional quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = json.Number("1.5") }, "items"},
		{"price too high", func(r *CreateOrderRequest) { r.Items[0].Price = json.Number("100000") }, "items"},
		{"bad delivery method", func(r *CreateOrderRequest) { r.DeliveryMethodID = "abc" }, "deliveryMethodId"},
		{"negative delivery fee", func(r *CreateOrderRequest) { r.DeliveryFee = json.Number("-5") }, "deliveryFee"},
		{"long delivery field", func(r *CreateOrderRequest) { r.Delivery.Street = strings.Repeat("a", 256) }, "delivery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockOrderStore()
			svc, _ := newTestOrderService(store)
			req := basicOrderReq()
			tt.mutate(&req)

			_, err := svc.CreateOrder(context.Background(), req)
			assertValidationError(t, err, tt.field)
			if len(store.createdOrders) != 0 {
				t.Error("no order should be created")
			}
		})
	}
}

// =====================
// Happy path
// =====================

func TestCreateOrder_TotalIsRecomputed(t *testing.T) {
	store := newMockOrderStore()
	svc, tx := newTestOrderService(store)

	req := basicOrderReq()
	req.Total = json.Number("1.00") // client total is ignored
	req.DeliveryFee = json.Number("5000")

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("expected commit")
	}
	if !numericEquals(result.Order.TotalAmount, "5069.97") {
		t.Errorf("expected total 5069.97, got %v", numericToDecimal(result.Order.TotalAmount))
	}
	if !numericEquals(result.Order.DeliveryCost, "5000") {
		t.Errorf("expected delivery cost 5000, got %v", numericToDecimal(result.Order.DeliveryCost))
	}
	if result.Subtotal.StringFixed(2) != "69.97" {
		t.Errorf("expected subtotal 69.97, got %s", result.Subtotal)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	first := result.Items[0]
	if first.Quantity != 2 || !numericEquals(first.UnitPrice, "24.99") || !numericEquals(first.TotalPrice, "49.98") {
		t.Errorf("unexpected first line: qty=%d unit=%v total=%v", first.Quantity,
			numericToDecimal(first.UnitPrice), numericToDecimal(first.TotalPrice))
	}
	if first.ProductName != "Gratitude Journal" {
		t.Errorf("expected catalog name snapshot, got %q", first.ProductName)
	}
	if result.Order.CustomerEmail != "jane@example.com" {
		t.Errorf("expected normalized email, got %q", result.Order.CustomerEmail)
	}
}

func TestCreateOrder_OrderNumberFormat(t *testing.T) {
	store := newMockOrderStore()
	svc, _ := newTestOrderService(store)

	result, err := svc.CreateOrder(context.Background(), basicOrderReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	num := result.Order.OrderNumber
	if !strings.HasPrefix(num, "ORD-20260310143015-") || len(num) != len("ORD-20260310143015-")+6 {
		t.Errorf("unexpected order number %q", num)
	}
}

func TestCreateOrder_InitialPaymentStatus(t *testing.T) {
	tests := []struct {
		method     string
		wantMethod string
		wantStatus string
	}{
		{"pod", "pod", "pending"},
		{"bank_transfer", "bank_transfer", "awaiting_confirmation"},
		{"mobile_money", "mobile_money", "awaiting_confirmation"},
		{"card", "card", "processing"},
		{"paypal", "paypal", "processing"},
		{"bitcoin", "pod", "pending"},
		{"", "pod", "pending"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			store := newMockOrderStore()
			svc, _ := newTestOrderService(store)
			req := basicOrderReq()
			req.PaymentMethod = tt.method

			result, err := svc.CreateOrder(context.Background(), req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Order.PaymentMethod != tt.wantMethod {
				t.Errorf("expected method %q, got %q", tt.wantMethod, result.Order.PaymentMethod)
			}
			if result.Order.PaymentStatus != tt.wantStatus {
				t.Errorf("expected payment status %q, got %q", tt.wantStatus, result.Order.PaymentStatus)
			}
		})
	}
}

func TestCreateOrder_CustomerUpsert(t *testing.T) {
	store := newMockOrderStore()
	svc, _ := newTestOrderService(store)
	req := basicOrderReq()
	req.CustomerPhone = "+256 700 123456"
	req.ShippingAddress = "Plot 4, Kampala Road"

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.customers) != 1 {
		t.Fatalf("expected 1 customer upsert, got %d", len(store.customers))
	}
	c := store.customers[0]
	if c.Email != "jane@example.com" || c.Phone.String != "+256 700 123456" || c.Address.String != "Plot 4, Kampala Road" {
		t.Errorf("unexpected customer params: %+v", c)
	}
	if result.Order.CustomerID != 42 {
		t.Errorf("expected customer id 42, got %d", result.Order.CustomerID)
	}
}

func TestCreateOrder_DeliveryDetailsStored(t *testing.T) {
	store := newMockOrderStore()
	svc, _ := newTestOrderService(store)
	req := basicOrderReq()
	req.CustomerPhone = "0700123456"
	req.Delivery = DeliveryDetails{Zone: "Central", Street: "Kampala Rd", Landmark: "<Opposite bank>"}

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got DeliveryDetails
	if err := json.Unmarshal(result.Order.DeliveryDetails, &got); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if got.Zone != "Central" || got.Street != "Kampala Rd" || got.Phone != "0700123456" {
		t.Errorf("unexpected details: %+v", got)
	}
	if got.Landmark != "&lt;Opposite bank&gt;" {
		t.Errorf("expected escaped landmark, got %q", got.Landmark)
	}
}

// =====================
// Business rules
// =====================

func TestCreateOrder_OutOfStockProduct(t *testing.T) {
	store := newMockOrderStore()
	p := store.products[2]
	p.InStock = false
	store.products[2] = p
	svc, tx := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq())
	if !errors.Is(err, ErrStockUnavailable) {
		t.Fatalf("expected ErrStockUnavailable, got: %v", err)
	}
	var se *StockUnavailableError
	if !errors.As(err, &se) || se.ProductName != "Prayer Journal" {
		t.Errorf("expected error naming Prayer Journal, got: %v", err)
	}
	if len(store.createdOrders) != 0 || tx.committed {
		t.Error("no order should persist")
	}
}

func TestCreateOrder_PriceMismatch(t *testing.T) {
	store := newMockOrderStore()
	svc, tx := newTestOrderService(store)
	req := basicOrderReq()
	req.Items[0].Price = json.Number("26.00") // 1.01 above catalog

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrPriceMismatch) {
		t.Fatalf("expected ErrPriceMismatch, got: %v", err)
	}
	if !strings.Contains(err.Error(), "expected 24.99, got 26.00") {
		t.Errorf("expected prices in message, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction must not commit")
	}
}

func TestCreateOrder_PriceWithinTolerance(t *testing.T) {
	store := newMockOrderStore()
	svc, _ := newTestOrderService(store)
	req := basicOrderReq()
	req.Items = req.Items[:1]
	req.Items[0].Price = json.Number("25.99") // exactly 1.00 above

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(result.Order.TotalAmount, "51.98") {
		t.Errorf("expected total 51.98, got %v", numericToDecimal(result.Order.TotalAmount))
	}
}

func TestCreateOrder_FallbackProduct(t *testing.T) {
	store := newMockOrderStore()
	svc, _ := newTestOrderService(store)
	req := basicOrderReq()
	req.Items = []CreateOrderItemRequest{
		{ID: json.Number("77"), Name: "Dream Journal", Quantity: json.Number("1"), Price: json.Number("15.00")},
		{ID: json.Number("78"), Quantity: json.Number("1"), Price: json.Number("10.00")},
	}

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.fallbacks) != 2 {
		t.Fatalf("expected 2 fallback products, got %d", len(store.fallbacks))
	}
	if store.fallbacks[0].ID != 77 || store.fallbacks[0].Name != "Dream Journal" {
		t.Errorf("unexpected fallback: %+v", store.fallbacks[0])
	}
	if store.fallbacks[1].Name != "Product 78" {
		t.Errorf("expected generated name, got %q", store.fallbacks[1].Name)
	}
	if store.sequenceSyncs != 2 {
		t.Errorf("expected sequence sync per fallback, got %d", store.sequenceSyncs)
	}
	if !numericEquals(result.Order.TotalAmount, "25.00") {
		t.Errorf("expected total 25.00, got %v", numericToDecimal(result.Order.TotalAmount))
	}
}

func TestCreateOrder_DeliveryMethodOverridesFee(t *testing.T) {
	store := newMockOrderStore()
	store.delivery[3] = database.DeliveryOption{ID: 3, Name: "Boda", Cost: makeNumeric("8000"), IsActive: true}
	svc, _ := newTestOrderService(store)
	req := basicOrderReq()
	req.DeliveryMethodID = json.Number("3")
	req.DeliveryFee = json.Number("1")

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(result.Order.DeliveryCost, "8000") {
		t.Errorf("expected delivery cost 8000, got %v", numericToDecimal(result.Order.DeliveryCost))
	}
	if !numericEquals(result.Order.TotalAmount, "8069.97") {
		t.Errorf("expected total 8069.97, got %v", numericToDecimal(result.Order.TotalAmount))
	}
	if !result.Order.DeliveryMethodID.Valid || result.Order.DeliveryMethodID.Int64 != 3 {
		t.Errorf("expected delivery method 3, got %+v", result.Order.DeliveryMethodID)
	}
}

func TestCreateOrder_InactiveDeliveryMethod(t *testing.T) {
	store := newMockOrderStore()
	store.delivery[3] = database.DeliveryOption{ID: 3, Cost: makeNumeric("8000"), IsActive: false}
	svc, _ := newTestOrderService(store)
	req := basicOrderReq()
	req.DeliveryMethodID = json.Number("3")

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrDeliveryMethodNotFound) {
		t.Fatalf("expected ErrDeliveryMethodNotFound, got: %v", err)
	}
}

func TestCreateOrder_ZeroDeliveryMethodIgnored(t *testing.T) {
	store := newMockOrderStore()
	svc, _ := newTestOrderService(store)
	req := basicOrderReq()
	req.DeliveryMethodID = json.Number("0")

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.DeliveryMethodID.Valid {
		t.Error("expected no delivery method")
	}
}

// =====================
// Inventory
// =====================

func TestCreateOrder_DecrementsTrackedInventory(t *testing.T) {
	store := newMockOrderStore()
	store.inventory[1] = 5
	store.inventory[2] = 1
	svc, _ := newTestOrderService(store)

	if _, err := svc.CreateOrder(context.Background(), basicOrderReq()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.inventory[1] != 3 {
		t.Errorf("expected product 1 stock 3, got %d", store.inventory[1])
	}
	if store.inventory[2] != 0 {
		t.Errorf("expected product 2 stock 0, got %d", store.inventory[2])
	}
	if len(store.outOfStock) != 1 || store.outOfStock[0] != 2 {
		t.Errorf("expected product 2 marked out of stock, got %v", store.outOfStock)
	}
}

func TestCreateOrder_InsufficientInventory(t *testing.T) {
	store := newMockOrderStore()
	store.inventory[1] = 1 // order wants 2
	svc, tx := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq())
	var se *StockUnavailableError
	if !errors.As(err, &se) {
		t.Fatalf("expected StockUnavailableError, got: %v", err)
	}
	if se.ProductID != 1 {
		t.Errorf("expected product 1, got %d", se.ProductID)
	}
	if tx.committed {
		t.Error("transaction must not commit")
	}
}

func TestCreateOrder_UntrackedProductSkipsInventory(t *testing.T) {
	store := newMockOrderStore()
	svc, _ := newTestOrderService(store)

	if _, err := svc.CreateOrder(context.Background(), basicOrderReq()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.outOfStock) != 0 {
		t.Errorf("expected no stock changes, got %v", store.outOfStock)
	}
}

// =====================
// Transaction handling
// =====================

func TestCreateOrder_RetryOnUniqueViolation(t *testing.T) {
	store := newMockOrderStore()
	var numbers []string
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		numbers = append(numbers, arg.OrderNumber)
		if len(numbers) == 1 {
			return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}
		}
		return database.Order{ID: 9, OrderNumber: arg.OrderNumber, TotalAmount: arg.TotalAmount}, nil
	}
	svc, _ := newTestOrderService(store)

	result, err := svc.CreateOrder(context.Background(), basicOrderReq())
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if len(numbers) != 2 {
		t.Fatalf("expected 2 CreateOrder calls, got %d", len(numbers))
	}
	if result.Order.OrderNumber != numbers[1] {
		t.Errorf("expected second number %q, got %q", numbers[1], result.Order.OrderNumber)
	}
}

func TestCreateOrder_RetryExhausted(t *testing.T) {
	store := newMockOrderStore()
	calls := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		calls++
		return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}
	}
	svc, _ := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq())
	if err == nil {
		t.Fatal("expected error after exhausting retries, got nil")
	}
	if calls != maxOrderNumberRetries {
		t.Errorf("expected %d attempts, got %d", maxOrderNumberRetries, calls)
	}
	if !strings.Contains(err.Error(), "create order") {
		t.Errorf("expected 'create order' in error message, got: %v", err)
	}
}

func TestCreateOrder_OtherUniqueViolationNotRetried(t *testing.T) {
	store := newMockOrderStore()
	calls := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		calls++
		return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "customers_email_key"}
	}
	svc, _ := newTestOrderService(store)

	if _, err := svc.CreateOrder(context.Background(), basicOrderReq()); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestCreateOrder_ItemInsertFailureRollsBack(t *testing.T) {
	store := newMockOrderStore()
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		return database.OrderItem{}, errors.New("connection reset")
	}
	svc, tx := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq())
	if err == nil || !strings.Contains(err.Error(), "create order item") {
		t.Fatalf("expected create order item error, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction must not commit")
	}
}

func TestCreateOrder_BeginFails(t *testing.T) {
	store := newMockOrderStore()
	pool := &mockTxBeginner{err: errors.New("pool closed")}
	svc := NewOrderService(pool, func(db database.DBTX) OrderStore { return store })

	_, err := svc.CreateOrder(context.Background(), basicOrderReq())
	if err == nil || !strings.Contains(err.Error(), "begin tx") {
		t.Fatalf("expected begin tx error, got: %v", err)
	}
}

// =====================
// Status updates
// =====================

func TestUpdateOrderStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		force   bool
		wantErr error
	}{
		{"forward", "pending", "processing", false, nil},
		{"skip ahead", "processing", "delivered", false, nil},
		{"out for delivery", "shipped", "out_for_delivery", false, nil},
		{"same status", "shipped", "shipped", false, nil},
		{"cancel", "processing", "cancelled", false, nil},
		{"backwards", "shipped", "pending", false, ErrInvalidTransition},
		{"reopen cancelled", "cancelled", "pending", false, ErrInvalidTransition},
		{"cancel delivered", "delivered", "cancelled", false, ErrInvalidTransition},
		{"forced correction", "shipped", "processing", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockOrderStore()
			store.orders[5] = database.Order{ID: 5, Status: tt.from, PaymentStatus: "pending"}
			svc, tx := newTestOrderService(store)

			detail, err := svc.UpdateOrderStatus(context.Background(), UpdateOrderStatusRequest{
				OrderID: 5, Status: tt.to, Force: tt.force,
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got: %v", tt.wantErr, err)
				}
				if tx.committed {
					t.Error("transaction must not commit")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if detail.Order.Status != tt.to {
				t.Errorf("expected status %q, got %q", tt.to, detail.Order.Status)
			}
			if len(detail.Items) != 1 {
				t.Errorf("expected items to be returned")
			}
			if store.statusUpdates[0].Status_2 != tt.from {
				t.Errorf("expected guard on %q, got %q", tt.from, store.statusUpdates[0].Status_2)
			}
		})
	}
}

func TestUpdateOrderStatus_PaymentStatusAndNotes(t *testing.T) {
	store := newMockOrderStore()
	store.orders[5] = database.Order{ID: 5, Status: "processing", PaymentStatus: "pending"}
	svc, _ := newTestOrderService(store)

	detail, err := svc.UpdateOrderStatus(context.Background(), UpdateOrderStatusRequest{
		OrderID: 5, Status: "delivered", PaymentStatus: "completed", Notes: "Paid cash <on> delivery",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Order.PaymentStatus != "completed" {
		t.Errorf("expected payment status completed, got %q", detail.Order.PaymentStatus)
	}
	if detail.Order.Notes != (pgtype.Text{String: "Paid cash &lt;on&gt; delivery", Valid: true}) {
		t.Errorf("unexpected notes %+v", detail.Order.Notes)
	}
}

func TestUpdateOrderStatus_Invalid(t *testing.T) {
	store := newMockOrderStore()
	store.orders[5] = database.Order{ID: 5, Status: "pending"}
	svc, _ := newTestOrderService(store)

	_, err := svc.UpdateOrderStatus(context.Background(), UpdateOrderStatusRequest{OrderID: 5, Status: "lost"})
	assertValidationError(t, err, "status")

	_, err = svc.UpdateOrderStatus(context.Background(), UpdateOrderStatusRequest{
		OrderID: 5, Status: "processing", PaymentStatus: "awaiting_confirmation",
	})
	assertValidationError(t, err, "payment_status")

	_, err = svc.UpdateOrderStatus(context.Background(), UpdateOrderStatusRequest{
		OrderID: 5, Status: "processing", Notes: strings.Repeat("x", 1001),
	})
	assertValidationError(t, err, "notes")
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	svc, _ := newTestOrderService(newMockOrderStore())
	_, err := svc.UpdateOrderStatus(context.Background(), UpdateOrderStatusRequest{OrderID: 99, Status: "processing"})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

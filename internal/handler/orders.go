package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/enum"
	"github.com/readers-haven/api/internal/middleware"
	"github.com/readers-haven/api/internal/notify"
	"github.com/readers-haven/api/internal/service"
	"github.com/readers-haven/api/internal/ws"
)

const (
	defaultOrderListLimit = 50
	maxOrderListLimit     = 500
	defaultVerifyNotes    = "Bank transfer verified by admin"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	UpdateOrderStatus(ctx context.Context, req service.UpdateOrderStatusRequest) (*service.OrderDetail, error)
}

// PaymentVerifier is satisfied by *service.PaymentService.
type PaymentVerifier interface {
	Verify(ctx context.Context, req service.VerifyPaymentRequest) (*service.OrderDetail, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
	ListOrderItemsByOrders(ctx context.Context, orderIds []int64) ([]database.OrderItem, error)
	GetCustomer(ctx context.Context, id int64) (database.Customer, error)
	DeleteOrder(ctx context.Context, id int64) (int64, error)
}

// OrderNotifier queues customer and admin emails for order events.
// Satisfied by *notify.Events.
type OrderNotifier interface {
	OrderCreated(o notify.OrderSummary)
	PaymentVerified(o notify.OrderSummary)
}

// Publisher pushes live events to connected dashboards. Satisfied by *ws.Hub.
type Publisher interface {
	Publish(eventType string, payload any)
}

// OrderHandler handles checkout and admin order endpoints.
type OrderHandler struct {
	svc      OrderServicer
	payments PaymentVerifier
	store    OrderStore
	events   OrderNotifier
	hub      Publisher
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, payments PaymentVerifier, store OrderStore, events OrderNotifier, hub Publisher) *OrderHandler {
	return &OrderHandler{svc: svc, payments: payments, store: store, events: events, hub: hub}
}

// RegisterPublicRoutes registers the storefront checkout endpoint. limit
// wraps it with the per-client rate limiter.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.With(limit).Post("/orders", h.Create)
}

// RegisterRoutes registers admin order endpoints.
// Expected to be mounted at /admin/orders behind authentication.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/verify-bank-transfer", h.VerifyBankTransfer)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/verify-payment", h.VerifyPayment)
}

// --- Request / Response types ---

// createOrderRequest mirrors the storefront checkout payload. Numeric
// fields stay untyped so the service can accept numbers or numeric strings.
type createOrderRequest struct {
	CustomerName     string                   `json:"customerName"`
	CustomerEmail    string                   `json:"customerEmail"`
	CustomerPhone    string                   `json:"customerPhone"`
	Items            []createOrderItemRequest `json:"items"`
	Total            any                      `json:"total"`
	PaymentMethod    string                   `json:"paymentMethod"`
	DeliveryMethodID any                      `json:"deliveryMethodId"`
	DeliveryFee      any                      `json:"deliveryFee"`
	ShippingAddress  string                   `json:"shippingAddress"`
	DeliveryZone     string                   `json:"deliveryZone"`
	DeliveryStreet   string                   `json:"deliveryStreet"`
	DeliveryBuilding string                   `json:"deliveryBuilding"`
	DeliveryArea     string                   `json:"deliveryArea"`
	DeliveryLandmark string                   `json:"deliveryLandmark"`
	DeliveryDirs     string                   `json:"deliveryDirections"`
	DeliveryNotes    string                   `json:"deliveryNotes"`
}

type createOrderItemRequest struct {
	ID       any    `json:"id"`
	Name     string `json:"name"`
	Quantity any    `json:"quantity"`
	Price    any    `json:"price"`
}

type createOrderResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	OrderID       int64  `json:"orderId"`
	OrderNumber   string `json:"orderNumber"`
	PaymentMethod string `json:"paymentMethod"`
	PaymentStatus string `json:"paymentStatus"`
	Total         string `json:"total"`
}

type updateOrderStatusRequest struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Notes         string `json:"notes"`
	Force         bool   `json:"force"`
}

type verifyPaymentRequest struct {
	Notes     string `json:"notes"`
	Reference string `json:"reference"`
	Amount    any    `json:"amount"`
}

type verifyBankTransferRequest struct {
	OrderID     json.Number `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	VerifyNotes string      `json:"verifyNotes"`
}

type orderItemResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TotalPrice  string `json:"total_price"`
}

type orderResponse struct {
	ID                int64               `json:"id"`
	OrderNumber       string              `json:"order_number"`
	CustomerID        int64               `json:"customer_id"`
	CustomerName      string              `json:"customer_name"`
	CustomerEmail     string              `json:"customer_email"`
	CustomerPhone     *string             `json:"customer_phone,omitempty"`
	CustomerAddress   *string             `json:"customer_address,omitempty"`
	TotalAmount       string              `json:"total_amount"`
	DeliveryMethodID  *int64              `json:"delivery_method_id"`
	DeliveryCost      string              `json:"delivery_cost"`
	ShippingAddress   *string             `json:"shipping_address"`
	DeliveryDetails   json.RawMessage     `json:"delivery_details,omitempty"`
	Notes             *string             `json:"notes"`
	PaymentMethod     string              `json:"payment_method"`
	PaymentStatus     string              `json:"payment_status"`
	Status            string              `json:"status"`
	PaymentVerifiedAt *time.Time          `json:"payment_verified_at"`
	PaymentVerifiedBy *string             `json:"payment_verified_by"`
	PaymentReference  *string             `json:"payment_reference"`
	ReminderCount     int32               `json:"payment_reminder_count"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	Items             []orderItemResponse `json:"items"`
}

type orderListResponse struct {
	Success bool            `json:"success"`
	Orders  []orderResponse `json:"orders"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type orderDetailResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Order   orderResponse `json:"order"`
}

// orderEvent is the live-feed payload for order changes.
type orderEvent struct {
	ID            int64  `json:"id"`
	OrderNumber   string `json:"order_number"`
	CustomerName  string `json:"customer_name"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status"`
	Total         string `json:"total"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			ID:       it.ID,
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.Price,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		Items:            items,
		Total:            req.Total,
		PaymentMethod:    req.PaymentMethod,
		DeliveryMethodID: req.DeliveryMethodID,
		DeliveryFee:      req.DeliveryFee,
		ShippingAddress:  req.ShippingAddress,
		Delivery: service.DeliveryDetails{
			Zone:       req.DeliveryZone,
			Street:     req.DeliveryStreet,
			Building:   req.DeliveryBuilding,
			Area:       req.DeliveryArea,
			Landmark:   req.DeliveryLandmark,
			Directions: req.DeliveryDirs,
			Notes:      req.DeliveryNotes,
		},
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	order := result.Order
	writeJSON(w, http.StatusCreated, createOrderResponse{
		Success:       true,
		Message:       "Order created successfully",
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		Total:         numericToString(order.TotalAmount),
	})

	h.events.OrderCreated(service.NewOrderSummary(order, result.Items))
	h.hub.Publish(ws.EventOrderCreated, toOrderEvent(order))
}

// List handles GET /admin/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, defaultOrderListLimit, maxOrderListLimit)
	q := r.URL.Query()

	paymentStatus := q.Get("paymentStatus")
	if paymentStatus == "" {
		paymentStatus = q.Get("payment_status")
	}
	filter := database.CountOrdersParams{
		Status:        optionalText(q.Get("status")),
		PaymentStatus: optionalText(paymentStatus),
		Search:        optionalText(q.Get("search")),
	}

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		Status:        filter.Status,
		PaymentStatus: filter.PaymentStatus,
		Search:        filter.Search,
		Limit:         int32(limit),
		Offset:        int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	total, err := h.store.CountOrders(r.Context(), filter)
	if err != nil {
		log.Printf("ERROR: count orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	byOrder := make(map[int64][]database.OrderItem, len(orders))
	if len(orders) > 0 {
		ids := make([]int64, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		items, err := h.store.ListOrderItemsByOrders(r.Context(), ids)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		for _, it := range items {
			byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
		}
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o, byOrder[o.ID])
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Success: true,
		Orders:  resp,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// Get handles GET /admin/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := dbOrderToResponse(order, items)
	customer, err := h.store.GetCustomer(r.Context(), order.CustomerID)
	switch {
	case err == nil:
		resp.CustomerPhone = textPtr(customer.Phone)
		resp.CustomerAddress = textPtr(customer.Address)
	case !errors.Is(err, pgx.ErrNoRows):
		log.Printf("ERROR: get customer %d: %v", order.CustomerID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{Success: true, Order: resp})
}

// UpdateStatus handles POST /admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	detail, err := h.svc.UpdateOrderStatus(r.Context(), service.UpdateOrderStatusRequest{
		OrderID:       id,
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		Notes:         req.Notes,
		Force:         req.Force,
	})
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		Success: true,
		Message: "Order status updated successfully",
		Order:   dbOrderToResponse(detail.Order, detail.Items),
	})
	h.hub.Publish(ws.EventOrderUpdated, toOrderEvent(detail.Order))
}

// Delete handles DELETE /admin/orders/{id}. Line items cascade.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	n, err := h.store.DeleteOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: delete order %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order deleted successfully",
	})
}

// VerifyPayment handles POST /admin/orders/{id}/verify-payment. Any payment
// method may be confirmed here.
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req verifyPaymentRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	detail, err := h.payments.Verify(r.Context(), service.VerifyPaymentRequest{
		OrderID:    id,
		Notes:      req.Notes,
		Reference:  req.Reference,
		Amount:     req.Amount,
		VerifiedBy: verifierName(r),
	})
	if err != nil {
		writeServiceError(w, "verify payment", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Payment verified successfully",
		"data": map[string]interface{}{
			"orderId":     detail.Order.ID,
			"orderNumber": detail.Order.OrderNumber,
			"verifiedAt":  detail.Order.PaymentVerifiedAt.Time,
		},
	})
	h.afterVerify(detail)
}

// VerifyBankTransfer handles POST /admin/orders/verify-bank-transfer. The
// order must have been placed by bank transfer and still await confirmation.
func (h *OrderHandler) VerifyBankTransfer(w http.ResponseWriter, r *http.Request) {
	var req verifyBankTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := strconv.ParseInt(req.OrderID.String(), 10, 64)
	if err != nil || id <= 0 || req.OrderNumber == "" {
		writeError(w, http.StatusBadRequest, "orderId and orderNumber are required")
		return
	}
	notes := req.VerifyNotes
	if notes == "" {
		notes = defaultVerifyNotes
	}

	detail, err := h.payments.Verify(r.Context(), service.VerifyPaymentRequest{
		OrderID:       id,
		OrderNumber:   req.OrderNumber,
		RequireMethod: enum.PaymentMethodBankTransfer,
		Notes:         notes,
		VerifiedBy:    verifierName(r),
	})
	if err != nil {
		writeServiceError(w, "verify bank transfer", err)
		return
	}

	o := detail.Order
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Bank transfer payment verified successfully",
		"order": map[string]interface{}{
			"id":            o.ID,
			"orderNumber":   o.OrderNumber,
			"customerName":  o.CustomerName,
			"customerEmail": o.CustomerEmail,
			"totalAmount":   numericToString(o.TotalAmount),
			"paymentStatus": o.PaymentStatus,
			"orderStatus":   o.Status,
		},
		"verificationTime": o.PaymentVerifiedAt.Time,
	})
	h.afterVerify(detail)
}

func (h *OrderHandler) afterVerify(detail *service.OrderDetail) {
	h.events.PaymentVerified(service.NewOrderSummary(detail.Order, detail.Items))
	h.hub.Publish(ws.EventPaymentVerified, toOrderEvent(detail.Order))
}

// --- Helpers ---

// writeServiceError maps service errors to HTTP responses. Anything not
// recognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var verr *service.ValidationError
	var stockErr *service.StockUnavailableError
	switch {
	case errors.As(err, &stockErr):
		writeErrorCode(w, http.StatusBadRequest, err.Error(), "STOCK_UNAVAILABLE")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrOrderConflict):
		writeError(w, http.StatusConflict, err.Error())
	case isBusinessError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// isBusinessError checks for rule violations the caller can fix by changing
// the request.
func isBusinessError(err error) bool {
	return errors.Is(err, service.ErrPriceMismatch) ||
		errors.Is(err, service.ErrDeliveryMethodNotFound) ||
		errors.Is(err, service.ErrAlreadyVerified) ||
		errors.Is(err, service.ErrAmountMismatch) ||
		errors.Is(err, service.ErrPaymentMethodMismatch) ||
		errors.Is(err, service.ErrNotAwaitingPayment) ||
		errors.Is(err, service.ErrInvalidTransition) ||
		errors.Is(err, service.ErrDateUnavailable) ||
		errors.Is(err, service.ErrSlotTaken)
}

func verifierName(r *http.Request) string {
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		return claims.Username
	}
	return "admin"
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid ID")
		return 0, false
	}
	return id, true
}

func parsePagination(r *http.Request, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func toOrderEvent(o database.Order) orderEvent {
	return orderEvent{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Total:         numericToString(o.TotalAmount),
	}
}

func dbOrderToResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		CustomerID:        o.CustomerID,
		CustomerName:      o.CustomerName,
		CustomerEmail:     o.CustomerEmail,
		TotalAmount:       numericToString(o.TotalAmount),
		DeliveryCost:      numericToString(o.DeliveryCost),
		ShippingAddress:   textPtr(o.ShippingAddress),
		Notes:             textPtr(o.Notes),
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     o.PaymentStatus,
		Status:            o.Status,
		PaymentVerifiedBy: textPtr(o.PaymentVerifiedBy),
		PaymentReference:  textPtr(o.PaymentReference),
		ReminderCount:     o.PaymentReminderCount,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		Items:             make([]orderItemResponse, len(items)),
	}
	if o.DeliveryMethodID.Valid {
		resp.DeliveryMethodID = &o.DeliveryMethodID.Int64
	}
	if len(o.DeliveryDetails) > 0 {
		resp.DeliveryDetails = json.RawMessage(o.DeliveryDetails)
	}
	if o.PaymentVerifiedAt.Valid {
		t := o.PaymentVerifiedAt.Time
		resp.PaymentVerifiedAt = &t
	}
	for i, it := range items {
		resp.Items[i] = orderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   numericToString(it.UnitPrice),
			TotalPrice:  numericToString(it.TotalPrice),
		}
	}
	return resp
}

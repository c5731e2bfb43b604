package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/readers-haven/api/internal/config"
	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/enum"
	"github.com/readers-haven/api/internal/service"
)

const podMessage = "Please have payment ready when your delivery arrives."

// PaymentStore is satisfied by *database.Queries.
type PaymentStore interface {
	GetOrderByNumber(ctx context.Context, orderNumber string) (database.Order, error)
}

// ReminderSweeper is satisfied by *service.ReminderService.
type ReminderSweeper interface {
	Sweep(ctx context.Context) (*service.SweepResult, error)
}

// PaymentHandler serves payment method metadata, manual payment
// instructions and the reminder sweep trigger.
type PaymentHandler struct {
	store     PaymentStore
	payment   *config.PaymentConfig
	reminders ReminderSweeper
	now       func() time.Time
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(store PaymentStore, payment *config.PaymentConfig, reminders ReminderSweeper) *PaymentHandler {
	return &PaymentHandler{store: store, payment: payment, reminders: reminders, now: time.Now}
}

// RegisterPublicRoutes registers the storefront payment endpoints.
func (h *PaymentHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/payment-methods", h.Methods)
	r.Get("/orders/{number}/payment-instructions", h.Instructions)
}

// RegisterRoutes registers admin payment endpoints under /admin.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payment-reminders", h.SendReminders)
}

// --- Response types ---

type paymentMethodResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Icon            string `json:"icon"`
	Description     string `json:"description"`
	RequiresGateway bool   `json:"requiresGateway"`
	Provider        string `json:"provider,omitempty"`
}

type paymentInstructionsResponse struct {
	Type         string               `json:"type"`
	OrderID      int64                `json:"order_id"`
	OrderNumber  string               `json:"order_number"`
	Amount       string               `json:"amount,omitempty"`
	Currency     string               `json:"currency,omitempty"`
	Reference    string               `json:"reference,omitempty"`
	Bank         *config.BankDetails  `json:"bank,omitempty"`
	MobileMoney  *config.MobileMoney  `json:"mobile_money,omitempty"`
	Providers    []config.MobileMoney `json:"providers,omitempty"`
	Message      string               `json:"message,omitempty"`
	Instructions string               `json:"instructions,omitempty"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

// --- Handlers ---

// Methods handles GET /payment-methods.
func (h *PaymentHandler) Methods(w http.ResponseWriter, r *http.Request) {
	methods := h.payment.EnabledMethods()
	resp := make([]paymentMethodResponse, len(methods))
	for i, m := range methods {
		resp[i] = paymentMethodResponse{
			ID:              m.ID,
			Name:            m.Name,
			Icon:            m.Icon,
			Description:     m.Description,
			RequiresGateway: m.RequiresGateway,
			Provider:        m.Provider,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    resp,
	})
}

// Instructions handles GET /orders/{number}/payment-instructions?email=.
// The email must match the order so numbers cannot be enumerated.
func (h *PaymentHandler) Instructions(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if number == "" || email == "" {
		writeError(w, http.StatusBadRequest, "order number and email are required")
		return
	}

	order, err := h.store.GetOrderByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order %s: %v", number, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !strings.EqualFold(order.CustomerEmail, email) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	resp := paymentInstructionsResponse{
		Type:        order.PaymentMethod,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		GeneratedAt: h.now(),
	}
	switch order.PaymentMethod {
	case enum.PaymentMethodBankTransfer:
		bank := h.payment.Bank
		resp.Amount = numericToString(order.TotalAmount)
		resp.Currency = h.payment.Currency
		resp.Reference = order.OrderNumber
		resp.Bank = &bank
		resp.Instructions = bank.Instructions
	case enum.PaymentMethodMobileMoney:
		provider, ok := h.mobileMoneyProvider(r.URL.Query().Get("provider"))
		if !ok {
			writeError(w, http.StatusBadRequest, "mobile money provider not available")
			return
		}
		resp.Amount = numericToString(order.TotalAmount)
		resp.Currency = h.payment.Currency
		resp.Reference = order.OrderNumber
		resp.MobileMoney = &provider
		resp.Providers = h.payment.EnabledProviders()
		resp.Instructions = provider.Instructions
	case enum.PaymentMethodPOD:
		resp.Message = podMessage
	default:
		writeError(w, http.StatusBadRequest, "payment instructions not available for this payment method")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    resp,
	})
}

// SendReminders handles POST /admin/payment-reminders.
func (h *PaymentHandler) SendReminders(w http.ResponseWriter, r *http.Request) {
	res, err := h.reminders.Sweep(r.Context())
	if err != nil {
		var missing *service.MissingColumnsError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success":        false,
				"message":        "missing database columns, run the payment reminder migration",
				"code":           "MISSING_COLUMNS",
				"missingColumns": missing.Columns,
			})
			return
		}
		log.Printf("ERROR: payment reminder sweep: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch {
	case res.Disabled:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Reminders are disabled",
			"sent":    0,
		})
	case res.Checked == 0:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "No reminders due",
			"sent":    0,
			"failed":  0,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"sent":    res.Sent,
			"failed":  res.Failed,
			"skipped": res.Skipped,
			"checked": res.Checked,
		})
	}
}

// mobileMoneyProvider resolves the requested network, or the first enabled
// one when id is empty.
func (h *PaymentHandler) mobileMoneyProvider(id string) (config.MobileMoney, bool) {
	if id != "" {
		return h.payment.Provider(id)
	}
	enabled := h.payment.EnabledProviders()
	if len(enabled) == 0 {
		return config.MobileMoney{}, false
	}
	return enabled[0], true
}

package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/handler"
	"github.com/readers-haven/api/internal/middleware"
)

// --- Mock store ---

type mockDeliveryOptionStore struct {
	options map[int64]database.DeliveryOption
	nextID  int64
}

func newMockDeliveryOptionStore() *mockDeliveryOptionStore {
	return &mockDeliveryOptionStore{options: make(map[int64]database.DeliveryOption)}
}

func (m *mockDeliveryOptionStore) ListDeliveryOptions(_ context.Context, isActive pgtype.Bool) ([]database.DeliveryOption, error) {
	var result []database.DeliveryOption
	for _, o := range m.options {
		if isActive.Valid && o.IsActive != isActive.Bool {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func (m *mockDeliveryOptionStore) CreateDeliveryOption(_ context.Context, arg database.CreateDeliveryOptionParams) (database.DeliveryOption, error) {
	m.nextID++
	o := database.DeliveryOption{
		ID:              m.nextID,
		Name:            arg.Name,
		Description:     arg.Description,
		DeliveryTimeMin: arg.DeliveryTimeMin,
		DeliveryTimeMax: arg.DeliveryTimeMax,
		Cost:            arg.Cost,
		IsActive:        arg.IsActive,
		SortOrder:       arg.SortOrder,
		CreatedAt:       time.Now(),
	}
	m.options[o.ID] = o
	return o, nil
}

func (m *mockDeliveryOptionStore) UpdateDeliveryOption(_ context.Context, arg database.UpdateDeliveryOptionParams) (database.DeliveryOption, error) {
	o, ok := m.options[arg.ID]
	if !ok {
		return database.DeliveryOption{}, pgx.ErrNoRows
	}
	o.Name = arg.Name
	o.Description = arg.Description
	o.DeliveryTimeMin = arg.DeliveryTimeMin
	o.DeliveryTimeMax = arg.DeliveryTimeMax
	o.Cost = arg.Cost
	o.IsActive = arg.IsActive
	o.SortOrder = arg.SortOrder
	m.options[o.ID] = o
	return o, nil
}

// --- Helpers ---

func setupDeliveryOptionRouter(store *mockDeliveryOptionStore) *chi.Mux {
	h := handler.NewDeliveryOptionHandler(store)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Route("/delivery-options", h.RegisterRoutes)
	})
	return r
}

// --- Tests ---

func TestDeliveryOptions_PublicListIsActiveOnly(t *testing.T) {
	store := newMockDeliveryOptionStore()
	store.options[1] = database.DeliveryOption{ID: 1, Name: "Standard", Cost: testNumeric("5.00"), IsActive: true}
	store.options[2] = database.DeliveryOption{ID: 2, Name: "Courier", Cost: testNumeric("15.00"), IsActive: false}
	r := setupDeliveryOptionRouter(store)

	rr := doRequest(t, r, "GET", "/delivery-options", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	options := decodeResponse(t, rr)["options"].([]interface{})
	if len(options) != 1 {
		t.Fatalf("options: got %d, want 1", len(options))
	}
	if o := options[0].(map[string]interface{}); o["name"] != "Standard" || o["cost"] != "5.00" {
		t.Errorf("option: got %v", o)
	}

	rr = doAuthRequest(t, r, "GET", "/admin/delivery-options", nil, adminClaims())
	if all := decodeResponse(t, rr)["options"].([]interface{}); len(all) != 2 {
		t.Errorf("admin list: got %d, want 2", len(all))
	}
}

func TestDeliveryOptions_Create(t *testing.T) {
	store := newMockDeliveryOptionStore()
	r := setupDeliveryOptionRouter(store)

	rr := doAuthRequest(t, r, "POST", "/admin/delivery-options", map[string]interface{}{
		"name":              "Express",
		"description":       "Next business day",
		"delivery_time_min": 1,
		"delivery_time_max": 2,
		"cost":              "12.5",
	}, adminClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	option := decodeResponse(t, rr)["option"].(map[string]interface{})
	if option["cost"] != "12.50" || option["is_active"] != true {
		t.Errorf("option: got %v", option)
	}
}

func TestDeliveryOptions_CreateValidation(t *testing.T) {
	r := setupDeliveryOptionRouter(newMockDeliveryOptionStore())

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"delivery_time_min": 1, "delivery_time_max": 2, "cost": 1}},
		{"max below min", map[string]interface{}{"name": "X", "delivery_time_min": 5, "delivery_time_max": 2, "cost": 1}},
		{"negative cost", map[string]interface{}{"name": "X", "delivery_time_min": 1, "delivery_time_max": 2, "cost": -1}},
		{"missing cost", map[string]interface{}{"name": "X", "delivery_time_min": 1, "delivery_time_max": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, r, "POST", "/admin/delivery-options", tt.body, adminClaims())
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rr.Code)
			}
		})
	}
}

func TestDeliveryOptions_Update(t *testing.T) {
	store := newMockDeliveryOptionStore()
	store.options[1] = database.DeliveryOption{ID: 1, Name: "Standard", Cost: testNumeric("5.00"), IsActive: true}
	r := setupDeliveryOptionRouter(store)

	rr := doAuthRequest(t, r, "PUT", "/admin/delivery-options/1", map[string]interface{}{
		"name": "Standard", "delivery_time_min": 3, "delivery_time_max": 5, "cost": 6, "is_active": false,
	}, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if store.options[1].IsActive {
		t.Error("option should be retired")
	}

	rr = doAuthRequest(t, r, "PUT", "/admin/delivery-options/9", map[string]interface{}{
		"name": "Ghost", "delivery_time_min": 1, "delivery_time_max": 1, "cost": 0,
	}, adminClaims())
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing: got %d, want 404", rr.Code)
	}
}

func TestDeliveryOptions_AdminRequiresAuth(t *testing.T) {
	r := setupDeliveryOptionRouter(newMockDeliveryOptionStore())
	if rr := doRequest(t, r, "POST", "/admin/delivery-options", `{"name":"X"}`); rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/readers-haven/api/internal/auth"
	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/handler"
)

const testSecret = "test-secret"

// --- Mock store ---

type mockAuthStore struct {
	byUsername map[string]database.AdminUser
	byID       map[uuid.UUID]database.AdminUser
}

func newMockStore() *mockAuthStore {
	return &mockAuthStore{
		byUsername: make(map[string]database.AdminUser),
		byID:       make(map[uuid.UUID]database.AdminUser),
	}
}

func (m *mockAuthStore) addUser(u database.AdminUser) {
	m.byUsername[u.Username] = u
	m.byID[u.ID] = u
}

func (m *mockAuthStore) GetAdminUserByUsername(_ context.Context, username string) (database.AdminUser, error) {
	u, ok := m.byUsername[username]
	if !ok {
		return database.AdminUser{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetAdminUserByID(_ context.Context, id uuid.UUID) (database.AdminUser, error) {
	u, ok := m.byID[id]
	if !ok {
		return database.AdminUser{}, pgx.ErrNoRows
	}
	return u, nil
}

// --- Helpers ---

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func makeTestUser(t *testing.T) database.AdminUser {
	t.Helper()
	return database.AdminUser{
		ID:             uuid.New(),
		Username:       "admin",
		HashedPassword: hashPassword(t, "correct-password"),
		FullName:       "Shop Admin",
		Role:           "ADMIN",
		IsActive:       true,
	}
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func newAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// --- Login tests ---

func TestLogin_ValidCredentials(t *testing.T) {
	store := newMockStore()
	store.addUser(makeTestUser(t))
	r := newAuthRouter(store)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "admin",
		"password": "correct-password",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["success"] != true {
		t.Errorf("success: got %v", resp["success"])
	}
	accessToken, _ := resp["access_token"].(string)
	if accessToken == "" {
		t.Fatal("expected non-empty access_token")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}

	userResp, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatal("expected user object in response")
	}
	if userResp["username"] != "admin" {
		t.Errorf("username: got %v, want admin", userResp["username"])
	}

	claims, err := auth.ValidateToken(testSecret, accessToken)
	if err != nil {
		t.Fatalf("access token should validate: %v", err)
	}
	if claims.Role != "ADMIN" || claims.Username != "admin" {
		t.Errorf("claims: got %s/%s", claims.Username, claims.Role)
	}
}

func TestLogin_Rejected(t *testing.T) {
	store := newMockStore()
	store.addUser(makeTestUser(t))
	disabled := makeTestUser(t)
	disabled.Username = "former"
	disabled.IsActive = false
	store.addUser(disabled)
	r := newAuthRouter(store)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong password", map[string]string{"username": "admin", "password": "wrong"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"username": "nobody", "password": "x"}, http.StatusUnauthorized},
		{"disabled account", map[string]string{"username": "former", "password": "correct-password"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"username": "admin"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, r, "/auth/login", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.want)
			}
			if resp := decodeResponse(t, rr); resp["success"] != false {
				t.Errorf("success: got %v, want false", resp["success"])
			}
		})
	}
}

// --- Refresh tests ---

func TestRefresh_ValidToken(t *testing.T) {
	store := newMockStore()
	user := makeTestUser(t)
	store.addUser(user)
	r := newAuthRouter(store)

	refreshToken, err := auth.GenerateRefreshToken(testSecret, user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := postJSON(t, r, "/auth/refresh", map[string]string{"refresh_token": refreshToken})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["access_token"] == nil || resp["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	store := newMockStore()
	user := makeTestUser(t)
	store.addUser(user)
	r := newAuthRouter(store)

	accessToken, _ := auth.GenerateToken(testSecret, user.ID, user.Username, user.Role)
	rr := postJSON(t, r, "/auth/refresh", map[string]string{"refresh_token": accessToken})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_UserDeleted(t *testing.T) {
	r := newAuthRouter(newMockStore())
	refreshToken, _ := auth.GenerateRefreshToken(testSecret, uuid.New())

	rr := postJSON(t, r, "/auth/refresh", map[string]string{"refresh_token": refreshToken})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_MissingField(t *testing.T) {
	r := newAuthRouter(newMockStore())

	rr := postJSON(t, r, "/auth/refresh", map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

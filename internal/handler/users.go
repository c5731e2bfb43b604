package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/enum"
	"github.com/readers-haven/api/internal/middleware"
	"github.com/readers-haven/api/internal/validate"
)

const minPasswordLength = 8

// UserStore defines the database methods needed by admin account handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListAdminUsers(ctx context.Context) ([]database.AdminUser, error)
	CreateAdminUser(ctx context.Context, arg database.CreateAdminUserParams) (database.AdminUser, error)
	UpdateAdminUser(ctx context.Context, arg database.UpdateAdminUserParams) (database.AdminUser, error)
}

// UserHandler manages back-office accounts. Mounted behind RequireRole(ADMIN).
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers endpoints at /admin/users.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
}

// --- Request / Response types ---

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
	Password string `json:"password"`
}

type userDetailResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserDetailResponse(u database.AdminUser) userDetailResponse {
	return userDetailResponse{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// --- Handlers ---

// List returns every account, inactive ones included.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListAdminUsers(r.Context())
	if err != nil {
		log.Printf("ERROR: list admin users: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]userDetailResponse, len(users))
	for i, u := range users {
		resp[i] = toUserDetailResponse(u)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   resp,
	})
}

// Create adds an account with a bcrypt-hashed password.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username, ok := validate.Text(req.Username, 100, 3)
	if !ok {
		writeError(w, http.StatusBadRequest, "username must be 3-100 characters")
		return
	}
	fullName, ok := validate.Text(req.FullName, 100, 1)
	if !ok {
		writeError(w, http.StatusBadRequest, "full_name is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if !isValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: create admin user: hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := h.store.CreateAdminUser(r.Context(), database.CreateAdminUserParams{
		Username:       username,
		HashedPassword: string(hashed),
		FullName:       fullName,
		Role:           req.Role,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "username already exists")
			return
		}
		log.Printf("ERROR: create admin user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    toUserDetailResponse(user),
	})
}

// Update changes name, role, active flag and optionally the password.
// An admin cannot deactivate or demote their own account.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fullName, ok := validate.Text(req.FullName, 100, 1)
	if !ok {
		writeError(w, http.StatusBadRequest, "full_name is required")
		return
	}
	if !isValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil && claims.UserID == userID {
		if !active || req.Role != enum.AdminRoleAdmin {
			writeError(w, http.StatusBadRequest, "cannot deactivate or demote your own account")
			return
		}
	}

	var password pgtype.Text
	if req.Password != "" {
		if len(req.Password) < minPasswordLength {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("ERROR: update admin user: hash password: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		password = pgtype.Text{String: string(hashed), Valid: true}
	}

	user, err := h.store.UpdateAdminUser(r.Context(), database.UpdateAdminUserParams{
		ID:             userID,
		FullName:       fullName,
		Role:           req.Role,
		IsActive:       active,
		HashedPassword: password,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("ERROR: update admin user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    toUserDetailResponse(user),
	})
}

// --- Helpers ---

func isValidRole(role string) bool {
	switch role {
	case enum.AdminRoleAdmin, enum.AdminRoleStaff:
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

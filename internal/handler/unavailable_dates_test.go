package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/handler"
	"github.com/readers-haven/api/internal/middleware"
)

type mockUnavailableDateStore struct {
	dates    map[int64]database.UnavailableDate
	nextID   int64
	lastFrom pgtype.Date
}

func newMockUnavailableDateStore() *mockUnavailableDateStore {
	return &mockUnavailableDateStore{dates: make(map[int64]database.UnavailableDate)}
}

func (m *mockUnavailableDateStore) ListUnavailableDates(_ context.Context, fromDate pgtype.Date) ([]database.UnavailableDate, error) {
	m.lastFrom = fromDate
	var out []database.UnavailableDate
	for _, d := range m.dates {
		if fromDate.Valid && d.UnavailableDate.Time.Before(fromDate.Time) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *mockUnavailableDateStore) CreateUnavailableDate(_ context.Context, arg database.CreateUnavailableDateParams) (database.UnavailableDate, error) {
	for _, d := range m.dates {
		if d.UnavailableDate.Time.Equal(arg.UnavailableDate.Time) {
			return database.UnavailableDate{}, &pgconn.PgError{Code: "23505", ConstraintName: "unavailable_dates_unavailable_date_key"}
		}
	}
	m.nextID++
	d := database.UnavailableDate{ID: m.nextID, UnavailableDate: arg.UnavailableDate, Reason: arg.Reason, CreatedAt: time.Now()}
	m.dates[d.ID] = d
	return d, nil
}

func (m *mockUnavailableDateStore) DeleteUnavailableDate(_ context.Context, id int64) (int64, error) {
	if _, ok := m.dates[id]; !ok {
		return 0, nil
	}
	delete(m.dates, id)
	return 1, nil
}

func setupUnavailableDateRouter(store *mockUnavailableDateStore) *chi.Mux {
	h := handler.NewUnavailableDateHandler(store)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Route("/unavailable-dates", h.RegisterRoutes)
	})
	return r
}

func TestUnavailableDates_CreateAndConflict(t *testing.T) {
	store := newMockUnavailableDateStore()
	r := setupUnavailableDateRouter(store)

	rr := doAuthRequest(t, r, "POST", "/admin/unavailable-dates", map[string]string{"date": "2099-12-24"}, adminClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	date := decodeResponse(t, rr)["date"].(map[string]interface{})
	if date["date"] != "2099-12-24" || date["reason"] != "Blocked" {
		t.Errorf("blocked date: got %v", date)
	}

	rr = doAuthRequest(t, r, "POST", "/admin/unavailable-dates", map[string]string{"date": "2099-12-24", "reason": "Holiday"}, adminClaims())
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate: got %d, want 409", rr.Code)
	}
	if msg := decodeResponse(t, rr)["message"]; msg != "This date is already blocked" {
		t.Errorf("message: got %v", msg)
	}
}

func TestUnavailableDates_CreateValidation(t *testing.T) {
	r := setupUnavailableDateRouter(newMockUnavailableDateStore())

	for _, date := range []string{"", "24-12-2099", "2099-02-30"} {
		rr := doAuthRequest(t, r, "POST", "/admin/unavailable-dates", map[string]string{"date": date}, adminClaims())
		if rr.Code != http.StatusBadRequest {
			t.Errorf("date %q: got %d, want 400", date, rr.Code)
		}
	}
}

func TestUnavailableDates_Lists(t *testing.T) {
	store := newMockUnavailableDateStore()
	store.dates[1] = database.UnavailableDate{ID: 1, UnavailableDate: pgtype.Date{Time: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), Valid: true}}
	store.dates[2] = database.UnavailableDate{ID: 2, UnavailableDate: pgtype.Date{Time: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC), Valid: true}}
	r := setupUnavailableDateRouter(store)

	rr := doRequest(t, r, "GET", "/unavailable-dates", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("public: got %d", rr.Code)
	}
	if !store.lastFrom.Valid {
		t.Error("public list should start from today")
	}
	if dates := decodeResponse(t, rr)["dates"].([]interface{}); len(dates) != 1 {
		t.Errorf("public dates: got %d, want 1", len(dates))
	}

	rr = doAuthRequest(t, r, "GET", "/admin/unavailable-dates", nil, adminClaims())
	if dates := decodeResponse(t, rr)["dates"].([]interface{}); len(dates) != 2 {
		t.Errorf("admin dates: got %d, want 2", len(dates))
	}
}

func TestUnavailableDates_Delete(t *testing.T) {
	store := newMockUnavailableDateStore()
	store.dates[1] = database.UnavailableDate{ID: 1}
	r := setupUnavailableDateRouter(store)

	if rr := doAuthRequest(t, r, "DELETE", "/admin/unavailable-dates/1", nil, adminClaims()); rr.Code != http.StatusOK {
		t.Errorf("delete: got %d", rr.Code)
	}
	if rr := doAuthRequest(t, r, "DELETE", "/admin/unavailable-dates/1", nil, adminClaims()); rr.Code != http.StatusNotFound {
		t.Errorf("delete again: got %d, want 404", rr.Code)
	}
}

package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/readers-haven/api/internal/config"
	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/enum"
	"github.com/readers-haven/api/internal/handler"
	mw "github.com/readers-haven/api/internal/middleware"
	"github.com/readers-haven/api/internal/notify"
	"github.com/readers-haven/api/internal/service"
	"github.com/readers-haven/api/internal/ws"
)

// Deps carries the long-lived collaborators built in main.
type Deps struct {
	Queries   *database.Queries
	Pool      *pgxpool.Pool
	Hub       *ws.Hub
	Events    *notify.Events
	Reminders *service.ReminderService
	Limiter   *mw.RateLimiter
}

// New creates a Chi router with all application routes wired up.
// Storefront routes are public; everything under /admin requires a JWT.
func New(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	queries := d.Queries

	// Services
	orderService := service.NewOrderService(d.Pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	paymentService := service.NewPaymentService(d.Pool, func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	})
	bookingService := service.NewBookingService(d.Pool, queries, func(db database.DBTX) service.BookingStore {
		return database.New(db)
	})

	// Handlers
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	orderHandler := handler.NewOrderHandler(orderService, paymentService, queries, d.Events, d.Hub)
	bookingHandler := handler.NewBookingHandler(bookingService, queries, d.Events, d.Hub)
	paymentHandler := handler.NewPaymentHandler(queries, cfg.Payment, d.Reminders)
	productHandler := handler.NewProductHandler(queries, d.Pool, func(db database.DBTX) handler.ProductStore {
		return database.New(db)
	})
	deliveryHandler := handler.NewDeliveryOptionHandler(queries)
	datesHandler := handler.NewUnavailableDateHandler(queries)
	statsHandler := handler.NewStatsHandler(queries)
	customerHandler := handler.NewCustomerHandler(queries)
	userHandler := handler.NewUserHandler(queries)

	// Public routes
	authHandler.RegisterRoutes(r)
	orderHandler.RegisterPublicRoutes(r, d.Limiter.Middleware)
	bookingHandler.RegisterPublicRoutes(r, d.Limiter.Middleware)
	paymentHandler.RegisterPublicRoutes(r)
	productHandler.RegisterPublicRoutes(r)
	deliveryHandler.RegisterPublicRoutes(r)
	datesHandler.RegisterPublicRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Method(http.MethodGet, "/ws/admin", ws.NewHandler(d.Hub, cfg.JWTSecret, cfg.AllowedOrigins))

	// Admin routes (require authentication)
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/orders", orderHandler.RegisterRoutes)
		r.Route("/bookings", bookingHandler.RegisterRoutes)
		r.Route("/products", productHandler.RegisterRoutes)
		r.Route("/delivery-options", deliveryHandler.RegisterRoutes)
		r.Route("/unavailable-dates", datesHandler.RegisterRoutes)
		r.Route("/customers", customerHandler.RegisterRoutes)
		paymentHandler.RegisterRoutes(r)
		statsHandler.RegisterRoutes(r)

		// Account management is ADMIN only
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.AdminRoleAdmin))
			r.Route("/users", userHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}

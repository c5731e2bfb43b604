package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/readers-haven/api/internal/config"
	"github.com/readers-haven/api/internal/database"
	mw "github.com/readers-haven/api/internal/middleware"
	"github.com/readers-haven/api/internal/notify"
	"github.com/readers-haven/api/internal/router"
	"github.com/readers-haven/api/internal/scheduler"
	"github.com/readers-haven/api/internal/service"
	"github.com/readers-haven/api/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run(ctx)

	mailer := notify.NewMailer(cfg.SMTP)
	templates := notify.NewTemplates(cfg.Payment, cfg.AdminEmail)
	dispatcher := notify.NewDispatcher(0)
	events := notify.NewEvents(mailer, templates, dispatcher)

	reminders := service.NewReminderService(queries, mailer, templates, cfg.Reminders)
	sweep := scheduler.NewTicker("payment-reminders", cfg.Reminders.Interval, func(ctx context.Context) error {
		_, err := reminders.Sweep(ctx)
		return err
	})
	go sweep.Run(ctx)

	limiter := mw.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	go limiter.Cleanup(ctx)

	r := router.New(cfg, router.Deps{
		Queries:   queries,
		Pool:      pool,
		Hub:       hub,
		Events:    events,
		Reminders: reminders,
		Limiter:   limiter,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server shutdown: %v", err)
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Printf("WARN: pending emails not sent before shutdown: %v", err)
	}
	log.Println("Server exited")
}

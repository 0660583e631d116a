package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/nailbook/booking-api/internal/config"
	"github.com/nailbook/booking-api/internal/domain/appointment"
	"github.com/nailbook/booking-api/internal/domain/availability"
	"github.com/nailbook/booking-api/internal/domain/bookingflow"
	"github.com/nailbook/booking-api/internal/domain/deeplink"
	"github.com/nailbook/booking-api/internal/domain/feed"
	"github.com/nailbook/booking-api/internal/domain/salon"
	"github.com/nailbook/booking-api/internal/middleware"
	"github.com/nailbook/booking-api/internal/pkg/clock"
	"github.com/nailbook/booking-api/internal/pkg/database"
	"github.com/nailbook/booking-api/internal/pkg/jwt"
	"github.com/nailbook/booking-api/internal/pkg/logger"
	pkgresponse "github.com/nailbook/booking-api/internal/pkg/response"
)

const requestTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	if err := salon.SetDefaultTimezone(cfg.DefaultTimezone); err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.DefaultTimezone).Msg("Invalid default timezone")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting booking API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	// Redis is optional: without it the rate limiter and feed stay per-instance.
	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running single-instance")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Repositories ----------
	salonRepo := salon.NewRepository(db, cfg.DBQueryTimeout)
	appointmentRepo := appointment.NewRepository(db, cfg.DBQueryTimeout, cfg.BookingLockTimeout)

	// ---------- Feed hub ----------
	feedHub := feed.NewHub(redis)
	go feedHub.Run()
	defer feedHub.Shutdown()

	// ---------- Services ----------
	gate := salon.NewGate(salonRepo)
	repairer := deeplink.NewRepairer(salonRepo)
	engine := availability.NewEngine(appointmentRepo, clock.System{}, cfg.BookingLeadTimeMinutes)
	publisher := appointment.MultiPublisher{appointment.LogPublisher{}, feedHub}
	manager := appointment.NewManager(appointmentRepo, salonRepo, gate, engine, publisher, clock.System{}, cfg.RewardsPercent)

	// ---------- Handlers ----------
	h := &handlers{
		flow:         bookingflow.NewHandler(salonRepo, gate, repairer),
		availability: availability.NewHandler(engine, salonRepo, gate),
		appointment:  appointment.NewHandler(manager),
		feed:         feed.NewHandler(feedHub, cfg.AllowedOrigins),
		createLimit:  middleware.NewRateLimiter(redis, "appointments:create", cfg.CreateRateLimitPerMinute, time.Minute).Middleware,
		staffAuth:    middleware.StaffAuth(jwtService, false),
		feedAuth:     middleware.StaffAuth(jwtService, true),
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, h),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

type handlers struct {
	flow         *bookingflow.Handler
	availability *availability.Handler
	appointment  *appointment.Handler
	feed         *feed.Handler

	createLimit func(http.Handler) http.Handler
	staffAuth   func(http.Handler) http.Handler
	feedAuth    func(http.Handler) http.Handler
}

func newRouter(cfg *config.Config, h *handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (outside the request timeout)
	r.With(h.feedAuth).Get("/api/v1/staff/feed", h.feed.WebSocket)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Route("/salons/{slug}", func(r chi.Router) {
			r.Mount("/booking-flow", h.flow.Routes())
			r.Mount("/availability", h.availability.Routes())
			r.Mount("/appointments", h.appointment.SalonRoutes(h.createLimit))
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(h.staffAuth)
			r.Mount("/appointments", h.appointment.StaffRoutes())
		})
	})

	return r
}

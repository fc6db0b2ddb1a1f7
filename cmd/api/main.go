package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/clinica-valencia/clinic-api/internal/config"
	"github.com/clinica-valencia/clinic-api/internal/email"
	"github.com/clinica-valencia/clinic-api/internal/handler"
	accountHandler "github.com/clinica-valencia/clinic-api/internal/handler/account"
	appointmentHandler "github.com/clinica-valencia/clinic-api/internal/handler/appointment"
	authHandler "github.com/clinica-valencia/clinic-api/internal/handler/auth"
	"github.com/clinica-valencia/clinic-api/internal/middleware"
	"github.com/clinica-valencia/clinic-api/internal/repository/postgres"
	"github.com/clinica-valencia/clinic-api/internal/repository/redis"
	"github.com/clinica-valencia/clinic-api/internal/router"
	accountService "github.com/clinica-valencia/clinic-api/internal/service/account"
	appointmentService "github.com/clinica-valencia/clinic-api/internal/service/appointment"
	authService "github.com/clinica-valencia/clinic-api/internal/service/auth"
	"github.com/clinica-valencia/clinic-api/internal/service/notification"
	jwtauth "github.com/clinica-valencia/clinic-api/pkg/auth"
	"github.com/clinica-valencia/clinic-api/pkg/circuitbreaker"
	"github.com/clinica-valencia/clinic-api/pkg/hash"
	"github.com/clinica-valencia/clinic-api/pkg/logger"
)

func main() {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	smtpCfg, err := config.LoadSMTPConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load SMTP configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	tokenRepo, err := redis.NewTokenRepository(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	accountRepo := postgres.NewAccountRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	practitionerRepo := postgres.NewPractitionerRepository(db)

	jwtSvc := jwtauth.NewJWTService(jwtauth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiryHours) * time.Hour,
	})
	hasher := hash.New(cfg.Auth.HashIterations)

	mailBreaker := circuitbreaker.New(circuitbreaker.Settings{Name: "smtp"})
	mailer := email.NewSMTPService(smtpCfg, mailBreaker)
	notifier := notification.NewService(mailer, appLogger)

	authSvc := authService.NewService(accountRepo, tokenRepo, jwtSvc, hasher, cfg.Auth.LegacySuffixMatch, appLogger)
	accountSvc := accountService.NewService(accountRepo, hasher, notifier, appLogger)
	appointmentSvc := appointmentService.NewService(
		appointmentRepo,
		accountRepo,
		practitionerRepo,
		notifier,
		appointmentService.SchedulerConfig{
			DayStart:            cfg.Scheduler.DayStart,
			DayEnd:              cfg.Scheduler.DayEnd,
			SlotMinutes:         cfg.Scheduler.SlotMinutes,
			DefaultDurationMins: cfg.Scheduler.DurationMins,
		},
		appLogger,
	)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	h := handler.NewHandler(db)
	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		accountHandler.NewHandler(accountSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		h,
		router.Config{
			RateLimit:  rate.Limit(100),
			RateBurst:  200,
			Timeout:    time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			CORSConfig: middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

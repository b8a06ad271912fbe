package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tate5000/Thera-stack/internal/config"
	"github.com/Tate5000/Thera-stack/internal/email"
	"github.com/Tate5000/Thera-stack/internal/handler"
	appointmentHandler "github.com/Tate5000/Thera-stack/internal/handler/appointment"
	auditHandler "github.com/Tate5000/Thera-stack/internal/handler/audit"
	authHandler "github.com/Tate5000/Thera-stack/internal/handler/auth"
	billingHandler "github.com/Tate5000/Thera-stack/internal/handler/billing"
	callHandler "github.com/Tate5000/Thera-stack/internal/handler/call"
	patientHandler "github.com/Tate5000/Thera-stack/internal/handler/patient"
	paymentHandler "github.com/Tate5000/Thera-stack/internal/handler/payment"
	rbacHandler "github.com/Tate5000/Thera-stack/internal/handler/rbac"
	userHandler "github.com/Tate5000/Thera-stack/internal/handler/user"
	redisMessaging "github.com/Tate5000/Thera-stack/internal/messaging/redis"
	"github.com/Tate5000/Thera-stack/internal/middleware"
	"github.com/Tate5000/Thera-stack/internal/repository"
	"github.com/Tate5000/Thera-stack/internal/repository/postgres"
	"github.com/Tate5000/Thera-stack/internal/router"
	accessService "github.com/Tate5000/Thera-stack/internal/service/access"
	appointmentService "github.com/Tate5000/Thera-stack/internal/service/appointment"
	assistantService "github.com/Tate5000/Thera-stack/internal/service/assistant"
	auditService "github.com/Tate5000/Thera-stack/internal/service/audit"
	authService "github.com/Tate5000/Thera-stack/internal/service/auth"
	billingService "github.com/Tate5000/Thera-stack/internal/service/billing"
	"github.com/Tate5000/Thera-stack/internal/service/callgate"
	patientService "github.com/Tate5000/Thera-stack/internal/service/patient"
	paymentService "github.com/Tate5000/Thera-stack/internal/service/payment"
	userService "github.com/Tate5000/Thera-stack/internal/service/user"
	"github.com/Tate5000/Thera-stack/pkg/auth"
	"github.com/Tate5000/Thera-stack/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	assignmentRepo := postgres.NewAssignmentRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	superbillRepo := postgres.NewSuperbillRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	callRepo := postgres.NewCallSessionRepository(db)
	tokenRepo := postgres.NewTokenRepository(db)

	// Messaging
	publisher, err := redisMessaging.NewPublisher(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer publisher.Close()

	// Core services
	m := metrics.New(cfg.Monitoring.Namespace)
	auditSvc := auditService.NewService(auditRepo)
	auditor := auditService.NewLogger(auditSvc)
	snapshots := accessService.NewCachedSnapshotProvider(assignmentRepo, cfg.Gate.SnapshotTTL)
	accessSvc := accessService.NewService(snapshots)
	gate := callgate.NewGate(accessSvc, userRepo, callRepo, publisher, auditor, m, callgate.Config{
		RecheckInterval: cfg.Gate.RecheckInterval,
		RequestedTTL:    cfg.Gate.RequestedTTL,
	})

	jwtSvc := auth.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		time.Duration(cfg.JWT.ExpiryHours)*time.Hour,
		time.Duration(cfg.JWT.RefreshExpiryHours)*time.Hour,
	)
	authSvc := authService.NewService(userRepo, tokenRepo, jwtSvc, auditor)
	mailer := email.NewService(cfg.SMTP)

	// Domain services
	userSvc := userService.NewService(userRepo, patientRepo, assignmentRepo, snapshots, gate, auditor)
	patientSvc := patientService.NewService(patientRepo, accessSvc, auditor)
	appointmentSvc := appointmentService.NewService(appointmentRepo, patientRepo, accessSvc, auditor, mailer)
	billingSvc := billingService.NewService(superbillRepo, accessSvc, auditor)
	paymentSvc := paymentService.NewService(paymentRepo, accessSvc, auditor)
	assistantSvc := assistantService.NewService(gate, appointmentRepo)

	// The assistant halts on revocation signals as they arrive, not on its
	// next gate query.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	revocations, err := publisher.SubscribeRevocations(rootCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to revocations")
	}
	go assistantSvc.Run(rootCtx, revocations)
	go notifyRevocations(rootCtx, publisher, userRepo, mailer)

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(authSvc, userRepo)
	h := handler.NewHandler(db)
	authH := authHandler.NewHandler(authSvc)

	r := router.New(authMiddleware, authH, h, router.Config{
		RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst: cfg.RateLimit.Burst,
		CORSConfig:     middleware.DefaultCORSConfig(),
		MetricsPrefix:  cfg.Monitoring.Namespace,
	}, nil, []router.Handler{
		userHandler.NewHandler(userSvc, authMiddleware),
		patientHandler.NewHandler(patientSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		billingHandler.NewHandler(billingSvc, authMiddleware),
		paymentHandler.NewHandler(paymentSvc, authMiddleware),
		callHandler.NewHandler(gate, assistantSvc, authMiddleware),
		rbacHandler.NewHandler(),
		auditHandler.NewHandler(auditSvc, authMiddleware),
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

// notifyRevocations emails the affected patient when one of their call
// sessions loses access.
func notifyRevocations(ctx context.Context, publisher *redisMessaging.Publisher,
	userRepo repository.UserRepository, mailer email.Service) {
	revocations, err := publisher.SubscribeRevocations(ctx)
	if err != nil {
		log.Error().Err(err).Msg("revocation notifier failed to subscribe")
		return
	}
	for revocation := range revocations {
		user, err := userRepo.Get(ctx, revocation.PatientID)
		if err != nil {
			log.Warn().Err(err).Str("patient_id", revocation.PatientID.String()).
				Msg("skipping revocation notice, user lookup failed")
			continue
		}
		if err := mailer.SendRevocationNotice(user.Email, revocation); err != nil {
			log.Warn().Err(err).Str("session_id", revocation.SessionID.String()).
				Msg("failed to send revocation notice")
		}
	}
}

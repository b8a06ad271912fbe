package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tate5000/Thera-stack/internal/config"
	"github.com/Tate5000/Thera-stack/internal/repository/postgres"
	accessService "github.com/Tate5000/Thera-stack/internal/service/access"
	auditService "github.com/Tate5000/Thera-stack/internal/service/audit"
	paymentService "github.com/Tate5000/Thera-stack/internal/service/payment"
	"github.com/Tate5000/Thera-stack/internal/worker"
)

func setupHealthCheck() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.Fatal().Err(err).Msg("health check server failed")
		}
	}()
}

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

	auditRepo := postgres.NewAuditRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	assignmentRepo := postgres.NewAssignmentRepository(db)

	auditSvc := auditService.NewService(auditRepo)
	auditor := auditService.NewLogger(auditSvc)
	snapshots := accessService.NewCachedSnapshotProvider(assignmentRepo, cfg.Gate.SnapshotTTL)
	accessSvc := accessService.NewService(snapshots)
	paymentSvc := paymentService.NewService(paymentRepo, accessSvc, auditor)

	maintenance := worker.NewMaintenance(
		auditSvc,
		paymentSvc,
		time.Duration(cfg.Audit.RetentionDays)*24*time.Hour,
		time.Hour,
	)

	setupHealthCheck()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("starting maintenance worker")
	maintenance.Run(ctx)
	log.Info().Msg("worker exited properly")
}

package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tate5000/Thera-stack/internal/service/audit"
	"github.com/Tate5000/Thera-stack/internal/service/payment"
)

// Maintenance runs the periodic background jobs: audit retention cleanup
// and the overdue payment sweep.
type Maintenance struct {
	audits    *audit.Service
	payments  *payment.Service
	retention time.Duration
	interval  time.Duration
}

func NewMaintenance(audits *audit.Service, payments *payment.Service,
	retention, interval time.Duration) *Maintenance {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Maintenance{
		audits:    audits,
		payments:  payments,
		retention: retention,
		interval:  interval,
	}
}

// Run blocks until ctx is cancelled.
func (m *Maintenance) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Maintenance) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-m.retention)
	purged, err := m.audits.Purge(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("audit retention cleanup failed")
	} else if purged > 0 {
		log.Info().Int64("purged", purged).Time("cutoff", cutoff).
			Msg("purged expired audit logs")
	}

	overdue, err := m.payments.SweepOverdue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("overdue payment sweep failed")
	} else if overdue > 0 {
		log.Info().Int64("marked", overdue).Msg("marked payments overdue")
	}
}

package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
)

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Changes   interface{}
	Metadata  interface{}
	IPAddress string
	UserAgent string
}

// Log creates an audit log entry
func (s *Service) Log(ctx context.Context, userID uuid.UUID, action, entityType string, entityID uuid.UUID, opts *LogOptions) error {
	var changes, metadata json.RawMessage
	var err error

	entry := &model.AuditLog{
		ID:         uuid.New(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
	}

	if opts != nil {
		if opts.Changes != nil {
			changes, err = json.Marshal(opts.Changes)
			if err != nil {
				return err
			}
		}
		if opts.Metadata != nil {
			metadata, err = json.Marshal(opts.Metadata)
			if err != nil {
				return err
			}
		}
		entry.Changes = changes
		entry.Metadata = metadata
		entry.IPAddress = opts.IPAddress
		entry.UserAgent = opts.UserAgent
	}

	return s.repo.Create(ctx, entry)
}

func (s *Service) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, filters)
}

// Purge deletes audit entries older than the retention cutoff and returns
// how many rows were removed.
func (s *Service) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, cutoff)
}

// Logger wraps Service with fire-and-forget semantics: recording an audit
// event must never block or fail the authorization decision that produced
// it.
type Logger struct {
	service *Service
}

func NewLogger(service *Service) *Logger {
	return &Logger{service: service}
}

func (l *Logger) Log(ctx context.Context, userID uuid.UUID, action, entityType string, entityID uuid.UUID, opts *LogOptions) {
	go func() {
		// Detach from the request context so a finished request doesn't
		// cancel the write.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.service.Log(ctx, userID, action, entityType, entityID, opts); err != nil {
			log.Error().Err(err).
				Str("action", action).
				Str("entity_type", entityType).
				Msg("failed to record audit event")
		}
	}()
}

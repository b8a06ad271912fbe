package email

import (
	"fmt"

	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"

	"github.com/Tate5000/Thera-stack/internal/config"
	"github.com/Tate5000/Thera-stack/internal/model"
)

// Service sends operational notifications. Delivery is best effort; the
// authorization core never blocks on mail.
type Service interface {
	SendRevocationNotice(to string, revocation model.CallRevocation) error
	SendAppointmentNotice(to string, appointment *model.Appointment) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewService(cfg config.SMTPConfig) Service {
	if !cfg.Enabled {
		return &noopService{}
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendRevocationNotice(to string, revocation model.CallRevocation) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Call session access revoked")
	m.SetBody("text/plain", fmt.Sprintf(
		"Access for call session %s was revoked at %s (reason: %s).",
		revocation.SessionID,
		revocation.RevokedAt.Format("2006-01-02 15:04:05 MST"),
		revocation.Reason,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send revocation notice: %w", err)
	}
	return nil
}

func (s *smtpService) SendAppointmentNotice(to string, appointment *model.Appointment) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Appointment scheduled: "+appointment.Title)
	m.SetBody("text/plain", fmt.Sprintf(
		"Your appointment %q is scheduled for %s.",
		appointment.Title,
		appointment.StartTime.Format("2006-01-02 15:04 MST"),
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send appointment notice: %w", err)
	}
	return nil
}

// noopService is used when SMTP is disabled.
type noopService struct{}

func (n *noopService) SendRevocationNotice(to string, revocation model.CallRevocation) error {
	log.Debug().Str("to", to).Str("session_id", revocation.SessionID.String()).
		Msg("email disabled, skipping revocation notice")
	return nil
}

func (n *noopService) SendAppointmentNotice(to string, appointment *model.Appointment) error {
	log.Debug().Str("to", to).Str("appointment_id", appointment.ID.String()).
		Msg("email disabled, skipping appointment notice")
	return nil
}

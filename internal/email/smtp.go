package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/clinica-valencia/clinic-api/internal/config"
	"github.com/clinica-valencia/clinic-api/pkg/circuitbreaker"
)

type smtpService struct {
	dialer  *gomail.Dialer
	from    string
	breaker *circuitbreaker.CircuitBreaker
}

// NewSMTPService returns a Service delivering through the configured SMTP
// relay, guarded by a circuit breaker so a dead relay fails fast instead of
// stalling request handlers.
func NewSMTPService(cfg *config.SMTPConfig, breaker *circuitbreaker.CircuitBreaker) Service {
	return &smtpService{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		breaker: breaker,
	}
}

func (s *smtpService) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	err := s.breaker.Execute(func() error {
		return s.dialer.DialAndSend(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

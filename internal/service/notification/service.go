// Package notification composes and delivers the clinic's transactional
// emails. Delivery is best-effort: failures are logged and never bubble up
// to the request that triggered them.
package notification

import (
	"fmt"

	"github.com/clinica-valencia/clinic-api/internal/email"
	"github.com/clinica-valencia/clinic-api/internal/model"
	"github.com/clinica-valencia/clinic-api/pkg/logger"
)

type Service struct {
	mailer email.Service
	logger *logger.Logger
}

func NewService(mailer email.Service, log *logger.Logger) *Service {
	return &Service{
		mailer: mailer,
		logger: log.WithComponent("notification"),
	}
}

// AppointmentScheduled notifies both parties of a freshly booked slot.
func (s *Service) AppointmentScheduled(appt *model.Appointment, practitioner, patient *model.Account) {
	date := appt.Date.Format("2006-01-02")

	s.deliver(patient.Email, "Appointment scheduled",
		fmt.Sprintf("Dear %s,\n\nYour appointment with %s on %s at %s has been registered and is pending confirmation.\n\nClinica Valencia",
			patient.FullName(), practitioner.FullName(), date, appt.StartTime))

	s.deliver(practitioner.Email, "New appointment booked",
		fmt.Sprintf("Dear %s,\n\nA new appointment with %s has been booked for %s at %s.\nMotive: %s\n\nClinica Valencia",
			practitioner.FullName(), patient.FullName(), date, appt.StartTime, appt.Motive))
}

// Welcome greets a freshly created account.
func (s *Service) Welcome(account *model.Account) {
	s.deliver(account.Email, "Welcome to Clinica Valencia",
		fmt.Sprintf("Dear %s,\n\nAn account has been created for you (username: %s). You can now sign in with the password you were given.\n\nClinica Valencia",
			account.FullName(), account.Username))
}

// PasswordChanged warns an account holder that their credential was replaced.
func (s *Service) PasswordChanged(account *model.Account) {
	s.deliver(account.Email, "Your password was changed",
		fmt.Sprintf("Dear %s,\n\nThe password of your account was just changed. If this was not you, contact the clinic immediately.\n\nClinica Valencia",
			account.FullName()))
}

func (s *Service) deliver(to, subject, body string) {
	if err := s.mailer.Send(to, subject, body); err != nil {
		s.logger.Warn("email delivery failed", "to", to, "subject", subject, "error", err.Error())
	}
}

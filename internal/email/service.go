package email

// Service performs best-effort mail delivery. Implementations return an
// error on failure and never panic past the caller; callers decide whether
// a failure is fatal (for notifications it never is).
type Service interface {
	Send(to, subject, body string) error
}

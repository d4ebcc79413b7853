package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
	"gopkg.in/gomail.v2"

	"github.com/oarkflow/mailform/internal/dispatch"
)

// ErrNoPassword is returned when an SMTP password is needed but none can be read.
var ErrNoPassword = errors.New("smtp password not available")

// SMTPConfig describes an SMTP account
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	InsecureSkipVerify bool
}

// PasswordFunc asks the operator for a password.
type PasswordFunc func(prompt string) (string, error)

// TerminalPassword reads a password from the terminal without echo.
func TerminalPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoPassword
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// SMTP sends mail through an SMTP server. Port 465 uses implicit TLS. On any
// other port the connection is upgraded with STARTTLS only when the server
// advertises it.
type SMTP struct {
	cfg      SMTPConfig
	password PasswordFunc
	sender   gomail.Sender
	dialer   *gomail.Dialer
}

// SMTPOption configures the SMTP backend
type SMTPOption func(*SMTP)

// WithPasswordFunc replaces the terminal password prompt.
func WithPasswordFunc(fn PasswordFunc) SMTPOption {
	return func(s *SMTP) { s.password = fn }
}

// WithSender sends through an already connected sender instead of dialing.
func WithSender(sender gomail.Sender) SMTPOption {
	return func(s *SMTP) { s.sender = sender }
}

// NewSMTP creates an SMTP backend
func NewSMTP(cfg SMTPConfig, opts ...SMTPOption) *SMTP {
	s := &SMTP{cfg: cfg, password: TerminalPassword}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate resolves the password and prepares the dialer.
func (s *SMTP) Authenticate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Host == "" {
		return errors.New("smtp host is not configured")
	}

	password := s.cfg.Password
	if password == "" && s.cfg.Username != "" {
		p, err := s.password(fmt.Sprintf("SMTP password for %s: ", s.cfg.Username))
		if err != nil {
			return err
		}
		password = p
		s.cfg.Password = p
	}

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, password)
	d.SSL = s.cfg.Port == 465
	d.TLSConfig = &tls.Config{ServerName: s.cfg.Host, InsecureSkipVerify: s.cfg.InsecureSkipVerify}
	s.dialer = d
	return nil
}

// Send delivers the message in one SMTP session.
func (s *SMTP) Send(ctx context.Context, msg dispatch.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := NewMessage(msg)

	if s.sender != nil {
		return gomail.Send(s.sender, m)
	}
	if s.dialer == nil {
		return errors.New("smtp backend is not authenticated")
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}

	log.Debug("SMTP message sent", "host", s.cfg.Host, "to", msg.To)
	return nil
}

// Package dispatch picks the send backend for a sender address and forwards a
// rendered message to it. Sends are attempted once; failures are returned.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	// ErrUnsupportedProvider is returned when no backend serves the sender.
	ErrUnsupportedProvider = errors.New("unsupported email provider")
	// ErrSendFailure wraps authentication and transport errors from a backend.
	ErrSendFailure = errors.New("failed to send email")
)

// Provider identifies a send backend.
type Provider string

const (
	ProviderOutlook Provider = "outlook"
	ProviderGmail   Provider = "gmail"
	ProviderSMTP    Provider = "smtp"
)

// domainHints maps provider names to the domain substrings that select them.
// Order matters when a domain matches more than one hint.
var domainHints = []struct {
	provider Provider
	hints    []string
}{
	{ProviderOutlook, []string{"outlook", "hotmail", "live"}},
	{ProviderGmail, []string{"gmail"}},
}

// Message is a rendered email ready for a backend.
type Message struct {
	From          string
	To            string
	RecipientName string
	Subject       string
	HTMLBody      string
}

// Backend authenticates against a mail service and sends messages through it.
type Backend interface {
	Authenticate(ctx context.Context) error
	Send(ctx context.Context, msg Message) error
}

// SelectProvider returns the API provider for a sender address.
func SelectProvider(sender string) (Provider, error) {
	sender = strings.TrimSpace(sender)
	if sender == "" || strings.Count(sender, "@") != 1 {
		return "", fmt.Errorf("%w: invalid address %q", ErrUnsupportedProvider, sender)
	}

	domain := strings.ToLower(sender[strings.Index(sender, "@")+1:])
	for _, d := range domainHints {
		for _, hint := range d.hints {
			if strings.Contains(domain, hint) {
				return d.provider, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, domain)
}

// Dispatcher routes messages to registered backends.
type Dispatcher struct {
	backends map[Provider]Backend
}

// New creates an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{backends: make(map[Provider]Backend)}
}

// Register adds or replaces the backend for a provider.
func (d *Dispatcher) Register(p Provider, b Backend) {
	d.backends[p] = b
}

// Providers lists the registered providers.
func (d *Dispatcher) Providers() []Provider {
	list := make([]Provider, 0, len(d.backends))
	for _, p := range []Provider{ProviderOutlook, ProviderGmail, ProviderSMTP} {
		if _, ok := d.backends[p]; ok {
			list = append(list, p)
		}
	}
	return list
}

// Route returns the provider and backend that will carry msg. A forced
// provider bypasses domain routing.
func (d *Dispatcher) Route(msg Message, forced Provider) (Provider, Backend, error) {
	p := forced
	if p == "" {
		var err error
		p, err = SelectProvider(msg.From)
		if err != nil {
			return "", nil, err
		}
	}
	b, ok := d.backends[p]
	if !ok {
		return "", nil, fmt.Errorf("%w: no %s backend configured", ErrUnsupportedProvider, p)
	}
	return p, b, nil
}

// Send routes msg by sender domain and sends it once.
func (d *Dispatcher) Send(ctx context.Context, msg Message) (Provider, error) {
	return d.SendVia(ctx, msg, "")
}

// SendVia sends msg through forced, or by sender domain when forced is empty.
func (d *Dispatcher) SendVia(ctx context.Context, msg Message, forced Provider) (Provider, error) {
	p, b, err := d.Route(msg, forced)
	if err != nil {
		return "", err
	}

	log.Info("Authenticating", "provider", p, "from", msg.From)
	if err := b.Authenticate(ctx); err != nil {
		return p, fmt.Errorf("%w: %s authentication: %w", ErrSendFailure, p, err)
	}

	log.Info("Sending email", "provider", p, "to", msg.To, "subject", msg.Subject, "bytes", len(msg.HTMLBody))
	if err := b.Send(ctx, msg); err != nil {
		return p, fmt.Errorf("%w: %s: %w", ErrSendFailure, p, err)
	}

	log.Info("Email sent", "provider", p, "to", msg.To)
	return p, nil
}

// ParseProvider validates a provider name given on the command line.
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return "", nil
	case ProviderOutlook, ProviderGmail, ProviderSMTP:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
}

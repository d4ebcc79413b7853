package pipeline

import (
	"context"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/oarkflow/mailform/internal/auth"
	"github.com/oarkflow/mailform/internal/cache"
	"github.com/oarkflow/mailform/internal/config"
	"github.com/oarkflow/mailform/internal/dispatch"
	"github.com/oarkflow/mailform/internal/mailer"
)

// unavailable stands in for a backend whose setup failed, so the reason
// surfaces when a message is routed to it.
type unavailable struct {
	err error
}

func (u unavailable) Authenticate(context.Context) error { return u.err }

func (u unavailable) Send(context.Context, dispatch.Message) error { return u.err }

// OAuthConfig returns the oauth2 config for an API provider.
func OAuthConfig(cfg *config.Config, provider dispatch.Provider) (*oauth2.Config, error) {
	switch provider {
	case dispatch.ProviderOutlook:
		c := cfg.OAuth.Microsoft
		return auth.MicrosoftConfig(auth.Credentials{ClientID: c.ClientID, ClientSecret: c.ClientSecret, TenantID: c.TenantID})
	case dispatch.ProviderGmail:
		c := cfg.OAuth.Google
		return auth.GoogleConfig(auth.Credentials{ClientID: c.ClientID, ClientSecret: c.ClientSecret})
	default:
		return nil, dispatch.ErrUnsupportedProvider
	}
}

// Session creates an OAuth session for provider and account.
func Session(cfg *config.Config, tokens *cache.Cache, provider dispatch.Provider, account string, interactive bool) (*auth.Session, error) {
	conf, err := OAuthConfig(cfg, provider)
	if err != nil {
		return nil, err
	}
	opts := []auth.Option{
		auth.WithPort(cfg.OAuth.RedirectPort),
		auth.WithInteractive(interactive),
	}
	if provider == dispatch.ProviderGmail {
		// Google only returns a refresh token on the consent screen.
		opts = append(opts, auth.WithAuthCodeOptions(oauth2.ApprovalForce))
	}
	return auth.NewSession(string(provider), account, conf, tokens, opts...), nil
}

// Inbox opens the Gmail INBOX of account.
func Inbox(cfg *config.Config, tokens *cache.Cache, account string, interactive bool) (*mailer.Inbox, error) {
	s, err := Session(cfg, tokens, dispatch.ProviderGmail, account, interactive)
	if err != nil {
		return nil, err
	}
	return mailer.NewInbox(s, cfg.API.GmailURL), nil
}

// TokenCache opens the token cache described by the configuration
func TokenCache(cfg *config.Config) (*cache.Cache, error) {
	return cache.New(cache.Options{Dir: cfg.TokenCache.Dir, Persist: cfg.TokenCache.Enabled})
}

// DefaultDispatchers registers the Graph, Gmail and SMTP backends from cfg.
func DefaultDispatchers(cfg *config.Config, tokens *cache.Cache, interactive bool) DispatcherFactory {
	return func(account string) (*dispatch.Dispatcher, error) {
		d := dispatch.New()

		if s, err := Session(cfg, tokens, dispatch.ProviderOutlook, account, interactive); err == nil {
			d.Register(dispatch.ProviderOutlook, mailer.NewGraph(s, cfg.API.GraphURL))
		} else {
			log.Debug("Graph backend unavailable", "error", err)
			d.Register(dispatch.ProviderOutlook, unavailable{err: err})
		}

		if s, err := Session(cfg, tokens, dispatch.ProviderGmail, account, interactive); err == nil {
			d.Register(dispatch.ProviderGmail, mailer.NewGmail(s, cfg.API.GmailURL))
		} else {
			log.Debug("Gmail backend unavailable", "error", err)
			d.Register(dispatch.ProviderGmail, unavailable{err: err})
		}

		if cfg.SMTP.Host != "" {
			d.Register(dispatch.ProviderSMTP, mailer.NewSMTP(mailer.SMTPConfig{
				Host:               cfg.SMTP.Host,
				Port:               cfg.SMTP.Port,
				Username:           cfg.SMTP.Username,
				Password:           cfg.SMTP.Password,
				InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
			}))
		}
		return d, nil
	}
}

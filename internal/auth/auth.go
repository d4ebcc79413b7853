// Package auth runs OAuth2 sessions for the mailbox API providers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/oarkflow/mailform/internal/cache"
)

var (
	// ErrNotAuthenticated is returned when no usable token exists and interactive login is disabled.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrMissingCredentials is returned when a provider has no client id.
	ErrMissingCredentials = errors.New("missing oauth client credentials")
	// ErrAuthorization is returned when the authorization callback reports a failure.
	ErrAuthorization = errors.New("authorization failed")
)

const (
	GmailSendScope = "https://www.googleapis.com/auth/gmail.send"
	GraphSendScope = "https://graph.microsoft.com/Mail.Send"

	// DefaultTenant lets any Microsoft account sign in.
	DefaultTenant = "common"
	// DefaultPort is the loopback callback port.
	DefaultPort = 8080

	expiryBuffer = 5 * time.Minute
)

// Credentials identifies an OAuth2 client
type Credentials struct {
	ClientID     string
	ClientSecret string
	TenantID     string
}

// GoogleConfig builds the oauth2 config for Gmail sending.
func GoogleConfig(c Credentials) (*oauth2.Config, error) {
	if c.ClientID == "" {
		return nil, fmt.Errorf("google: %w", ErrMissingCredentials)
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{GmailSendScope},
	}, nil
}

// MicrosoftConfig builds the oauth2 config for Graph sending.
func MicrosoftConfig(c Credentials) (*oauth2.Config, error) {
	if c.ClientID == "" {
		return nil, fmt.Errorf("microsoft: %w", ErrMissingCredentials)
	}
	tenant := c.TenantID
	if tenant == "" {
		tenant = DefaultTenant
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     microsoft.AzureADEndpoint(tenant),
		Scopes:       []string{GraphSendScope, "offline_access"},
	}, nil
}

// Session holds the token state of one provider account.
type Session struct {
	provider    string
	account     string
	key         string
	config      *oauth2.Config
	cache       *cache.Cache
	port        int
	interactive bool
	prompt      func(authURL string)
	authOpts    []oauth2.AuthCodeOption

	mu     sync.Mutex
	source oauth2.TokenSource
}

// Option configures a Session
type Option func(*Session)

// WithPort sets the loopback callback port. Zero picks a free port.
func WithPort(port int) Option {
	return func(s *Session) { s.port = port }
}

// WithInteractive enables or disables the browser login when no token is cached.
func WithInteractive(enabled bool) Option {
	return func(s *Session) { s.interactive = enabled }
}

// WithPrompt replaces the function that shows the authorization URL.
func WithPrompt(fn func(authURL string)) Option {
	return func(s *Session) { s.prompt = fn }
}

// WithAuthCodeOptions adds provider specific parameters to the authorization URL.
func WithAuthCodeOptions(opts ...oauth2.AuthCodeOption) Option {
	return func(s *Session) { s.authOpts = append(s.authOpts, opts...) }
}

// NewSession creates a session for provider and account backed by tokens.
// The account is trimmed and lower-cased before it keys the cache.
func NewSession(provider, account string, conf *oauth2.Config, tokens *cache.Cache, opts ...Option) *Session {
	account = NormalizeAccount(account)
	s := &Session{
		provider:    provider,
		account:     account,
		key:         cache.Key(provider, account),
		config:      conf,
		cache:       tokens,
		port:        DefaultPort,
		interactive: true,
		prompt:      defaultPrompt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeAccount returns the form of an account address used for cache keys.
func NormalizeAccount(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}

func defaultPrompt(authURL string) {
	log.Print("Open this URL in your browser to authorize mailform", "url", authURL)
}

// Provider returns the provider name
func (s *Session) Provider() string { return s.provider }

// Account returns the account the session signs in as
func (s *Session) Account() string { return s.account }

// Authenticate makes sure the session can produce an access token.
func (s *Session) Authenticate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source != nil {
		return nil
	}

	if entry, ok := s.cache.Get(s.key); ok && entry.Usable() {
		s.source = s.persisting(ctx, entry.Token)
		log.Debug("Using cached token", "provider", s.provider, "account", s.account)
		return nil
	}

	if !s.interactive {
		return fmt.Errorf("%s %s: %w", s.provider, s.account, ErrNotAuthenticated)
	}

	token, err := s.login(ctx)
	if err != nil {
		return err
	}
	s.source = s.persisting(ctx, token)
	return nil
}

// Login always runs the browser flow and replaces any cached token.
func (s *Session) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.login(ctx)
	if err != nil {
		return err
	}
	s.source = s.persisting(ctx, token)
	return nil
}

func (s *Session) login(ctx context.Context) (*oauth2.Token, error) {
	token, err := loopbackLogin(ctx, s.config, s.port, s.prompt, s.authOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s login: %w", s.provider, err)
	}
	if err := s.cache.Put(s.key, s.provider, s.account, token); err != nil {
		log.Warn("Failed to cache token", "provider", s.provider, "error", err)
	}
	log.Info("Authorized", "provider", s.provider, "account", s.account)
	return token, nil
}

// Logout forgets the cached token
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = nil
	return s.cache.Delete(s.key)
}

// Token returns a valid access token, refreshing it when needed.
func (s *Session) Token(ctx context.Context) (*oauth2.Token, error) {
	if err := s.Authenticate(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()
	return src.Token()
}

// Client returns an HTTP client that authorizes requests with the session token.
func (s *Session) Client(ctx context.Context) (*http.Client, error) {
	if err := s.Authenticate(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()
	return oauth2.NewClient(ctx, src), nil
}

func (s *Session) persisting(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	base := s.config.TokenSource(ctx, token)
	return oauth2.ReuseTokenSourceWithExpiry(token, &cachingSource{
		base:    base,
		session: s,
		last:    token.AccessToken,
	}, expiryBuffer)
}

// cachingSource writes refreshed tokens back to the cache.
type cachingSource struct {
	base    oauth2.TokenSource
	session *Session
	mu      sync.Mutex
	last    string
}

func (c *cachingSource) Token() (*oauth2.Token, error) {
	token, err := c.base.Token()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token.AccessToken != c.last {
		c.last = token.AccessToken
		s := c.session
		if err := s.cache.Put(s.key, s.provider, s.account, token); err != nil {
			log.Warn("Failed to cache refreshed token", "provider", s.provider, "error", err)
		}
		log.Debug("Token refreshed", "provider", s.provider, "account", s.account)
	}
	return token, nil
}

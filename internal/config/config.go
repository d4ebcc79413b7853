/*
Package config provides configuration loading and validation for mailform.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oarkflow/mailform/internal/locale"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Transport names
const (
	TransportAPI  = "api"
	TransportSMTP = "smtp"
)

// FileNames are searched in order when no config path is given
var FileNames = []string{".mailform.yaml", ".mailform.yml", "mailform.yaml"}

// Config represents the complete mailform configuration
type Config struct {
	// Version of the configuration schema
	Version int `yaml:"version"`

	// Include other configuration files
	Includes []string `yaml:"includes,omitempty"`

	// SettingsDir holds the per-locale header, footer, sender and mode documents
	SettingsDir string `yaml:"settings_dir,omitempty"`

	// Template is the HTML email template
	Template string `yaml:"template,omitempty"`

	// OutputDir receives latest_email.html
	OutputDir string `yaml:"output_dir,omitempty"`

	// DefaultLocale is used when no --locale flag is given
	DefaultLocale string `yaml:"default_locale,omitempty"`

	// UILanguage fixes the CLI message language. Empty follows the email locale.
	UILanguage string `yaml:"ui_language,omitempty"`

	// Transport is "api" (domain routed Graph/Gmail) or "smtp"
	Transport string `yaml:"transport,omitempty"`

	SMTP       SMTP       `yaml:"smtp,omitempty"`
	OAuth      OAuth      `yaml:"oauth,omitempty"`
	API        API        `yaml:"api,omitempty"`
	TokenCache TokenCache `yaml:"token_cache,omitempty"`
}

// SMTP describes the SMTP account used by the smtp transport
type SMTP struct {
	Host               string `yaml:"host,omitempty"`
	Port               int    `yaml:"port,omitempty"`
	Username           string `yaml:"username,omitempty"`
	Password           string `yaml:"password,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty"`
}

// OAuthClient holds the credentials of one OAuth2 application
type OAuthClient struct {
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`
	TenantID     string `yaml:"tenant_id,omitempty"`
}

// OAuth configures the mailbox API logins
type OAuth struct {
	Google       OAuthClient `yaml:"google,omitempty"`
	Microsoft    OAuthClient `yaml:"microsoft,omitempty"`
	RedirectPort int         `yaml:"redirect_port,omitempty"`
}

// API overrides the mailbox API roots
type API struct {
	GraphURL string `yaml:"graph_url,omitempty"`
	GmailURL string `yaml:"gmail_url,omitempty"`
}

// TokenCache controls whether OAuth tokens outlive a run
type TokenCache struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

// Find returns the first config file present in dir
func Find(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// LoadEnv loads dir/.env into the process environment. A missing file is not an error.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Debug("Loaded environment file", "path", path)
	return nil
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Process includes; values already set win over included ones
	baseDir := filepath.Dir(path)
	for _, include := range cfg.Includes {
		includePath := include
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, include)
		}

		matches, err := filepath.Glob(includePath)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %s: %w", include, err)
		}

		for _, match := range matches {
			includeCfg, err := load(match)
			if err != nil {
				return nil, fmt.Errorf("failed to load include %s: %w", match, err)
			}

			if err := mergo.Merge(&cfg, includeCfg, mergo.WithAppendSlice); err != nil {
				return nil, fmt.Errorf("failed to merge include %s: %w", match, err)
			}
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SettingsDir == "" {
		c.SettingsDir = "settings"
	}
	if c.Template == "" {
		c.Template = "mail_template.html"
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.DefaultLocale == "" {
		c.DefaultLocale = "en"
	}
	if c.Transport == "" {
		c.Transport = TransportAPI
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.OAuth.RedirectPort == 0 {
		c.OAuth.RedirectPort = 8080
	}
	if c.TokenCache.Dir == "" {
		homeDir, _ := os.UserHomeDir()
		c.TokenCache.Dir = filepath.Join(homeDir, ".cache", "mailform")
	}

	envDefault(&c.OAuth.Microsoft.ClientID, "AZURE_CLIENT_ID")
	envDefault(&c.OAuth.Microsoft.ClientSecret, "AZURE_CLIENT_SECRET")
	envDefault(&c.OAuth.Microsoft.TenantID, "AZURE_TENANT_ID")
	envDefault(&c.OAuth.Google.ClientID, "GOOGLE_CLIENT_ID")
	envDefault(&c.OAuth.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	envDefault(&c.SMTP.Password, "MAILFORM_SMTP_PASSWORD")
}

func envDefault(field *string, key string) {
	if *field == "" {
		*field = os.Getenv(key)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := locale.FromCode(c.DefaultLocale); err != nil {
		return fmt.Errorf("%w: default_locale: %w", ErrInvalidConfig, err)
	}
	if c.UILanguage != "" {
		if _, err := locale.FromCode(c.UILanguage); err != nil {
			return fmt.Errorf("%w: ui_language: %w", ErrInvalidConfig, err)
		}
	}

	switch c.Transport {
	case TransportAPI:
	case TransportSMTP:
		if c.SMTP.Host == "" {
			return fmt.Errorf("%w: smtp.host is required for the smtp transport", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport)
	}

	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("%w: smtp.port %d out of range", ErrInvalidConfig, c.SMTP.Port)
	}
	if c.OAuth.RedirectPort < 0 || c.OAuth.RedirectPort > 65535 {
		return fmt.Errorf("%w: oauth.redirect_port %d out of range", ErrInvalidConfig, c.OAuth.RedirectPort)
	}
	return nil
}

// DefaultTemplate returns the default configuration template
func DefaultTemplate() string {
	return `# mailform configuration file
version: 1

# Per-locale header/footer/sender documents and mode overlays
settings_dir: settings

# HTML email template
template: mail_template.html

# latest_email.html is written here on every render
output_dir: output

default_locale: en

# api routes by sender domain (Outlook/Hotmail/Live -> Graph, Gmail -> Gmail API)
# smtp sends every message through the account below
transport: api

smtp:
  host: smtp.example.com
  port: 587
  username: ""
  # password: ${MAILFORM_SMTP_PASSWORD}

oauth:
  redirect_port: 8080
  microsoft:
    client_id: ${AZURE_CLIENT_ID}
    client_secret: ${AZURE_CLIENT_SECRET}
    tenant_id: common
  google:
    client_id: ${GOOGLE_CLIENT_ID}
    client_secret: ${GOOGLE_CLIENT_SECRET}

# Keep OAuth tokens on disk between runs
token_cache:
  enabled: false
`
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "settings", cfg.SettingsDir)
	assert.Equal(t, "mail_template.html", cfg.Template)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "en", cfg.DefaultLocale)
	assert.Equal(t, TransportAPI, cfg.Transport)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 8080, cfg.OAuth.RedirectPort)
	assert.False(t, cfg.TokenCache.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("MAILFORM_TEST_HOST", "smtp.test.local")
	dir := t.TempDir()
	path := filepath.Join(dir, ".mailform.yaml")
	writeFile(t, path, "transport: smtp\nsmtp:\n  host: ${MAILFORM_TEST_HOST}\n  port: 465\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "smtp.test.local", cfg.SMTP.Host)
	assert.Equal(t, 465, cfg.SMTP.Port)
	require.NoError(t, cfg.Validate())
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "conf.d", "oauth.yaml"),
		"default_locale: de\noauth:\n  google:\n    client_id: from-include\n")
	path := filepath.Join(dir, ".mailform.yaml")
	writeFile(t, path, "includes:\n  - conf.d/*.yaml\ndefault_locale: jp\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "jp", cfg.DefaultLocale, "top-level values win over includes")
	assert.Equal(t, "from-include", cfg.OAuth.Google.ClientID)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "transport: [")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AZURE_CLIENT_ID", "azure-id")
	t.Setenv("AZURE_TENANT_ID", "")
	t.Setenv("GOOGLE_CLIENT_ID", "google-id")

	cfg := Default()
	assert.Equal(t, "azure-id", cfg.OAuth.Microsoft.ClientID)
	assert.Equal(t, "google-id", cfg.OAuth.Google.ClientID)
	assert.Empty(t, cfg.OAuth.Microsoft.TenantID)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadEnv(dir))

	t.Setenv("MAILFORM_DOTENV_VALUE", "")
	os.Unsetenv("MAILFORM_DOTENV_VALUE")
	writeFile(t, filepath.Join(dir, ".env"), "MAILFORM_DOTENV_VALUE=loaded\n")
	require.NoError(t, LoadEnv(dir))
	assert.Equal(t, "loaded", os.Getenv("MAILFORM_DOTENV_VALUE"))
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	_, ok := Find(dir)
	assert.False(t, ok)

	writeFile(t, filepath.Join(dir, ".mailform.yml"), "version: 1\n")
	path, ok := Find(dir)
	require.True(t, ok)
	assert.Equal(t, ".mailform.yml", filepath.Base(path))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad locale", func(c *Config) { c.DefaultLocale = "english" }},
		{"bad ui language", func(c *Config) { c.UILanguage = "x" }},
		{"unknown transport", func(c *Config) { c.Transport = "pigeon" }},
		{"smtp without host", func(c *Config) { c.Transport = TransportSMTP }},
		{"smtp port", func(c *Config) { c.SMTP.Port = 70000 }},
		{"redirect port", func(c *Config) { c.OAuth.RedirectPort = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestDefaultTemplateParses(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(DefaultTemplate()), &cfg))
	assert.Equal(t, TransportAPI, cfg.Transport)
	assert.Equal(t, "settings", cfg.SettingsDir)
}

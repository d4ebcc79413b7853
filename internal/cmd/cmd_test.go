package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/oarkflow/mailform/internal/config"
	"github.com/oarkflow/mailform/internal/dispatch"
	"github.com/oarkflow/mailform/internal/i18n"
	"github.com/oarkflow/mailform/internal/pipeline"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestInitThenRender(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, "init", dir))
	assert.FileExists(t, filepath.Join(dir, ".mailform.yaml"))

	out := filepath.Join(dir, "out")
	require.NoError(t, run(t, "render",
		"--config", filepath.Join(dir, ".mailform.yaml"),
		"--settings", filepath.Join(dir, "settings"),
		"--template", filepath.Join(dir, "mail_template.html"),
		"--output-dir", out,
		"-l", "de",
		"-d", filepath.Join(dir, "data.example.json"),
	))

	html, err := os.ReadFile(filepath.Join(out, pipeline.OutputFile))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Sehr geehrte Frau Jane,")
}

func TestRenderMissingData(t *testing.T) {
	dir := t.TempDir()
	err := run(t, "render",
		"--config", "",
		"--settings", filepath.Join(dir, "settings"),
		"--template", filepath.Join(dir, "missing.html"),
		"--output-dir", filepath.Join(dir, "out"),
		"-d", filepath.Join(dir, "nope.json"),
	)
	assert.Error(t, err)
}

func TestUILanguage(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, language.German, uiLanguage(cfg, "de"))
	assert.Equal(t, language.Japanese, uiLanguage(cfg, "jp"))
	assert.Equal(t, language.English, uiLanguage(cfg, "toolong"))

	cfg.UILanguage = "de"
	assert.Equal(t, language.German, uiLanguage(cfg, "jp"))
}

func TestSettingsFiles(t *testing.T) {
	files := settingsFiles("settings", "en")
	assert.Len(t, files, 8)
	assert.Contains(t, files, filepath.Join("settings", "en", "mode", "informal.json"))
}

func TestLocaleSummary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, "init", dir))
	settings := filepath.Join(dir, "settings")

	got := localeSummary(settings, "de")
	assert.Contains(t, got, `salutation="Hallo "`)
	assert.Contains(t, got, `closing="Mit freundlichen Grüßen"`)
	assert.Contains(t, got, `sender="Ihr Name"`)

	assert.Equal(t, `salutation="" greeting="" closing="" sender=""`, localeSummary(settings, ".."))
}

func TestFailureMessage(t *testing.T) {
	key, fields := failureMessage(nil, errors.New("connection refused"))
	assert.Equal(t, i18n.MsgSendFailed, key)
	assert.Equal(t, "Sending failed: connection refused", translator.T(language.English, key, fields))

	result := &pipeline.Result{Message: dispatch.Message{From: "me@example.org"}}
	key, fields = failureMessage(result, fmt.Errorf("route: %w", dispatch.ErrUnsupportedProvider))
	assert.Equal(t, i18n.MsgUnsupported, key)
	assert.Equal(t, "me@example.org", fields["Sender"])
}

func TestCompletionPath(t *testing.T) {
	for _, shell := range shells {
		p := completionPath("/home/u", shell)
		assert.Contains(t, p, "mailform")
	}
}

package scaffold

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/mailform/internal/component"
	"github.com/oarkflow/mailform/internal/config"
	"github.com/oarkflow/mailform/internal/data"
	"github.com/oarkflow/mailform/internal/locale"
	"github.com/oarkflow/mailform/internal/resolve"
)

func TestSkeletonCoversRegistries(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)

	for _, code := range locale.LocaleCodes() {
		for _, f := range []string{component.HeaderFile, component.FooterFile, component.SenderFile} {
			assert.Contains(t, files, "settings/"+code+"/"+f)
		}
		for _, m := range append(locale.Genders(), locale.Formalities()...) {
			assert.Contains(t, files, "settings/"+code+"/mode/"+m+".json")
		}
	}
	assert.Contains(t, files, "mail_template.html")
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	res, err := Write(dir, false)
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	assert.FileExists(t, filepath.Join(dir, ".mailform.yaml"))
	assert.FileExists(t, filepath.Join(dir, "settings", "jp", "mode", "informal.json"))

	custom := filepath.Join(dir, "mail_template.html")
	require.NoError(t, os.WriteFile(custom, []byte("mine"), 0644))

	res, err = Write(dir, false)
	require.NoError(t, err)
	assert.Empty(t, res.Written)
	assert.Contains(t, res.Skipped, custom)
	content, _ := os.ReadFile(custom)
	assert.Equal(t, "mine", string(content))

	res, err = Write(dir, true)
	require.NoError(t, err)
	assert.Contains(t, res.Written, custom)
}

func TestSkeletonRenders(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, false)
	require.NoError(t, err)

	clock := func() time.Time { return time.Date(2027, 5, 1, 0, 0, 0, 0, time.UTC) }
	r := resolve.New(filepath.Join(dir, "settings"), filepath.Join(dir, "mail_template.html"), resolve.WithClock(clock))

	tests := []struct {
		code string
		want []string
	}{
		{"en", []string{"Dear Ms. Jane,", "Yours sincerely,", "Your Name", "<strong>continued support</strong>", "<li>Reply with feedback</li>"}},
		{"de", []string{"Sehr geehrte Frau Jane,", "Ihr Name"}},
		{"jp", []string{"Jane様", "何卒よろしくお願い申し上げます。"}},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			out, res, err := r.Render(tt.code, filepath.Join(dir, "data.example.json"))
			require.NoError(t, err)
			assert.Empty(t, res.Skipped)
			assert.Contains(t, out, "2027 TryWorks")
			assert.NotContains(t, out, "<blockquote")
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestSkeletonQuotesReply(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, false)
	require.NoError(t, err)

	base, err := data.Load(filepath.Join(dir, "data.example.json"))
	require.NoError(t, err)
	reply := base.WithReply(data.Reply{From: "Bob <bob@example.com>", Subject: "Question", Body: "Is <this> right?"})

	r := resolve.New(filepath.Join(dir, "settings"), filepath.Join(dir, "mail_template.html"))
	out, err := r.RenderResolution(r.ResolveData(locale.MustFromCode("en"), reply))
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Re: Question</title>")
	assert.Contains(t, out, "Is &lt;this&gt; right?</blockquote>")
}

func TestWrittenConfigLoads(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, false)
	require.NoError(t, err)

	cfg, err := config.Load(filepath.Join(dir, ".mailform.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "settings", cfg.SettingsDir)
	assert.Equal(t, config.TransportAPI, cfg.Transport)
}

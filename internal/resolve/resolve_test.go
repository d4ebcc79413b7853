package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/mailform/internal/component"
	"github.com/oarkflow/mailform/internal/data"
	"github.com/oarkflow/mailform/internal/locale"
)

type fixture struct {
	t        *testing.T
	settings string
	template string
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		t:        t,
		dir:      dir,
		settings: filepath.Join(dir, "settings"),
		template: filepath.Join(dir, "mail_template.html"),
	}
	f.write(f.template, `<p>{{ .greeting }}</p><p>{{ .body }}</p><p>{{ .closing }}</p><small>{{ .year }}</small>`)
	return f
}

func (f *fixture) write(path, content string) string {
	f.t.Helper()
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(f.t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (f *fixture) locale(code, file, content string) {
	f.write(filepath.Join(f.settings, code, file), content)
}

func (f *fixture) base(content string) string {
	return f.write(filepath.Join(f.dir, "data.json"), content)
}

func fixedClock() time.Time {
	return time.Date(2031, time.March, 4, 10, 0, 0, 0, time.UTC)
}

func TestResolve_Precedence(t *testing.T) {
	f := newFixture(t)
	f.locale("en", "header.json", `{"greeting": "B"}`)
	f.locale("en", "mode/male.json", `{"greeting": "C"}`)
	f.locale("en", "mode/formal.json", `{"greeting": "D"}`)
	base := f.base(`{"greeting": "A", "mode": {"gender": "male", "formal": "formal"}}`)

	res, err := New(f.settings, f.template).Resolve("en", base)
	require.NoError(t, err)

	assert.Equal(t, "D", res.Vars["greeting"])
	assert.Equal(t, []string{LayerHeader, LayerGender, LayerFormality}, res.Applied)
}

func TestResolve_LocaleOverlayBeatsBase(t *testing.T) {
	f := newFixture(t)
	f.locale("de", "header.json", `{"greeting": "Hallo", "imageURL": "https://example.com/de.png"}`)
	f.locale("de", "footer.json", `{"closing": "Mit freundlichen Grüßen", "button_text": "Startseite"}`)
	f.locale("de", "sender.json", `{"name": "Erika"}`)
	base := f.base(`{"greeting": "Hello", "closing": "Regards", "name": "Ann", "body": "Text"}`)

	res, err := New(f.settings, f.template).Resolve("de", base)
	require.NoError(t, err)

	assert.Equal(t, "Hallo", res.Vars["greeting"])
	assert.Equal(t, "https://example.com/de.png", res.Vars["imageURL"])
	assert.Equal(t, "Mit freundlichen Grüßen", res.Vars["closing"])
	assert.Equal(t, "Startseite", res.Vars["button_text"])
	assert.Equal(t, "Erika", res.Vars["name"])
	assert.Equal(t, "Text", res.Vars["body"])
}

func TestResolve_AllowlistContainment(t *testing.T) {
	f := newFixture(t)
	f.locale("en", "header.json", `{"greeting": "Hello", "extra": "X"}`)
	f.locale("en", "footer.json", `{"closing": "Bye", "body": "overridden?"}`)
	f.locale("en", "sender.json", `{"name": "Ann", "title": "CEO"}`)
	f.locale("en", "mode/female.json", `{"tone": "warm"}`)
	base := f.base(`{"body": "Hi", "mode": {"gender": "female"}}`)

	res, err := New(f.settings, f.template).Resolve("en", base)
	require.NoError(t, err)

	assert.NotContains(t, res.Vars, "extra")
	assert.NotContains(t, res.Vars, "title")
	assert.Equal(t, "Hi", res.Vars["body"])
	assert.Equal(t, "warm", res.Vars["tone"], "mode overlays may introduce new keys")
}

func TestResolve_ModeOverridesAnyKey(t *testing.T) {
	f := newFixture(t)
	f.locale("jp", "footer.json", `{"closing": "敬具"}`)
	f.locale("jp", "mode/informal.json", `{"closing": "またね", "body": "casual body"}`)
	base := f.base(`{"body": "Hi", "mode": {"formal": "informal"}}`)

	res, err := New(f.settings, f.template).Resolve("jp", base)
	require.NoError(t, err)

	assert.Equal(t, "またね", res.Vars["closing"])
	assert.Equal(t, "casual body", res.Vars["body"])
}

func TestResolve_MissingOverlays(t *testing.T) {
	f := newFixture(t)
	base := f.base(`{"greeting": "A", "closing": "Z", "mode": {"gender": "male", "formal": "formal"}}`)

	res, err := New(f.settings, f.template).Resolve("en", base)
	require.NoError(t, err)

	assert.Equal(t, "A", res.Vars["greeting"])
	assert.Equal(t, "Z", res.Vars["closing"])
	assert.Empty(t, res.Applied)
	assert.Len(t, res.Skipped, 5)
	for _, s := range res.Skipped {
		assert.True(t, errors.Is(s.Err, os.ErrNotExist), s.Layer)
	}
}

func TestResolve_CorruptOverlaysAreSkipped(t *testing.T) {
	f := newFixture(t)
	f.locale("en", "header.json", `{"greeting": `)
	f.locale("en", "footer.json", `{"closing": "Cheers"}`)
	f.locale("en", "mode/male.json", `not json`)
	base := f.base(`{"greeting": "A", "mode": {"gender": "male"}}`)

	res, err := New(f.settings, f.template).Resolve("en", base)
	require.NoError(t, err)

	assert.Equal(t, "A", res.Vars["greeting"])
	assert.Equal(t, "Cheers", res.Vars["closing"])

	var malformed []string
	for _, s := range res.Skipped {
		if errors.Is(s.Err, component.ErrMalformedDocument) {
			malformed = append(malformed, s.Layer)
		}
	}
	assert.Equal(t, []string{LayerHeader, LayerGender}, malformed)
}

func TestResolve_ModeValueCannotEscape(t *testing.T) {
	f := newFixture(t)
	f.write(filepath.Join(f.settings, "secret.json"), `{"greeting": "leaked"}`)
	base := f.base(`{"greeting": "A", "mode": {"gender": "../../secret"}}`)

	res, err := New(f.settings, f.template).Resolve("en", base)
	require.NoError(t, err)

	assert.Equal(t, "A", res.Vars["greeting"])
	require.NotEmpty(t, res.Skipped)
	assert.True(t, errors.Is(res.Skipped[len(res.Skipped)-1].Err, component.ErrInvalidName))
}

func TestResolve_LocaleCodeCannotEscape(t *testing.T) {
	f := newFixture(t)
	f.write(filepath.Join(f.dir, "header.json"), `{"greeting": "from outside settings"}`)
	f.write(filepath.Join(f.dir, "mode", "formal.json"), `{"closing": "from outside settings"}`)
	base := f.base(`{"greeting": "A", "mode": {"formal": "formal"}}`)

	html, res, err := New(f.settings, f.template).Render("..", base)
	require.NoError(t, err)

	assert.Equal(t, "A", res.Vars["greeting"])
	assert.NotContains(t, res.Vars, "closing")
	assert.Empty(t, res.Applied)
	require.Len(t, res.Skipped, 4)
	for _, s := range res.Skipped {
		assert.True(t, errors.Is(s.Err, component.ErrInvalidName), s.Layer)
	}
	assert.Contains(t, html, "<p>A</p>")
}

func TestResolve_Year(t *testing.T) {
	f := newFixture(t)
	base := f.base(`{"year": "1999"}`)

	res, err := New(f.settings, f.template, WithClock(fixedClock)).Resolve("en", base)
	require.NoError(t, err)
	assert.Equal(t, "2031", res.Vars[YearKey])

	f.locale("en", "mode/formal.json", `{"year": "1900"}`)
	base = f.base(`{"mode": {"formal": "formal"}}`)
	res, err = New(f.settings, f.template).Resolve("en", base)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(time.Now().Year()), res.Vars[YearKey], "year is computed last")
}

func TestResolve_UnregisteredLocale(t *testing.T) {
	f := newFixture(t)
	base := f.base(`{"greeting": "A"}`)

	res, err := New(f.settings, f.template).Resolve("fr", base)
	require.NoError(t, err)
	assert.Equal(t, "Fr", res.Locale.Name)
	assert.Equal(t, "A", res.Vars["greeting"])
}

func TestResolve_InvalidLocale(t *testing.T) {
	f := newFixture(t)
	base := f.base(`{}`)

	_, err := New(f.settings, f.template).Resolve("eng", base)
	assert.True(t, errors.Is(err, locale.ErrInvalidLocaleCode))
}

func TestResolve_BaseIsNotMutated(t *testing.T) {
	f := newFixture(t)
	f.locale("en", "header.json", `{"greeting": "B"}`)

	loaded, err := data.Load(f.base(`{"greeting": "A"}`))
	require.NoError(t, err)

	res := New(f.settings, f.template).ResolveData(locale.MustFromCode("en"), loaded)
	assert.Equal(t, "B", res.Vars["greeting"])
	assert.Equal(t, "A", loaded.Raw["greeting"])
	assert.NotContains(t, loaded.Raw, YearKey)
}

func TestRender_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.locale("en", "header.json", `{"greeting": "Hello"}`)
	f.locale("en", "mode/female.json", `{"greeting": "Hey there"}`)
	f.locale("en", "mode/informal.json", `{"closing": "Cheers"}`)
	base := f.base(`{"senderemail": "a@gmail.com", "body": "Hi", "mode": {"gender": "female", "formal": "informal"}}`)

	out, res, err := New(f.settings, f.template, WithClock(fixedClock)).Render("en", base)
	require.NoError(t, err)

	assert.Equal(t, "Hey there", res.Vars["greeting"])
	assert.Equal(t, "Cheers", res.Vars["closing"])
	assert.Equal(t, "2031", res.Vars[YearKey])
	assert.Equal(t, `<p>Hey there</p><p>Hi</p><p>Cheers</p><small>2031</small>`, out)
}

func TestRender_CorruptBase(t *testing.T) {
	f := newFixture(t)
	base := f.base(`{"senderemail": `)

	out, res, err := New(f.settings, f.template).Render("en", base)
	assert.True(t, errors.Is(err, data.ErrDataLoad))
	assert.Empty(t, out)
	assert.Nil(t, res)
}

func TestRender_TemplateError(t *testing.T) {
	f := newFixture(t)
	f.write(f.template, `{{ .greeting `)

	_, _, err := New(f.settings, f.template).Render("en", f.base(`{}`))
	assert.Error(t, err)
}

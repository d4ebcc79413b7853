// Package i18n localizes the status lines mailform prints.
package i18n

import (
	"embed"

	"github.com/charmbracelet/log"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

var messageFiles = []string{"active.en.toml", "active.de.toml", "active.ja.toml"}

// Message IDs
const (
	MsgEmailSent        = "email_sent"
	MsgEmailRendered    = "email_rendered"
	MsgDryRun           = "dry_run"
	MsgSendFailed       = "send_failed"
	MsgUnsupported      = "unsupported_provider"
	MsgOverlaysSkipped  = "overlays_skipped"
	MsgSignedIn         = "signed_in"
	MsgSignedOut        = "signed_out"
	MsgNoCachedAccounts = "no_cached_accounts"
)

// Translator wraps a go-i18n bundle.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
}

// NewTranslator builds a Translator with the given fallback language.
func NewTranslator(defaultLanguage language.Tag) *Translator {
	bundle := i18n.NewBundle(defaultLanguage)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range messageFiles {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			log.Warn("Failed to load message file", "file", file, "error", err)
		}
	}

	return &Translator{
		bundle:          bundle,
		defaultLanguage: defaultLanguage,
	}
}

// Languages lists the languages with a loaded catalogue
func (t *Translator) Languages() []language.Tag {
	return t.bundle.LanguageTags()
}

// T renders message key in lang, falling back to the default language and
// finally to the key itself. A "Count" entry in data selects the plural form.
func (t *Translator) T(lang language.Tag, key string, data map[string]interface{}) string {
	if key == "" {
		return ""
	}

	lc := &i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	}
	if count, ok := data["Count"]; ok {
		lc.PluralCount = count
	}

	localizer := i18n.NewLocalizer(t.bundle, lang.String(), t.defaultLanguage.String())
	msg, err := localizer.Localize(lc)
	if err != nil {
		log.Debug("Localize failed", "key", key, "lang", lang, "error", err)
		return key
	}
	return msg
}

package cmd

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/oarkflow/mailform/internal/config"
	"github.com/oarkflow/mailform/internal/i18n"
	"github.com/oarkflow/mailform/internal/locale"
)

var translator = i18n.NewTranslator(language.English)

// uiLanguage picks the language for status lines: ui_language when set,
// otherwise the language of the email being sent.
func uiLanguage(cfg *config.Config, emailLocale string) language.Tag {
	code := cfg.UILanguage
	if code == "" {
		code = emailLocale
	}
	tag, err := locale.FromCode(code)
	if err != nil {
		return language.English
	}
	return tag.Language()
}

func say(lang language.Tag, key string, data map[string]interface{}) {
	fmt.Println(translator.T(lang, key, data))
}

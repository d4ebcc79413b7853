// Package locale describes the supported email languages and tone modes.
package locale

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidLocaleCode is returned for codes that are not exactly two characters.
var ErrInvalidLocaleCode = errors.New("locale code must be a 2-character string")

// Gender values accepted in a mode.
const (
	Male    = "male"
	Female  = "female"
	Neutral = "neutral"
)

// Formality values accepted in a mode.
const (
	Formal   = "formal"
	Informal = "informal"
)

// names is the fixed display-name table. Order here is the listing order.
var names = []struct {
	code string
	name string
}{
	{"en", "English"},
	{"de", "German"},
	{"jp", "Japanese"},
}

// languageOverrides maps settings codes that are not BCP 47 base languages.
var languageOverrides = map[string]language.Tag{
	"jp": language.Japanese,
}

// LocaleTag is an immutable locale descriptor.
type LocaleTag struct {
	Code string
	Name string
}

// FromCode builds a LocaleTag. Unknown codes get their capitalized code as name.
func FromCode(code string) (LocaleTag, error) {
	if utf8.RuneCountInString(code) != 2 {
		return LocaleTag{}, fmt.Errorf("%w: %q", ErrInvalidLocaleCode, code)
	}
	for _, n := range names {
		if n.code == code {
			return LocaleTag{Code: code, Name: n.name}, nil
		}
	}
	return LocaleTag{Code: code, Name: capitalize(code)}, nil
}

// MustFromCode is like FromCode but panics on an invalid code.
func MustFromCode(code string) LocaleTag {
	tag, err := FromCode(code)
	if err != nil {
		panic(err)
	}
	return tag
}

// Registered reports whether the code is in the fixed table.
func (l LocaleTag) Registered() bool {
	for _, n := range names {
		if n.code == l.Code {
			return true
		}
	}
	return false
}

// Language returns the BCP 47 tag for the locale, falling back to English.
func (l LocaleTag) Language() language.Tag {
	if tag, ok := languageOverrides[l.Code]; ok {
		return tag
	}
	tag, err := language.Parse(l.Code)
	if err != nil {
		return language.English
	}
	return tag
}

func (l LocaleTag) String() string {
	return l.Code
}

// capitalize upper-cases the first rune when it is a letter and lower-cases the rest.
func capitalize(code string) string {
	if code == "" {
		return code
	}
	r, size := utf8.DecodeRuneInString(code)
	first := code[:size]
	if unicode.IsLetter(r) {
		first = cases.Upper(language.Und).String(first)
	}
	return first + cases.Lower(language.Und).String(code[size:])
}

// ModeTag is an immutable (gender, formality) pair.
type ModeTag struct {
	Gender    string
	Formality string
}

// DefaultMode returns neutral/formal.
func DefaultMode() ModeTag {
	return ModeTag{Gender: Neutral, Formality: Formal}
}

// NewMode builds a ModeTag, using the defaults for empty values.
func NewMode(gender, formality string) ModeTag {
	m := DefaultMode()
	if gender != "" {
		m.Gender = gender
	}
	if formality != "" {
		m.Formality = formality
	}
	return m
}

// Valid reports whether both values are known.
func (m ModeTag) Valid() bool {
	return contains(Genders(), m.Gender) && contains(Formalities(), m.Formality)
}

func (m ModeTag) String() string {
	return m.Gender + "/" + m.Formality
}

// LocaleCodes returns the supported locale codes in a stable order.
func LocaleCodes() []string {
	codes := make([]string, 0, len(names))
	for _, n := range names {
		codes = append(codes, n.code)
	}
	return codes
}

// Locales returns a LocaleTag for each supported code.
func Locales() []LocaleTag {
	tags := make([]LocaleTag, 0, len(names))
	for _, n := range names {
		tags = append(tags, LocaleTag{Code: n.code, Name: n.name})
	}
	return tags
}

// Genders returns the gender enumeration.
func Genders() []string {
	return []string{Male, Female, Neutral}
}

// Formalities returns the formality enumeration.
func Formalities() []string {
	return []string{Formal, Informal}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

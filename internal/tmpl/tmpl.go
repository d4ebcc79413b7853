/*
Package tmpl renders the HTML email template with a resolved variable set.
*/
package tmpl

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/oarkflow/mailform/internal/markdown"
)

// Engine parses and executes email templates
type Engine struct {
	markdown *markdown.Converter
}

// New creates a new template engine
func New() *Engine {
	return &Engine{markdown: markdown.New()}
}

// Render executes the template file at path with vars
func (e *Engine) Render(path string, vars map[string]interface{}) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", path, err)
	}

	t, err := template.New(filepath.Base(path)).Funcs(e.funcs()).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", path, err)
	}

	return execute(t, vars)
}

// Apply executes an inline template string
func (e *Engine) Apply(text string, vars map[string]interface{}) (string, error) {
	t, err := template.New("").Funcs(e.funcs()).Parse(text)
	if err != nil {
		return "", err
	}
	return execute(t, vars)
}

// Validate parses the template file without executing it
func (e *Engine) Validate(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", path, err)
	}
	if _, err := template.New(filepath.Base(path)).Funcs(e.funcs()).Parse(string(content)); err != nil {
		return fmt.Errorf("invalid template %s: %w", path, err)
	}
	return nil
}

func execute(t *template.Template, vars map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// funcs returns the template function map
func (e *Engine) funcs() template.FuncMap {
	return template.FuncMap{
		// String functions
		"replace":    strings.ReplaceAll,
		"tolower":    strings.ToLower,
		"toupper":    strings.ToUpper,
		"title":      cases.Title(language.Und).String,
		"trim":       strings.TrimSpace,
		"trimprefix": strings.TrimPrefix,
		"trimsuffix": strings.TrimSuffix,
		"contains":   strings.Contains,
		"hasprefix":  strings.HasPrefix,

		// Default value
		"default": func(def, val interface{}) interface{} {
			if val == nil || val == "" {
				return def
			}
			return val
		},

		// List helpers
		"lines": Lines,
		"join": func(sep string, val interface{}) string {
			return strings.Join(Lines(val), sep)
		},

		// Date formatting
		"now": time.Now,
		"time": func(t time.Time, format string) string {
			return t.Format(format)
		},

		// Markdown body
		"markdown": func(val interface{}) (template.HTML, error) {
			s, _ := val.(string)
			out, err := e.markdown.ToSafeHTML(s)
			if err != nil {
				return "", err
			}
			return template.HTML(out), nil
		},
	}
}

// Lines turns a multi-line string or a list into non-blank items.
func Lines(val interface{}) []string {
	var items []string
	switch v := val.(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(v, "\n")
	case []string:
		items = v
	case []interface{}:
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
	default:
		items = []string{fmt.Sprint(v)}
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			result = append(result, s)
		}
	}
	return result
}

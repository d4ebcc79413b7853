// Package markdown converts message bodies written in Markdown to safe HTML.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Converter renders Markdown and strips anything a mail client should not run.
type Converter struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a Converter with GitHub-flavoured Markdown and a UGC policy.
func New() *Converter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("style").OnElements("p", "span", "div", "td", "th")
	policy.RequireNoFollowOnLinks(false)

	return &Converter{md: md, policy: policy}
}

// ToHTML converts Markdown to HTML without sanitizing.
func (c *Converter) ToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}
	return buf.String(), nil
}

// Sanitize applies the HTML policy.
func (c *Converter) Sanitize(content string) string {
	return c.policy.Sanitize(content)
}

// ToSafeHTML converts Markdown to sanitized HTML.
func (c *Converter) ToSafeHTML(src string) (string, error) {
	out, err := c.ToHTML(src)
	if err != nil {
		return "", err
	}
	return c.Sanitize(out), nil
}

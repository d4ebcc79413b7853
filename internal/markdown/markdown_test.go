package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSafeHTML(t *testing.T) {
	c := New()

	out, err := c.ToSafeHTML("**Hello**\n\n- one\n- two")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>Hello</strong>")
	assert.Contains(t, out, "<li>one</li>")
}

func TestToSafeHTML_StripsScripts(t *testing.T) {
	c := New()

	out, err := c.ToSafeHTML("hi <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestSanitize(t *testing.T) {
	c := New()
	out := c.Sanitize(`<a href="https://example.com" onclick="evil()">x</a>`)
	assert.Contains(t, out, `href="https://example.com"`)
	assert.NotContains(t, out, "onclick")
}

// Package mailer implements the send backends: Microsoft Graph, the Gmail API and SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/oarkflow/mailform/internal/dispatch"
)

// FallbackText is the plain-text part shown by clients that cannot render HTML.
const FallbackText = "This email requires an HTML-compatible client."

// ErrUnexpectedStatus is returned when a mail API answers with a non-success status.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// ClientSource yields authorized HTTP clients. auth.Session implements it.
type ClientSource interface {
	Authenticate(ctx context.Context) error
	Client(ctx context.Context) (*http.Client, error)
}

func cleanSubject(subject string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(subject)
}

// NewMessage builds a multipart message with a plain fallback and an HTML alternative.
func NewMessage(msg dispatch.Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	if msg.RecipientName != "" {
		m.SetHeader("To", m.FormatAddress(msg.To, msg.RecipientName))
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", cleanSubject(msg.Subject))
	m.SetBody("text/plain", FallbackText)
	m.AddAlternative("text/html", msg.HTMLBody)
	return m
}

// Raw returns the RFC 5322 encoding of msg.
func Raw(msg dispatch.Message) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := NewMessage(msg).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return buf.Bytes(), nil
}

func statusError(api string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s: %w %d: %s", api, ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
}

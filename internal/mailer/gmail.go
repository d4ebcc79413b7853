package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/oarkflow/mailform/internal/dispatch"
)

// DefaultGmailURL is the Gmail API root
const DefaultGmailURL = "https://gmail.googleapis.com/gmail/v1"

// Gmail sends mail through the Gmail API messages.send method.
type Gmail struct {
	baseURL string
	session ClientSource
}

// NewGmail creates a Gmail backend. An empty baseURL uses DefaultGmailURL.
func NewGmail(session ClientSource, baseURL string) *Gmail {
	if baseURL == "" {
		baseURL = DefaultGmailURL
	}
	return &Gmail{baseURL: strings.TrimSuffix(baseURL, "/"), session: session}
}

// Authenticate ensures the session holds a token
func (g *Gmail) Authenticate(ctx context.Context) error {
	return g.session.Authenticate(ctx)
}

// Send uploads the encoded message as the base64url "raw" field.
func (g *Gmail) Send(ctx context.Context, msg dispatch.Message) error {
	raw, err := Raw(msg)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString(raw),
	})
	if err != nil {
		return fmt.Errorf("failed to encode gmail request: %w", err)
	}

	client, err := g.session.Client(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/users/me/messages/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("gmail send", resp)
	}

	var result struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	log.Debug("Gmail accepted message", "to", msg.To, "id", result.ID)
	return nil
}

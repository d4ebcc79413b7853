package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/oarkflow/mailform/internal/dispatch"
)

// DefaultGraphURL is the Microsoft Graph API root
const DefaultGraphURL = "https://graph.microsoft.com/v1.0"

type graphAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
		Name    string `json:"name,omitempty"`
	} `json:"emailAddress"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphMessage struct {
	Subject      string         `json:"subject"`
	Body         graphBody      `json:"body"`
	ToRecipients []graphAddress `json:"toRecipients"`
}

type graphSendRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

// Graph sends mail through the Microsoft Graph sendMail endpoint.
type Graph struct {
	baseURL string
	session ClientSource
}

// NewGraph creates a Graph backend. An empty baseURL uses DefaultGraphURL.
func NewGraph(session ClientSource, baseURL string) *Graph {
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	return &Graph{baseURL: strings.TrimSuffix(baseURL, "/"), session: session}
}

// Authenticate ensures the session holds a token
func (g *Graph) Authenticate(ctx context.Context) error {
	return g.session.Authenticate(ctx)
}

// Send posts the message to /me/sendMail. Graph answers 202 on success.
func (g *Graph) Send(ctx context.Context, msg dispatch.Message) error {
	var to graphAddress
	to.EmailAddress.Address = msg.To
	to.EmailAddress.Name = msg.RecipientName

	payload, err := json.Marshal(graphSendRequest{
		Message: graphMessage{
			Subject:      cleanSubject(msg.Subject),
			Body:         graphBody{ContentType: "HTML", Content: msg.HTMLBody},
			ToRecipients: []graphAddress{to},
		},
		SaveToSentItems: true,
	})
	if err != nil {
		return fmt.Errorf("failed to encode graph request: %w", err)
	}

	client, err := g.session.Client(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/me/sendMail", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("graph sendMail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return statusError("graph sendMail", resp)
	}

	log.Debug("Graph accepted message", "to", msg.To)
	return nil
}

package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// DefaultInboxSize is how many INBOX messages List returns when no size is given.
const DefaultInboxSize = 20

// InboxMessage is a message read from the Gmail INBOX.
type InboxMessage struct {
	ID      string
	From    string
	Subject string
	Body    string
}

// Inbox reads and trashes INBOX messages through the Gmail API.
type Inbox struct {
	baseURL string
	session ClientSource
}

// NewInbox creates an Inbox. An empty baseURL uses DefaultGmailURL.
func NewInbox(session ClientSource, baseURL string) *Inbox {
	if baseURL == "" {
		baseURL = DefaultGmailURL
	}
	return &Inbox{baseURL: strings.TrimSuffix(baseURL, "/"), session: session}
}

type gmailPart struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []gmailPart `json:"parts"`
}

type gmailMessage struct {
	ID      string    `json:"id"`
	Payload gmailPart `json:"payload"`
}

// List returns the newest INBOX messages with their sender and subject.
func (in *Inbox) List(ctx context.Context, n int) ([]InboxMessage, error) {
	if n <= 0 {
		n = DefaultInboxSize
	}
	q := url.Values{}
	q.Set("labelIds", "INBOX")
	q.Set("maxResults", strconv.Itoa(n))

	var page struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := in.get(ctx, "/users/me/messages?"+q.Encode(), &page); err != nil {
		return nil, err
	}

	out := make([]InboxMessage, 0, len(page.Messages))
	for _, m := range page.Messages {
		var detail gmailMessage
		path := "/users/me/messages/" + url.PathEscape(m.ID) + "?format=metadata&metadataHeaders=From&metadataHeaders=Subject"
		if err := in.get(ctx, path, &detail); err != nil {
			return nil, err
		}
		out = append(out, InboxMessage{
			ID:      m.ID,
			From:    detail.Payload.header("From"),
			Subject: detail.Payload.header("Subject"),
		})
	}
	return out, nil
}

// Get reads one message including its plain-text body.
func (in *Inbox) Get(ctx context.Context, id string) (*InboxMessage, error) {
	var detail gmailMessage
	if err := in.get(ctx, "/users/me/messages/"+url.PathEscape(id)+"?format=full", &detail); err != nil {
		return nil, err
	}
	return &InboxMessage{
		ID:      id,
		From:    detail.Payload.header("From"),
		Subject: detail.Payload.header("Subject"),
		Body:    detail.Payload.plainText(),
	}, nil
}

// Trash moves a message to the Trash folder.
func (in *Inbox) Trash(ctx context.Context, id string) error {
	client, err := in.session.Client(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, in.baseURL+"/users/me/messages/"+url.PathEscape(id)+"/trash", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("gmail trash: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("gmail trash", resp)
	}
	log.Debug("Moved message to trash", "id", id)
	return nil
}

func (in *Inbox) get(ctx context.Context, path string, v interface{}) error {
	client, err := in.session.Client(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("gmail read: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("gmail read", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode gmail response: %w", err)
	}
	return nil
}

func (p gmailPart) header(name string) string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// plainText returns the first text/plain body, searching nested parts.
func (p gmailPart) plainText() string {
	if len(p.Parts) == 0 {
		return decodeBody(p.Body.Data)
	}
	for _, part := range p.Parts {
		if part.MimeType == "text/plain" && part.Body.Data != "" {
			return decodeBody(part.Body.Data)
		}
	}
	for _, part := range p.Parts {
		if strings.HasPrefix(part.MimeType, "multipart/") {
			if body := part.plainText(); body != "" {
				return body
			}
		}
	}
	return ""
}

func decodeBody(data string) string {
	if data == "" {
		return ""
	}
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(data)
	}
	if err != nil {
		log.Warn("Undecodable message body", "error", err)
		return ""
	}
	return string(b)
}

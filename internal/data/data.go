// Package data loads the base data document that describes one email.
package data

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/oarkflow/mailform/internal/component"
)

// ErrDataLoad is returned when the base data file is missing or corrupt.
var ErrDataLoad = errors.New("failed to load base data")

// ErrInvalidData is returned when base data fails validation before sending.
var ErrInvalidData = errors.New("invalid base data")

// OriginalMessageKey holds the quoted body when the email answers an inbox message.
const OriginalMessageKey = "original_message"

// Fallbacks used when the base data omits a field needed for sending.
const (
	DefaultSubject      = "No Subject"
	DefaultReceiverName = "Recipient"
)

var validate = validator.New()

// Mode is the optional tone selection of a message.
type Mode struct {
	Gender string `validate:"omitempty,oneof=male female neutral"`
	Formal string `validate:"omitempty,oneof=formal informal"`
}

// Data is a loaded base data document together with its typed view.
type Data struct {
	Path string
	Raw  component.Document

	SenderEmail   string `validate:"required,email"`
	ReceiverEmail string `validate:"required,email"`
	ReceiverName  string
	Subject       string
	Body          string
	Mode          Mode
}

// Load reads and decodes the base data file.
func Load(path string) (*Data, error) {
	raw, err := component.ReadDocument(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataLoad, err)
	}
	return FromDocument(path, raw), nil
}

// FromDocument builds the typed view of an already decoded document.
func FromDocument(path string, raw component.Document) *Data {
	d := &Data{
		Path:          path,
		Raw:           raw,
		SenderEmail:   strings.TrimSpace(raw.String("senderemail", "")),
		ReceiverEmail: strings.TrimSpace(raw.String("receiveremail", "")),
		Subject:       raw.String("subject", ""),
		Body:          raw.String("body", ""),
	}
	if receiver, ok := nested(raw, "receiver"); ok {
		d.ReceiverName = receiver.String("name", "")
	}
	if mode, ok := nested(raw, "mode"); ok {
		d.Mode = Mode{
			Gender: mode.String("gender", ""),
			Formal: mode.String("formal", ""),
		}
	}
	return d
}

// Validate checks the fields required for sending.
func (d *Data) Validate() error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidData, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

// SubjectLine returns the subject with newlines removed, or the fallback subject.
func (d *Data) SubjectLine() string {
	s := strings.TrimSpace(strings.NewReplacer("\r", "", "\n", "").Replace(d.Subject))
	if s == "" {
		return DefaultSubject
	}
	return s
}

// Recipient returns the receiver name, or the fallback name.
func (d *Data) Recipient() string {
	if n := strings.TrimSpace(d.ReceiverName); n != "" {
		return n
	}
	return DefaultReceiverName
}

// Reply describes the inbox message an email answers.
type Reply struct {
	From    string
	Subject string
	Body    string
}

// ReplySubject prefixes subject with "Re: " unless it already has one.
func ReplySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if len(subject) >= 3 && strings.EqualFold(subject[:3], "re:") {
		return subject
	}
	return "Re: " + subject
}

// WithReply returns a copy addressed to the reply's sender, with a "Re:"
// subject and the original body under OriginalMessageKey.
func (d *Data) WithReply(r Reply) *Data {
	raw := d.Raw.Clone()

	address, name := strings.TrimSpace(r.From), ""
	if addr, err := mail.ParseAddress(r.From); err == nil {
		address, name = addr.Address, addr.Name
	}
	raw["receiveremail"] = address
	raw["subject"] = ReplySubject(r.Subject)
	raw[OriginalMessageKey] = r.Body

	if name != "" {
		receiver := component.Document{}
		if current, ok := nested(raw, "receiver"); ok {
			receiver = current.Clone()
		}
		receiver["name"] = name
		raw["receiver"] = map[string]interface{}(receiver)
	}
	return FromDocument(d.Path, raw)
}

func nested(doc component.Document, key string) (component.Document, bool) {
	m, ok := doc[key].(map[string]interface{})
	if !ok {
		return nil, false
	}
	return component.Document(m), true
}

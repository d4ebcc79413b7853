package component

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"
)

// Allowlisted fields copied from each locale document.
var (
	HeaderFields = []string{"imageURL", "greeting_for_name_prefix", "greeting_for_name_postfix", "greeting"}
	FooterFields = []string{"closing", "button_text", "button_link"}
	SenderFields = []string{"name"}
)

// Header is the top part of an email.
type Header struct {
	ImageURL        string
	Greeting        string
	GreetingPrefix  string
	GreetingPostfix string
}

// Overlay returns a new Header with the fields found in doc.
func (h Header) Overlay(doc Document) Header {
	return Header{
		ImageURL:        doc.String("imageURL", h.ImageURL),
		Greeting:        doc.String("greeting", h.Greeting),
		GreetingPrefix:  doc.String("greeting_for_name_prefix", h.GreetingPrefix),
		GreetingPostfix: doc.String("greeting_for_name_postfix", h.GreetingPostfix),
	}
}

// Load overlays the locale's header.json, keeping h when it cannot be read.
func (h Header) Load(settingsDir, code string) Header {
	doc, ok := loadOrKeep(settingsDir, code, HeaderFile)
	if !ok {
		return h
	}
	return h.Overlay(doc)
}

// Footer is the closing part of an email.
type Footer struct {
	Closing    string
	ButtonText string
	ButtonLink string
}

// Overlay returns a new Footer with the fields found in doc.
func (f Footer) Overlay(doc Document) Footer {
	return Footer{
		Closing:    doc.String("closing", f.Closing),
		ButtonText: doc.String("button_text", f.ButtonText),
		ButtonLink: doc.String("button_link", f.ButtonLink),
	}
}

// Load overlays the locale's footer.json, keeping f when it cannot be read.
func (f Footer) Load(settingsDir, code string) Footer {
	doc, ok := loadOrKeep(settingsDir, code, FooterFile)
	if !ok {
		return f
	}
	return f.Overlay(doc)
}

// Person is a sender or receiver.
type Person struct {
	Name string
}

// Overlay returns a new Person with the fields found in doc.
func (p Person) Overlay(doc Document) Person {
	return Person{Name: doc.String("name", p.Name)}
}

// Load overlays the locale's sender.json, keeping p when it cannot be read.
func (p Person) Load(settingsDir, code string) Person {
	doc, ok := loadOrKeep(settingsDir, code, SenderFile)
	if !ok {
		return p
	}
	return p.Overlay(doc)
}

func loadOrKeep(settingsDir, code, file string) (Document, bool) {
	path, err := LocalePath(settingsDir, code, file)
	if err != nil {
		log.Warn("Ignoring locale document", "locale", code, "error", err)
		return nil, false
	}
	doc, err := ReadDocument(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("Ignoring locale document", "path", path, "error", err)
		}
		return nil, false
	}
	return doc, true
}

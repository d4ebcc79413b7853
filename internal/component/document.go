// Package component holds the locale documents merged into a render and the
// immutable header, footer and sender values built from them.
package component

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document file names inside a locale directory.
const (
	HeaderFile = "header.json"
	FooterFile = "footer.json"
	SenderFile = "sender.json"
	ModeDir    = "mode"
)

// ErrMalformedDocument is returned when a document is not a JSON object.
var ErrMalformedDocument = errors.New("malformed document")

// ErrInvalidName is returned for document names that would escape the locale directory.
var ErrInvalidName = errors.New("invalid document name")

// Document is a decoded JSON object.
type Document map[string]interface{}

// ReadDocument loads a JSON object from path. A missing file yields an error
// matching os.ErrNotExist.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s: not an object", ErrMalformedDocument, path)
	}
	return doc, nil
}

// Pick returns a new document with only the listed keys that are present.
func (d Document) Pick(keys ...string) Document {
	out := make(Document, len(keys))
	for _, k := range keys {
		if v, ok := d[k]; ok {
			out[k] = v
		}
	}
	return out
}

// String returns the string value for key, or fallback when absent or not a string.
func (d Document) String(key, fallback string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return fallback
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// LocalePath returns the path of a locale document. Codes that would leave
// the settings directory are rejected with ErrInvalidName.
func LocalePath(settingsDir, code, file string) (string, error) {
	if err := checkName(code); err != nil {
		return "", err
	}
	return filepath.Join(settingsDir, code, file), nil
}

// ModePath returns the path of a mode document named after a gender or
// formality value.
func ModePath(settingsDir, code, value string) (string, error) {
	if err := checkName(code); err != nil {
		return "", err
	}
	if err := checkName(value); err != nil {
		return "", err
	}
	return filepath.Join(settingsDir, code, ModeDir, value+".json"), nil
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

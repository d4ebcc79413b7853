// Package resolve assembles the variables of one render by layering locale
// and mode documents over the base data, and renders the email template.
//
// Precedence, lowest first: base data, locale header/footer/sender (allowlisted
// fields only), gender mode (all fields), formality mode (all fields), year.
package resolve

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/oarkflow/mailform/internal/component"
	"github.com/oarkflow/mailform/internal/data"
	"github.com/oarkflow/mailform/internal/locale"
	"github.com/oarkflow/mailform/internal/tmpl"
)

// YearKey is always set to the current four-digit year.
const YearKey = "year"

// Layer names reported in a Resolution.
const (
	LayerHeader    = "header"
	LayerFooter    = "footer"
	LayerSender    = "sender"
	LayerGender    = "gender"
	LayerFormality = "formality"
)

// Variables is the mapping handed to the template engine.
type Variables map[string]interface{}

// Skip records an overlay that was not applied.
type Skip struct {
	Layer string
	Path  string
	Err   error
}

// Resolution is the outcome of one Resolve call.
type Resolution struct {
	Locale  locale.LocaleTag
	Data    *data.Data
	Vars    Variables
	Applied []string
	Skipped []Skip
}

// Renderer executes a template file with a variable set.
type Renderer interface {
	Render(path string, vars map[string]interface{}) (string, error)
}

// Resolver merges settings documents into render variables.
type Resolver struct {
	settingsDir  string
	templatePath string
	renderer     Renderer
	now          func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source used for the year.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithRenderer overrides the template engine.
func WithRenderer(renderer Renderer) Option {
	return func(r *Resolver) {
		r.renderer = renderer
	}
}

// New creates a Resolver reading overlays from settingsDir and rendering templatePath.
func New(settingsDir, templatePath string, opts ...Option) *Resolver {
	r := &Resolver{
		settingsDir:  settingsDir,
		templatePath: templatePath,
		renderer:     tmpl.New(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve builds the variables for code from the base data file at basePath.
func (r *Resolver) Resolve(code, basePath string) (*Resolution, error) {
	tag, err := locale.FromCode(code)
	if err != nil {
		return nil, err
	}

	base, err := data.Load(basePath)
	if err != nil {
		return nil, err
	}

	return r.ResolveData(tag, base), nil
}

// ResolveData builds the variables for an already loaded base document.
func (r *Resolver) ResolveData(tag locale.LocaleTag, base *data.Data) *Resolution {
	res := &Resolution{
		Locale: tag,
		Data:   base,
		Vars:   Variables(base.Raw.Clone()),
	}

	if !tag.Registered() {
		log.Debug("Locale not registered, overlays may be missing", "locale", tag.Code)
	}

	// Locale overlays only contribute their allowlisted fields.
	locales := []struct {
		layer  string
		file   string
		fields []string
	}{
		{LayerHeader, component.HeaderFile, component.HeaderFields},
		{LayerFooter, component.FooterFile, component.FooterFields},
		{LayerSender, component.SenderFile, component.SenderFields},
	}
	for _, l := range locales {
		path, err := component.LocalePath(r.settingsDir, tag.Code, l.file)
		if err != nil {
			res.skip(l.layer, "", err)
			continue
		}
		doc, ok := r.overlay(res, l.layer, path)
		if !ok {
			continue
		}
		res.Vars.merge(doc.Pick(l.fields...))
	}

	// Mode overlays replace anything, formality last.
	modes := []struct {
		layer string
		value string
	}{
		{LayerGender, base.Mode.Gender},
		{LayerFormality, base.Mode.Formal},
	}
	for _, m := range modes {
		if m.value == "" {
			continue
		}
		path, err := component.ModePath(r.settingsDir, tag.Code, m.value)
		if err != nil {
			res.skip(m.layer, "", err)
			continue
		}
		doc, ok := r.overlay(res, m.layer, path)
		if !ok {
			continue
		}
		res.Vars.merge(doc)
	}

	res.Vars[YearKey] = strconv.Itoa(r.now().Year())
	return res
}

// Render resolves the variables and executes the template.
func (r *Resolver) Render(code, basePath string) (string, *Resolution, error) {
	res, err := r.Resolve(code, basePath)
	if err != nil {
		return "", nil, err
	}

	out, err := r.RenderResolution(res)
	if err != nil {
		return "", nil, err
	}
	return out, res, nil
}

// RenderResolution executes the template with an existing resolution.
func (r *Resolver) RenderResolution(res *Resolution) (string, error) {
	out, err := r.renderer.Render(r.templatePath, res.Vars)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", res.Locale.Code, err)
	}
	return out, nil
}

func (r *Resolver) overlay(res *Resolution, layer, path string) (component.Document, bool) {
	doc, err := component.ReadDocument(path)
	if err != nil {
		res.skip(layer, path, err)
		return nil, false
	}
	res.Applied = append(res.Applied, layer)
	return doc, true
}

func (res *Resolution) skip(layer, path string, err error) {
	if errors.Is(err, os.ErrNotExist) {
		log.Debug("Overlay skipped", "layer", layer, "path", path)
	} else {
		log.Warn("Overlay skipped", "layer", layer, "path", path, "error", err)
	}
	res.Skipped = append(res.Skipped, Skip{Layer: layer, Path: path, Err: err})
}

func (v Variables) merge(doc component.Document) {
	for k, val := range doc {
		v[k] = val
	}
}

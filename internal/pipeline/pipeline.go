/*
Package pipeline runs the compose and send flow: resolve the variables for a
locale, render the template, save latest_email.html and dispatch the result.
*/
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/oarkflow/mailform/internal/config"
	"github.com/oarkflow/mailform/internal/data"
	"github.com/oarkflow/mailform/internal/dispatch"
	"github.com/oarkflow/mailform/internal/locale"
	"github.com/oarkflow/mailform/internal/resolve"
)

// OutputFile is the name of the rendered copy kept after every run
const OutputFile = "latest_email.html"

// Options contains options for a single run
type Options struct {
	Locale     string
	DataFile   string
	Provider   dispatch.Provider
	RenderOnly bool
	DryRun     bool

	// Reply, when set, addresses the email to an inbox message's sender.
	Reply *data.Reply
}

// Result describes what a run produced
type Result struct {
	Resolution *resolve.Resolution
	HTML       string
	OutputPath string
	Message    dispatch.Message
	Provider   dispatch.Provider
	Sent       bool
	Duration   time.Duration
}

// DispatcherFactory builds the dispatcher for a sender account
type DispatcherFactory func(account string) (*dispatch.Dispatcher, error)

// Pipeline orchestrates rendering and sending
type Pipeline struct {
	config      *config.Config
	resolver    *resolve.Resolver
	dispatchers DispatcherFactory
}

// New creates a pipeline. opts are passed to the resolver.
func New(cfg *config.Config, dispatchers DispatcherFactory, opts ...resolve.Option) *Pipeline {
	return &Pipeline{
		config:      cfg,
		resolver:    resolve.New(cfg.SettingsDir, cfg.Template, opts...),
		dispatchers: dispatchers,
	}
}

// Resolver returns the resolver used by the pipeline
func (p *Pipeline) Resolver() *resolve.Resolver {
	return p.resolver
}

// Render resolves, renders and saves the email without sending it.
func (p *Pipeline) Render(opts Options) (*Result, error) {
	start := time.Now()
	code := opts.Locale
	if code == "" {
		code = p.config.DefaultLocale
	}

	log.Info("Rendering email", "locale", code, "data", opts.DataFile)
	html, res, err := p.render(code, opts)
	if err != nil {
		return nil, err
	}
	outPath, err := p.save(html)
	if err != nil {
		return nil, err
	}

	return &Result{
		Resolution: res,
		HTML:       html,
		OutputPath: outPath,
		Message:    buildMessage(res, html),
		Duration:   time.Since(start),
	}, nil
}

// Run renders the email and, unless told otherwise, sends it once.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	result, err := p.Render(opts)
	if err != nil {
		return nil, err
	}
	if opts.RenderOnly {
		return result, nil
	}

	if err := result.Resolution.Data.Validate(); err != nil {
		return result, err
	}

	forced := opts.Provider
	if forced == "" && p.config.Transport == config.TransportSMTP {
		forced = dispatch.ProviderSMTP
	}

	dispatcher, err := p.dispatchers(result.Message.From)
	if err != nil {
		return result, fmt.Errorf("failed to set up backends: %w", err)
	}

	if opts.DryRun {
		provider, _, err := dispatcher.Route(result.Message, forced)
		if err != nil {
			return result, err
		}
		result.Provider = provider
		result.Duration = time.Since(start)
		log.Info("Dry run, not sending", "provider", provider, "to", result.Message.To)
		return result, nil
	}

	provider, err := dispatcher.SendVia(ctx, result.Message, forced)
	result.Provider = provider
	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}
	result.Sent = true

	log.Info("Run completed", "provider", provider, "duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

func (p *Pipeline) render(code string, opts Options) (string, *resolve.Resolution, error) {
	if opts.Reply == nil {
		return p.resolver.Render(code, opts.DataFile)
	}

	tag, err := locale.FromCode(code)
	if err != nil {
		return "", nil, err
	}
	base, err := data.Load(opts.DataFile)
	if err != nil {
		return "", nil, err
	}
	log.Debug("Composing reply", "to", opts.Reply.From, "subject", opts.Reply.Subject)

	res := p.resolver.ResolveData(tag, base.WithReply(*opts.Reply))
	html, err := p.resolver.RenderResolution(res)
	if err != nil {
		return "", nil, err
	}
	return html, res, nil
}

func buildMessage(res *resolve.Resolution, html string) dispatch.Message {
	d := res.Data
	return dispatch.Message{
		From:          d.SenderEmail,
		To:            d.ReceiverEmail,
		RecipientName: d.Recipient(),
		Subject:       d.SubjectLine(),
		HTMLBody:      html,
	}
}

func (p *Pipeline) save(html string) (string, error) {
	if err := os.MkdirAll(p.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(p.config.OutputDir, OutputFile)
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Debug("Saved rendered email", "path", path, "bytes", len(html))
	return path, nil
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/oarkflow/mailform/internal/cache"
	"github.com/oarkflow/mailform/internal/config"
	"github.com/oarkflow/mailform/internal/data"
	"github.com/oarkflow/mailform/internal/dispatch"
	"github.com/oarkflow/mailform/internal/i18n"
	"github.com/oarkflow/mailform/internal/pipeline"
	"github.com/oarkflow/mailform/internal/resolve"
)

var (
	localeCode  string
	dataFile    string
	providerArg string
	dryRun      bool
	noLogin     bool
	toStdout    bool
	varsFormat  string
	replyID     string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the email without sending it",
	Long: `Resolve the template variables for a locale and render the template.

The result is written to <output_dir>/latest_email.html.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p := pipeline.New(cfg, nil)
		result, err := p.Render(pipeline.Options{Locale: localeCode, DataFile: dataFile})
		if err != nil {
			return fmt.Errorf("render failed: %w", err)
		}

		if toStdout {
			fmt.Print(result.HTML)
			return nil
		}

		lang := uiLanguage(cfg, result.Resolution.Locale.Code)
		reportSkipped(lang, result.Resolution)
		say(lang, i18n.MsgEmailRendered, map[string]interface{}{"Path": result.OutputPath})
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Render the email and send it",
	Long: `Render the email and send it once.

The backend is chosen from the sender address:
  outlook, hotmail, live  Microsoft Graph
  gmail                   Gmail API

With transport: smtp in the config, or --provider smtp, every message goes
through the configured SMTP account instead. Failed sends are not retried.

With --reply <id> the email answers a message from the sender's Gmail inbox.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		forced, err := dispatch.ParseProvider(providerArg)
		if err != nil {
			return err
		}

		tokens, err := pipeline.TokenCache(cfg)
		if err != nil {
			return err
		}

		var reply *data.Reply
		if replyID != "" {
			if reply, err = fetchReply(cmd.Context(), cfg, tokens, replyID); err != nil {
				return err
			}
		}

		p := pipeline.New(cfg, pipeline.DefaultDispatchers(cfg, tokens, !noLogin))
		result, err := p.Run(cmd.Context(), pipeline.Options{
			Locale:   localeCode,
			DataFile: dataFile,
			Provider: forced,
			DryRun:   dryRun,
			Reply:    reply,
		})

		lang := uiLanguage(cfg, localeCode)
		if result != nil {
			lang = uiLanguage(cfg, result.Resolution.Locale.Code)
			reportSkipped(lang, result.Resolution)
		}

		if err != nil {
			key, fields := failureMessage(result, err)
			say(lang, key, fields)
			return fmt.Errorf("send failed: %w", err)
		}

		fields := map[string]interface{}{"To": result.Message.To, "Provider": string(result.Provider)}
		if dryRun {
			say(lang, i18n.MsgDryRun, fields)
			return nil
		}
		say(lang, i18n.MsgEmailSent, fields)
		return nil
	},
}

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "Print the resolved template variables",
	Long: `Print the variables the template would receive, after every layer
has been applied, together with the layers that were applied or skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		code := localeCode
		if code == "" {
			code = cfg.DefaultLocale
		}
		res, err := resolve.New(cfg.SettingsDir, cfg.Template).Resolve(code, dataFile)
		if err != nil {
			return err
		}

		skipped := make([]map[string]string, 0, len(res.Skipped))
		for _, s := range res.Skipped {
			skipped = append(skipped, map[string]string{"layer": s.Layer, "path": s.Path, "error": s.Err.Error()})
		}
		out := map[string]interface{}{
			"locale":  res.Locale.String(),
			"vars":    map[string]interface{}(res.Vars),
			"applied": res.Applied,
			"skipped": skipped,
		}

		switch varsFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(out)
		default:
			return fmt.Errorf("unknown format %q (json, yaml)", varsFormat)
		}
	},
}

// fetchReply reads the inbox message id from the sender's Gmail account.
func fetchReply(ctx context.Context, cfg *config.Config, tokens *cache.Cache, id string) (*data.Reply, error) {
	base, err := data.Load(dataFile)
	if err != nil {
		return nil, err
	}
	if p, err := dispatch.SelectProvider(base.SenderEmail); err != nil || p != dispatch.ProviderGmail {
		return nil, fmt.Errorf("--reply needs a gmail sender, got %q", base.SenderEmail)
	}

	in, err := pipeline.Inbox(cfg, tokens, base.SenderEmail, !noLogin)
	if err != nil {
		return nil, err
	}
	m, err := in.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", id, err)
	}
	return &data.Reply{From: m.From, Subject: m.Subject, Body: m.Body}, nil
}

// failureMessage picks the status line printed when a send fails.
func failureMessage(result *pipeline.Result, err error) (string, map[string]interface{}) {
	if errors.Is(err, dispatch.ErrUnsupportedProvider) && result != nil {
		return i18n.MsgUnsupported, map[string]interface{}{"Sender": result.Message.From}
	}
	return i18n.MsgSendFailed, map[string]interface{}{"Error": err.Error()}
}

func reportSkipped(lang language.Tag, res *resolve.Resolution) {
	if res == nil || len(res.Skipped) == 0 {
		return
	}
	layers := make([]string, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		layers = append(layers, s.Layer)
	}
	sort.Strings(layers)
	log.Info(translator.T(lang, i18n.MsgOverlaysSkipped, map[string]interface{}{"Count": len(layers)}), "layers", layers)
}

func addComposeFlags(c *cobra.Command) {
	c.Flags().StringVarP(&localeCode, "locale", "l", "", "two-letter locale code (default is default_locale)")
	c.Flags().StringVarP(&dataFile, "data", "d", "data.json", "base data file")
}

func init() {
	for _, c := range []*cobra.Command{renderCmd, sendCmd, varsCmd} {
		addComposeFlags(c)
		c.RegisterFlagCompletionFunc("locale", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return localeCompletions(), cobra.ShellCompDirectiveNoFileComp
		})
	}

	renderCmd.Flags().BoolVar(&toStdout, "stdout", false, "print the rendered HTML instead of the status line")
	sendCmd.Flags().StringVar(&providerArg, "provider", "", "force a backend (outlook, gmail, smtp)")
	sendCmd.Flags().BoolVar(&dryRun, "dry-run", false, "render and route without sending")
	sendCmd.Flags().StringVar(&replyID, "reply", "", "answer the Gmail inbox message with this id (see 'mailform inbox list')")
	sendCmd.Flags().BoolVar(&noLogin, "no-login", false, "fail instead of opening a browser login when no token is cached")
	varsCmd.Flags().StringVarP(&varsFormat, "format", "f", "json", "output format (json, yaml)")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(varsCmd)
}

/*
Package cmd provides the CLI commands for mailform.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/oarkflow/mailform/internal/config"
)

var (
	cfgFile     string
	verbose     bool
	debug       bool
	settingsDir string
	templateArg string
	outputDir   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mailform",
	Short: "Render and send localized HTML emails",
	Long: `mailform renders a localized HTML email from a single template and a
stack of JSON documents, saves it, and sends it through Microsoft Graph,
the Gmail API or SMTP.

Variables are resolved in layers: the base data file, then the locale's
header/footer/sender documents, then the gender and formality overlays.

Example:
  mailform init                            # Scaffold settings and a template
  mailform render -l de -d data.json       # Render output/latest_email.html
  mailform send -l jp -d data.json         # Render and send
  mailform vars -l en -d data.json         # Show the resolved variables
  mailform inbox list -a me@gmail.com      # Pick a message to answer
  mailform send --reply <id> -d data.json  # Answer it`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .mailform.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&settingsDir, "settings", "", "settings directory (overrides settings_dir)")
	rootCmd.PersistentFlags().StringVar(&templateArg, "template", "", "email template (overrides template)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "output directory (overrides output_dir)")

	// Add subcommands
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if debug {
		log.SetLevel(log.DebugLevel)
	} else if verbose {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}
}

// loadConfig loads .env, the config file (when present) and the flag overrides.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" {
		path, _ = config.Find(cwd)
	}

	envDir := cwd
	if path != "" {
		envDir = filepath.Dir(path)
	}
	if err := config.LoadEnv(envDir); err != nil {
		return nil, err
	}

	var cfg *config.Config
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		log.Debug("Loaded config", "path", path)
	} else {
		cfg = config.Default()
		log.Debug("No config file, using defaults")
	}

	if settingsDir != "" {
		cfg.SettingsDir = settingsDir
	}
	if templateArg != "" {
		cfg.Template = templateArg
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oarkflow/mailform"
	"github.com/oarkflow/mailform/internal/component"
	"github.com/oarkflow/mailform/internal/locale"
	"github.com/oarkflow/mailform/internal/scaffold"
	"github.com/oarkflow/mailform/internal/tmpl"
)

var initForce bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration, template and settings",
	Long: `Check that the configuration, the template and the settings tree are usable.

This validates:
  - YAML syntax and values of the config file
  - Template syntax
  - Every header, footer, sender and mode document of the registered locales

Missing overlay documents are reported but do not fail the check; they are
skipped at render time. Corrupt documents fail the check.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
		fmt.Println("✓ Configuration is valid")

		if err := tmpl.New().Validate(cfg.Template); err != nil {
			return err
		}
		fmt.Printf("✓ Template %s parses\n", cfg.Template)

		var corrupt int
		for _, code := range locale.LocaleCodes() {
			for _, path := range settingsFiles(cfg.SettingsDir, code) {
				_, err := component.ReadDocument(path)
				switch {
				case err == nil:
				case errors.Is(err, os.ErrNotExist):
					fmt.Printf("! %s is missing\n", path)
				default:
					corrupt++
					fmt.Printf("✗ %s: %v\n", path, err)
				}
			}
		}
		if corrupt > 0 {
			return fmt.Errorf("%d settings documents are corrupt", corrupt)
		}

		fmt.Printf("✓ Settings in %s are readable\n", cfg.SettingsDir)
		return nil
	},
}

func settingsFiles(dir, code string) []string {
	var paths []string
	for _, f := range []string{component.HeaderFile, component.FooterFile, component.SenderFile} {
		if p, err := component.LocalePath(dir, code, f); err == nil {
			paths = append(paths, p)
		}
	}
	for _, v := range append(locale.Genders(), locale.Formalities()...) {
		if p, err := component.ModePath(dir, code, v); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a starter configuration, settings tree and template",
	Long: `Create .mailform.yaml, a settings tree for every registered locale
(with mode overlays), a default mail_template.html and data.example.json.

Existing files are kept unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		res, err := scaffold.Write(dir, initForce)
		if err != nil {
			return err
		}

		for _, p := range res.Written {
			fmt.Printf("✓ Created %s\n", p)
		}
		for _, p := range res.Skipped {
			fmt.Printf("- Kept %s\n", p)
		}
		fmt.Println("\nEdit .mailform.yaml and the settings tree, then run 'mailform render'.")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit, and build date of mailform.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mailform %s\n", mailform.Version)
		if mailform.GitCommit != "" {
			fmt.Printf("  Commit: %s\n", mailform.GitCommit)
		}
		if mailform.BuildDate != "" {
			fmt.Printf("  Built:  %s\n", mailform.BuildDate)
		}
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing files")
}

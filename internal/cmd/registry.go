package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oarkflow/mailform/internal/component"
	"github.com/oarkflow/mailform/internal/locale"
)

var localesCmd = &cobra.Command{
	Use:   "locales",
	Short: "List the registered locales",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		for _, l := range locale.Locales() {
			status := "missing"
			if info, err := os.Stat(filepath.Join(cfg.SettingsDir, l.Code)); err == nil && info.IsDir() {
				status = "present"
			}
			fmt.Printf("%-4s %-10s settings %s\n", l.Code, l.Name, status)
			if status == "present" {
				fmt.Printf("     %s\n", localeSummary(cfg.SettingsDir, l.Code))
			}
		}
		return nil
	},
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the gender and formality values",
	Run: func(cmd *cobra.Command, args []string) {
		def := locale.DefaultMode()
		fmt.Println("Genders:")
		for _, g := range locale.Genders() {
			fmt.Printf("  %s%s\n", g, marker(g == def.Gender))
		}
		fmt.Println("Formalities:")
		for _, f := range locale.Formalities() {
			fmt.Printf("  %s%s\n", f, marker(f == def.Formality))
		}
	},
}

// localeSummary shows the header, footer and sender values a locale contributes.
func localeSummary(dir, code string) string {
	h := component.Header{}.Load(dir, code)
	f := component.Footer{}.Load(dir, code)
	p := component.Person{}.Load(dir, code)
	return fmt.Sprintf("salutation=%q greeting=%q closing=%q sender=%q", h.GreetingPrefix, h.Greeting, f.Closing, p.Name)
}

func marker(isDefault bool) string {
	if isDefault {
		return " (default)"
	}
	return ""
}

func localeCompletions() []string {
	var out []string
	for _, l := range locale.Locales() {
		out = append(out, l.Code+"\t"+l.Name)
	}
	return out
}

func init() {
	rootCmd.AddCommand(localesCmd)
	rootCmd.AddCommand(modesCmd)
}

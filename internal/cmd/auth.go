/*
Package cmd provides OAuth token management commands for mailform.
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/oarkflow/mailform/internal/auth"
	"github.com/oarkflow/mailform/internal/cache"
	"github.com/oarkflow/mailform/internal/config"
	"github.com/oarkflow/mailform/internal/dispatch"
	"github.com/oarkflow/mailform/internal/i18n"
	"github.com/oarkflow/mailform/internal/pipeline"
)

var (
	authAccount string
	logoutAll   bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage OAuth2 logins for Graph and Gmail",
	Long: `Manage the OAuth2 tokens used by the Microsoft Graph and Gmail backends.

Tokens are kept in memory for one run unless token_cache.enabled is set,
in which case they are stored in <token_cache.dir>/tokens.json.`,
}

var authLoginCmd = &cobra.Command{
	Use:       "login <outlook|gmail>",
	Short:     "Sign in to a mailbox provider",
	Long:      `Open the provider's consent page and receive the authorization code on a local callback.`,
	ValidArgs: []string{string(dispatch.ProviderOutlook), string(dispatch.ProviderGmail)},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, tokens, err := openTokens()
		if err != nil {
			return err
		}
		if authAccount == "" {
			return fmt.Errorf("--account is required")
		}
		if !tokens.Persistent() {
			log.Warn("Token cache is disabled; the token is discarded when mailform exits. Set token_cache.enabled to keep it.")
		}

		provider := dispatch.Provider(args[0])
		session, err := pipeline.Session(cfg, tokens, provider, authAccount, true)
		if err != nil {
			return err
		}
		if err := session.Login(cmd.Context()); err != nil {
			return err
		}

		say(uiLanguage(cfg, cfg.DefaultLocale), i18n.MsgSignedIn,
			map[string]interface{}{"Provider": string(provider), "Account": session.Account()})
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cached tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, tokens, err := openTokens()
		if err != nil {
			return err
		}

		stats := tokens.Stats()
		fmt.Printf("Token cache:\n")
		fmt.Printf("  Directory: %v\n", stats["cache_dir"])
		fmt.Printf("  Persisted: %v\n", stats["persisted"])
		fmt.Printf("  Entries:   %v\n", stats["entries"])
		fmt.Printf("  Stale:     %v\n", stats["stale"])

		entries := tokens.List()
		if len(entries) == 0 {
			say(uiLanguage(cfg, cfg.DefaultLocale), i18n.MsgNoCachedAccounts, nil)
			return nil
		}
		fmt.Println()
		for _, e := range entries {
			fmt.Printf("  %-8s %-32s %s\n", e.Provider, e.Account, tokenState(e))
		}
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:       "logout [outlook|gmail]",
	Short:     "Forget cached tokens",
	ValidArgs: []string{string(dispatch.ProviderOutlook), string(dispatch.ProviderGmail)},
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, tokens, err := openTokens()
		if err != nil {
			return err
		}

		if logoutAll {
			if err := tokens.Clear(); err != nil {
				return fmt.Errorf("failed to clear token cache: %w", err)
			}
			log.Info("Token cache cleared")
			return nil
		}
		if len(args) == 0 || authAccount == "" {
			return fmt.Errorf("give a provider and --account, or --all")
		}

		account := auth.NormalizeAccount(authAccount)
		if err := tokens.Delete(cache.Key(args[0], account)); err != nil {
			return err
		}
		say(uiLanguage(cfg, cfg.DefaultLocale), i18n.MsgSignedOut,
			map[string]interface{}{"Provider": args[0], "Account": account})
		return nil
	},
}

var authPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove tokens that can no longer be refreshed",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, tokens, err := openTokens()
		if err != nil {
			return err
		}

		removed, err := tokens.Prune()
		if err != nil {
			return fmt.Errorf("failed to prune token cache: %w", err)
		}
		log.Info("Token cache pruned", "removed", removed)
		return nil
	},
}

func openTokens() (*config.Config, *cache.Cache, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	tokens, err := pipeline.TokenCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, tokens, nil
}

func tokenState(e cache.Entry) string {
	switch {
	case e.Token == nil:
		return "empty"
	case e.Token.Valid():
		return "valid until " + e.Token.Expiry.Format(time.RFC3339)
	case e.Usable():
		return "expired, refreshable"
	default:
		return "expired"
	}
}

func init() {
	authLoginCmd.Flags().StringVarP(&authAccount, "account", "a", "", "mailbox address to sign in as")
	authLogoutCmd.Flags().StringVarP(&authAccount, "account", "a", "", "mailbox address to sign out")
	authLogoutCmd.Flags().BoolVar(&logoutAll, "all", false, "forget every cached token")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authPruneCmd)
	rootCmd.AddCommand(authCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oarkflow/mailform/internal/mailer"
	"github.com/oarkflow/mailform/internal/pipeline"
)

var (
	inboxAccount string
	inboxMax     int
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Read the Gmail inbox to answer messages",
	Long: `List, read and trash messages in a Gmail INBOX.

Answer a message with 'mailform send --reply <id>': the email goes to the
message's sender with a "Re:" subject, and the template receives the
original body as original_message.`,
}

var inboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest inbox messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openInbox()
		if err != nil {
			return err
		}
		msgs, err := in.List(cmd.Context(), inboxMax)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			fmt.Printf("%-18s %s - %s\n", m.ID, m.Subject, m.From)
		}
		return nil
	},
}

var inboxShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an inbox message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openInbox()
		if err != nil {
			return err
		}
		m, err := in.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("From:    %s\nSubject: %s\n\n%s\n", m.From, m.Subject, m.Body)
		return nil
	},
}

var inboxTrashCmd = &cobra.Command{
	Use:   "trash <id>",
	Short: "Move an inbox message to the Trash folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openInbox()
		if err != nil {
			return err
		}
		if err := in.Trash(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Moved %s to Trash\n", args[0])
		return nil
	},
}

func openInbox() (*mailer.Inbox, error) {
	if inboxAccount == "" {
		return nil, fmt.Errorf("--account is required")
	}
	cfg, tokens, err := openTokens()
	if err != nil {
		return nil, err
	}
	return pipeline.Inbox(cfg, tokens, inboxAccount, true)
}

func init() {
	inboxCmd.PersistentFlags().StringVarP(&inboxAccount, "account", "a", "", "Gmail address whose inbox is read")
	inboxListCmd.Flags().IntVarP(&inboxMax, "max", "n", mailer.DefaultInboxSize, "number of messages to list")

	inboxCmd.AddCommand(inboxListCmd)
	inboxCmd.AddCommand(inboxShowCmd)
	inboxCmd.AddCommand(inboxTrashCmd)
	rootCmd.AddCommand(inboxCmd)
}

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"morningcast/internal/broadcast"
	"morningcast/internal/config"
	"morningcast/internal/feeds"
	"morningcast/internal/googleauth"
	"morningcast/internal/maildigest"
)

func newEmailsCommand(ctx *commandContext) *cobra.Command {
	emailsCmd := &cobra.Command{
		Use:   "emails",
		Short: "Gmail digest utilities",
	}
	emailsCmd.AddCommand(newAuthCommand(ctx, "Gmail", func(cfg *config.Config) (string, []string) {
		return cfg.Google.GmailToken, googleauth.GmailScopes
	}))
	emailsCmd.AddCommand(newEmailsFetchCommand(ctx))
	return emailsCmd
}

func newCalendarCommand(ctx *commandContext) *cobra.Command {
	calendarCmd := &cobra.Command{
		Use:   "calendar",
		Short: "Google Calendar utilities",
	}
	calendarCmd.AddCommand(newAuthCommand(ctx, "Calendar", func(cfg *config.Config) (string, []string) {
		return cfg.Google.CalendarToken, googleauth.CalendarScopes
	}))
	return calendarCmd
}

// newAuthCommand runs the loopback OAuth flow for one Google API.
func newAuthCommand(ctx *commandContext, service string, target func(*config.Config) (string, []string)) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: fmt.Sprintf("Authorize read access to Google %s", service),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tokenPath, scopes := target(cfg)
			auth, err := googleauth.New(cfg.Google.CredentialsFile, tokenPath, scopes...)
			if err != nil {
				if errors.Is(err, googleauth.ErrNoCredentials) {
					return fmt.Errorf("%w (download an OAuth desktop client secret to google.credentials_file)", err)
				}
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := auth.Authorize(cmd.Context(), func(url string) {
				fmt.Fprintf(out, "Open this URL in a browser to authorize %s access:\n\n  %s\n\nWaiting for the redirect...\n", service, url)
			}); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s token saved to %s\n", service, auth.TokenPath())
			return nil
		},
	}
}

func newEmailsFetchCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var lookbackHours int
	var limit int
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Summarize recent Gmail messages into the email digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			target := cfg.Paths.EmailsJSON
			if strings.TrimSpace(outputPath) != "" {
				if target, err = config.ExpandPath(outputPath); err != nil {
					return err
				}
			}
			if lookbackHours <= 0 {
				lookbackHours = cfg.Google.MailLookback
			}
			if limit <= 0 {
				limit = cfg.Google.MaxMessages
			}

			auth, err := googleauth.New(cfg.Google.CredentialsFile, cfg.Google.GmailToken, googleauth.GmailScopes...)
			if err != nil {
				return err
			}
			client, err := auth.Client(cmd.Context())
			if err != nil {
				if errors.Is(err, googleauth.ErrNoToken) {
					return fmt.Errorf("%w (run 'morningcast emails auth')", err)
				}
				return err
			}
			mailbox, err := maildigest.NewMailbox(cmd.Context(), client, "")
			if err != nil {
				return err
			}
			generator, err := broadcast.NewGenerator(cfg, logger)
			if err != nil {
				return err
			}
			summarizer := maildigest.NewSummarizer(generator, cfg.LLM.DigestModel, logger)
			items, err := maildigest.Build(cmd.Context(), mailbox, summarizer, time.Now(),
				time.Duration(lookbackHours)*time.Hour, limit)
			if err != nil {
				return err
			}
			if err := feeds.SaveEmails(target, items); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Summarized %d messages into %s\n", len(items), target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Digest file to write (default: paths.emails_json)")
	cmd.Flags().IntVar(&lookbackHours, "lookback", 0, "Hours of mail to include (default: google.mail_lookback_hours)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum messages to summarize (default: google.max_messages)")
	return cmd
}

package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ecobud/internal/cli"
	"ecobud/internal/export"
	"ecobud/internal/tink"
)

func newRegisterWebhookCmd(a *app) *cobra.Command {
	var webhookURL string
	cmd := &cobra.Command{
		Use:   "register-webhook",
		Short: "Subscribe the API's webhook endpoint to Tink transaction events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if webhookURL == "" {
				webhookURL = strings.TrimRight(a.cfg.SelfBaseURL, "/") + "/tink/webhook"
			}
			endpoint, err := cli.TinkClient(a.cfg).RegisterTransactionWebhook(cmd.Context(), webhookURL)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), endpoint, func(w io.Writer) {
				writeEndpoint(w, endpoint)
			})
		},
	}
	cmd.Flags().StringVar(&webhookURL, "url", "", "webhook URL (default SELF_BASE_URL/tink/webhook)")
	return cmd
}

func writeEndpoint(w io.Writer, e tink.WebhookEndpoint) {
	_ = export.WriteYAML(w, map[string]any{
		"id":     e.ID,
		"url":    e.URL,
		"events": e.EnabledEvents,
		"secret": e.Secret,
	})
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ecobud/internal/cli"
	"ecobud/internal/export"
	"ecobud/internal/services"
)

func newSyncCmd(a *app) *cobra.Command {
	var (
		username string
		pages    int
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize a user's transactions from Tink into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeStore(res)

			if pages < 1 {
				pages = a.cfg.SyncPageCount
			}
			engine := services.NewSyncEngine(cli.TinkClient(a.cfg), res.Store)
			result, err := engine.Sync(cmd.Context(), username, pages)
			if err != nil {
				return fmt.Errorf("sync %s: %w", username, err)
			}

			return a.render(cmd.OutOrStdout(), syncReport(result), func(w io.Writer) {
				export.WriteSyncTable(w, result)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username to synchronize")
	cmd.Flags().IntVarP(&pages, "pages", "p", 0, "transaction pages to fetch (default SYNC_PAGE_COUNT)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type syncSummary struct {
	Username   string   `json:"username" yaml:"username"`
	Count      int      `json:"count" yaml:"count"`
	Inserted   int      `json:"inserted" yaml:"inserted"`
	Merged     int      `json:"merged" yaml:"merged"`
	ItemErrors []string `json:"item_errors,omitempty" yaml:"item_errors,omitempty"`
}

func syncReport(r services.SyncResult) syncSummary {
	return syncSummary{
		Username:   r.Username,
		Count:      r.Count,
		Inserted:   r.Inserted,
		Merged:     r.Merged,
		ItemErrors: r.ErrorMessages(),
	}
}

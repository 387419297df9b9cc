package main

import (
	"io"

	"github.com/spf13/cobra"

	"ecobud/internal/analytics"
	"ecobud/internal/core"
	"ecobud/internal/export"
)

func newAnalyticsCmd(a *app) *cobra.Command {
	var username, start, end string
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Apportion a user's spending over a date window",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := core.ParseDate(start)
			if err != nil {
				return err
			}
			endDate := startDate
			if end != "" {
				if endDate, err = core.ParseDate(end); err != nil {
					return err
				}
			}

			res, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeStore(res)

			out, err := analytics.NewEngine(res.Store).Query(cmd.Context(), core.AnalyticsInput{
				Username:  username,
				StartDate: startDate,
				EndDate:   endDate,
			})
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), out, func(w io.Writer) {
				export.WriteAnalyticsTable(w, out)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username to analyse")
	cmd.Flags().StringVar(&start, "start", "", "first day of the window, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last day of the window, YYYY-MM-DD (default start)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ecobud/internal/export"
	"ecobud/internal/storage"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		username string
		format   string
		outPath  string
		all      bool
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's stored transactions as CSV, XLSX, JSON or YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == export.FormatXLSX && outPath == "" {
				return fmt.Errorf("xlsx export needs --out")
			}

			res, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeStore(res)

			opts := storage.DefaultListOptions()
			opts.ExcludeIgnored = !all
			opts.Limit = limit
			txs, err := res.Store.FindMany(cmd.Context(), username, opts)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := export.Write(w, format, txs); err != nil {
				return err
			}
			a.logger.Info("Transactions exported", "count", len(txs), "format", format, "file", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username to export")
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatCSV, "csv, xlsx, json or yaml")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&all, "all", false, "include ignored transactions")
	cmd.Flags().IntVar(&limit, "limit", storage.DefaultLimit, "maximum transactions to export")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

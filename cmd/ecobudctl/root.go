package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ecobud/internal/backend"
	"ecobud/internal/cli"
	"ecobud/internal/config"
	"ecobud/internal/export"
	"ecobud/internal/log"
)

// app is the state shared by every subcommand
type app struct {
	cfg    *config.Config
	logger *log.Logger
	output string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "ecobudctl",
		Short:        "Operate an ecobud deployment",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			a.cfg = config.Load()
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			lc := log.DefaultConfig()
			lc.Component = log.ComponentCLI
			lc.Level = log.ParseLevel(a.cfg.LogLevel)
			lc.Format = a.cfg.LogFormat
			lc.Output = cmd.ErrOrStderr()
			a.logger = log.New(lc)
			log.SetDefault(a.logger)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", export.FormatTable, "output format: table, json or yaml")

	root.AddCommand(
		newSyncCmd(a),
		newAnalyticsCmd(a),
		newExportCmd(a),
		newRegisterWebhookCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// openStore builds the configured backend; the caller runs Cleanup
func (a *app) openStore(ctx context.Context) (*backend.BackendResult, error) {
	cfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(a.logger).CreateBackend(ctx, cfg)
}

func (a *app) closeStore(res *backend.BackendResult) {
	if err := res.Cleanup(); err != nil {
		a.logger.Warn("Backend cleanup error", log.FieldError, err)
	}
}

// render writes v as JSON or YAML, or calls table for the table format
func (a *app) render(w io.Writer, v any, table func(io.Writer)) error {
	switch a.output {
	case export.FormatJSON:
		return export.WriteJSON(w, v)
	case export.FormatYAML:
		return export.WriteYAML(w, v)
	case export.FormatTable, "":
		table(w)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", a.output)
	}
}

package main

import (
	"github.com/spf13/cobra"

	"pysnip/internal/app"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog and execution API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			return app.New(opts.logger).Serve(ctx, app.ServeConfig{
				ConfigPath: opts.configPath,
				Config:     opts.cfg,
			})
		},
	}
}

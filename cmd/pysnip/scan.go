package main

import (
	"github.com/spf13/cobra"

	"pysnip/internal/app"
)

func newScanCmd(opts *cliOptions) *cobra.Command {
	var (
		force  bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the root and print the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format, false); err != nil {
				return err
			}
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			catalog, err := app.New(opts.logger).Scan(ctx, opts.cfg, force)
			if err != nil {
				return err
			}
			return writeFormatted(cmd.OutOrStdout(), format, catalog)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignore the catalog cache")
	cmd.Flags().StringVar(&format, "format", formatJSON, "output format (json, yaml or toml)")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pysnip/internal/app"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "pysnip %s (%s)\n", app.Version, app.Build)
			return err
		},
	}
}

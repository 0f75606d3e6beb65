package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pysnip/internal/app"
	"pysnip/internal/domain"
)

func newRunCmd(opts *cliOptions) *cobra.Command {
	var (
		params []string
		format string
	)
	cmd := &cobra.Command{
		Use:   "run <tool>",
		Short: "Run a tool with the given parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, true); err != nil {
				return err
			}
			values, err := parseParams(params)
			if err != nil {
				return err
			}
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			service, cleanup, err := app.New(opts.logger).Explorer(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			result := service.Execute(ctx, args[0], values)
			if format == formatText {
				_, _ = io.WriteString(cmd.OutOrStdout(), result.Stdout)
				_, _ = io.WriteString(cmd.ErrOrStderr(), result.Stderr)
			} else if err := writeFormatted(cmd.OutOrStdout(), format, result); err != nil {
				return err
			}
			if result.Success {
				return nil
			}
			code := result.ExitCode
			if code <= 0 {
				code = 1
			}
			if format != formatText {
				return exitSilent(code)
			}
			return exitError{code: code, message: result.Error}
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "tool parameter as key=value; a bare key passes a flag (repeatable)")
	cmd.Flags().StringVar(&format, "format", formatText, "output format (text, json, yaml or toml)")
	return cmd
}

func newParamsCmd(opts *cliOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "params <tool>",
		Short: "List the parameters a tool accepts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, true); err != nil {
				return err
			}
			service, cleanup, err := app.New(opts.logger).Explorer(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			params, err := service.ExtractParameters(args[0])
			if err != nil {
				return err
			}
			if format != formatText {
				if params == nil {
					params = []domain.ParameterDescriptor{}
				}
				return writeFormatted(cmd.OutOrStdout(), format, params)
			}
			return printParams(cmd.OutOrStdout(), params)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "output format (text, json, yaml or toml)")
	return cmd
}

func newDocsCmd(opts *cliOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "docs <tool>",
		Short: "Show a tool's documentation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, true); err != nil {
				return err
			}
			service, cleanup, err := app.New(opts.logger).Explorer(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := service.ExtractDocumentation(args[0])
			if err != nil {
				return err
			}
			if format != formatText {
				return writeFormatted(cmd.OutOrStdout(), format, doc)
			}
			return printDoc(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "output format (text, json, yaml or toml)")
	return cmd
}

// parseParams turns repeated key=value arguments into tool parameters. A
// bare key is a boolean flag and a repeated key collects a list.
func parseParams(raw []string) (map[string]any, error) {
	params := make(map[string]any, len(raw))
	for _, item := range raw {
		key, value, hasValue := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid parameter %q: missing name", item)
		}
		var v any = true
		if hasValue {
			v = value
		}
		switch existing := params[key].(type) {
		case nil:
			params[key] = v
		case []any:
			params[key] = append(existing, v)
		default:
			params[key] = []any{existing, v}
		}
	}
	return params, nil
}

func printParams(w io.Writer, params []domain.ParameterDescriptor) error {
	if len(params) == 0 {
		_, err := fmt.Fprintln(w, "no parameters")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tREQUIRED\tDEFAULT\tHELP")
	for _, p := range params {
		def := ""
		if p.Default != nil {
			def = *p.Default
		}
		if len(p.Choices) > 0 {
			def = strings.TrimSpace(def + " {" + strings.Join(p.Choices, ",") + "}")
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", p.Name, p.Type, p.Required, def, p.Help)
	}
	return tw.Flush()
}

func printDoc(w io.Writer, doc domain.DocInfo) error {
	var b strings.Builder
	if doc.Title != "" {
		b.WriteString(doc.Title + "\n\n")
	}
	if doc.Summary != "" {
		b.WriteString(doc.Summary + "\n")
	}
	for _, section := range doc.Sections {
		b.WriteString("\n" + section.Name + ":\n" + section.Body + "\n")
	}
	if len(doc.Examples) > 0 {
		b.WriteString("\nExamples:\n")
		for _, example := range doc.Examples {
			b.WriteString("  " + example + "\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

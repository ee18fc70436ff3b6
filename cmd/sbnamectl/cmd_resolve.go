package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sbname/internal/app"
	"sbname/internal/catalog/service"
)

type resolveOutput struct {
	Input        string `json:"input"`
	Code         string `json:"code,omitempty"`
	Found        bool   `json:"found"`
	Name         string `json:"name,omitempty"`
	ExtendedName string `json:"extended_name,omitempty"`
	Formatted    string `json:"formatted,omitempty"`
	Source       string `json:"source,omitempty"`
	Error        string `json:"error,omitempty"`
}

func newResolveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <code>...",
		Short: "Resolve product codes to display names",
		Long: `Resolve one or more product codes. Each argument may carry trailing
text such as "2525 (75 cl)"; only the leading digits are used.

Codes found in the catalog are written through to the lookup cache.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				return runResolve(ctx, cmd.OutOrStdout(), a.Service, args, flags.jsonOutput)
			})
		},
	}
}

func runResolve(ctx context.Context, out io.Writer, svc *service.Service, args []string, asJSON bool) error {
	resolutions := svc.ResolveAll(ctx, args)

	outputs := make([]resolveOutput, 0, len(resolutions))
	failed := 0
	for _, res := range resolutions {
		o := resolveOutput{Input: res.Input}
		if res.Err != nil {
			o.Error = res.Err.Error()
			failed++
		} else {
			o.Code = res.Result.Code
			o.Found = res.Result.Found()
			o.Name = res.Result.Record.Name
			o.ExtendedName = res.Result.Record.ExtendedName
			o.Formatted = res.Result.Formatted
			o.Source = string(res.Result.Source)
		}
		outputs = append(outputs, o)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outputs); err != nil {
			return err
		}
	} else {
		for _, o := range outputs {
			switch {
			case o.Error != "":
				fmt.Fprintf(out, "%s\terror: %s\n", o.Input, o.Error)
			case !o.Found:
				fmt.Fprintf(out, "%s\tnot found\n", o.Input)
			default:
				fmt.Fprintf(out, "%s\t%s\t(%s)\n", o.Code, o.Formatted, o.Source)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(outputs))
	}
	return nil
}

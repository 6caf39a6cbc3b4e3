package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/uiregistry/internal/errors"
)

func explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe error codes",
		Long: `Print the registered error codes, or the full description of one.

Examples:
  uiregistry explain
  uiregistry explain E014`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listCodes(cmd.OutOrStdout())
				return nil
			}
			return explainCode(cmd.OutOrStdout(), args[0])
		},
	}
}

// listCodes prints one compact line per registered code.
func listCodes(w io.Writer) {
	for _, code := range errors.GetAllCodes() {
		tmpl, _ := errors.GetTemplate(code)
		fmt.Fprintf(w, "  %-10s %s\n", tmpl.Category, errors.New(code).FormatCompact())
	}
}

func explainCode(w io.Writer, code string) error {
	code = strings.ToUpper(code)
	if _, ok := errors.GetTemplate(code); !ok {
		return errorf("unknown error code %q", code)
	}
	fmt.Fprint(w, errors.New(code).Format())
	return nil
}

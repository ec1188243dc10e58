package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func dialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the supported SQL dialects",
		RunE: func(cmd *cobra.Command, args []string) error {
			en := cases.Title(language.English)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintln(tw, "NAME\tTITLE\tDRIVER\tNULLS ORDERING")
			for _, name := range core.SupportedDialects {
				d, err := core.NewDialect(name)
				if err != nil {
					return err
				}
				nulls := "emulated"
				if d.SupportsNativeNullsOrdering() {
					nulls = "native"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name(), en.String(d.Name()), d.DriverName(), nulls)
			}
			return tw.Flush()
		},
	}
}

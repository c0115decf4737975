package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ignite/ga-deep-dive/internal/domain"
)

var propertiesCmd = &cobra.Command{
	Use:   "properties",
	Short: "List configured properties",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printProperties(cmd.OutOrStdout(), cfg.PropertyList())
	},
}

func printProperties(out io.Writer, props []domain.Property) error {
	if len(props) == 0 {
		_, err := fmt.Fprintln(out, "No properties configured. Set GA4_PROPERTIES=name=id,... or add them to the config file.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPROPERTY ID")
	for _, p := range props {
		fmt.Fprintf(w, "%s\t%s\n", p.Name, p.ID)
	}
	return w.Flush()
}

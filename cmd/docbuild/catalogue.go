package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docview/internal/catalogue"
)

func newCatalogueCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "catalogue <doc.json>",
		Short: "List the headings a reader can jump to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			entries := catalogue.Build(doc.Root())

			out := cmd.OutOrStdout()
			if asJSON {
				if entries == nil {
					entries = []catalogue.Entry{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s%s %s\n", strings.Repeat("  ", min(max(e.Level, 1), 4)-1), e.Label, e.Href())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect cataloged items",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list LIBRARY_ID",
		Short: "List the catalog of a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLibraryID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			if _, err := store.GetLibrary(cmd.Context(), id); err != nil {
				return err
			}
			items, err := store.ListCatalog(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty; run `folio scan` first")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				fingerprint := item.Fingerprint
				if len(fingerprint) > 12 {
					fingerprint = fingerprint[:12]
				}
				rows = append(rows, []string{
					item.Title,
					item.Author,
					item.Ext,
					strconv.FormatInt(item.Size, 10),
					fingerprint,
					item.Path,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Title", "Author", "Ext", "Size", "Fingerprint", "Path"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

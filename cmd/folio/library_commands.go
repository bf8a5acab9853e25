package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"folio/internal/config"
	"folio/internal/library"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:     "library",
		Aliases: []string{"lib"},
		Short:   "Manage registered libraries",
	}

	libraryCmd.AddCommand(newLibraryAddCommand(ctx))
	libraryCmd.AddCommand(newLibraryListCommand(ctx))
	libraryCmd.AddCommand(newLibraryRemoveCommand(ctx))

	return libraryCmd
}

func newLibraryAddCommand(ctx *commandContext) *cobra.Command {
	var kind string
	var owner string

	cmd := &cobra.Command{
		Use:   "add NAME PATH",
		Short: "Register a library directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			contentType, err := library.ParseContentType(kind)
			if err != nil {
				return err
			}
			root, err := config.ExpandPath(args[1])
			if err != nil {
				return fmt.Errorf("resolve library path: %w", err)
			}
			if root, err = filepath.Abs(root); err != nil {
				return fmt.Errorf("resolve library path: %w", err)
			}
			if strings.TrimSpace(owner) == "" {
				owner = cfg.Library.DefaultOwner
			}

			lib, err := store.AddLibrary(cmd.Context(), library.Library{
				Name:        args[0],
				Root:        root,
				ContentType: contentType,
				OwnerID:     owner,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered library %d (%s) at %s\n", lib.ID, lib.ContentType, lib.Root)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", string(library.ContentBooks), "Content type: books, comics, or audiobooks")
	cmd.Flags().StringVar(&owner, "owner", "", "Owning user id (defaults to library.default_owner)")
	return cmd
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered libraries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			libs, err := store.ListLibraries(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, libs)
			}
			if len(libs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No libraries registered")
				return nil
			}
			rows := make([][]string, 0, len(libs))
			for _, lib := range libs {
				rows = append(rows, []string{
					strconv.FormatInt(lib.ID, 10),
					lib.Name,
					string(lib.ContentType),
					lib.OwnerID,
					lib.Root,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Type", "Owner", "Root"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newLibraryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Unregister a library and drop its catalog",
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
			if err := store.RemoveLibrary(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed library %d\n", id)
			return nil
		},
	}
}

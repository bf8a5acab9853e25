package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/events"
	"folio/internal/notifications"
	"folio/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "scan LIBRARY_ID",
		Short: "Scan a library and update its catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLibraryID(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			bus := events.NewBus(logger)
			if !quiet {
				bus.Subscribe(newProgressRenderer(out).handle)
			}
			svc := scanner.New(cfg, store, bus, notifications.NewService(cfg), logger)

			run, err := svc.Begin(cmd.Context(), id, userID)
			if err != nil {
				return err
			}
			waitErr := run.Wait(cmd.Context())
			if !run.Finished() {
				waitErr = run.Wait(context.WithoutCancel(cmd.Context()))
			}

			statuses := run.Statuses()
			names := make([]string, 0, len(statuses))
			for name := range statuses {
				names = append(names, name)
			}
			sort.Strings(names)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, statuses[name].String()})
			}
			fmt.Fprintln(out, renderTable([]string{"Node", "Status"}, rows, nil))
			fmt.Fprintf(out, "Scan %s: %d items, %s\n", run.Key().ScanID, run.Items(), run.Elapsed().Round(time.Millisecond))
			return waitErr
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id recorded on scan events (defaults to the library owner)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress live progress output")
	return cmd
}

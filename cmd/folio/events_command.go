package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/events"
	"folio/internal/library"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "events SCAN_ID",
		Short: "Show the event journal of a scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			records, err := store.ListEvents(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No events recorded for scan %s\n", args[0])
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.CreatedAt.Local().Format(time.TimeOnly),
					rec.Type,
					rec.Node,
					describeRecord(rec),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Time", "Event", "Node", "Detail"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func describeRecord(rec library.JournalRecord) string {
	ev, err := rec.Decode()
	if err != nil {
		return "undecodable: " + err.Error()
	}
	switch v := ev.(type) {
	case events.JobProgressChanged:
		p := v.Progress
		return fmt.Sprintf("%s %d/%d (%.0f%%)", p.Operation, p.Completed, p.Total, p.Percent())
	case events.ScanFailed:
		return v.Reason
	case events.ScanCompleted:
		return fmt.Sprintf("%d items in %s", v.Items, v.Duration)
	default:
		return ""
	}
}

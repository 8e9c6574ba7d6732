package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmarkkanen/foldersync/internal/catalog"
)

func newLogsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent sync log entries",
		Long:  `Print the most recent rows of the catalog's append-only sync log, newest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries to show")

	return cmd
}

func runLogs(cmd *cobra.Command, limit int) error {
	cc := mustCLIContext(cmd.Context())

	store, err := catalog.Open(cc.Cfg.Sync.CatalogPath, cc.Logger)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	entries, err := store.TailLog(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("reading sync log: %w", err)
	}

	if cc.Flags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(entries)
	}

	printLogsText(entries)

	return nil
}

func printLogsText(entries []catalog.SyncLogEntry) {
	if len(entries) == 0 {
		fmt.Println("no log entries recorded yet")
		return
	}

	headers := []string{"TIME", "CYCLE", "ACTION", "PATH", "STATUS", "ERROR"}
	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		rows = append(rows, []string{
			formatTime(time.Unix(e.TimestampS, 0)),
			shortCycleID(e.CycleID),
			string(e.Action),
			e.Path,
			string(e.Status),
			e.Error,
		})
	}

	printTable(os.Stdout, headers, rows)
}

// shortCycleID truncates a UUID cycle ID to a readable prefix for table
// display; the full ID is always available via --json.
func shortCycleID(id string) string {
	const shortLen = 8
	if len(id) <= shortLen {
		return id
	}

	return id[:shortLen]
}

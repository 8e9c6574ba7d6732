package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmarkkanen/foldersync/internal/catalog"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current state of the catalog",
		Long: `Display a summary of the catalog: how many files are tracked, the
total bytes under management, the ID of the most recent sync cycle with the
status of its newest log entry, and the most recent failed action.

foldersync has no long-running daemon to query for live progress, so this
command reports the last completed cycle rather than an in-progress one.`,
		RunE: runStatus,
	}
}

// catalogStatus is the JSON shape for "status --json".
type catalogStatus struct {
	TrackedFiles  int        `json:"tracked_files"`
	TotalBytes    int64      `json:"total_bytes"`
	LastCycleID   string     `json:"last_cycle_id,omitempty"`
	LastCycleAt   *time.Time `json:"last_cycle_at,omitempty"`
	LastOutcome   string     `json:"last_outcome,omitempty"`
	RecentFailure string     `json:"recent_failure,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	store, err := catalog.Open(cc.Cfg.Sync.CatalogPath, cc.Logger)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()

	records, err := store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	const recentTailLimit = 20

	recent, err := store.TailLog(ctx, recentTailLimit)
	if err != nil {
		return fmt.Errorf("reading sync log: %w", err)
	}

	st := catalogStatus{TrackedFiles: len(records)}
	for _, r := range records {
		st.TotalBytes += r.SizeBytes
	}

	if len(recent) > 0 {
		st.LastCycleID = recent[0].CycleID
		st.LastOutcome = string(recent[0].Status)
		at := time.Unix(recent[0].TimestampS, 0)
		st.LastCycleAt = &at
	}

	for _, entry := range recent {
		if entry.Status == catalog.StatusFailed {
			st.RecentFailure = fmt.Sprintf("%s %s: %s", entry.Action, entry.Path, entry.Error)
			break
		}
	}

	if cc.Flags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(st)
	}

	printStatusText(st)

	return nil
}

func printStatusText(st catalogStatus) {
	fmt.Printf("tracked files: %d (%s)\n", st.TrackedFiles, formatSize(st.TotalBytes))

	if st.LastCycleID == "" {
		fmt.Println("no sync cycles recorded yet")
		return
	}

	when := ""
	if st.LastCycleAt != nil {
		when = " — " + formatRelativeTime(*st.LastCycleAt)
	}

	fmt.Printf("last cycle:    %s (%s)%s\n", st.LastCycleID, st.LastOutcome, when)

	if st.RecentFailure != "" {
		fmt.Printf("recent error:  %s\n", st.RecentFailure)
	}
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jmarkkanen/foldersync/internal/catalog"
	engsync "github.com/jmarkkanen/foldersync/internal/sync"
)

// errVerifyMismatch signals that verify found at least one mismatch;
// main() maps it to a non-zero exit code without printing a duplicate
// "Error:" line, since printVerifyTable already reported the details.
var errVerifyMismatch = errors.New("verify: mismatches found")

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify local files against the catalog",
		Long: `Perform a full-tree hash verification of local files against the
catalog's recorded state. Reports files missing locally, extra untracked
files, and content hash mismatches.

Exit code 0 if everything matches; exit code 1 if any mismatches are found.`,
		RunE: runVerify,
	}
}

// verifyMismatch describes one discrepancy between the local tree and the
// catalog's last-known state for a path.
type verifyMismatch struct {
	Path     string `json:"path"`
	Status   string `json:"status"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// verifyReport is the JSON/table shape for "verify --json" and the
// human-readable summary.
type verifyReport struct {
	Verified   int              `json:"verified"`
	Mismatches []verifyMismatch `json:"mismatches"`
}

const (
	verifyStatusMissingLocal = "missing locally"
	verifyStatusUntracked    = "untracked"
	verifyStatusHashMismatch = "hash mismatch"
)

func runVerify(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	store, err := catalog.Open(cc.Cfg.Sync.CatalogPath, cc.Logger)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	records, err := store.LoadAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	scanner := engsync.NewLocalScanner(cc.Logger, nil)

	local, err := scanner.Scan(cc.Cfg.Sync.SyncRoot)
	if err != nil {
		return fmt.Errorf("scanning sync root: %w", err)
	}

	report := buildVerifyReport(records, local)

	if cc.Flags.JSON {
		if err := printVerifyJSON(report); err != nil {
			return err
		}
	} else {
		printVerifyTable(report)
	}

	if len(report.Mismatches) > 0 {
		return errVerifyMismatch
	}

	return nil
}

func buildVerifyReport(records map[string]catalog.FileRecord, local engsync.LocalSnapshot) verifyReport {
	report := verifyReport{}

	for path, rec := range records {
		entry, ok := local[path]
		switch {
		case !ok:
			report.Mismatches = append(report.Mismatches, verifyMismatch{
				Path: path, Status: verifyStatusMissingLocal, Expected: rec.ContentHash,
			})
		case entry.Hash != rec.ContentHash:
			report.Mismatches = append(report.Mismatches, verifyMismatch{
				Path: path, Status: verifyStatusHashMismatch, Expected: rec.ContentHash, Actual: entry.Hash,
			})
		default:
			report.Verified++
		}
	}

	for path := range local {
		if _, ok := records[path]; !ok {
			report.Mismatches = append(report.Mismatches, verifyMismatch{Path: path, Status: verifyStatusUntracked})
		}
	}

	sort.Slice(report.Mismatches, func(i, j int) bool {
		return report.Mismatches[i].Path < report.Mismatches[j].Path
	})

	return report
}

func printVerifyJSON(report verifyReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

func printVerifyTable(report verifyReport) {
	fmt.Printf("Verified: %d files\n", report.Verified)

	if len(report.Mismatches) == 0 {
		fmt.Println("All files verified successfully.")
		return
	}

	fmt.Printf("Mismatches: %d\n\n", len(report.Mismatches))

	headers := []string{"PATH", "STATUS", "EXPECTED", "ACTUAL"}
	rows := make([][]string, len(report.Mismatches))

	for i, m := range report.Mismatches {
		rows[i] = []string{m.Path, m.Status, m.Expected, m.Actual}
	}

	printTable(os.Stdout, headers, rows)
}

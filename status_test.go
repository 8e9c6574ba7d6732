package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarkkanen/foldersync/internal/catalog"
	"github.com/jmarkkanen/foldersync/internal/config"
)

// newTestCLIContext opens a catalog backed by a temp file, not ":memory:" —
// runStatus opens its own Store from cc.Cfg.Sync.CatalogPath, and each
// ":memory:" open is an independent database, so fixtures seeded through a
// separate connection to ":memory:" would be invisible to it.
func newTestCLIContext(t *testing.T, jsonOut bool) (*CLIContext, *catalog.SQLiteStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	store, err := catalog.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cc := &CLIContext{
		Cfg:    &config.Config{Sync: config.SyncConfig{CatalogPath: dbPath}},
		Logger: logger,
	}
	cc.Flags.JSON = jsonOut

	return cc, store
}

func newTestCommand(cc *CLIContext) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, cc))

	return cmd
}

func TestRunStatus_EmptyCatalog(t *testing.T) {
	cc, _ := newTestCLIContext(t, true)
	cmd := newTestCommand(cc)

	out := captureStdout(t, func() {
		require.NoError(t, runStatus(cmd, nil))
	})

	var st catalogStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 0, st.TrackedFiles)
	assert.Empty(t, st.LastCycleID)
}

func TestRunStatus_ReportsLastCycleAndFailure(t *testing.T) {
	cc, store := newTestCLIContext(t, true)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, catalog.FileRecord{Path: "a.txt", SizeBytes: 100}))
	require.NoError(t, store.AppendLog(ctx, catalog.SyncLogEntry{
		TimestampS: 100, CycleID: "cycle-1", Action: catalog.ActionUpload, Path: "a.txt", Status: catalog.StatusSuccess,
	}))
	require.NoError(t, store.AppendLog(ctx, catalog.SyncLogEntry{
		TimestampS: 200, CycleID: "cycle-2", Action: catalog.ActionDownload, Path: "b.txt",
		Status: catalog.StatusFailed, Error: "network unreachable",
	}))

	cmd := newTestCommand(cc)

	out := captureStdout(t, func() {
		require.NoError(t, runStatus(cmd, nil))
	})

	var st catalogStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 1, st.TrackedFiles)
	assert.Equal(t, int64(100), st.TotalBytes)
	assert.Equal(t, "cycle-2", st.LastCycleID)
	assert.Equal(t, string(catalog.StatusFailed), st.LastOutcome)
	assert.Contains(t, st.RecentFailure, "network unreachable")
}

func TestPrintStatusText_NoCyclesYet(t *testing.T) {
	out := captureStdout(t, func() {
		printStatusText(catalogStatus{TrackedFiles: 3, TotalBytes: 1024})
	})

	assert.Contains(t, out, "tracked files: 3")
	assert.Contains(t, out, "no sync cycles recorded yet")
}

func TestPrintStatusText_WithFailure(t *testing.T) {
	out := captureStdout(t, func() {
		printStatusText(catalogStatus{
			TrackedFiles:  5,
			LastCycleID:   "cycle-9",
			LastOutcome:   "failed",
			RecentFailure: "upload a.txt: permission denied",
		})
	})

	assert.Contains(t, out, "cycle-9")
	assert.Contains(t, out, "recent error:")
	assert.Contains(t, out, "permission denied")
}

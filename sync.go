package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmarkkanen/foldersync/internal/catalog"
	"github.com/jmarkkanen/foldersync/internal/remote"
	"github.com/jmarkkanen/foldersync/internal/sync"
)

func newSyncCmd() *cobra.Command {
	var flagDryRun, flagOnce bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the sync engine",
		Long: `Run the sync engine between the configured sync_root and the remote tree.

By default this runs forever, executing one cycle immediately and then one
every poll_interval_minutes. Use --once to run a single cycle and exit.
Use --dry-run to print the planned actions without executing them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, flagOnce, flagDryRun)
		},
	}

	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "preview planned actions without executing them")
	cmd.Flags().BoolVar(&flagOnce, "once", false, "run a single cycle and exit")

	return cmd
}

func runSync(cmd *cobra.Command, once, dryRun bool) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger
	ctx := shutdownContext(cmd.Context(), logger)

	store, err := catalog.Open(cc.Cfg.Sync.CatalogPath, logger)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	if dryRun {
		return runDryRun(ctx, cc, store)
	}

	ignorePath := cc.Cfg.Filter.SyncIgnoreFile
	if !filepath.IsAbs(ignorePath) {
		ignorePath = filepath.Join(cc.Cfg.Sync.SyncRoot, ignorePath)
	}

	ignore, err := sync.LoadIgnoreMatcher(ignorePath)
	if err != nil {
		return fmt.Errorf("loading sync ignore file: %w", err)
	}

	client := newRemoteClient(cc.Cfg, logger)
	adapter := remote.NewEngineAdapter(client)

	engine := sync.NewEngine(cc.Cfg.Sync.SyncRoot, store, adapter, ignore, logger)

	if once {
		if err := engine.RunOnce(ctx); err != nil {
			return fmt.Errorf("sync cycle: %w", err)
		}

		return printStatusOnce(cc, engine.Status())
	}

	pollInterval := time.Duration(cc.Cfg.Sync.PollIntervalMinutes) * time.Minute
	engine.RunForever(ctx, pollInterval)

	return nil
}

// runDryRun computes and prints the current plan without executing it. It
// performs its own scans rather than reusing Engine.RunOnce, since a dry
// run must never touch the catalog or filesystem.
func runDryRun(ctx context.Context, cc *CLIContext, store *catalog.SQLiteStore) error {
	ignorePath := cc.Cfg.Filter.SyncIgnoreFile
	if !filepath.IsAbs(ignorePath) {
		ignorePath = filepath.Join(cc.Cfg.Sync.SyncRoot, ignorePath)
	}

	ignore, err := sync.LoadIgnoreMatcher(ignorePath)
	if err != nil {
		return fmt.Errorf("loading sync ignore file: %w", err)
	}

	localScanner := sync.NewLocalScanner(cc.Logger, ignore)

	local, err := localScanner.Scan(cc.Cfg.Sync.SyncRoot)
	if err != nil {
		return fmt.Errorf("local scan: %w", err)
	}

	client := newRemoteClient(cc.Cfg, cc.Logger)
	adapter := remote.NewEngineAdapter(client)
	remoteScanner := sync.NewRemoteScanner(adapter, cc.Logger)

	remoteSnapshot, err := remoteScanner.Scan(ctx)
	if err != nil {
		cc.Logger.Warn("dry run: remote scan failed, treating as empty", "error", err.Error())
		remoteSnapshot = sync.RemoteSnapshot{}
	}

	catalogRecords, err := store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("catalog load: %w", err)
	}

	plan := sync.Plan(local, remoteSnapshot, catalogRecords)
	lines := sync.Describe(plan)

	if len(lines) == 0 {
		fmt.Println("no actions planned")
		return nil
	}

	for _, line := range lines {
		fmt.Println(line)
	}

	return nil
}

func printStatusOnce(cc *CLIContext, status sync.SyncStatus) error {
	if cc.Flags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(status)
	}

	fmt.Printf("uploaded=%d downloaded=%d forgotten=%d errors=%d\n",
		status.FilesUploaded, status.FilesDownloaded, status.FilesForgotten, len(status.Errors))

	for _, e := range status.Errors {
		fmt.Println("  error:", e)
	}

	return nil
}

package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	progressScanLocalStart  = 0.10
	progressScanRemoteStart = 0.30
	progressCatalogLoad     = 0.40
	progressPlanComplete    = 0.50
	progressExecuteSpan     = 0.40
	progressDone            = 1.00
)

// Engine drives one sync cycle end to end: scan, plan, execute. It owns
// the single-flight guard and the observable SyncStatus.
type Engine struct {
	root   string
	store  Store
	client RemoteClient
	logger *slog.Logger
	ignore *IgnoreMatcher

	status statusBox
}

// NewEngine creates an Engine rooted at root, backed by store and client.
// ignore may be nil to disable .syncignore filtering.
func NewEngine(root string, store Store, client RemoteClient, ignore *IgnoreMatcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{root: root, store: store, client: client, logger: logger, ignore: ignore}
}

// Status returns a consistent snapshot of current engine state.
func (e *Engine) Status() SyncStatus {
	return e.status.snapshot()
}

// RunOnce runs a single sync cycle to completion. It returns ErrAlreadyRunning
// if a cycle is already in flight; it does not wait for that cycle. A cycle
// that runs to completion returns nil even if individual actions failed —
// failures are visible in Status().Errors and the audit log (spec section 7).
func (e *Engine) RunOnce(ctx context.Context) error {
	if !e.status.tryStart() {
		return ErrAlreadyRunning
	}
	defer e.status.finish()

	cycleID := uuid.NewString()
	e.logger.Info("sync: cycle starting", slog.String("cycle_id", cycleID))

	local, remote, scanErrs := e.scanBoth(ctx)

	e.status.update(func(s *SyncStatus) {
		s.CurrentOperation = "loading catalog"
		s.Progress = progressCatalogLoad
	})

	catalogRecords, err := e.store.LoadAll(ctx)
	if err != nil {
		e.logger.Error("sync: catalog load failed, aborting cycle", slog.String("error", err.Error()))
		e.status.update(func(s *SyncStatus) {
			s.Errors = append(s.Errors, "catalog load failed: "+err.Error())
		})

		return nil
	}

	plan := Plan(local, remote, catalogRecords)

	e.status.update(func(s *SyncStatus) {
		s.CurrentOperation = "planning complete"
		s.Progress = progressPlanComplete
		s.TotalFiles = unionSize(local, remote)
		s.Errors = append(s.Errors, scanErrs...)
	})

	for _, line := range Describe(plan) {
		e.logger.Debug("sync: planned action", slog.String("action", line))
	}

	executor := NewExecutor(e.root, e.store, e.client, e.logger)

	result := executor.ExecuteAll(ctx, cycleID, plan, func(i, n int, action SyncAction) {
		fraction := 0.0
		if n > 0 {
			fraction = float64(i) / float64(n)
		}

		e.status.update(func(s *SyncStatus) {
			s.CurrentOperation = action.Kind.String() + " " + action.Path
			s.Progress = progressPlanComplete + progressExecuteSpan*fraction
		})
	})

	e.status.update(func(s *SyncStatus) {
		s.FilesUploaded = result.Uploaded
		s.FilesDownloaded = result.Downloaded
		s.FilesForgotten = result.Forgotten

		for _, actionErr := range result.Errors {
			s.Errors = append(s.Errors, actionErr.Error())
		}

		s.Progress = progressDone
	})

	e.logger.Info("sync: cycle complete",
		slog.String("cycle_id", cycleID),
		slog.Int("uploaded", result.Uploaded),
		slog.Int("downloaded", result.Downloaded),
		slog.Int("forgotten", result.Forgotten),
		slog.Int("errors", len(result.Errors)),
	)

	return nil
}

// scanBoth runs the local and remote scans concurrently (spec section 2's
// data flow: Local Scanner ∥ Remote Scanner). A remote scan failure
// degrades to an empty remote snapshot plus a recorded error, never
// aborting the cycle (spec section 4.3); a top-level local scan failure
// likewise degrades to an empty local snapshot plus a recorded error, and
// the remote snapshot is kept.
func (e *Engine) scanBoth(ctx context.Context) (LocalSnapshot, RemoteSnapshot, []string) {
	var (
		local      LocalSnapshot
		remote     RemoteSnapshot
		localErr   error
		remoteErrs []string
	)

	e.status.update(func(s *SyncStatus) {
		s.CurrentOperation = "scanning local tree"
		s.Progress = progressScanLocalStart
	})

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		scanner := NewLocalScanner(e.logger, e.ignore)

		snapshot, err := scanner.Scan(e.root)
		if err != nil {
			localErr = err
			return nil
		}

		local = snapshot

		return nil
	})

	group.Go(func() error {
		e.status.update(func(s *SyncStatus) {
			s.CurrentOperation = "scanning remote tree"
			s.Progress = progressScanRemoteStart
		})

		scanner := NewRemoteScanner(e.client, e.logger)

		snapshot, err := scanner.Scan(groupCtx)
		if err != nil {
			e.logger.Warn("sync: remote scan failed, proceeding with empty remote snapshot",
				slog.String("error", err.Error()))

			remoteErrs = append(remoteErrs, "remote scan failed: "+err.Error())
			remote = RemoteSnapshot{}

			return nil
		}

		remote = snapshot

		return nil
	})

	_ = group.Wait()

	if localErr != nil {
		e.logger.Error("sync: local scan failed", slog.String("error", localErr.Error()))
		remoteErrs = append(remoteErrs, "local scan failed: "+localErr.Error())
		local = LocalSnapshot{}
	}

	if local == nil {
		local = LocalSnapshot{}
	}

	if remote == nil {
		remote = RemoteSnapshot{}
	}

	return local, remote, remoteErrs
}

// RunForever runs one cycle immediately, then one every pollInterval until
// ctx is cancelled. A tick that fires while a cycle is already running is
// skipped, not queued.
func (e *Engine) RunForever(ctx context.Context, pollInterval time.Duration) {
	if err := e.RunOnce(ctx); err != nil {
		e.logger.Warn("sync: initial cycle did not run", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("sync: run_forever exiting on cancellation")
			return
		case <-ticker.C:
			if err := e.RunOnce(ctx); err != nil {
				e.logger.Debug("sync: tick skipped, cycle already running")
			}
		}
	}
}

func unionSize(local LocalSnapshot, remote RemoteSnapshot) int {
	seen := make(map[string]struct{}, len(local)+len(remote))

	for p := range local {
		seen[p] = struct{}{}
	}

	for p := range remote {
		seen[p] = struct{}{}
	}

	return len(seen)
}

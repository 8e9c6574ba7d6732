package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmarkkanen/foldersync/internal/catalog"
)

// ActionError pairs a failed action with the error it raised, surfaced in
// SyncStatus.Errors and the audit log.
type ActionError struct {
	Action SyncAction
	Err    error
}

func (e ActionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Action.Kind, e.Action.Path, e.Err)
}

// Executor applies one SyncAction at a time against the local filesystem
// and the remote client, updating the catalog and audit log as it goes. A
// failed action never mutates the catalog for its path (invariant 3).
type Executor struct {
	root   string
	store  Store
	client RemoteClient
	logger *slog.Logger

	// abortRemote is set once a PermissionOrAuth error is seen; remaining
	// remote-dependent actions (Upload, Download) are skipped, but
	// ForgetCatalog actions still run since they are local-only.
	abortRemote bool
}

// NewExecutor creates an Executor rooted at root.
func NewExecutor(root string, store Store, client RemoteClient, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{root: root, store: store, client: client, logger: logger}
}

// ExecuteResult accumulates what happened across a batch of actions.
type ExecuteResult struct {
	Uploaded, Downloaded, Forgotten int
	Errors                          []ActionError
}

// ExecuteAll runs every action in plan, in order, reporting progress via
// onProgress before each action (i is the 0-based index, n the total).
// Invariant 3 (no mid-cycle catalog mutation on failure) and the
// PermissionOrAuth abort rule from the error taxonomy are enforced here.
func (ex *Executor) ExecuteAll(ctx context.Context, cycleID string, plan []SyncAction, onProgress func(i, n int, action SyncAction)) ExecuteResult {
	var result ExecuteResult

	ex.abortRemote = false

	for i, action := range plan {
		if onProgress != nil {
			onProgress(i, len(plan), action)
		}

		if ex.shouldSkip(action) {
			ex.logger.Info("executor: skipping remote-dependent action after permission error",
				slog.String("action", action.Kind.String()), slog.String("path", action.Path))

			continue
		}

		err := ex.execute(ctx, action)

		entry := catalog.SyncLogEntry{
			CycleID:    cycleID,
			TimestampS: time.Now().Unix(),
			Action:     toLogAction(action.Kind),
			Path:       action.Path,
			Status:     catalog.StatusSuccess,
		}

		if err != nil {
			entry.Status = catalog.StatusFailed
			entry.Error = err.Error()

			result.Errors = append(result.Errors, ActionError{Action: action, Err: err})

			if isPermissionError(err) {
				ex.abortRemote = true
			}
		} else {
			switch action.Kind {
			case ActionUpload:
				result.Uploaded++
			case ActionDownload:
				result.Downloaded++
			case ActionForget:
				result.Forgotten++
			}
		}

		if logErr := ex.store.AppendLog(ctx, entry); logErr != nil {
			// CatalogError on the log path is a warning, not a cycle abort.
			ex.logger.Warn("executor: failed to append audit log entry", slog.String("error", logErr.Error()))
		}
	}

	return result
}

func (ex *Executor) shouldSkip(action SyncAction) bool {
	return ex.abortRemote && action.Kind != ActionForget
}

func toLogAction(kind ActionKind) catalog.ActionKind {
	switch kind {
	case ActionUpload:
		return catalog.ActionUpload
	case ActionDownload:
		return catalog.ActionDownload
	default:
		return catalog.ActionForget
	}
}

func (ex *Executor) execute(ctx context.Context, action SyncAction) error {
	switch action.Kind {
	case ActionUpload:
		return ex.executeUpload(ctx, action.Path)
	case ActionDownload:
		return ex.executeDownload(ctx, action.Path)
	case ActionForget:
		return ex.executeForget(ctx, action.Path)
	default:
		return fmt.Errorf("executor: unknown action kind %v", action.Kind)
	}
}

func (ex *Executor) executeUpload(ctx context.Context, path string) error {
	absPath := filepath.Join(ex.root, filepath.FromSlash(path))

	f, err := os.Open(absPath)
	if err != nil {
		return fmt.Errorf("opening local file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat local file: %w", err)
	}

	item, err := ex.client.Upload(ctx, path, f, info.Size())
	if err != nil {
		return fmt.Errorf("uploading: %w", err)
	}

	// Re-hash post-transfer: the file may have changed mid-upload, and the
	// catalog must record what was actually observed after the transfer,
	// not what was read into the upload stream.
	entry, err := hashLocalFile(absPath)
	if err != nil {
		return fmt.Errorf("post-upload hash: %w", err)
	}

	record := catalog.FileRecord{
		Path:             path,
		ContentHash:      entry.Hash,
		SizeBytes:        entry.Size,
		LocalMtimeEpochS: entry.Mtime.Unix(),
		RemoteID:         item.RemoteID,
		LastSyncedEpochS: time.Now().Unix(),
	}

	if err := ex.store.Upsert(ctx, record); err != nil {
		// CatalogError after a successful transfer is a warning: the
		// transfer stands, and a future cycle will re-converge.
		ex.logger.Warn("executor: catalog upsert failed after successful upload",
			slog.String("path", path), slog.String("error", err.Error()))
	}

	return nil
}

func (ex *Executor) executeDownload(ctx context.Context, path string) error {
	absPath := filepath.Join(ex.root, filepath.FromSlash(path))

	if err := os.MkdirAll(filepath.Dir(absPath), 0o700); err != nil {
		return fmt.Errorf("creating parent directories: %w", err)
	}

	f, err := os.Create(absPath)
	if err != nil {
		return fmt.Errorf("creating local file: %w", err)
	}

	item, err := ex.client.Download(ctx, path, f)
	closeErr := f.Close()

	if err != nil {
		return fmt.Errorf("downloading: %w", err)
	}

	if closeErr != nil {
		return fmt.Errorf("closing downloaded file: %w", closeErr)
	}

	entry, err := hashLocalFile(absPath)
	if err != nil {
		return fmt.Errorf("post-download hash: %w", err)
	}

	record := catalog.FileRecord{
		Path:             path,
		ContentHash:      entry.Hash,
		SizeBytes:        entry.Size,
		LocalMtimeEpochS: item.Mtime, // 0 if unparseable, per spec section 4.5
		RemoteID:         item.RemoteID,
		LastSyncedEpochS: time.Now().Unix(),
	}

	if err := ex.store.Upsert(ctx, record); err != nil {
		ex.logger.Warn("executor: catalog upsert failed after successful download",
			slog.String("path", path), slog.String("error", err.Error()))
	}

	return nil
}

func (ex *Executor) executeForget(ctx context.Context, path string) error {
	return ex.store.Remove(ctx, path)
}

func hashLocalFile(absPath string) (LocalEntry, error) {
	scanner := &LocalScanner{logger: slog.New(slog.DiscardHandler)}
	return scanner.hashFile(absPath)
}

func isPermissionError(err error) bool {
	return err != nil && hasPermissionSentinel(err)
}

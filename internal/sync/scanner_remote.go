package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RemoteScanner recursively lists a remote tree and produces a
// RemoteSnapshot.
type RemoteScanner struct {
	client RemoteClient
	logger *slog.Logger
}

// NewRemoteScanner creates a scanner backed by client.
func NewRemoteScanner(client RemoteClient, logger *slog.Logger) *RemoteScanner {
	if logger == nil {
		logger = slog.Default()
	}

	return &RemoteScanner{client: client, logger: logger}
}

// Scan recursively lists the remote tree starting at "/". On any API
// failure it returns the error and an empty snapshot — never a partial
// one — so a transient failure can never be mistaken for a mass deletion
// by the planner (there is no remote-delete action at all, but a partial
// snapshot could still wrongly trigger spurious downloads of files the
// scan happened to reach before failing).
func (s *RemoteScanner) Scan(ctx context.Context) (RemoteSnapshot, error) {
	snapshot := make(RemoteSnapshot)

	if err := s.walk(ctx, "", snapshot); err != nil {
		return RemoteSnapshot{}, fmt.Errorf("remote scan: %w", err)
	}

	return snapshot, nil
}

func (s *RemoteScanner) walk(ctx context.Context, folderPath string, snapshot RemoteSnapshot) error {
	nextLink := ""

	for {
		page, err := s.client.ListChildren(ctx, folderPath, nextLink)
		if err != nil {
			return fmt.Errorf("listing %q: %w", folderPath, err)
		}

		for _, item := range page.Items {
			childPath := item.Name
			if folderPath != "" {
				childPath = folderPath + "/" + item.Name
			}

			if item.IsFolder {
				if err := s.walk(ctx, childPath, snapshot); err != nil {
					return err
				}

				continue
			}

			mtime := time.Unix(item.Mtime, 0).UTC()
			if item.Mtime == 0 {
				s.logger.Debug("remote scan: item has no parsed mtime", slog.String("path", childPath))
			}

			snapshot[childPath] = RemoteEntry{
				RemoteID: item.RemoteID,
				Mtime:    mtime,
				Size:     item.Size,
			}
		}

		if !page.HasNextPage {
			return nil
		}

		nextLink = page.NextLink
	}
}

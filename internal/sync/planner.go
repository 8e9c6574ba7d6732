package sync

import (
	"sort"

	"github.com/jmarkkanen/foldersync/internal/catalog"
)

// Plan computes the ordered sequence of actions to reconcile local, remote,
// and catalog state for one cycle (spec section 4.4's decision table).
//
// Ordering is an observable contract: all Uploads (stable by path), then
// all Downloads (stable by path), then all ForgetCatalog actions. This
// governs both audit-log row order and progress reporting.
func Plan(local LocalSnapshot, remote RemoteSnapshot, cat map[string]catalog.FileRecord) []SyncAction {
	var uploads, downloads, forgets []SyncAction

	paths := unionPaths(local, remote, cat)

	for _, path := range paths {
		localEntry, inLocal := local[path]
		remoteEntry, inRemote := remote[path]
		record, inCatalog := cat[path]

		switch {
		case inLocal && !inRemote:
			// New local file, or local changed/remote lost since last sync:
			// either way the only side with content is local.
			uploads = append(uploads, SyncAction{Kind: ActionUpload, Path: path})

		case inLocal && inRemote && !inCatalog:
			// Pre-existing on both sides but never cataloged: adopt once a
			// future cycle's hash comparison has a catalog row to compare
			// against. No action this cycle.

		case inLocal && inRemote && inCatalog:
			if localEntry.Hash != record.ContentHash {
				// Local-wins-on-conflict: the Upload test is applied before
				// the Download test, so a file that changed on both sides
				// uploads, never downloads.
				uploads = append(uploads, SyncAction{Kind: ActionUpload, Path: path})
			} else if remoteEntry.Mtime.Unix() > record.LastSyncedEpochS {
				downloads = append(downloads, SyncAction{Kind: ActionDownload, Path: path, RemoteID: remoteEntry.RemoteID})
			}

		case !inLocal && inRemote:
			downloads = append(downloads, SyncAction{Kind: ActionDownload, Path: path, RemoteID: remoteEntry.RemoteID})

		case !inLocal && !inRemote && inCatalog:
			forgets = append(forgets, SyncAction{Kind: ActionForget, Path: path})
		}
	}

	actions := make([]SyncAction, 0, len(uploads)+len(downloads)+len(forgets))
	actions = append(actions, uploads...)
	actions = append(actions, downloads...)
	actions = append(actions, forgets...)

	return actions
}

// Describe renders a plan as human-readable lines, in plan order, for
// --dry-run and verbose logging.
func Describe(plan []SyncAction) []string {
	lines := make([]string, 0, len(plan))

	for _, action := range plan {
		switch action.Kind {
		case ActionUpload:
			lines = append(lines, "upload "+action.Path)
		case ActionDownload:
			lines = append(lines, "download "+action.Path)
		case ActionForget:
			lines = append(lines, "forget "+action.Path)
		}
	}

	return lines
}

func unionPaths(local LocalSnapshot, remote RemoteSnapshot, cat map[string]catalog.FileRecord) []string {
	seen := make(map[string]struct{}, len(local)+len(remote)+len(cat))

	for p := range local {
		seen[p] = struct{}{}
	}

	for p := range remote {
		seen[p] = struct{}{}
	}

	for p := range cat {
		seen[p] = struct{}{}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}

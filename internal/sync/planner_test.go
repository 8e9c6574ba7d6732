package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarkkanen/foldersync/internal/catalog"
)

func TestPlanFreshUpload(t *testing.T) {
	local := LocalSnapshot{"notes.txt": {Hash: "2cf24dba", Size: 5}}
	plan := Plan(local, RemoteSnapshot{}, map[string]catalog.FileRecord{})

	require.Len(t, plan, 1)
	assert.Equal(t, ActionUpload, plan[0].Kind)
	assert.Equal(t, "notes.txt", plan[0].Path)
}

func TestPlanFreshDownload(t *testing.T) {
	remote := RemoteSnapshot{"a/b.txt": {RemoteID: "R-9", Mtime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Size: 5}}
	plan := Plan(LocalSnapshot{}, remote, map[string]catalog.FileRecord{})

	require.Len(t, plan, 1)
	assert.Equal(t, ActionDownload, plan[0].Kind)
	assert.Equal(t, "a/b.txt", plan[0].Path)
	assert.Equal(t, "R-9", plan[0].RemoteID)
}

func TestPlanNoOpWhenInSync(t *testing.T) {
	local := LocalSnapshot{"x.bin": {Hash: "aaaa", Size: 16}}
	remote := RemoteSnapshot{"x.bin": {RemoteID: "R-1", Mtime: time.Unix(1000, 0), Size: 16}}
	cat := map[string]catalog.FileRecord{
		"x.bin": {Path: "x.bin", ContentHash: "aaaa", SizeBytes: 16, RemoteID: "R-1", LastSyncedEpochS: 1000},
	}

	plan := Plan(local, remote, cat)
	assert.Empty(t, plan)
}

func TestPlanLocalEditWinsOverConcurrentRemoteChange(t *testing.T) {
	local := LocalSnapshot{"x.bin": {Hash: "new-local-hash", Size: 17}}
	remote := RemoteSnapshot{"x.bin": {RemoteID: "R-1", Mtime: time.Unix(5000, 0), Size: 20}}
	cat := map[string]catalog.FileRecord{
		"x.bin": {Path: "x.bin", ContentHash: "old-hash", SizeBytes: 16, RemoteID: "R-1", LastSyncedEpochS: 1000},
	}

	plan := Plan(local, remote, cat)

	require.Len(t, plan, 1)
	assert.Equal(t, ActionUpload, plan[0].Kind)
	assert.Equal(t, "x.bin", plan[0].Path)
}

func TestPlanDownloadsWhenRemoteNewerThanCatalog(t *testing.T) {
	local := LocalSnapshot{"x.bin": {Hash: "same-hash", Size: 16}}
	remote := RemoteSnapshot{"x.bin": {RemoteID: "R-1", Mtime: time.Unix(5000, 0), Size: 16}}
	cat := map[string]catalog.FileRecord{
		"x.bin": {Path: "x.bin", ContentHash: "same-hash", SizeBytes: 16, RemoteID: "R-1", LastSyncedEpochS: 1000},
	}

	plan := Plan(local, remote, cat)

	require.Len(t, plan, 1)
	assert.Equal(t, ActionDownload, plan[0].Kind)
}

func TestPlanForgetsStaleCatalogRow(t *testing.T) {
	cat := map[string]catalog.FileRecord{"gone.txt": {Path: "gone.txt"}}

	plan := Plan(LocalSnapshot{}, RemoteSnapshot{}, cat)

	require.Len(t, plan, 1)
	assert.Equal(t, ActionForget, plan[0].Kind)
	assert.Equal(t, "gone.txt", plan[0].Path)
}

func TestPlanPreExistingUncatalogedTakesNoAction(t *testing.T) {
	local := LocalSnapshot{"shared.txt": {Hash: "h1"}}
	remote := RemoteSnapshot{"shared.txt": {RemoteID: "R-5"}}

	plan := Plan(local, remote, map[string]catalog.FileRecord{})
	assert.Empty(t, plan)
}

func TestPlanOrdersUploadsBeforeDownloadsBeforeForgets(t *testing.T) {
	local := LocalSnapshot{"b_upload.txt": {Hash: "h1"}, "a_upload.txt": {Hash: "h2"}}
	remote := RemoteSnapshot{"z_download.txt": {RemoteID: "R-1"}, "y_download.txt": {RemoteID: "R-2"}}
	cat := map[string]catalog.FileRecord{"forgotten.txt": {Path: "forgotten.txt"}}

	plan := Plan(local, remote, cat)

	require.Len(t, plan, 5)
	assert.Equal(t, ActionUpload, plan[0].Kind)
	assert.Equal(t, "a_upload.txt", plan[0].Path)
	assert.Equal(t, ActionUpload, plan[1].Kind)
	assert.Equal(t, "b_upload.txt", plan[1].Path)
	assert.Equal(t, ActionDownload, plan[2].Kind)
	assert.Equal(t, "y_download.txt", plan[2].Path)
	assert.Equal(t, ActionDownload, plan[3].Kind)
	assert.Equal(t, "z_download.txt", plan[3].Path)
	assert.Equal(t, ActionForget, plan[4].Kind)
}

func TestPlanNeverEmitsRemoteDeleteAction(t *testing.T) {
	// Local deleted a file that is absent from remote too, but present in
	// catalog: only ForgetCatalog is possible, never a remote delete.
	cat := map[string]catalog.FileRecord{"deleted.txt": {Path: "deleted.txt"}}

	plan := Plan(LocalSnapshot{}, RemoteSnapshot{}, cat)

	for _, action := range plan {
		assert.Contains(t, []ActionKind{ActionUpload, ActionDownload, ActionForget}, action.Kind)
	}
}

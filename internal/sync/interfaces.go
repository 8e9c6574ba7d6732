package sync

import (
	"context"
	"io"

	"github.com/jmarkkanen/foldersync/internal/catalog"
)

// Store is the subset of the catalog the engine depends on. catalog.SQLiteStore
// satisfies it; tests use an in-memory fake.
type Store interface {
	LoadAll(ctx context.Context) (map[string]catalog.FileRecord, error)
	Upsert(ctx context.Context, record catalog.FileRecord) error
	Remove(ctx context.Context, path string) error
	AppendLog(ctx context.Context, entry catalog.SyncLogEntry) error
	TailLog(ctx context.Context, limit int) ([]catalog.SyncLogEntry, error)
}

// RemoteClient is the abstract remote-storage collaborator (spec section 1).
// internal/remote.EngineAdapter (wrapping remote.Client) satisfies it
// against a real hypertext API; tests use an in-memory fake.
type RemoteClient interface {
	// ListChildren lists one page of a folder's children. nextLink is empty
	// for the first page of a folder.
	ListChildren(ctx context.Context, folderPath, nextLink string) (Page, error)

	// Upload pushes content to remotePath and returns the resulting item.
	Upload(ctx context.Context, remotePath string, content ReadSeeker, size int64) (RemoteItem, error)

	// Download streams remotePath's content to w.
	Download(ctx context.Context, remotePath string, w Writer) (RemoteItem, error)

	// CreateFolder creates a folder at parentPath/name, idempotently.
	CreateFolder(ctx context.Context, parentPath, name string) error
}

// ReadSeeker and Writer are aliases kept local to this package so callers
// reading engine signatures don't need to cross-reference "io".
type (
	ReadSeeker = io.ReadSeeker
	Writer     = io.Writer
)

// RemoteItem is what the remote client reports back after an upload,
// download, or list operation.
type RemoteItem struct {
	RemoteID string
	Name     string
	Size     int64
	IsFolder bool
	Mtime    int64 // unix seconds, 0 if unparseable
}

// Page is one page of a ListChildren response.
type Page struct {
	Items       []RemoteItem
	NextLink    string
	HasNextPage bool
}

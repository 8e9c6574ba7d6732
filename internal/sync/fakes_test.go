package sync

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/jmarkkanen/foldersync/internal/catalog"
)

// fakeStore is an in-memory Store for tests that never exercises the real
// catalog package's SQLite backend.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]catalog.FileRecord
	log     []catalog.SyncLogEntry

	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]catalog.FileRecord)}
}

func (f *fakeStore) LoadAll(ctx context.Context) (map[string]catalog.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]catalog.FileRecord, len(f.records))
	for k, v := range f.records {
		out[k] = v
	}

	return out, nil
}

func (f *fakeStore) Upsert(ctx context.Context, record catalog.FileRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.upsertErr != nil {
		return f.upsertErr
	}

	f.records[record.Path] = record

	return nil
}

func (f *fakeStore) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.records, path)

	return nil
}

func (f *fakeStore) AppendLog(ctx context.Context, entry catalog.SyncLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.log = append(f.log, entry)

	return nil
}

func (f *fakeStore) TailLog(ctx context.Context, limit int) ([]catalog.SyncLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.log)
	if limit < n {
		n = limit
	}

	out := make([]catalog.SyncLogEntry, n)
	for i := 0; i < n; i++ {
		out[i] = f.log[len(f.log)-1-i]
	}

	return out, nil
}

// fakeRemoteClient is an in-memory RemoteClient for tests.
type fakeRemoteClient struct {
	mu      sync.Mutex
	files   map[string][]byte
	nextID  int
	listErr error
}

func newFakeRemoteClient() *fakeRemoteClient {
	return &fakeRemoteClient{files: make(map[string][]byte)}
}

func (c *fakeRemoteClient) ListChildren(ctx context.Context, folderPath, nextLink string) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listErr != nil {
		return Page{}, c.listErr
	}

	// Flat layout: only the root folder ("") has entries in these tests.
	if folderPath != "" {
		return Page{}, nil
	}

	items := make([]RemoteItem, 0, len(c.files))
	for path, content := range c.files {
		items = append(items, RemoteItem{RemoteID: "R-" + path, Name: path, Size: int64(len(content))})
	}

	return Page{Items: items}, nil
}

func (c *fakeRemoteClient) Upload(ctx context.Context, remotePath string, content io.ReadSeeker, size int64) (RemoteItem, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return RemoteItem{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.files[remotePath] = data

	return RemoteItem{RemoteID: "R-up", Size: int64(len(data))}, nil
}

func (c *fakeRemoteClient) Download(ctx context.Context, remotePath string, w io.Writer) (RemoteItem, error) {
	c.mu.Lock()
	data, ok := c.files[remotePath]
	c.mu.Unlock()

	if !ok {
		return RemoteItem{}, io.ErrUnexpectedEOF
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return RemoteItem{}, err
	}

	return RemoteItem{RemoteID: "R-" + remotePath, Size: int64(len(data))}, nil
}

func (c *fakeRemoteClient) CreateFolder(ctx context.Context, parentPath, name string) error {
	return nil
}

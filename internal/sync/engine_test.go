package sync

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnceUploadsNewLocalFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o600))

	store := newFakeStore()
	client := newFakeRemoteClient()
	engine := NewEngine(root, store, client, nil, testSilentLogger())

	require.NoError(t, engine.RunOnce(context.Background()))

	status := engine.Status()
	assert.Equal(t, 1, status.FilesUploaded)
	assert.False(t, status.IsSyncing)
	assert.Equal(t, 1.0, status.Progress)
	assert.NotNil(t, status.LastSyncEnd)
}

func TestRunOnceIsIdempotentOnSecondCycle(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o600))

	store := newFakeStore()
	client := newFakeRemoteClient()
	engine := NewEngine(root, store, client, nil, testSilentLogger())

	require.NoError(t, engine.RunOnce(context.Background()))
	require.NoError(t, engine.RunOnce(context.Background()))

	status := engine.Status()
	assert.Equal(t, 0, status.FilesUploaded)
	assert.Equal(t, 0, status.FilesDownloaded)
	assert.Equal(t, 0, status.FilesForgotten)
}

// blockingRemoteClient blocks its first Upload call until proceed is
// closed, signalling started once it is entered. This lets a test hold one
// RunOnce mid-cycle while a second RunOnce is attempted concurrently.
type blockingRemoteClient struct {
	*fakeRemoteClient
	started   chan struct{}
	proceed   chan struct{}
	closeOnce sync.Once
}

func newBlockingRemoteClient() *blockingRemoteClient {
	return &blockingRemoteClient{
		fakeRemoteClient: newFakeRemoteClient(),
		started:          make(chan struct{}),
		proceed:          make(chan struct{}),
	}
}

func (c *blockingRemoteClient) Upload(ctx context.Context, remotePath string, content io.ReadSeeker, size int64) (RemoteItem, error) {
	c.closeOnce.Do(func() { close(c.started) })
	<-c.proceed

	return c.fakeRemoteClient.Upload(ctx, remotePath, content, size)
}

func TestRunOnceSingleFlightRejectsConcurrentCall(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o600))

	store := newFakeStore()
	client := newBlockingRemoteClient()
	engine := NewEngine(root, store, client, nil, testSilentLogger())

	var wg sync.WaitGroup
	results := make([]error, 2)

	wg.Add(1)

	go func() {
		defer wg.Done()
		results[0] = engine.RunOnce(context.Background())
	}()

	<-client.started
	results[1] = engine.RunOnce(context.Background())
	close(client.proceed)

	wg.Wait()

	successCount, alreadyRunningCount := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, ErrAlreadyRunning):
			alreadyRunningCount++
		}
	}

	assert.Equal(t, 1, successCount)
	assert.Equal(t, 1, alreadyRunningCount)
}

func TestRunOnceRemoteScanFailureDegradesToEmptySnapshot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "local_only.txt"), []byte("x"), 0o600))

	store := newFakeStore()
	client := newFakeRemoteClient()
	client.listErr = errors.New("network unreachable")

	engine := NewEngine(root, store, client, nil, testSilentLogger())
	require.NoError(t, engine.RunOnce(context.Background()))

	status := engine.Status()
	assert.Equal(t, 1, status.FilesUploaded)
	require.Len(t, status.Errors, 1)
	assert.Contains(t, status.Errors[0], "network unreachable")
}

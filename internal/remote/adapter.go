package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmarkkanen/foldersync/internal/sync"
)

// translate wraps a remote API error in sync.ErrRemotePermission when it
// represents a permission or authentication failure, so the executor can
// classify it without importing this package.
func translate(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrPermission) || errors.Is(err, ErrNotAuthenticated) {
		return fmt.Errorf("%w: %v", sync.ErrRemotePermission, err)
	}

	return err
}

// EngineAdapter satisfies sync.RemoteClient on top of Client, translating
// between this package's Item/Page shapes and the engine's narrower
// RemoteItem/Page types. The engine never imports this package directly;
// wiring code constructs an EngineAdapter and hands it to sync.NewEngine.
type EngineAdapter struct {
	client *Client
}

// NewEngineAdapter wraps client for use by the sync engine.
func NewEngineAdapter(client *Client) *EngineAdapter {
	return &EngineAdapter{client: client}
}

func toRemoteItem(it Item) sync.RemoteItem {
	return sync.RemoteItem{
		RemoteID: it.ID,
		Name:     it.Name,
		Size:     it.Size,
		IsFolder: it.IsFolder,
		Mtime:    it.ModifiedAt.Unix(),
	}
}

func (a *EngineAdapter) ListChildren(ctx context.Context, folderPath, nextLink string) (sync.Page, error) {
	page, err := a.client.ListChildren(ctx, folderPath, nextLink)
	if err != nil {
		return sync.Page{}, translate(err)
	}

	items := make([]sync.RemoteItem, 0, len(page.Items))
	for _, it := range page.Items {
		items = append(items, toRemoteItem(it))
	}

	return sync.Page{Items: items, NextLink: page.NextLink, HasNextPage: page.HasNextPage}, nil
}

func (a *EngineAdapter) Upload(ctx context.Context, remotePath string, content sync.ReadSeeker, size int64) (sync.RemoteItem, error) {
	it, err := a.client.Upload(ctx, remotePath, content, size)
	if err != nil {
		return sync.RemoteItem{}, translate(err)
	}

	return toRemoteItem(it), nil
}

func (a *EngineAdapter) Download(ctx context.Context, remotePath string, w sync.Writer) (sync.RemoteItem, error) {
	it, err := a.client.Download(ctx, remotePath, w)
	if err != nil {
		return sync.RemoteItem{}, translate(err)
	}

	return toRemoteItem(it), nil
}

func (a *EngineAdapter) CreateFolder(ctx context.Context, parentPath, name string) error {
	return translate(a.client.CreateFolder(ctx, parentPath, name))
}

package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// itemResponse is the API's JSON shape for one remote object. parseTimestamp
// decides how lastModified turns into an Item.ModifiedAt.
type itemResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Folder       bool   `json:"folder"`
	LastModified string `json:"lastModified"`
	DownloadURL  string `json:"downloadUrl,omitempty"`
}

type childrenResponse struct {
	Items    []itemResponse `json:"items"`
	NextLink string         `json:"nextLink"`
}

func (c *Client) toItem(r itemResponse) Item {
	return Item{
		ID:         r.ID,
		Name:       r.Name,
		Size:       r.Size,
		IsFolder:   r.Folder,
		ModifiedAt: parseTimestamp(r.LastModified, c.logger),
	}
}

// parseTimestamp parses the server's ISO-8601 lastModified field. A missing
// or malformed timestamp falls back to the Unix epoch, never to the current
// time: a file that looks infinitely old is re-evaluated honestly by the
// planner on the next cycle, while a file that looks freshly modified would
// wrongly win a conflict it never earned.
func parseTimestamp(raw string, logger interface{ Warn(string, ...any) }) time.Time {
	if raw == "" {
		return time.Unix(0, 0).UTC()
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if logger != nil {
			logger.Warn("remote: unparseable timestamp, falling back to epoch", "raw", raw, "error", err.Error())
		}

		return time.Unix(0, 0).UTC()
	}

	return t
}

// ListChildren fetches one page of children under folderPath, or the next
// page when nextLink is non-empty (spec section 6: GET .../children with
// next_link pagination).
func (c *Client) ListChildren(ctx context.Context, folderPath, nextLink string) (Page, error) {
	path := nextLink
	if path == "" {
		path = "/items/root/children?path=" + url.QueryEscape(folderPath)
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Page{}, fmt.Errorf("remote: list_children %q: %w", folderPath, err)
	}
	defer resp.Body.Close()

	var decoded childrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Page{}, fmt.Errorf("remote: list_children decode: %w", err)
	}

	items := make([]Item, 0, len(decoded.Items))
	for _, raw := range decoded.Items {
		items = append(items, c.toItem(raw))
	}

	return Page{
		Items:       items,
		NextLink:    decoded.NextLink,
		HasNextPage: decoded.NextLink != "",
	}, nil
}

// GetItem fetches metadata for a single remote path.
func (c *Client) GetItem(ctx context.Context, remotePath string) (Item, error) {
	path := "/items/root?path=" + url.QueryEscape(remotePath)

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Item{}, fmt.Errorf("remote: get_item %q: %w", remotePath, err)
	}
	defer resp.Body.Close()

	var raw itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Item{}, fmt.Errorf("remote: get_item decode: %w", err)
	}

	return c.toItem(raw), nil
}

// CreateFolder creates a folder at parentPath/name, idempotently: the API
// treats a create against an existing folder path as a no-op success.
func (c *Client) CreateFolder(ctx context.Context, parentPath, name string) error {
	payload, err := json.Marshal(map[string]any{
		"name":            name,
		"folder":          true,
		"conflictPolicy":  "replace",
		"parentReference": map[string]string{"path": parentPath},
	})
	if err != nil {
		return fmt.Errorf("remote: create_folder marshal: %w", err)
	}

	path := "/items/root/children?path=" + url.QueryEscape(parentPath)

	resp, err := c.do(ctx, http.MethodPost, path, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("remote: create_folder %q/%q: %w", parentPath, name, err)
	}
	defer resp.Body.Close()

	return nil
}

// DeleteItem removes a remote object by path. Nothing in the repository
// calls it: the engine never deletes remote content (never-delete stance,
// spec section 1), and a failed chunked upload does not discard its target.
func (c *Client) DeleteItem(ctx context.Context, remotePath string) error {
	path := "/items/root?path=" + url.QueryEscape(remotePath)

	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("remote: delete_item %q: %w", remotePath, err)
	}
	defer resp.Body.Close()

	return nil
}

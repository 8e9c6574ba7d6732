package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Download streams remotePath's content to w. It first fetches item
// metadata to obtain a pre-authenticated download URL, then issues an
// unauthenticated GET against that URL directly — the URL embeds its own
// short-lived credential, so it is never logged and never passed through
// c.do's bearer-auth path.
func (c *Client) Download(ctx context.Context, remotePath string, w io.Writer) (Item, error) {
	path := "/items/root?path=" + url.QueryEscape(remotePath) + "&select=downloadUrl"

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Item{}, fmt.Errorf("remote: download metadata %q: %w", remotePath, err)
	}

	var raw itemResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&raw)
	resp.Body.Close()

	if decodeErr != nil {
		return Item{}, fmt.Errorf("remote: download metadata decode %q: %w", remotePath, decodeErr)
	}

	if raw.DownloadURL == "" {
		return Item{}, fmt.Errorf("remote: download %q: %w", remotePath, ErrNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw.DownloadURL, nil)
	if err != nil {
		return Item{}, fmt.Errorf("remote: build download request: %w", err)
	}

	dlResp, err := c.httpClient.Do(req)
	if err != nil {
		return Item{}, fmt.Errorf("remote: download %q: %w", remotePath, err)
	}
	defer dlResp.Body.Close()

	if dlResp.StatusCode != http.StatusOK {
		return Item{}, &APIError{StatusCode: dlResp.StatusCode, Path: "(download url withheld)", Err: classifyStatus(dlResp.StatusCode)}
	}

	if _, err := io.Copy(w, dlResp.Body); err != nil {
		return Item{}, fmt.Errorf("remote: download %q: streaming body: %w", remotePath, err)
	}

	return c.toItem(raw), nil
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sethvargo/go-retry"
)

// SimpleUploadMaxSize is the largest payload the simple PUT upload path
// accepts; anything larger must go through a resumable upload session
// (spec section 6).
const SimpleUploadMaxSize = 4 * 1024 * 1024 // 4 MiB

// ChunkSize is the size of each PUT in a resumable upload session. The API
// requires chunk boundaries aligned to this size, except for the final
// chunk of a file.
const ChunkSize = 320 * 1024 // 320 KiB

// Upload pushes local content to remotePath, choosing the simple or
// resumable path based on size. content must support Seek so a transient
// failure partway through a chunked upload can retry from the last
// confirmed offset.
func (c *Client) Upload(ctx context.Context, remotePath string, content io.ReadSeeker, size int64) (Item, error) {
	if size <= SimpleUploadMaxSize {
		return c.simpleUpload(ctx, remotePath, content)
	}

	return c.chunkedUpload(ctx, remotePath, content, size)
}

func (c *Client) simpleUpload(ctx context.Context, remotePath string, content io.ReadSeeker) (Item, error) {
	path := "/items/root/content?path=" + url.QueryEscape(remotePath)

	resp, err := c.do(ctx, http.MethodPut, path, content)
	if err != nil {
		return Item{}, fmt.Errorf("remote: simple upload %q: %w", remotePath, err)
	}
	defer resp.Body.Close()

	var raw itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Item{}, fmt.Errorf("remote: simple upload decode %q: %w", remotePath, err)
	}

	return c.toItem(raw), nil
}

type uploadSessionResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// createUploadSession opens a resumable upload session for remotePath.
func (c *Client) createUploadSession(ctx context.Context, remotePath string) (string, error) {
	payload, err := json.Marshal(map[string]any{"item": map[string]string{"conflictPolicy": "replace"}})
	if err != nil {
		return "", fmt.Errorf("remote: create_upload_session marshal: %w", err)
	}

	path := "/items/root/createUploadSession?path=" + url.QueryEscape(remotePath)

	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("remote: create_upload_session %q: %w", remotePath, err)
	}
	defer resp.Body.Close()

	var decoded uploadSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("remote: create_upload_session decode: %w", err)
	}

	return decoded.UploadURL, nil
}

// chunkedUpload uploads content in ChunkSize pieces against a resumable
// session. Each chunk PUT goes through the same retry path as any other
// request, so a transient failure on one chunk retries just that chunk,
// not the whole file.
func (c *Client) chunkedUpload(ctx context.Context, remotePath string, content io.ReadSeeker, size int64) (Item, error) {
	uploadURL, err := c.createUploadSession(ctx, remotePath)
	if err != nil {
		return Item{}, err
	}

	var final itemResponse

	for offset := int64(0); offset < size; offset += ChunkSize {
		end := offset + ChunkSize
		if end > size {
			end = size
		}

		chunk := make([]byte, end-offset)
		if _, err := content.Seek(offset, io.SeekStart); err != nil {
			return Item{}, fmt.Errorf("remote: chunked upload seek: %w", err)
		}

		if _, err := io.ReadFull(content, chunk); err != nil {
			return Item{}, fmt.Errorf("remote: chunked upload read at offset %d: %w", offset, err)
		}

		var resp *http.Response

		err := retry.Do(ctx, retry.WithMaxRetries(maxRetries, retry.NewExponential(baseBackoff)), func(ctx context.Context) error {
			r, putErr := c.putChunk(ctx, uploadURL, chunk, offset, end, size)

			var apiErr *APIError
			if putErr != nil && (!errors.As(putErr, &apiErr) || isRetryable(apiErr.StatusCode)) {
				return retry.RetryableError(putErr)
			}

			resp = r

			return putErr
		})
		if err != nil {
			return Item{}, fmt.Errorf("remote: chunked upload %q offset %d: %w", remotePath, offset, err)
		}

		if end == size {
			if err := json.NewDecoder(resp.Body).Decode(&final); err != nil {
				resp.Body.Close()
				return Item{}, fmt.Errorf("remote: chunked upload final decode: %w", err)
			}
		}

		resp.Body.Close()
	}

	return c.toItem(final), nil
}

// putChunk issues a single chunk PUT directly against the session's
// upload URL, bypassing c.do because the session URL is pre-authenticated
// and already absolute.
func (c *Client) putChunk(ctx context.Context, uploadURL string, chunk []byte, offset, end, total int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(chunk))
	if err != nil {
		return nil, fmt.Errorf("remote: build chunk request: %w", err)
	}

	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, end-1, total))
	req.Header.Set("Content-Length", fmt.Sprintf("%d", len(chunk)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		return nil, &APIError{StatusCode: resp.StatusCode, Path: uploadURL, Body: string(body), Err: classifyStatus(resp.StatusCode)}
	}

	return resp, nil
}

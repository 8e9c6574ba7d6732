package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultBaseURL is a placeholder production endpoint; real deployments
// configure this via NetworkConfig.BaseURL.
const DefaultBaseURL = "https://api.example-cloud.test/v1"

const (
	maxRetries  = 5
	baseBackoff = 1 * time.Second
	maxBackoff  = 60 * time.Second
	userAgent   = "foldersync/0.1"
)

// TokenSource adapts the external credential manager's current_bearer()
// contract (spec section 1) to something net/http can use. Real wiring
// hands this an oauth2.TokenSource-backed implementation; tests hand it a
// static string.
type TokenSource interface {
	// Token returns the current bearer token, or ErrNotAuthenticated if
	// the credential manager has none.
	Token(ctx context.Context) (string, error)
}

// Client is an HTTP client for the remote object service. It owns request
// construction, bearer authentication, and retry with exponential backoff
// on transient failures — the engine never retries itself (spec section 7:
// "the remote client is responsible for its own connect/read timeouts and
// retry-on-transient-network-error").
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
}

// NewClient creates a remote API client.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{baseURL: baseURL, httpClient: httpClient, token: token, logger: logger}
}

// do executes an authenticated request, retrying transient failures with
// exponential backoff and jitter via sethvargo/go-retry.
func (c *Client) do(ctx context.Context, method, path string, body io.ReadSeeker) (*http.Response, error) {
	backoff := retry.NewExponential(baseBackoff)
	backoff = retry.WithMaxRetries(maxRetries, backoff)
	backoff = retry.WithCappedDuration(maxBackoff, backoff)
	backoff = retry.WithJitterPercent(25, backoff)

	var resp *http.Response

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if body != nil {
			if _, err := body.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("remote: rewinding request body: %w", err)
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = body
		}

		attemptResp, err := c.attempt(ctx, method, path, bodyReader)
		if err != nil {
			c.logger.Warn("remote: request attempt failed",
				slog.String("method", method), slog.String("path", path), slog.String("error", err.Error()))

			return retry.RetryableError(err)
		}

		if attemptResp.StatusCode >= http.StatusOK && attemptResp.StatusCode < http.StatusMultipleChoices {
			resp = attemptResp
			return nil
		}

		apiErr := c.toAPIError(path, attemptResp)

		if isRetryable(attemptResp.StatusCode) {
			if wait := retryAfter(attemptResp); wait > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}

			return retry.RetryableError(apiErr)
		}

		return apiErr
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) attempt(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	tok, err := c.token.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote: obtaining bearer token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("remote: building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) toAPIError(path string, resp *http.Response) *APIError {
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		bodyBytes = []byte("(failed to read response body)")
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Path:       path,
		Body:       string(bodyBytes),
		Err:        classifyStatus(resp.StatusCode),
	}
}

// retryAfter honors a 429 response's Retry-After header, if present.
func retryAfter(resp *http.Response) time.Duration {
	if resp.StatusCode != http.StatusTooManyRequests {
		return 0
	}

	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return 0
}

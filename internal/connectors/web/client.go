package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"farmcalc/internal/config"
)

const (
	maxAttempts  = 5
	maxBodyInErr = 200
	userAgent    = "farmcalc/1.0 (+price sync)"
)

type Client struct {
	httpClient *http.Client
	limiter    *RateLimiter
	retryBase  time.Duration
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.FetchTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.FetchRateLimitRPS),
		retryBase:  250 * time.Millisecond,
	}
}

// Get fetches url, retrying transport errors and 429/5xx responses with
// exponential backoff.
func (c *Client) Get(ctx context.Context, url, accept string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				lastErr = fmt.Errorf("%s: status %d", url, resp.StatusCode)
				if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("fetch %s: status=%d body=%s", url, resp.StatusCode, truncate(body, maxBodyInErr))
		}

		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (c *Client) backoff(attempt int) time.Duration {
	jitter := time.Duration(rand.Int63n(int64(c.retryBase/2) + 1))
	return c.retryBase*time.Duration(1<<(attempt-1)) + jitter
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}

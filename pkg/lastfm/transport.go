package lastfm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const methodRecentTracks = "user.getrecenttracks"

// maxBodySize bounds how much of a response body is read. A full page of
// 1000 extended tracks is well under this.
const maxBodySize = 16 << 20

// pageQuery selects one page of user.getRecentTracks.
type pageQuery struct {
	limit int
	from  *int64 // Unix seconds, inclusive lower bound
	to    *int64 // Unix seconds, upper bound
}

// requestURL builds the request URL for q.
func (c *Client) requestURL(q pageQuery, apiKey string) string {
	params := url.Values{}
	params.Set("method", methodRecentTracks)
	params.Set("user", c.username)
	params.Set("format", "json")
	params.Set("extended", "1")
	params.Set("limit", strconv.Itoa(q.limit))
	params.Set("api_key", apiKey)
	if q.from != nil {
		params.Set("from", strconv.FormatInt(*q.from, 10))
	}
	if q.to != nil {
		params.Set("to", strconv.FormatInt(*q.to, 10))
	}

	u := *c.baseURL
	u.RawQuery = params.Encode()
	return u.String()
}

// fetchPage fetches one page, retrying transport failures and temporary
// Last.fm errors as allowed by the retry strategy.
//
// It handles:
// - Request construction with proper headers
// - Response decoding (JSON)
// - Fatal vs temporary Last.fm errors
// - Context cancellation, including during backoff waits
func (c *Client) fetchPage(ctx context.Context, q pageQuery) (*Page, error) {
	reqURL := c.requestURL(q, c.apiKey)
	logURL := c.requestURL(q, MaskAPIKey(c.apiKey))

	var errs []error
	for attempt := 0; ; attempt++ {
		delay, ok := c.retry.RetryAfter(attempt)
		if !ok {
			c.logDebugf("lastfm: giving up on %s after %d attempts", methodRecentTracks, attempt)
			return nil, &TooManyRetriesError{Errors: errs}
		}

		if delay > 0 {
			c.logDebugf("lastfm: waiting %s before attempt %d", delay, attempt+1)
		}
		if !sleep(ctx, delay) {
			return nil, fmt.Errorf("lastfm: %s cancelled: %w", methodRecentTracks, ctx.Err())
		}

		c.logDebugf("lastfm: calling %s (attempt %d): %s", methodRecentTracks, attempt+1, logURL)

		page, err := c.doPage(ctx, reqURL)
		if err == nil {
			c.logDebugf("lastfm: %s succeeded (%d tracks, total %d)", methodRecentTracks, len(page.Tracks), page.TotalCount)
			return page, nil
		}

		// A cancelled context surfaces as a transport error; do not retry it.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("lastfm: %s cancelled: %w", methodRecentTracks, ctxErr)
		}

		if !isRetryableError(err) {
			return nil, err
		}

		c.logDebugf("lastfm: temporary error, retrying: %v", err)
		errs = append(errs, err)
	}
}

// doPage performs a single HTTP exchange and decodes the body.
func (c *Client) doPage(ctx context.Context, reqURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: stripURL(err)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	_ = resp.Body.Close()
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	decoded, decodeErr := decodePageResponse(body)
	if decodeErr != nil {
		// Last.fm reports API errors with non-200 statuses too, so the body
		// is checked first. A body that is not an envelope is only
		// meaningful if the status was OK.
		if resp.StatusCode != http.StatusOK {
			return nil, &TransportError{
				StatusCode: resp.StatusCode,
				Err:        errors.New(http.StatusText(resp.StatusCode)),
			}
		}
		return nil, decodeErr
	}

	if decoded.remote != nil {
		return nil, decoded.remote
	}
	return decoded.page, nil
}

// stripURL drops the request URL from *url.Error so the API key is not
// copied into error messages.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// sleep waits for the specified duration or until context is cancelled.
// Returns true if sleep completed, false if context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	if err := ctx.Err(); err != nil {
		return false
	}
	if duration <= 0 {
		return true
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
